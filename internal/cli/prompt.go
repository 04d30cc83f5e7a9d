package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
)

// HuhConfirmer asks yes/no questions on the terminal
type HuhConfirmer struct{}

func (HuhConfirmer) Confirm(title, message string) (bool, error) {
	ok := false
	err := huh.NewConfirm().
		Title(title).
		Description(message).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	if err != nil {
		return false, fmt.Errorf("confirmation aborted: %w", err)
	}
	return ok, nil
}

// UserFormModel backs the interactive user form
type UserFormModel struct {
	Name     string
	Nickname string
	Schedule string // "Mon=15:00-18:00,Sat=10:00-12:00"
}

// NewUserForm builds the add/edit user form. Schedule input is validated
// with parse.
func NewUserForm(fm *UserFormModel, parse func(string) error) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Value(&fm.Name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("name is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Nickname").
				Description("Optional; shown instead of the name").
				Value(&fm.Nickname),
			huh.NewInput().
				Title("Schedule").
				Description("Comma separated Day=HH:MM-HH:MM, e.g. Mon=15:00-18:00").
				Value(&fm.Schedule).
				Validate(parse),
		),
	)
}

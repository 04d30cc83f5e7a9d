package users

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/roulendz/timebank/internal/cli"
	"github.com/roulendz/timebank/internal/models"
	"github.com/roulendz/timebank/internal/utils"
	"github.com/roulendz/timebank/internal/validation"
	"github.com/roulendz/timebank/internal/wallet"
)

var currentStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))

// ParseSchedule parses "Mon=15:00-18:00,Sat=10:00-12:00". Listed days are
// enabled. An empty string is an empty schedule.
func ParseSchedule(s string) ([]models.ScheduleDay, error) {
	schedule := []models.ScheduleDay{}
	if strings.TrimSpace(s) == "" {
		return schedule, nil
	}

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		day, window, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("invalid schedule entry %q (expected Day=HH:MM-HH:MM)", part)
		}
		wd, err := validation.ParseWeekday(day)
		if err != nil {
			return nil, err
		}
		start, end, ok := strings.Cut(strings.TrimSpace(window), "-")
		if !ok {
			return nil, fmt.Errorf("invalid time range %q for %s", window, wd)
		}
		schedule = append(schedule, models.ScheduleDay{
			Day:       wd.String(),
			StartTime: strings.TrimSpace(start),
			EndTime:   strings.TrimSpace(end),
			Enabled:   true,
		})
	}

	if conflicts := validation.New().ValidateSchedule(schedule); len(conflicts) > 0 {
		return nil, fmt.Errorf("%s", conflicts[0].Description)
	}
	return schedule, nil
}

// FormatSchedule is the inverse of ParseSchedule for enabled days.
func FormatSchedule(schedule []models.ScheduleDay) string {
	var parts []string
	for _, d := range schedule {
		if !d.Enabled {
			continue
		}
		day := d.Day
		if len(day) > 3 {
			day = day[:3]
		}
		parts = append(parts, fmt.Sprintf("%s=%s-%s", day, d.StartTime, d.EndTime))
	}
	return strings.Join(parts, ",")
}

func checkSchedule(s string) error {
	_, err := ParseSchedule(s)
	return err
}

type UserAddCmd struct {
	Name        string `arg:"" optional:"" help:"Name of the child."`
	Nickname    string `help:"Nickname shown instead of the name."`
	Schedule    string `help:"Usage schedule, e.g. Mon=15:00-18:00,Sat=10:00-12:00."`
	Interactive bool   `short:"i" help:"Fill in the user with a form."`
	Select      bool   `help:"Make the new user the current user."`
}

func (c *UserAddCmd) Run(ctx *cli.Context) error {
	if c.Interactive {
		fm := &cli.UserFormModel{Name: c.Name, Nickname: c.Nickname, Schedule: c.Schedule}
		if err := cli.NewUserForm(fm, checkSchedule).Run(); err != nil {
			return err
		}
		c.Name, c.Nickname, c.Schedule = fm.Name, fm.Nickname, fm.Schedule
	}

	name := strings.TrimSpace(c.Name)
	if name == "" {
		return fmt.Errorf("a name is required")
	}
	schedule, err := ParseSchedule(c.Schedule)
	if err != nil {
		return err
	}

	id, err := ctx.Ledger.AddUser(name, strings.TrimSpace(c.Nickname), schedule)
	if err := ctx.Check(err); err != nil {
		return fmt.Errorf("failed to add user: %w", err)
	}
	ctx.Printf("Added user: %s (ID: %s)\n", name, id)

	if c.Select {
		if err := ctx.Check(ctx.Ledger.SetCurrentUserID(id)); err != nil {
			return err
		}
		ctx.Printf("Now acting as %s\n", name)
	}
	return nil
}

type UserListCmd struct{}

func (c *UserListCmd) Run(ctx *cli.Context) error {
	current := ctx.Ledger.GetCurrentUserID()
	now := ctx.Now()

	for _, u := range ctx.Ledger.GetUsers() {
		marker := "  "
		name := u.DisplayName()
		if u.ID == current {
			marker = "* "
			name = currentStyle.Render(name)
		}
		available := wallet.TotalAvailableToday(u.ActivityLog, now)
		holidayBalance := wallet.HolidayBalance(u.Deposits)
		ctx.Printf("%s%-20s ID: %-36s today: %s  holiday: %s\n",
			marker, name, u.ID, utils.FormatDuration(available), utils.FormatDuration(holidayBalance))
		if s := FormatSchedule(u.Schedule); s != "" {
			ctx.Printf("    schedule: %s\n", s)
		}
	}
	return nil
}

type UserEditCmd struct {
	User        string  `arg:"" help:"User ID or name."`
	Name        *string `help:"New name."`
	Nickname    *string `help:"New nickname."`
	Schedule    *string `help:"New schedule (replaces the old one)."`
	Interactive bool    `short:"i" help:"Edit the user with a form."`
}

func (c *UserEditCmd) Run(ctx *cli.Context) error {
	id, err := ctx.FindUser(c.User)
	if err != nil {
		return err
	}
	user, err := ctx.Ledger.GetUser(id)
	if err != nil {
		return err
	}

	if c.Interactive {
		fm := &cli.UserFormModel{Name: user.Name, Nickname: user.Nickname, Schedule: FormatSchedule(user.Schedule)}
		if err := cli.NewUserForm(fm, checkSchedule).Run(); err != nil {
			return err
		}
		c.Name, c.Nickname, c.Schedule = &fm.Name, &fm.Nickname, &fm.Schedule
	}

	updated := false
	if c.Name != nil {
		name := strings.TrimSpace(*c.Name)
		if name == "" {
			return fmt.Errorf("name cannot be empty")
		}
		user.Name = name
		updated = true
	}
	if c.Nickname != nil {
		user.Nickname = strings.TrimSpace(*c.Nickname)
		updated = true
	}
	if c.Schedule != nil {
		schedule, err := ParseSchedule(*c.Schedule)
		if err != nil {
			return err
		}
		user.Schedule = schedule
		updated = true
	}

	if !updated {
		ctx.Println("No changes specified. Use --name, --nickname, --schedule or -i.")
		return nil
	}
	if err := ctx.Check(ctx.Ledger.UpdateUser(user)); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	ctx.Printf("Updated user: %s\n", user.DisplayName())
	return nil
}

type UserDeleteCmd struct {
	User string `arg:"" help:"User ID or name."`
	Yes  bool   `short:"y" help:"Do not ask for confirmation."`
}

func (c *UserDeleteCmd) Run(ctx *cli.Context) error {
	id, err := ctx.FindUser(c.User)
	if err != nil {
		return err
	}
	user, _ := ctx.Ledger.GetUser(id)
	if user.IsDefault() {
		return fmt.Errorf("the default user cannot be deleted")
	}

	if !c.Yes && ctx.Confirm != nil {
		ok, err := ctx.Confirm.Confirm(
			fmt.Sprintf("Delete %s?", user.DisplayName()),
			fmt.Sprintf("%d activities and %d holiday deposits will be lost.", len(user.ActivityLog), len(user.Deposits)),
		)
		if err != nil {
			return err
		}
		if !ok {
			ctx.Println("Delete cancelled.")
			return nil
		}
	}

	ctx.PerformAutomaticBackup()

	deleted, err := ctx.Ledger.DeleteUser(id)
	if err := ctx.Check(err); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if !deleted {
		return fmt.Errorf("user %s was not deleted", c.User)
	}
	ctx.Printf("Deleted user: %s\n", user.DisplayName())
	return nil
}

type UserSelectCmd struct {
	User string `arg:"" help:"User ID or name."`
}

func (c *UserSelectCmd) Run(ctx *cli.Context) error {
	id, err := ctx.FindUser(c.User)
	if err != nil {
		return err
	}
	if err := ctx.Check(ctx.Ledger.SetCurrentUserID(id)); err != nil {
		return err
	}
	user, _ := ctx.Ledger.GetUser(id)
	ctx.Printf("Now acting as %s\n", user.DisplayName())
	return nil
}

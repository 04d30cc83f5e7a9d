package settings

import (
	"fmt"
	"sort"

	"github.com/roulendz/timebank/internal/cli"
	"github.com/roulendz/timebank/internal/constants"
	"github.com/roulendz/timebank/internal/models"
	"github.com/roulendz/timebank/internal/validation"
)

type SettingsCmd struct {
	List bool `help:"List current settings."`

	AutoDeposit       *bool             `help:"Move every finished activity straight to the holiday wallet."`
	WeekendToNextWeek *bool             `help:"Let weekend deposits expire one week later."`
	HolidayBonus      *float64          `help:"Bonus percentage for holiday deposits (0-100)."`
	WeeklyBonus       *float64          `help:"Bonus percentage for a full week of deposits (0-100)."`
	Set               map[string]string `help:"Set a setting by key, e.g. --set holiday_bonus_percentage=15." mapsep:","`
}

func (c *SettingsCmd) Run(ctx *cli.Context) error {
	uid, err := ctx.UserID()
	if err != nil {
		return err
	}
	settings, err := ctx.Ledger.GetUserSettings(uid)
	if err := ctx.Check(err); err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	if c.List {
		user, _ := ctx.Ledger.GetUser(uid)
		ctx.Printf("Settings for %s:\n", user.DisplayName())
		ctx.Printf("  Auto Deposit to Holiday:   %v\n", settings.AutoDepositToHoliday)
		ctx.Printf("  Weekend Time to Next Week: %v\n", settings.WeekendTimeToNextWeek)
		ctx.Printf("  Holiday Bonus:             %v%%\n", settings.HolidayBonusPercentage)
		ctx.Printf("  Weekly Bonus:              %v%%\n", settings.WeeklyBonusPercentage)
		ctx.Println("\nKeys:")
		for _, k := range models.SettingKeys() {
			ctx.Printf("  %s\n", k)
		}
		return nil
	}

	updated := false
	if c.AutoDeposit != nil {
		settings.AutoDepositToHoliday = *c.AutoDeposit
		updated = true
	}
	if c.WeekendToNextWeek != nil {
		settings.WeekendTimeToNextWeek = *c.WeekendToNextWeek
		updated = true
	}
	if c.HolidayBonus != nil {
		settings.HolidayBonusPercentage = *c.HolidayBonus
		updated = true
	}
	if c.WeeklyBonus != nil {
		settings.WeeklyBonusPercentage = *c.WeeklyBonus
		updated = true
	}

	keys := make([]string, 0, len(c.Set))
	for k := range c.Set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := models.ApplySetting(&settings, k, c.Set[k]); err != nil {
			return fmt.Errorf("%w (known keys: %s, %s, %s, %s)", err,
				constants.SettingAutoDepositToHoliday, constants.SettingWeekendTimeToNextWeek,
				constants.SettingHolidayBonusPercentage, constants.SettingWeeklyBonusPercentage)
		}
		updated = true
	}

	if !updated {
		ctx.Println("No changes specified. Use --list to view settings or flags to update them.")
		return nil
	}

	if err := validation.ValidateSettings(settings); err != nil {
		return err
	}
	if err := ctx.Check(ctx.Ledger.SaveUserSettings(uid, settings)); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	ctx.Println("Settings updated successfully.")
	return nil
}

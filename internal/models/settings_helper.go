package models

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/roulendz/timebank/internal/constants"
)

// ApplySetting sets a single setting from its key/value form.
func ApplySetting(settings *UserSettings, key, value string) error {
	switch key {
	case constants.SettingAutoDepositToHoliday:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", key, err)
		}
		settings.AutoDepositToHoliday = b
	case constants.SettingWeekendTimeToNextWeek:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", key, err)
		}
		settings.WeekendTimeToNextWeek = b
	case constants.SettingHolidayBonusPercentage:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", key, err)
		}
		settings.HolidayBonusPercentage = f
	case constants.SettingWeeklyBonusPercentage:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", key, err)
		}
		settings.WeeklyBonusPercentage = f
	default:
		return fmt.Errorf("unknown setting: %s", key)
	}
	return nil
}

// MapToSettings converts a map of key-value pairs to a UserSettings struct,
// starting from the defaults for keys that are not present.
func MapToSettings(data map[string]string) (UserSettings, error) {
	settings := DefaultUserSettings()
	for key, value := range data {
		if err := ApplySetting(&settings, key, value); err != nil {
			return UserSettings{}, err
		}
	}
	return settings, nil
}

// SettingsToMap converts a UserSettings struct to a map of key-value pairs.
func SettingsToMap(settings UserSettings) map[string]string {
	return map[string]string{
		constants.SettingAutoDepositToHoliday:   strconv.FormatBool(settings.AutoDepositToHoliday),
		constants.SettingWeekendTimeToNextWeek:  strconv.FormatBool(settings.WeekendTimeToNextWeek),
		constants.SettingHolidayBonusPercentage: strconv.FormatFloat(settings.HolidayBonusPercentage, 'f', -1, 64),
		constants.SettingWeeklyBonusPercentage:  strconv.FormatFloat(settings.WeeklyBonusPercentage, 'f', -1, 64),
	}
}

// SettingKeys returns the known setting keys in a stable order.
func SettingKeys() []string {
	keys := make([]string, 0, 4)
	for k := range SettingsToMap(UserSettings{}) {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package models

import "github.com/roulendz/timebank/internal/constants"

// UserSettings holds the per-user wallet configuration
type UserSettings struct {
	AutoDepositToHoliday   bool    `json:"autoDepositToHoliday"`   // move every finished activity straight to the holiday wallet
	WeekendTimeToNextWeek  bool    `json:"weekendTimeToNextWeek"`  // weekend deposits expire one week later
	HolidayBonusPercentage float64 `json:"holidayBonusPercentage"` // bonus applied when depositing to the holiday wallet
	WeeklyBonusPercentage  float64 `json:"weeklyBonusPercentage"`  // bonus for a full week of deposits
}

// DefaultUserSettings returns the settings a user gets when none are stored.
func DefaultUserSettings() UserSettings {
	return UserSettings{
		AutoDepositToHoliday:   constants.DefaultAutoDepositToHoliday,
		WeekendTimeToNextWeek:  constants.DefaultWeekendTimeToNextWeek,
		HolidayBonusPercentage: constants.DefaultHolidayBonusPercentage,
		WeeklyBonusPercentage:  constants.DefaultWeeklyBonusPercentage,
	}
}

package constants

const (
	// User setting keys, as accepted by `timebank settings --set key=value`
	SettingAutoDepositToHoliday   = "auto_deposit_to_holiday"
	SettingWeekendTimeToNextWeek  = "weekend_time_to_next_week"
	SettingHolidayBonusPercentage = "holiday_bonus_percentage"
	SettingWeeklyBonusPercentage  = "weekly_bonus_percentage"

	// Default Settings Values
	DefaultAutoDepositToHoliday   = false
	DefaultWeekendTimeToNextWeek  = true
	DefaultHolidayBonusPercentage = 10 // 10% bonus for holiday deposits
	DefaultWeeklyBonusPercentage  = 5  // 5% bonus for full week deposits

	// MaxBonusPercentage bounds configurable bonus rates
	MaxBonusPercentage = 100

	// WeeklyBonusMinDays is the number of distinct deposit days needed for the weekly bonus
	WeeklyBonusMinDays = 5

	DefaultTimezone = "Local"
)

package constants

import "time"

// EventName identifies a change notification published on the event bus
type EventName string

// HookName identifies a feedback hook point
type HookName string

// SessionMode is the derived mode of the tracking state machine
type SessionMode string

const (
	AppName            = "timebank"
	DefaultKeyringUser = "database-connection"
	DefaultConfigPath  = "~/.config/timebank/timebank.db"
	Version            = "v0.3.0"

	// StateKey is the storage key the whole state blob is saved under
	StateKey = "timebankKidsState"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// Default user that always exists and cannot be removed
	DefaultUserID       = "1"
	DefaultUserName     = "Kid 1"
	DefaultUserNickname = "Kid 1"

	// Activity constants
	ActivityTypeWork           = "work"
	UnnamedActivityDescription = "Unnamed activity"

	// TickInterval is the resolution of the tracking display and usage-limit check
	TickInterval = time.Second

	// LowBalanceWarning highlights the countdown when less than this is left
	LowBalanceWarning = 5 * time.Minute

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "timebank-"

	// Feedback constants
	FeedbackMaxRetries       = 3
	FeedbackRetryDelay       = 100 * time.Millisecond
	FeedbackLockfileName     = "timebank-feedback.lock"
	FeedbackDurationMs       = 4000
	FeedbackPerSecond        = 1
	FeedbackBurst            = 3
	FeedbackAppIdentifier    = "com.roulendz.timebank"
	FeedbackProcessPrefix    = "timebank-tray"
	EventSubscriberBufferLen = 16

	// Change notifications
	EventActivityStopped     EventName = "activityStopped"
	EventDepositAdded        EventName = "depositAdded"
	EventDepositCanceled     EventName = "depositCanceled"
	EventActivityListChanged EventName = "activityListChanged"

	// Feedback hook points
	HookTransferSucceeded HookName = "transferSucceeded"
	HookBalanceExhausted  HookName = "balanceExhausted"
	HookUsageRejected     HookName = "usageRejected"

	// Session modes
	ModeIdle     SessionMode = "idle"
	ModeTracking SessionMode = "tracking"
	ModeUsing    SessionMode = "using"
)

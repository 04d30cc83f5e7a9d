package models

import "github.com/roulendz/timebank/internal/constants"

// ScheduleDay is one weekday entry of a user's time-usage schedule
type ScheduleDay struct {
	Day       string `json:"day"`       // weekday name, e.g. "Monday"
	StartTime string `json:"startTime"` // HH:MM
	EndTime   string `json:"endTime"`   // HH:MM
	Enabled   bool   `json:"enabled"`
}

// User is a child profile owning its activity log, deposits and settings
type User struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Nickname    string        `json:"nickname"`
	TimeBalance int64         `json:"timeBalance"` // legacy aggregate, superseded by computed balances
	Schedule    []ScheduleDay `json:"schedule"`
	ActivityLog []Activity    `json:"activityLog"`
	Deposits    []TimeDeposit `json:"deposits"`
	Settings    *UserSettings `json:"settings,omitempty"`
}

// DisplayName returns the nickname, falling back to the name.
func (u User) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Name
}

// IsDefault reports whether u is the protected default user.
func (u User) IsDefault() bool {
	return u.ID == constants.DefaultUserID
}

// NewDefaultUser returns the protected default user with empty logs.
func NewDefaultUser() User {
	settings := DefaultUserSettings()
	return User{
		ID:          constants.DefaultUserID,
		Name:        constants.DefaultUserName,
		Nickname:    constants.DefaultUserNickname,
		Schedule:    []ScheduleDay{},
		ActivityLog: []Activity{},
		Deposits:    []TimeDeposit{},
		Settings:    &settings,
	}
}

// Clone returns a deep copy of u. Nil collections become empty.
func (u User) Clone() User {
	c := u
	c.Schedule = append([]ScheduleDay{}, u.Schedule...)
	c.ActivityLog = append([]Activity{}, u.ActivityLog...)
	c.Deposits = append([]TimeDeposit{}, u.Deposits...)
	if u.Settings != nil {
		s := *u.Settings
		c.Settings = &s
	}
	return c
}

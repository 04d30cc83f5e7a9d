package models

import "github.com/roulendz/timebank/internal/constants"

// TrackingState is the persisted session state so a reload can resume.
// Timestamps are Unix milliseconds.
type TrackingState struct {
	UserID                     string  `json:"userId,omitempty"`
	IsTracking                 bool    `json:"isTracking"`
	IsUsingTime                bool    `json:"isUsingTime"`
	StartTime                  *int64  `json:"startTime"`
	UsageStartTime             *int64  `json:"usageStartTime"`
	UsageBudget                int64   `json:"usageBudget,omitempty"`
	CurrentActivityDescription string  `json:"currentActivityDescription"`
	CurrentUsageActivityID     *string `json:"currentUsageActivityId"`
}

// Mode derives the state machine mode from the flags.
func (s TrackingState) Mode() constants.SessionMode {
	switch {
	case s.IsTracking:
		return constants.ModeTracking
	case s.IsUsingTime:
		return constants.ModeUsing
	default:
		return constants.ModeIdle
	}
}

// Consistent reports whether the mutual exclusion invariant holds.
func (s TrackingState) Consistent() bool {
	if s.IsTracking && s.IsUsingTime {
		return false
	}
	if s.IsTracking && s.StartTime == nil {
		return false
	}
	if s.IsUsingTime && s.UsageStartTime == nil {
		return false
	}
	return true
}

// State is the whole persisted blob
type State struct {
	Users         []User         `json:"users"`
	CurrentUserID *string        `json:"currentUserId"`
	TrackingState *TrackingState `json:"trackingState"`
}

// NewState returns the initial state containing only the default user.
func NewState() *State {
	return &State{
		Users: []User{NewDefaultUser()},
	}
}

// FindUser returns the index of the user with the given id, or -1.
func (s *State) FindUser(id string) int {
	for i := range s.Users {
		if s.Users[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the tracking state.
func (s TrackingState) Clone() TrackingState {
	c := s
	if s.StartTime != nil {
		v := *s.StartTime
		c.StartTime = &v
	}
	if s.UsageStartTime != nil {
		v := *s.UsageStartTime
		c.UsageStartTime = &v
	}
	if s.CurrentUsageActivityID != nil {
		v := *s.CurrentUsageActivityID
		c.CurrentUsageActivityID = &v
	}
	return c
}

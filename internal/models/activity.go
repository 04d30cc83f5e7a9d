package models

import (
	"fmt"
	"time"
)

// Activity is one completed tracked work session. Times are Unix milliseconds.
type Activity struct {
	ID                    string `json:"id"`
	Type                  string `json:"type,omitempty"`
	Description           string `json:"description"`
	StartTime             int64  `json:"startTime"`
	EndTime               int64  `json:"endTime"`
	Duration              int64  `json:"duration"`
	UsedDuration          int64  `json:"usedDuration"`
	IsAvailableForDeposit bool   `json:"isAvailableForDeposit"`
	UserID                string `json:"userId"`
	WeekNumber            int    `json:"weekNumber"`
	Year                  int    `json:"year"`
}

// Available reports whether the activity can still be spent or transferred.
func (a Activity) Available() bool {
	return a.IsAvailableForDeposit
}

// Started returns the activity start as a time.Time.
func (a Activity) Started() time.Time {
	return time.UnixMilli(a.StartTime)
}

// Validate checks the activity invariants.
func (a Activity) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("activity id is required")
	}
	if a.UserID == "" {
		return fmt.Errorf("activity %s has no owner", a.ID)
	}
	if a.Duration < 0 {
		return fmt.Errorf("activity %s has negative duration %d", a.ID, a.Duration)
	}
	if a.UsedDuration < 0 || a.UsedDuration > a.Duration {
		return fmt.Errorf("activity %s used duration %d outside [0, %d]", a.ID, a.UsedDuration, a.Duration)
	}
	return nil
}

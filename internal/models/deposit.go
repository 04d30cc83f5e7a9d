package models

import (
	"fmt"
	"time"
)

// TimeDeposit is an activity's unspent remainder moved into the holiday wallet
type TimeDeposit struct {
	ID                    string `json:"id"`
	SourceActivityID      string `json:"sourceActivityId"`
	UserID                string `json:"userId"`
	Description           string `json:"description"`
	StartTime             int64  `json:"startTime"`
	EndTime               int64  `json:"endTime"`
	Duration              int64  `json:"duration"`
	UsedDuration          int64  `json:"usedDuration"`
	DepositedDuration     int64  `json:"depositedDuration"`
	AccumulatedBonus      int64  `json:"accumulatedBonus"`
	DepositTimestamp      int64  `json:"depositTimestamp"`
	WeekNumber            int    `json:"weekNumber"`
	Year                  int    `json:"year"`
	IsAvailableForDeposit bool   `json:"isAvailableForDeposit"`
}

// Available reports whether the deposit can still be drawn down or reversed.
func (d TimeDeposit) Available() bool {
	return d.IsAvailableForDeposit
}

// TotalValue is the deposited duration plus its bonus.
func (d TimeDeposit) TotalValue() int64 {
	return d.DepositedDuration + d.AccumulatedBonus
}

// Deposited returns the deposit timestamp as a time.Time.
func (d TimeDeposit) Deposited() time.Time {
	return time.UnixMilli(d.DepositTimestamp)
}

// Validate checks the deposit invariants.
func (d TimeDeposit) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("deposit id is required")
	}
	if d.UserID == "" {
		return fmt.Errorf("deposit %s has no owner", d.ID)
	}
	if d.AccumulatedBonus < 0 {
		return fmt.Errorf("deposit %s has negative bonus %d", d.ID, d.AccumulatedBonus)
	}
	if d.DepositedDuration < 0 {
		return fmt.Errorf("deposit %s has negative deposited duration %d", d.ID, d.DepositedDuration)
	}
	return nil
}

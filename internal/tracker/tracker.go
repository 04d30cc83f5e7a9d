// Package tracker drives the tracking state machine: recording work sessions
// into the activity log and spending earned time against a hard budget.
//
// The session is persisted through the ledger, so a tracker built after a
// restart resumes where the previous one stopped.
package tracker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roulendz/timebank/internal/constants"
	errs "github.com/roulendz/timebank/internal/errors"
	"github.com/roulendz/timebank/internal/events"
	"github.com/roulendz/timebank/internal/ledger"
	"github.com/roulendz/timebank/internal/logger"
	"github.com/roulendz/timebank/internal/models"
	"github.com/roulendz/timebank/internal/utils"
	"github.com/roulendz/timebank/internal/wallet"
)

// Clock returns the current time
type Clock func() time.Time

// Depositor moves a finished activity into the holiday wallet
type Depositor interface {
	Transfer(userID, activityID string) (models.TimeDeposit, error)
}

type Tracker struct {
	opMu      sync.Mutex // serializes transitions
	runMu     sync.Mutex
	runCancel context.CancelFunc

	ledger    *ledger.Ledger
	bus       *events.Bus
	clock     Clock
	userID    string
	depositor Depositor
	newID     func() string
	tick      time.Duration
}

type Option func(*Tracker)

func WithClock(c Clock) Option {
	return func(t *Tracker) { t.clock = c }
}

// WithDepositor enables auto-deposit for users that turned it on.
func WithDepositor(d Depositor) Option {
	return func(t *Tracker) { t.depositor = d }
}

func WithIDGenerator(gen func() string) Option {
	return func(t *Tracker) { t.newID = gen }
}

// WithTickInterval changes how often Run checks the usage limit.
func WithTickInterval(d time.Duration) Option {
	return func(t *Tracker) { t.tick = d }
}

// New creates a tracker acting for userID.
func New(l *ledger.Ledger, userID string, opts ...Option) *Tracker {
	t := &Tracker{
		ledger: l,
		bus:    l.Bus(),
		clock:  time.Now,
		userID: userID,
		newID:  func() string { return uuid.New().String() },
		tick:   constants.TickInterval,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// UserID returns the user the tracker acts for.
func (t *Tracker) UserID() string {
	return t.userID
}

// State returns the current mode of the persisted session.
func (t *Tracker) State() constants.SessionMode {
	return t.ledger.GetTrackingState().Mode()
}

// Session returns a copy of the persisted session.
func (t *Tracker) Session() models.TrackingState {
	return t.ledger.GetTrackingState()
}

// owner is the user a running session belongs to
func (t *Tracker) owner(ts models.TrackingState) string {
	if ts.UserID != "" {
		return ts.UserID
	}
	return t.userID
}

func (t *Tracker) nowMs() int64 {
	return t.clock().UnixMilli()
}

// keepPersistence records the first persistence failure in first and reports
// whether err must abort the transition instead.
func keepPersistence(first *error, err error) (abort bool) {
	if err == nil {
		return false
	}
	if !errs.IsPersistence(err) {
		return true
	}
	if *first == nil {
		*first = err
	}
	return false
}

// StartTracking begins recording a work session.
func (t *Tracker) StartTracking(description string) error {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	ts := t.ledger.GetTrackingState()
	switch ts.Mode() {
	case constants.ModeTracking:
		return errs.InvalidTransition("start tracking", "already tracking")
	case constants.ModeUsing:
		return errs.InvalidTransition("start tracking", "cannot track while using time")
	}
	if _, err := t.ledger.GetUser(t.userID); err != nil {
		return err
	}

	now := t.nowMs()
	logger.Debug("Tracking started", "user", t.userID)
	return t.ledger.SaveTrackingState(models.TrackingState{
		UserID:                     t.userID,
		IsTracking:                 true,
		StartTime:                  &now,
		CurrentActivityDescription: strings.TrimSpace(description),
	})
}

// StopTracking ends the session and records it as an activity. An empty
// description falls back to the one given at start, then to a placeholder.
// A persistence failure still completes the transition and is returned.
func (t *Tracker) StopTracking(description string) (models.Activity, error) {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	ts := t.ledger.GetTrackingState()
	if ts.Mode() != constants.ModeTracking {
		return models.Activity{}, errs.InvalidTransition("stop tracking", "not tracking")
	}

	now := t.clock()
	end := now.UnixMilli()
	start := end
	if ts.StartTime != nil {
		start = *ts.StartTime
	}

	desc := strings.TrimSpace(description)
	if desc == "" {
		desc = ts.CurrentActivityDescription
	}
	if desc == "" {
		desc = constants.UnnamedActivityDescription
	}

	owner := t.owner(ts)
	year, week := utils.ISOWeek(now)
	activity := models.Activity{
		ID:                    t.newID(),
		Type:                  constants.ActivityTypeWork,
		Description:           desc,
		StartTime:             start,
		EndTime:               end,
		Duration:              max(0, end-start),
		UsedDuration:          0,
		IsAvailableForDeposit: true,
		UserID:                owner,
		WeekNumber:            week,
		Year:                  year,
	}

	var perr error
	if err := t.ledger.AddActivity(activity); keepPersistence(&perr, err) {
		return models.Activity{}, err
	}
	if err := t.ledger.SaveTrackingState(models.TrackingState{}); keepPersistence(&perr, err) {
		return activity, err
	}

	t.bus.Publish(events.Event{
		Name:       constants.EventActivityStopped,
		UserID:     owner,
		ActivityID: activity.ID,
		At:         now,
	})
	logger.Info("Activity recorded", "user", owner, "activity", activity.ID, "duration", activity.Duration)

	if t.depositor != nil {
		settings, err := t.ledger.GetUserSettings(owner)
		if err == nil && settings.AutoDepositToHoliday {
			if _, err := t.depositor.Transfer(owner, activity.ID); keepPersistence(&perr, err) {
				logger.Warn("Auto-deposit failed", "activity", activity.ID, "error", err)
				return activity, fmt.Errorf("activity recorded but auto-deposit failed: %w", err)
			}
		}
	}

	return activity, perr
}

// StartTimeUsage starts spending earned time. The budget is today's
// available balance, taken once at start.
func (t *Tracker) StartTimeUsage() error {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	ts := t.ledger.GetTrackingState()
	switch ts.Mode() {
	case constants.ModeTracking:
		return errs.InvalidTransition("start usage", "cannot use time while tracking")
	case constants.ModeUsing:
		return errs.InvalidTransition("start usage", "already using time")
	}
	if _, err := t.ledger.GetUser(t.userID); err != nil {
		return err
	}

	now := t.clock()
	acts := t.ledger.GetActivities(t.userID)
	next, ok := wallet.FindNextAvailableActivity(acts)
	budget := wallet.TotalAvailableToday(acts, now)
	if !ok || budget == 0 {
		t.bus.Fire(events.HookEvent{
			Name:    constants.HookUsageRejected,
			UserID:  t.userID,
			Message: "No time available. Complete some activities first.",
		})
		return errs.InvalidTransition("start usage", "no time available")
	}

	startMs := now.UnixMilli()
	nextID := next.ID
	logger.Debug("Usage started", "user", t.userID, "budget", budget)
	return t.ledger.SaveTrackingState(models.TrackingState{
		UserID:                 t.userID,
		IsUsingTime:            true,
		UsageStartTime:         &startMs,
		UsageBudget:            budget,
		CurrentUsageActivityID: &nextID,
	})
}

// StopTimeUsage ends the usage session and charges the elapsed time, capped
// at the budget, against the activity log. It returns the amount charged.
func (t *Tracker) StopTimeUsage() (int64, error) {
	t.opMu.Lock()
	defer t.opMu.Unlock()
	return t.stopUsage()
}

func (t *Tracker) stopUsage() (int64, error) {
	ts := t.ledger.GetTrackingState()
	if ts.Mode() != constants.ModeUsing {
		return 0, errs.InvalidTransition("stop usage", "not using time")
	}

	used := min(elapsed(ts, t.nowMs()), ts.UsageBudget)
	owner := t.owner(ts)

	updated, touched, leftover := wallet.ConsumeUsage(t.ledger.GetActivities(owner), used)
	if leftover > 0 {
		logger.Warn("Usage exceeded the recorded balance", "user", owner, "leftover", leftover)
	}
	changed := make([]models.Activity, 0, len(touched))
	for _, i := range touched {
		changed = append(changed, updated[i])
	}

	var perr error
	if len(changed) > 0 {
		if err := t.ledger.UpdateActivities(owner, changed); keepPersistence(&perr, err) {
			return 0, err
		}
	}
	if err := t.ledger.SaveTrackingState(models.TrackingState{}); keepPersistence(&perr, err) {
		return used - leftover, err
	}
	if len(changed) == 0 {
		// nothing consumed; subscribers still learn the session ended
		t.ledger.Bus().Publish(events.Event{
			Name:   constants.EventActivityListChanged,
			UserID: owner,
			At:     time.UnixMilli(t.nowMs()),
		})
	}

	logger.Info("Usage stopped", "user", owner, "consumed", used)
	return used - leftover, perr
}

func elapsed(ts models.TrackingState, nowMs int64) int64 {
	var start *int64
	switch ts.Mode() {
	case constants.ModeTracking:
		start = ts.StartTime
	case constants.ModeUsing:
		start = ts.UsageStartTime
	}
	if start == nil {
		return 0
	}
	return max(0, nowMs-*start)
}

// Elapsed is the running time of the current session, 0 when idle.
func (t *Tracker) Elapsed() int64 {
	return elapsed(t.ledger.GetTrackingState(), t.nowMs())
}

// Remaining is the unspent budget while using time, 0 otherwise.
func (t *Tracker) Remaining() int64 {
	ts := t.ledger.GetTrackingState()
	if ts.Mode() != constants.ModeUsing {
		return 0
	}
	return max(0, ts.UsageBudget-elapsed(ts, t.nowMs()))
}

// CheckUsageLimit force-stops usage once the budget is spent and reports
// whether it did.
func (t *Tracker) CheckUsageLimit() (bool, error) {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	ts := t.ledger.GetTrackingState()
	if ts.Mode() != constants.ModeUsing || elapsed(ts, t.nowMs()) < ts.UsageBudget {
		return false, nil
	}

	used, err := t.stopUsage()
	if err != nil && !errs.IsPersistence(err) {
		return false, err
	}
	t.bus.Fire(events.HookEvent{
		Name:    constants.HookBalanceExhausted,
		UserID:  t.owner(ts),
		Amount:  used,
		Message: "Time's up! Your available time has been used.",
	})
	return true, err
}

// Run checks the usage limit every tick until ctx is done or usage stops.
// Starting a new Run cancels the previous one.
func (t *Tracker) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	t.runMu.Lock()
	if t.runCancel != nil {
		t.runCancel()
	}
	t.runCancel = cancel
	t.runMu.Unlock()

	// a resumed session may already be over budget
	if stopped, err := t.CheckUsageLimit(); stopped || err != nil {
		return err
	}

	ticker := time.NewTicker(t.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if t.State() != constants.ModeUsing {
				return nil
			}
			stopped, err := t.CheckUsageLimit()
			if stopped || err != nil {
				return err
			}
		}
	}
}

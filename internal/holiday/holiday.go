// Package holiday moves unspent activity time into the holiday wallet, where
// it earns a bonus, and reverses such deposits on request.
package holiday

import (
	"fmt"
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

// Confirmer asks the user to approve a destructive action
type Confirmer interface {
	Confirm(title, message string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer
type ConfirmFunc func(title, message string) (bool, error)

func (f ConfirmFunc) Confirm(title, message string) (bool, error) {
	return f(title, message)
}

// AlwaysConfirm approves without asking
var AlwaysConfirm = ConfirmFunc(func(string, string) (bool, error) { return true, nil })

type Service struct {
	ledger *ledger.Ledger
	bus    *events.Bus
	clock  func() time.Time
	newID  func() string
}

type Option func(*Service)

func WithClock(c func() time.Time) Option {
	return func(s *Service) { s.clock = c }
}

func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

func New(l *ledger.Ledger, opts ...Option) *Service {
	s := &Service{
		ledger: l,
		bus:    l.Bus(),
		clock:  time.Now,
		newID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// settings returns the user's settings. Failing to store freshly
// materialized defaults does not block a transfer.
func (s *Service) settings(userID string) (models.UserSettings, error) {
	settings, err := s.ledger.GetUserSettings(userID)
	if err != nil && !errs.IsPersistence(err) {
		return models.UserSettings{}, err
	}
	return settings, nil
}

// Transfer moves the unspent part of an activity into the holiday wallet
// with the user's holiday bonus applied.
func (s *Service) Transfer(userID, activityID string) (models.TimeDeposit, error) {
	settings, err := s.settings(userID)
	if err != nil {
		return models.TimeDeposit{}, err
	}

	now := s.clock()
	year, week := utils.ISOWeek(now)

	deposit, err := s.ledger.MoveActivityToDeposit(userID, activityID, func(a models.Activity) (models.TimeDeposit, error) {
		if !wallet.CanTransferToHoliday(a) {
			return models.TimeDeposit{}, errs.InvalidTransition("deposit activity", "activity %s is not available for deposit", a.ID)
		}
		deposited := wallet.RemainingTime(a)
		return models.TimeDeposit{
			ID:                    s.newID(),
			SourceActivityID:      a.ID,
			UserID:                userID,
			Description:           a.Description,
			StartTime:             a.StartTime,
			EndTime:               a.EndTime,
			Duration:              a.Duration,
			UsedDuration:          0,
			DepositedDuration:     deposited,
			AccumulatedBonus:      wallet.DepositBonus(deposited, settings.HolidayBonusPercentage),
			DepositTimestamp:      now.UnixMilli(),
			WeekNumber:            week,
			Year:                  year,
			IsAvailableForDeposit: true,
		}, nil
	})
	if err != nil && !errs.IsPersistence(err) {
		return models.TimeDeposit{}, err
	}

	logger.Info("Deposited to holiday wallet", "user", userID, "deposit", deposit.ID,
		"deposited", deposit.DepositedDuration, "bonus", deposit.AccumulatedBonus)
	s.bus.Fire(events.HookEvent{
		Name:   constants.HookTransferSucceeded,
		UserID: userID,
		Amount: deposit.TotalValue(),
		Message: fmt.Sprintf("Saved %s to your holiday wallet (+%s bonus)",
			utils.FormatHoursMinutes(deposit.DepositedDuration), utils.FormatHoursMinutes(deposit.AccumulatedBonus)),
	})
	return deposit, err
}

// CancelWarning is the confirmation text shown before a deposit is reversed.
func CancelWarning(d models.TimeDeposit) (title, message string) {
	return "Cancel holiday deposit?",
		fmt.Sprintf("You will lose %s of bonus time!", utils.FormatHoursMinutes(wallet.PotentialLoss(d)))
}

// Cancel reverses a deposit back into the activity it came from. The bonus is
// forfeited. confirm is asked first; declining returns errors.ErrCanceled
// and changes nothing. A nil confirm approves.
func (s *Service) Cancel(userID, depositID string, confirm Confirmer) (models.Activity, error) {
	d, err := s.ledger.GetDeposit(userID, depositID)
	if err != nil {
		return models.Activity{}, err
	}
	if !d.Available() {
		return models.Activity{}, errs.InvalidTransition("cancel deposit", "deposit %s is no longer available", depositID)
	}

	if confirm != nil {
		ok, err := confirm.Confirm(CancelWarning(d))
		if err != nil {
			return models.Activity{}, err
		}
		if !ok {
			return models.Activity{}, errs.ErrCanceled
		}
	}

	loc := s.clock().Location()
	activity, err := s.ledger.MoveDepositToActivity(userID, depositID, func(d models.TimeDeposit) (models.Activity, error) {
		if !d.Available() {
			return models.Activity{}, errs.InvalidTransition("cancel deposit", "deposit %s is no longer available", d.ID)
		}
		return restoreActivity(d, s.newID, loc), nil
	})
	if err != nil && !errs.IsPersistence(err) {
		return models.Activity{}, err
	}

	logger.Info("Holiday deposit canceled", "user", userID, "deposit", depositID, "forfeited", d.AccumulatedBonus)
	return activity, err
}

// restoreActivity rebuilds the source activity. Time spent before the
// deposit (duration minus deposited) is carried back as used, together with
// anything drawn from the deposit itself.
func restoreActivity(d models.TimeDeposit, newID func() string, loc *time.Location) models.Activity {
	id := d.SourceActivityID
	if id == "" {
		id = newID()
	}
	used := min(max(0, d.Duration-d.DepositedDuration+d.UsedDuration), max(0, d.Duration))
	year, week := utils.ISOWeek(time.UnixMilli(d.EndTime).In(loc))
	return models.Activity{
		ID:                    id,
		Type:                  constants.ActivityTypeWork,
		Description:           d.Description,
		StartTime:             d.StartTime,
		EndTime:               d.EndTime,
		Duration:              max(0, d.Duration),
		UsedDuration:          used,
		IsAvailableForDeposit: true,
		UserID:                d.UserID,
		WeekNumber:            week,
		Year:                  year,
	}
}

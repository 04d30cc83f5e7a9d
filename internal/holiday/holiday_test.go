package holiday

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roulendz/timebank/internal/constants"
	errs "github.com/roulendz/timebank/internal/errors"
	"github.com/roulendz/timebank/internal/events"
	"github.com/roulendz/timebank/internal/ledger"
	"github.com/roulendz/timebank/internal/models"
	"github.com/roulendz/timebank/internal/storage"
	"github.com/roulendz/timebank/internal/wallet"
)

var now = time.Date(2024, time.March, 13, 15, 0, 0, 0, time.UTC)

const uid = constants.DefaultUserID

type fixture struct {
	ledger  *ledger.Ledger
	store   *storage.MemoryStore
	bus     *events.Bus
	service *Service
}

func setup(t *testing.T) *fixture {
	t.Helper()
	store := storage.NewMemoryStore()
	bus := events.NewBus()
	l := ledger.New(store, bus)
	require.NoError(t, l.Open(context.Background()))

	n := 0
	svc := New(l,
		WithClock(func() time.Time { return now }),
		WithIDGenerator(func() string { n++; return fmt.Sprintf("dep-%d", n) }),
	)
	return &fixture{ledger: l, store: store, bus: bus, service: svc}
}

func (f *fixture) addActivity(t *testing.T, id string, duration, used int64) models.Activity {
	t.Helper()
	start := now.Add(-time.Hour).UnixMilli()
	a := models.Activity{
		ID: id, Type: constants.ActivityTypeWork, Description: "homework " + id, UserID: uid,
		StartTime: start, EndTime: start + duration, Duration: duration, UsedDuration: used,
		IsAvailableForDeposit: used < duration, WeekNumber: 11, Year: 2024,
	}
	require.NoError(t, f.ledger.AddActivity(a))
	return a
}

func TestTransferAppliesHolidayBonus(t *testing.T) {
	f := setup(t)
	f.addActivity(t, "a-1", 90000, 0)

	var mu sync.Mutex
	var hooked []events.HookEvent
	f.bus.OnHook(constants.HookTransferSucceeded, func(e events.HookEvent) {
		mu.Lock()
		hooked = append(hooked, e)
		mu.Unlock()
	})
	names := []constants.EventName{}
	f.bus.On(func(e events.Event) { names = append(names, e.Name) })

	d, err := f.service.Transfer(uid, "a-1")
	require.NoError(t, err)

	assert.Equal(t, int64(90000), d.DepositedDuration)
	assert.Equal(t, int64(9000), d.AccumulatedBonus)
	assert.Equal(t, int64(99000), d.TotalValue())
	assert.Equal(t, int64(0), d.UsedDuration)
	assert.Equal(t, "a-1", d.SourceActivityID)
	assert.Equal(t, now.UnixMilli(), d.DepositTimestamp)
	assert.True(t, d.IsAvailableForDeposit)
	year, week := now.ISOWeek()
	assert.Equal(t, year, d.Year)
	assert.Equal(t, week, d.WeekNumber)

	assert.Empty(t, f.ledger.GetActivities(uid))
	assert.Equal(t, int64(99000), wallet.HolidayBalance(f.ledger.GetDeposits(uid)))
	assert.Equal(t, []constants.EventName{constants.EventDepositAdded, constants.EventActivityListChanged}, names)

	f.bus.Wait()
	require.Len(t, hooked, 1)
	assert.Equal(t, int64(99000), hooked[0].Amount)
}

func TestTransferPartiallyUsedActivity(t *testing.T) {
	f := setup(t)
	f.addActivity(t, "a-1", 100000, 40000)

	d, err := f.service.Transfer(uid, "a-1")
	require.NoError(t, err)
	assert.Equal(t, int64(60000), d.DepositedDuration)
	assert.Equal(t, int64(6000), d.AccumulatedBonus)
}

func TestTransferUsesUserSettings(t *testing.T) {
	f := setup(t)
	settings := models.DefaultUserSettings()
	settings.HolidayBonusPercentage = 25
	require.NoError(t, f.ledger.SaveUserSettings(uid, settings))
	f.addActivity(t, "a-1", 80000, 0)

	d, err := f.service.Transfer(uid, "a-1")
	require.NoError(t, err)
	assert.Equal(t, int64(20000), d.AccumulatedBonus)
}

func TestTransferErrors(t *testing.T) {
	f := setup(t)
	f.addActivity(t, "spent", 1000, 1000)

	_, err := f.service.Transfer("nobody", "a-1")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = f.service.Transfer(uid, "missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = f.service.Transfer(uid, "spent")
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)
	assert.Len(t, f.ledger.GetActivities(uid), 1, "rejected transfer must not change the log")
	assert.Empty(t, f.ledger.GetDeposits(uid))
}

func TestTransferThenCancelRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		duration int64
		used     int64
	}{
		{"unused", 90000, 0},
		{"partly used", 90000, 30000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			original := f.addActivity(t, "a-1", tt.duration, tt.used)

			d, err := f.service.Transfer(uid, "a-1")
			require.NoError(t, err)

			var asked string
			confirm := ConfirmFunc(func(title, message string) (bool, error) {
				asked = message
				return true, nil
			})
			restored, err := f.service.Cancel(uid, d.ID, confirm)
			require.NoError(t, err)

			assert.Contains(t, asked, "bonus")
			assert.Equal(t, original.ID, restored.ID)
			assert.Equal(t, original.Description, restored.Description)
			assert.Equal(t, original.Duration, restored.Duration)
			assert.Equal(t, original.UsedDuration, restored.UsedDuration)
			assert.Equal(t, original.StartTime, restored.StartTime)
			assert.True(t, restored.IsAvailableForDeposit)

			assert.Empty(t, f.ledger.GetDeposits(uid), "deposit must be gone")
			acts := f.ledger.GetActivities(uid)
			require.Len(t, acts, 1)
			assert.Equal(t, restored, acts[0])
		})
	}
}

func TestCancelDeclined(t *testing.T) {
	f := setup(t)
	f.addActivity(t, "a-1", 90000, 0)
	d, err := f.service.Transfer(uid, "a-1")
	require.NoError(t, err)
	saves := f.store.Saves()

	decline := ConfirmFunc(func(string, string) (bool, error) { return false, nil })
	_, err = f.service.Cancel(uid, d.ID, decline)
	assert.ErrorIs(t, err, errs.ErrCanceled)
	assert.Equal(t, saves, f.store.Saves())
	assert.Len(t, f.ledger.GetDeposits(uid), 1)

	boom := stderrors.New("terminal closed")
	_, err = f.service.Cancel(uid, d.ID, ConfirmFunc(func(string, string) (bool, error) { return false, boom }))
	assert.ErrorIs(t, err, boom)
}

func TestCancelErrors(t *testing.T) {
	f := setup(t)

	_, err := f.service.Cancel(uid, "missing", AlwaysConfirm)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, f.ledger.AddDeposit(models.TimeDeposit{ID: "locked", UserID: uid, DepositedDuration: 1}))
	_, err = f.service.Cancel(uid, "locked", AlwaysConfirm)
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)
}

func TestCancelEmitsEvents(t *testing.T) {
	f := setup(t)
	f.addActivity(t, "a-1", 90000, 0)
	d, _ := f.service.Transfer(uid, "a-1")

	ch, cancel := f.bus.Subscribe(constants.EventDepositCanceled)
	defer cancel()

	_, err := f.service.Cancel(uid, d.ID, nil)
	require.NoError(t, err)

	select {
	case e := <-ch:
		assert.Equal(t, d.ID, e.DepositID)
		assert.Equal(t, "a-1", e.ActivityID)
	case <-time.After(time.Second):
		t.Fatal("expected depositCanceled")
	}
}

func TestTransferPersistenceFailure(t *testing.T) {
	f := setup(t)
	f.addActivity(t, "a-1", 90000, 0)
	f.store.FailSave = stderrors.New("disk full")

	d, err := f.service.Transfer(uid, "a-1")
	assert.True(t, errs.IsPersistence(err))
	assert.Equal(t, int64(9000), d.AccumulatedBonus, "the in-memory transfer completes")
	assert.Len(t, f.ledger.GetDeposits(uid), 1)
}

func TestCancelWarning(t *testing.T) {
	title, msg := CancelWarning(models.TimeDeposit{AccumulatedBonus: 65 * 60000})
	assert.NotEmpty(t, title)
	assert.Equal(t, "You will lose 1h 05m of bonus time!", msg)
}

// Package ledger owns the in-memory application state: users, their activity
// logs, holiday deposits, settings and the tracking session. Every mutation
// writes the whole state through a storage.Provider and then announces the
// change on the event bus.
package ledger

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roulendz/timebank/internal/constants"
	errs "github.com/roulendz/timebank/internal/errors"
	"github.com/roulendz/timebank/internal/events"
	"github.com/roulendz/timebank/internal/logger"
	"github.com/roulendz/timebank/internal/models"
	"github.com/roulendz/timebank/internal/storage"
)

// errNoop aborts a mutation without writing
var errNoop = stderrors.New("no change")

// Ledger is the single writer of the application state. It is safe for
// concurrent use.
type Ledger struct {
	mu       sync.Mutex
	provider storage.Provider
	bus      *events.Bus
	state    *models.State
	now      func() time.Time
	newID    func() string
}

// Option configures a Ledger
type Option func(*Ledger)

// WithClock sets the time source used to stamp events.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithIDGenerator replaces uuid generation for new users.
func WithIDGenerator(gen func() string) Option {
	return func(l *Ledger) { l.newID = gen }
}

// New creates a ledger over provider. A nil bus gets a private one.
// Call Open before use.
func New(provider storage.Provider, bus *events.Bus, opts ...Option) *Ledger {
	if bus == nil {
		bus = events.NewBus()
	}
	l := &Ledger{
		provider: provider,
		bus:      bus,
		state:    models.NewState(),
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Bus returns the event bus changes are published on.
func (l *Ledger) Bus() *events.Bus {
	return l.bus
}

// Open loads the persisted state. An empty store yields the initial state
// holding only the default user; a state missing the default user gets it
// prepended. Either case is written back.
func (l *Ledger) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	loaded, err := l.provider.Load()
	if err != nil {
		logger.Error("Failed to load state", "error", err)
		return errs.Persistence("open", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	dirty := false
	if loaded == nil {
		loaded = models.NewState()
		dirty = true
	}
	if loaded.FindUser(constants.DefaultUserID) < 0 {
		loaded.Users = append([]models.User{models.NewDefaultUser()}, loaded.Users...)
		dirty = true
	}
	for i := range loaded.Users {
		normalizeUser(&loaded.Users[i])
	}
	if ts := loaded.TrackingState; ts != nil && !ts.Consistent() {
		logger.Warn("Persisted tracking state is inconsistent", "tracking", ts.IsTracking, "using", ts.IsUsingTime)
	}

	l.state = loaded
	if dirty {
		return l.persist("open")
	}
	return nil
}

func normalizeUser(u *models.User) {
	if u.Schedule == nil {
		u.Schedule = []models.ScheduleDay{}
	}
	if u.ActivityLog == nil {
		u.ActivityLog = []models.Activity{}
	}
	if u.Deposits == nil {
		u.Deposits = []models.TimeDeposit{}
	}
}

// persist writes the whole state. The caller holds the lock. A failure is
// logged and returned wrapped as a persistence error; the in-memory change
// stays applied.
func (l *Ledger) persist(op string) error {
	if err := l.provider.Save(l.state); err != nil {
		logger.Error("Failed to persist state", "op", op, "error", err)
		return errs.Persistence(op, err)
	}
	return nil
}

// mutate runs fn under the lock, persists unless fn fails, then publishes
// the returned events once the lock is released. Errors from fn mean
// nothing changed.
func (l *Ledger) mutate(op string, fn func(s *models.State) ([]events.Event, error)) error {
	l.mu.Lock()
	evts, err := fn(l.state)
	if err != nil {
		l.mu.Unlock()
		if stderrors.Is(err, errNoop) {
			return nil
		}
		return err
	}
	perr := l.persist(op)
	l.mu.Unlock()

	at := l.now()
	for _, e := range evts {
		if e.At.IsZero() {
			e.At = at
		}
		l.bus.Publish(e)
	}
	return perr
}

// user returns a pointer into the state. The caller holds the lock.
func (l *Ledger) user(op, id string) (*models.User, error) {
	i := l.state.FindUser(id)
	if i < 0 {
		return nil, errs.NotFound(op, "user %s not found", id)
	}
	return &l.state.Users[i], nil
}

func listChanged(userID string) events.Event {
	return events.Event{Name: constants.EventActivityListChanged, UserID: userID}
}

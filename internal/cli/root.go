package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/roulendz/timebank/internal/backup"
	errs "github.com/roulendz/timebank/internal/errors"
	"github.com/roulendz/timebank/internal/events"
	"github.com/roulendz/timebank/internal/feedback"
	"github.com/roulendz/timebank/internal/holiday"
	"github.com/roulendz/timebank/internal/ledger"
	"github.com/roulendz/timebank/internal/logger"
	"github.com/roulendz/timebank/internal/observability"
	"github.com/roulendz/timebank/internal/storage"
	"github.com/roulendz/timebank/internal/tracker"
	"github.com/roulendz/timebank/internal/wallet"
)

// Context carries the wired application into every command
type Context struct {
	Store   storage.Provider
	Bus     *events.Bus
	Ledger  *ledger.Ledger
	Holiday *holiday.Service
	Metrics *observability.Metrics

	// UserFlag is the --user value; empty means the current user
	UserFlag    string
	MetricsFile string
	Location    *time.Location
	Clock       func() time.Time
	Out         io.Writer

	// Confirm asks before destructive actions; nil approves
	Confirm holiday.Confirmer
	// Feedback delivers desktop notifications
	Feedback Notifier

	base context.Context

	opened bool
}

// Notifier sends a single desktop notification
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Option configures a Context
type Option func(*Context)

func WithClock(now func() time.Time) Option {
	return func(c *Context) { c.Clock = now }
}

func WithLocation(loc *time.Location) Option {
	return func(c *Context) { c.Location = loc }
}

func WithOutput(w io.Writer) Option {
	return func(c *Context) { c.Out = w }
}

func WithConfirmer(confirm holiday.Confirmer) Option {
	return func(c *Context) { c.Confirm = confirm }
}

func WithFeedback(n Notifier) Option {
	return func(c *Context) { c.Feedback = n }
}

// WithBaseContext sets the parent of contexts handed to long-running commands.
func WithBaseContext(ctx context.Context) Option {
	return func(c *Context) { c.base = ctx }
}

// NewContext wires the ledger, holiday service and metrics over store.
func NewContext(store storage.Provider, opts ...Option) *Context {
	c := &Context{
		Store:    store,
		Bus:      events.NewBus(),
		Location: time.Local,
		Clock:    time.Now,
		Out:      os.Stdout,
		Feedback: feedback.New(),
		base:     context.Background(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.Ledger = ledger.New(store, c.Bus, ledger.WithClock(c.Now))
	c.Holiday = holiday.New(c.Ledger, holiday.WithClock(c.Now))
	c.Metrics = observability.New(func(userID string) int64 {
		return wallet.TotalAvailableToday(c.Ledger.GetActivities(userID), c.Now())
	})
	c.Metrics.Attach(c.Bus)
	return c
}

// Now is the current time in the configured location.
func (c *Context) Now() time.Time {
	return c.Clock().In(c.Location)
}

// Open loads the persisted state into the ledger once.
func (c *Context) Open(ctx context.Context) error {
	if c.opened {
		return nil
	}
	if err := c.Ledger.Open(ctx); err != nil {
		return err
	}
	c.opened = true
	return nil
}

// UserID resolves the acting user: the --user flag by id or name, else the
// current selection.
func (c *Context) UserID() (string, error) {
	if c.UserFlag == "" {
		return c.Ledger.GetCurrentUserID(), nil
	}
	return c.FindUser(c.UserFlag)
}

// FindUser looks a user up by id, then by name or nickname (case-insensitive).
func (c *Context) FindUser(ref string) (string, error) {
	if u, err := c.Ledger.GetUser(ref); err == nil {
		return u.ID, nil
	}
	for _, u := range c.Ledger.GetUsers() {
		if strings.EqualFold(u.Name, ref) || strings.EqualFold(u.Nickname, ref) {
			return u.ID, nil
		}
	}
	return "", errs.NotFound("find user", "no user with id or name %q", ref)
}

// Tracker returns a tracker acting for the resolved user. Finished
// activities are auto-deposited when the user enabled it.
func (c *Context) Tracker(opts ...tracker.Option) (*tracker.Tracker, error) {
	uid, err := c.UserID()
	if err != nil {
		return nil, err
	}
	all := append([]tracker.Option{
		tracker.WithClock(c.Now),
		tracker.WithDepositor(c.Holiday),
	}, opts...)
	return tracker.New(c.Ledger, uid, all...), nil
}

// Interruptible returns a context canceled on SIGINT or SIGTERM.
func (c *Context) Interruptible() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.base, os.Interrupt, syscall.SIGTERM)
}

// Printf writes to the command output.
func (c *Context) Printf(format string, args ...interface{}) {
	fmt.Fprintf(c.Out, format, args...)
}

func (c *Context) Println(args ...interface{}) {
	fmt.Fprintln(c.Out, args...)
}

// Check turns a persistence failure into a printed warning, since the
// change still took effect in memory. Any other error is returned.
func (c *Context) Check(err error) error {
	if err == nil || !errs.IsPersistence(err) {
		return err
	}
	errs.Warn(err)
	return nil
}

// PerformAutomaticBackup backs up file stores before destructive commands.
// Failures are logged and never interrupt the command.
func (c *Context) PerformAutomaticBackup() {
	path := c.Store.GetConfigPath()
	if _, err := os.Stat(path); err != nil {
		return
	}
	mgr := backup.NewManager(path)
	if _, err := mgr.CreateBackup(); err != nil {
		logger.Warn("Automatic backup failed", "error", err)
	}
}

// Finish waits for feedback hooks and exports metrics when requested.
func (c *Context) Finish() {
	c.Bus.Wait()
	if c.MetricsFile == "" {
		return
	}
	if err := c.Metrics.WriteToTextfile(c.MetricsFile); err != nil {
		logger.Warn("Failed to write metrics", "path", c.MetricsFile, "error", err)
	}
}

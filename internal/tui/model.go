// Package tui is the interactive countdown: it shows the running session,
// today's balance and the holiday wallet, and enforces the usage limit
// every second while it is open.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/roulendz/timebank/internal/events"
	"github.com/roulendz/timebank/internal/holiday"
	"github.com/roulendz/timebank/internal/ledger"
	"github.com/roulendz/timebank/internal/tracker"
)

type Model struct {
	tracker *tracker.Tracker
	ledger  *ledger.Ledger
	holiday *holiday.Service
	now     func() time.Time

	keys     KeyMap
	help     help.Model
	progress progress.Model

	events      <-chan events.Event
	unsubscribe func()

	message  string
	err      error
	quitting bool
	width    int
	height   int
}

type tickMsg time.Time

// eventMsg is a ledger change observed on the bus
type eventMsg events.Event

// NewModel builds the countdown for t's user. It subscribes to the ledger's
// bus until the program quits.
func NewModel(t *tracker.Tracker, l *ledger.Ledger, h *holiday.Service, now func() time.Time) Model {
	ch, cancel := l.Bus().Subscribe()
	return Model{
		tracker:     t,
		ledger:      l,
		holiday:     h,
		now:         now,
		keys:        DefaultKeyMap(),
		help:        help.New(),
		progress:    progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		events:      ch,
		unsubscribe: cancel,
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForEvent(ch <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return nil
		}
		return eventMsg(e)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(), waitForEvent(m.events), m.checkLimit)
}

// checkLimit stops a usage session whose budget ran out, including one
// resumed after a restart.
func (m Model) checkLimit() tea.Msg {
	stopped, err := m.tracker.CheckUsageLimit()
	if err != nil {
		return errMsg{err}
	}
	if stopped {
		return timesUpMsg{}
	}
	return nil
}

type timesUpMsg struct{}

type errMsg struct{ err error }

package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/roulendz/timebank/internal/constants"
	errs "github.com/roulendz/timebank/internal/errors"
	"github.com/roulendz/timebank/internal/utils"
	"github.com/roulendz/timebank/internal/wallet"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.progress.Width = min(max(10, msg.Width-8), 60)
		return m, nil

	case tickMsg:
		return m, tea.Batch(tick(), m.checkLimit)

	case timesUpMsg:
		m.message = "Time's up! Your available time has been used."
		return m, nil

	case eventMsg:
		m.message = describeEvent(msg.Name)
		return m, waitForEvent(m.events)

	case errMsg:
		m.setErr(msg.err)
		return m, nil

	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		m.progress = pm.(progress.Model)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		if m.unsubscribe != nil {
			m.unsubscribe()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Track):
		m.err = nil
		if m.tracker.State() == constants.ModeTracking {
			a, err := m.tracker.StopTracking("")
			if m.setErr(err) {
				return m, nil
			}
			m.message = fmt.Sprintf("Recorded %s", utils.FormatDuration(a.Duration))
			return m, nil
		}
		if m.setErr(m.tracker.StartTracking("")) {
			return m, nil
		}
		m.message = "Tracking started."
		return m, nil

	case key.Matches(msg, m.keys.Use):
		m.err = nil
		if m.tracker.State() == constants.ModeUsing {
			used, err := m.tracker.StopTimeUsage()
			if m.setErr(err) {
				return m, nil
			}
			m.message = fmt.Sprintf("Used %s", utils.FormatDuration(used))
			return m, nil
		}
		if m.setErr(m.tracker.StartTimeUsage()) {
			return m, nil
		}
		m.message = "Using time."
		return m, nil

	case key.Matches(msg, m.keys.Deposit):
		m.err = nil
		return m, m.depositToday()
	}
	return m, nil
}

// depositToday moves every available activity of today to the holiday wallet.
func (m *Model) depositToday() tea.Cmd {
	uid := m.tracker.UserID()
	var total int64
	for _, a := range wallet.TodayActivities(m.ledger.GetActivities(uid), m.now()) {
		if !wallet.CanTransferToHoliday(a) || wallet.RemainingTime(a) == 0 {
			continue
		}
		d, err := m.holiday.Transfer(uid, a.ID)
		if m.setErr(err) {
			return nil
		}
		total += d.TotalValue()
	}
	if total == 0 {
		m.message = "Nothing to deposit."
		return nil
	}
	m.message = fmt.Sprintf("Saved %s to the holiday wallet.", utils.FormatHoursMinutes(total))
	return nil
}

// setErr records err for display and reports whether it aborts the action.
// Persistence failures are shown but the change took effect.
func (m *Model) setErr(err error) bool {
	if err == nil {
		return false
	}
	m.err = err
	return !errs.IsPersistence(err)
}

func describeEvent(name constants.EventName) string {
	switch name {
	case constants.EventActivityStopped:
		return "Activity recorded."
	case constants.EventDepositAdded:
		return "Deposit added to the holiday wallet."
	case constants.EventDepositCanceled:
		return "Holiday deposit canceled."
	default:
		return ""
	}
}

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/roulendz/timebank/internal/constants"
	errs "github.com/roulendz/timebank/internal/errors"
	"github.com/roulendz/timebank/internal/utils"
	"github.com/roulendz/timebank/internal/wallet"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title()))
	b.WriteString("\n\n")
	b.WriteString(m.viewClock())
	b.WriteString("\n\n")
	b.WriteString(m.viewBalances())

	if m.message != "" {
		b.WriteString("\n\n")
		b.WriteString(m.message)
	}
	if m.err != nil {
		b.WriteString("\n\n")
		if errs.IsPersistence(m.err) {
			b.WriteString(warningStyle.Render(errs.FormatWarning(m.err)))
		} else {
			b.WriteString(dangerStyle.Render("Error: " + m.err.Error()))
		}
	}

	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))
	return docStyle.Render(b.String())
}

func (m Model) title() string {
	uid := m.tracker.UserID()
	u, err := m.ledger.GetUser(uid)
	if err != nil {
		return "TimeBank"
	}
	return fmt.Sprintf("TimeBank · %s", u.DisplayName())
}

func (m Model) viewClock() string {
	switch m.tracker.State() {
	case constants.ModeTracking:
		return lipgloss.JoinVertical(lipgloss.Left,
			clockStyle.Render(utils.FormatDuration(m.tracker.Elapsed())),
			labelStyle.Render(strings.TrimSpace("Tracking "+m.tracker.Session().CurrentActivityDescription)),
		)
	case constants.ModeUsing:
		elapsed := m.tracker.Elapsed()
		remaining := m.tracker.Remaining()
		ratio := 0.0
		if total := elapsed + remaining; total > 0 {
			ratio = float64(remaining) / float64(total)
		}
		clock := clockStyle
		if remaining < constants.LowBalanceWarning.Milliseconds() {
			clock = clock.BorderForeground(lipgloss.Color("196"))
		}
		return lipgloss.JoinVertical(lipgloss.Left,
			clock.Render(utils.FormatDuration(remaining)),
			m.progress.ViewAs(ratio),
			labelStyle.Render(fmt.Sprintf("Using time, %s elapsed", utils.FormatDuration(elapsed))),
		)
	default:
		return lipgloss.JoinVertical(lipgloss.Left,
			clockStyle.Render("--:--:--"),
			labelStyle.Render("Idle"),
		)
	}
}

func (m Model) viewBalances() string {
	uid := m.tracker.UserID()
	acts := m.ledger.GetActivities(uid)
	deposits := m.ledger.GetDeposits(uid)
	now := m.now()

	rows := []string{
		fmt.Sprintf("%s %s", labelStyle.Render("Available today:  "), utils.FormatHoursMinutes(wallet.TotalAvailableToday(acts, now))),
		fmt.Sprintf("%s %s", labelStyle.Render("Earned today:     "), utils.FormatHoursMinutes(wallet.TotalAccumulatedToday(acts, now))),
		fmt.Sprintf("%s %s", labelStyle.Render("Holiday wallet:   "), utils.FormatHoursMinutes(wallet.HolidayBalance(deposits))),
	}
	return strings.Join(rows, "\n")
}

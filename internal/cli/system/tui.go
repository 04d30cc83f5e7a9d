package system

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/roulendz/timebank/internal/cli"
	"github.com/roulendz/timebank/internal/tui"
)

type TuiCmd struct{}

func (c *TuiCmd) Run(ctx *cli.Context) error {
	t, err := ctx.Tracker()
	if err != nil {
		return err
	}

	// Perform automatic backup on TUI startup (after successful load)
	ctx.PerformAutomaticBackup()

	runCtx, stop := ctx.Interruptible()
	defer stop()

	m := tui.NewModel(t, ctx.Ledger, ctx.Holiday, ctx.Now)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(runCtx))
	if _, err := p.Run(); err != nil && runCtx.Err() == nil {
		return err
	}
	return nil
}

package system

import (
	"fmt"

	"github.com/roulendz/timebank/internal/cli"
	"github.com/roulendz/timebank/internal/constants"
	"github.com/roulendz/timebank/internal/utils"
	"github.com/roulendz/timebank/internal/validation"
	"github.com/roulendz/timebank/internal/wallet"
)

// NotifyCmd sends the current balance to the tray app. It is meant to be run
// from cron or a systemd timer.
type NotifyCmd struct {
	DryRun  bool   `help:"Print notifications to stdout instead of sending them."`
	Message string `arg:"" optional:"" help:"Send this text instead of the balance summary."`
}

func (c *NotifyCmd) Run(ctx *cli.Context) error {
	msg := c.Message
	if msg == "" {
		var err error
		if msg, err = statusMessage(ctx); err != nil {
			return err
		}
	}

	if c.DryRun {
		ctx.Println("[DryRun] " + msg)
		return nil
	}
	if ctx.Feedback == nil {
		return fmt.Errorf("notifications are not configured")
	}
	sendCtx, stop := ctx.Interruptible()
	defer stop()
	if err := ctx.Feedback.Notify(sendCtx, msg); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	return nil
}

func statusMessage(ctx *cli.Context) (string, error) {
	t, err := ctx.Tracker()
	if err != nil {
		return "", err
	}
	user, err := ctx.Ledger.GetUser(t.UserID())
	if err != nil {
		return "", err
	}
	name := user.DisplayName()

	stopped, err := t.CheckUsageLimit()
	if err := ctx.Check(err); err != nil {
		return "", err
	}
	if stopped {
		return fmt.Sprintf("%s: Time's up! Your available time has been used.", name), nil
	}

	switch t.State() {
	case constants.ModeTracking:
		return fmt.Sprintf("%s: tracking for %s", name, utils.FormatHoursMinutes(t.Elapsed())), nil
	case constants.ModeUsing:
		return fmt.Sprintf("%s: %s of time left", name, utils.FormatHoursMinutes(t.Remaining())), nil
	}

	available := wallet.TotalAvailableToday(user.ActivityLog, ctx.Now())
	if available == 0 {
		return fmt.Sprintf("%s: No time available. Complete some activities first.", name), nil
	}
	if inside, hasWindow := validation.WithinSchedule(user.Schedule, ctx.Now()); hasWindow && inside {
		return fmt.Sprintf("%s: your usage window is open, %s available", name, utils.FormatHoursMinutes(available)), nil
	}
	return fmt.Sprintf("%s: %s available today", name, utils.FormatHoursMinutes(available)), nil
}

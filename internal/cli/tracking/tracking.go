package tracking

import (
	"github.com/roulendz/timebank/internal/cli"
	"github.com/roulendz/timebank/internal/constants"
	"github.com/roulendz/timebank/internal/logger"
	"github.com/roulendz/timebank/internal/utils"
	"github.com/roulendz/timebank/internal/validation"
	"github.com/roulendz/timebank/internal/wallet"
)

type TrackStartCmd struct {
	Description string `arg:"" optional:"" help:"What you are working on."`
}

func (c *TrackStartCmd) Run(ctx *cli.Context) error {
	t, err := ctx.Tracker()
	if err != nil {
		return err
	}
	if err := ctx.Check(t.StartTracking(c.Description)); err != nil {
		return err
	}
	ctx.Println("Tracking started.")
	return nil
}

type TrackStopCmd struct {
	Description string `arg:"" optional:"" help:"Description of the finished activity."`
}

func (c *TrackStopCmd) Run(ctx *cli.Context) error {
	t, err := ctx.Tracker()
	if err != nil {
		return err
	}
	activity, err := t.StopTracking(c.Description)
	if err := ctx.Check(err); err != nil {
		if activity.ID == "" {
			return err
		}
		// auto-deposit failed after the activity was recorded
		ctx.Println(err)
	}
	ctx.Printf("Recorded %s: %s (ID: %s)\n", utils.FormatDuration(activity.Duration), activity.Description, activity.ID)

	if _, err := ctx.Ledger.GetActivity(t.UserID(), activity.ID); err != nil {
		ctx.Println("Moved to the holiday wallet.")
	}
	return nil
}

type UseStartCmd struct {
	Wait bool `short:"w" help:"Stay in the foreground and stop automatically when the time runs out."`
}

func (c *UseStartCmd) Run(ctx *cli.Context) error {
	t, err := ctx.Tracker()
	if err != nil {
		return err
	}

	if user, err := ctx.Ledger.GetUser(t.UserID()); err == nil {
		if inside, hasWindow := validation.WithinSchedule(user.Schedule, ctx.Now()); hasWindow && !inside {
			ctx.Println("Note: this is outside today's usage schedule.")
		}
	}

	if err := ctx.Check(t.StartTimeUsage()); err != nil {
		return err
	}
	ctx.Printf("Using time. Budget: %s\n", utils.FormatDuration(t.Session().UsageBudget))

	if !c.Wait {
		return nil
	}

	runCtx, stop := ctx.Interruptible()
	defer stop()
	if err := t.Run(runCtx); err != nil {
		return ctx.Check(err)
	}
	if t.State() != constants.ModeUsing {
		ctx.Println("Time's up!")
		return nil
	}
	logger.Debug("Usage wait interrupted")
	return stopUsage(ctx)
}

type UseStopCmd struct{}

func (c *UseStopCmd) Run(ctx *cli.Context) error {
	return stopUsage(ctx)
}

func stopUsage(ctx *cli.Context) error {
	t, err := ctx.Tracker()
	if err != nil {
		return err
	}
	owner := t.Session().UserID
	used, err := t.StopTimeUsage()
	if err := ctx.Check(err); err != nil {
		return err
	}
	if owner == "" {
		owner = t.UserID()
	}
	ctx.Metrics.RecordUsage(owner, used)
	ctx.Printf("Used %s. Remaining today: %s\n",
		utils.FormatDuration(used),
		utils.FormatDuration(wallet.TotalAvailableToday(ctx.Ledger.GetActivities(owner), ctx.Now())))
	return nil
}

type StatusCmd struct{}

func (c *StatusCmd) Run(ctx *cli.Context) error {
	t, err := ctx.Tracker()
	if err != nil {
		return err
	}

	// enforce the limit for sessions left running across restarts
	stopped, err := t.CheckUsageLimit()
	if err := ctx.Check(err); err != nil {
		return err
	}
	if stopped {
		ctx.Println("Time's up! The usage session has been stopped.")
	}

	session := t.Session()
	switch t.State() {
	case constants.ModeTracking:
		desc := session.CurrentActivityDescription
		if desc == "" {
			desc = constants.UnnamedActivityDescription
		}
		ctx.Printf("Tracking: %s (%s)\n", desc, utils.FormatDuration(t.Elapsed()))
	case constants.ModeUsing:
		ctx.Printf("Using time: %s elapsed, %s remaining\n",
			utils.FormatDuration(t.Elapsed()), utils.FormatDuration(t.Remaining()))
	default:
		ctx.Println("Idle.")
	}

	if session.UserID != "" && session.UserID != t.UserID() {
		if owner, err := ctx.Ledger.GetUser(session.UserID); err == nil {
			ctx.Printf("Session belongs to %s\n", owner.DisplayName())
		}
	}

	acts := ctx.Ledger.GetActivities(t.UserID())
	ctx.Printf("Available today: %s\n", utils.FormatDuration(wallet.TotalAvailableToday(acts, ctx.Now())))
	return nil
}

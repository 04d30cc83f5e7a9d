package system

import (
	"encoding/json"
	"fmt"

	"github.com/roulendz/timebank/internal/cli"
)

type DebugCmd struct {
	DBPath       *DebugDBPathCmd       `cmd:"" help:"Show database path."`
	DumpState    *DebugDumpStateCmd    `cmd:"" help:"Dump the whole persisted state as JSON."`
	DumpUser     *DebugDumpUserCmd     `cmd:"" help:"Dump user data as JSON."`
	DumpActivity *DebugDumpActivityCmd `cmd:"" help:"Dump activity data as JSON."`
	DumpDeposit  *DebugDumpDepositCmd  `cmd:"" help:"Dump holiday deposit data as JSON."`
	DumpTracking *DebugDumpTrackingCmd `cmd:"" help:"Dump the tracking session as JSON."`
	DumpMetrics  *DebugDumpMetricsCmd  `cmd:"" help:"Print the metrics gathered by this run."`
}

func printJSON(ctx *cli.Context, what string, v interface{}) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", what, err)
	}
	ctx.Println(string(jsonBytes))
	return nil
}

type DebugDBPathCmd struct{}

func (cmd *DebugDBPathCmd) Run(ctx *cli.Context) error {
	// machine-readable output
	return printJSON(ctx, "output", map[string]string{
		"path": ctx.Store.GetConfigPath(),
	})
}

type DebugDumpStateCmd struct{}

func (cmd *DebugDumpStateCmd) Run(ctx *cli.Context) error {
	state, err := ctx.Store.Load()
	if err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}
	if state == nil {
		return fmt.Errorf("no saved state found")
	}
	return printJSON(ctx, "state", state)
}

type DebugDumpUserCmd struct {
	User string `arg:"" optional:"" help:"User ID or name (defaults to the current user)."`
}

func (cmd *DebugDumpUserCmd) Run(ctx *cli.Context) error {
	id, err := resolveUser(ctx, cmd.User)
	if err != nil {
		return err
	}
	user, err := ctx.Ledger.GetUser(id)
	if err != nil {
		return err
	}
	return printJSON(ctx, "user", user)
}

type DebugDumpActivityCmd struct {
	ID string `arg:"" help:"ID of the activity to dump."`
}

func (cmd *DebugDumpActivityCmd) Run(ctx *cli.Context) error {
	uid, err := ctx.UserID()
	if err != nil {
		return err
	}
	activity, err := ctx.Ledger.GetActivity(uid, cmd.ID)
	if err != nil {
		return fmt.Errorf("activity not found: %s", cmd.ID)
	}
	return printJSON(ctx, "activity", activity)
}

type DebugDumpDepositCmd struct {
	ID string `arg:"" help:"ID of the deposit to dump."`
}

func (cmd *DebugDumpDepositCmd) Run(ctx *cli.Context) error {
	uid, err := ctx.UserID()
	if err != nil {
		return err
	}
	deposit, err := ctx.Ledger.GetDeposit(uid, cmd.ID)
	if err != nil {
		return fmt.Errorf("deposit not found: %s", cmd.ID)
	}
	return printJSON(ctx, "deposit", deposit)
}

type DebugDumpTrackingCmd struct{}

func (cmd *DebugDumpTrackingCmd) Run(ctx *cli.Context) error {
	ts := ctx.Ledger.GetTrackingState()
	return printJSON(ctx, "tracking state", map[string]interface{}{
		"mode":       string(ts.Mode()),
		"consistent": ts.Consistent(),
		"state":      ts,
	})
}

type DebugDumpMetricsCmd struct{}

func (cmd *DebugDumpMetricsCmd) Run(ctx *cli.Context) error {
	families, err := ctx.Metrics.Registry().Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			value := m.GetCounter().GetValue()
			if m.GetGauge() != nil {
				value = m.GetGauge().GetValue()
			}
			labels := ""
			for _, lp := range m.GetLabel() {
				labels += fmt.Sprintf(" %s=%s", lp.GetName(), lp.GetValue())
			}
			ctx.Printf("%s%s %v\n", mf.GetName(), labels, value)
		}
	}
	return nil
}

func resolveUser(ctx *cli.Context, ref string) (string, error) {
	if ref == "" {
		return ctx.UserID()
	}
	return ctx.FindUser(ref)
}

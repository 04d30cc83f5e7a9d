package system

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/roulendz/timebank/internal/cli"
	"github.com/roulendz/timebank/internal/constants"
	"github.com/roulendz/timebank/internal/models"
	"github.com/roulendz/timebank/internal/storage"
)

func setupDebugCtx(t *testing.T) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	ctx := cli.NewContext(storage.NewMemoryStore(), cli.WithOutput(out))
	if err := ctx.Open(context.Background()); err != nil {
		t.Fatalf("failed to open context: %v", err)
	}
	err := ctx.Ledger.AddActivity(models.Activity{
		ID:                    "a1",
		Description:           "homework",
		Duration:              60000,
		IsAvailableForDeposit: true,
		UserID:                constants.DefaultUserID,
	})
	if err != nil {
		t.Fatalf("failed to add activity: %v", err)
	}
	out.Reset()
	return ctx, out
}

func TestDebugDBPathCmd(t *testing.T) {
	ctx, out := setupDebugCtx(t)

	if err := (&DebugDBPathCmd{}).Run(ctx); err != nil {
		t.Fatalf("DebugDBPathCmd failed: %v", err)
	}

	var result map[string]string
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if result["path"] != "memory" {
		t.Errorf("expected path 'memory', got %q", result["path"])
	}
}

func TestDebugDumpStateCmd(t *testing.T) {
	ctx, out := setupDebugCtx(t)

	if err := (&DebugDumpStateCmd{}).Run(ctx); err != nil {
		t.Fatalf("DebugDumpStateCmd failed: %v", err)
	}

	var state models.State
	if err := json.Unmarshal(out.Bytes(), &state); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(state.Users) != 1 || len(state.Users[0].ActivityLog) != 1 {
		t.Errorf("unexpected state: %+v", state)
	}
}

func TestDebugDumpUserCmd(t *testing.T) {
	ctx, out := setupDebugCtx(t)

	if err := (&DebugDumpUserCmd{}).Run(ctx); err != nil {
		t.Fatalf("DebugDumpUserCmd failed: %v", err)
	}
	if !strings.Contains(out.String(), `"homework"`) {
		t.Errorf("expected activity in user dump:\n%s", out.String())
	}

	if err := (&DebugDumpUserCmd{User: "nobody"}).Run(ctx); err == nil {
		t.Error("expected error for unknown user")
	}
}

func TestDebugDumpActivityCmd(t *testing.T) {
	ctx, out := setupDebugCtx(t)

	if err := (&DebugDumpActivityCmd{ID: "a1"}).Run(ctx); err != nil {
		t.Fatalf("DebugDumpActivityCmd failed: %v", err)
	}
	var a models.Activity
	if err := json.Unmarshal(out.Bytes(), &a); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if a.ID != "a1" || a.Duration != 60000 {
		t.Errorf("unexpected activity: %+v", a)
	}

	if err := (&DebugDumpActivityCmd{ID: "missing"}).Run(ctx); err == nil {
		t.Error("expected error for missing activity")
	}
	if err := (&DebugDumpDepositCmd{ID: "missing"}).Run(ctx); err == nil {
		t.Error("expected error for missing deposit")
	}
}

func TestDebugDumpTrackingCmd(t *testing.T) {
	ctx, out := setupDebugCtx(t)

	if err := (&DebugDumpTrackingCmd{}).Run(ctx); err != nil {
		t.Fatalf("DebugDumpTrackingCmd failed: %v", err)
	}
	var result map[string]interface{}
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if result["mode"] != "idle" || result["consistent"] != true {
		t.Errorf("unexpected tracking dump: %v", result)
	}
}

func TestDebugDumpMetricsCmd(t *testing.T) {
	ctx, out := setupDebugCtx(t)

	if err := (&DebugDumpMetricsCmd{}).Run(ctx); err != nil {
		t.Fatalf("DebugDumpMetricsCmd failed: %v", err)
	}
	if !strings.Contains(out.String(), "timebank_ledger_events_total event=activityListChanged 1") {
		t.Errorf("expected the activity event to be counted:\n%s", out.String())
	}
}

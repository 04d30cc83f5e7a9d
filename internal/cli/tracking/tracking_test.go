package tracking

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/roulendz/timebank/internal/cli"
	"github.com/roulendz/timebank/internal/constants"
	"github.com/roulendz/timebank/internal/models"
	"github.com/roulendz/timebank/internal/storage"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func setupTestCtx(t *testing.T, opts ...cli.Option) (*cli.Context, *fakeClock, *bytes.Buffer) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, time.March, 13, 16, 0, 0, 0, time.UTC)}
	out := &bytes.Buffer{}
	all := append([]cli.Option{
		cli.WithOutput(out),
		cli.WithLocation(time.UTC),
		cli.WithClock(clock.Now),
	}, opts...)
	ctx := cli.NewContext(storage.NewMemoryStore(), all...)
	if err := ctx.Open(context.Background()); err != nil {
		t.Fatalf("failed to open context: %v", err)
	}
	return ctx, clock, out
}

func earn(t *testing.T, ctx *cli.Context, clock *fakeClock, d time.Duration) {
	t.Helper()
	if err := (&TrackStartCmd{Description: "homework"}).Run(ctx); err != nil {
		t.Fatalf("track start failed: %v", err)
	}
	clock.Advance(d)
	if err := (&TrackStopCmd{}).Run(ctx); err != nil {
		t.Fatalf("track stop failed: %v", err)
	}
}

func TestTrackStartStop(t *testing.T) {
	ctx, clock, out := setupTestCtx(t)

	if err := (&TrackStartCmd{Description: "reading"}).Run(ctx); err != nil {
		t.Fatalf("track start failed: %v", err)
	}
	clock.Advance(30 * time.Minute)

	out.Reset()
	if err := (&StatusCmd{}).Run(ctx); err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(out.String(), "Tracking: reading (00:30:00)") {
		t.Errorf("unexpected status:\n%s", out.String())
	}

	if err := (&TrackStartCmd{}).Run(ctx); err == nil {
		t.Error("expected error starting twice")
	}

	out.Reset()
	if err := (&TrackStopCmd{}).Run(ctx); err != nil {
		t.Fatalf("track stop failed: %v", err)
	}
	if !strings.Contains(out.String(), "Recorded 00:30:00: reading") {
		t.Errorf("unexpected output:\n%s", out.String())
	}

	acts := ctx.Ledger.GetActivities(constants.DefaultUserID)
	if len(acts) != 1 || acts[0].Duration != (30*time.Minute).Milliseconds() {
		t.Fatalf("unexpected activities: %+v", acts)
	}

	if err := (&TrackStopCmd{}).Run(ctx); err == nil {
		t.Error("expected error stopping while idle")
	}
}

func TestUseStartWithoutBalance(t *testing.T) {
	ctx, _, _ := setupTestCtx(t)

	if err := (&UseStartCmd{}).Run(ctx); err == nil {
		t.Fatal("expected error without available time")
	}
	if ctx.Ledger.GetTrackingState().Mode() != constants.ModeIdle {
		t.Error("rejected usage must leave the session idle")
	}
}

func TestUseStartStop(t *testing.T) {
	ctx, clock, out := setupTestCtx(t)
	earn(t, ctx, clock, 20*time.Minute)

	out.Reset()
	if err := (&UseStartCmd{}).Run(ctx); err != nil {
		t.Fatalf("use start failed: %v", err)
	}
	if !strings.Contains(out.String(), "Budget: 00:20:00") {
		t.Errorf("unexpected output:\n%s", out.String())
	}

	clock.Advance(5 * time.Minute)
	out.Reset()
	if err := (&StatusCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "00:05:00 elapsed, 00:15:00 remaining") {
		t.Errorf("unexpected status:\n%s", out.String())
	}

	out.Reset()
	if err := (&UseStopCmd{}).Run(ctx); err != nil {
		t.Fatalf("use stop failed: %v", err)
	}
	if !strings.Contains(out.String(), "Used 00:05:00. Remaining today: 00:15:00") {
		t.Errorf("unexpected output:\n%s", out.String())
	}

	acts := ctx.Ledger.GetActivities(constants.DefaultUserID)
	if acts[0].UsedDuration != (5 * time.Minute).Milliseconds() {
		t.Errorf("expected 5 minutes used, got %d", acts[0].UsedDuration)
	}
}

func TestStatusForcesStopOverBudget(t *testing.T) {
	ctx, clock, out := setupTestCtx(t)
	earn(t, ctx, clock, 10*time.Minute)

	if err := (&UseStartCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	clock.Advance(time.Hour)

	out.Reset()
	if err := (&StatusCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Time's up!") || !strings.Contains(out.String(), "Idle.") {
		t.Errorf("unexpected status:\n%s", out.String())
	}
	ctx.Finish()

	acts := ctx.Ledger.GetActivities(constants.DefaultUserID)
	if acts[0].UsedDuration != acts[0].Duration || acts[0].IsAvailableForDeposit {
		t.Errorf("activity not fully consumed: %+v", acts[0])
	}
}

func TestUseStartWaitInterrupted(t *testing.T) {
	base, cancel := context.WithCancel(context.Background())
	cancel()

	ctx, clock, out := setupTestCtx(t, cli.WithBaseContext(base))
	earn(t, ctx, clock, 10*time.Minute)

	out.Reset()
	if err := (&UseStartCmd{Wait: true}).Run(ctx); err != nil {
		t.Fatalf("use start --wait failed: %v", err)
	}
	if ctx.Ledger.GetTrackingState().Mode() != constants.ModeIdle {
		t.Error("interrupting the wait must stop usage")
	}
	if !strings.Contains(out.String(), "Used 00:00:00") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestUseStartOutsideSchedule(t *testing.T) {
	ctx, clock, out := setupTestCtx(t)
	user, _ := ctx.Ledger.GetUser(constants.DefaultUserID)
	user.Schedule = []models.ScheduleDay{{Day: "Wednesday", StartTime: "08:00", EndTime: "09:00", Enabled: true}}
	if err := ctx.Ledger.UpdateUser(user); err != nil {
		t.Fatal(err)
	}
	earn(t, ctx, clock, 10*time.Minute)

	out.Reset()
	if err := (&UseStartCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "outside today's usage schedule") {
		t.Errorf("expected schedule note, got:\n%s", out.String())
	}
}

func TestTrackStopAutoDeposit(t *testing.T) {
	ctx, clock, out := setupTestCtx(t)
	settings := models.DefaultUserSettings()
	settings.AutoDepositToHoliday = true
	if err := ctx.Ledger.SaveUserSettings(constants.DefaultUserID, settings); err != nil {
		t.Fatal(err)
	}

	out.Reset()
	earn(t, ctx, clock, 10*time.Minute)
	if !strings.Contains(out.String(), "Moved to the holiday wallet.") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
	if len(ctx.Ledger.GetActivities(constants.DefaultUserID)) != 0 {
		t.Error("auto-deposited activity must leave the activity log")
	}
	if len(ctx.Ledger.GetDeposits(constants.DefaultUserID)) != 1 {
		t.Error("expected one deposit")
	}
}

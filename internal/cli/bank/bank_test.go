package bank

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roulendz/timebank/internal/cli"
	"github.com/roulendz/timebank/internal/constants"
	"github.com/roulendz/timebank/internal/holiday"
	"github.com/roulendz/timebank/internal/models"
	"github.com/roulendz/timebank/internal/storage"
)

// Wednesday afternoon
var now = time.Date(2024, time.March, 13, 16, 0, 0, 0, time.UTC)

func setupTestCtx(t *testing.T) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	ctx := cli.NewContext(storage.NewMemoryStore(),
		cli.WithOutput(out),
		cli.WithLocation(time.UTC),
		cli.WithClock(func() time.Time { return now }),
	)
	require.NoError(t, ctx.Open(context.Background()))
	return ctx, out
}

func addActivity(t *testing.T, ctx *cli.Context, id, desc string, duration, used time.Duration) {
	t.Helper()
	start := now.Add(-2 * time.Hour)
	require.NoError(t, ctx.Ledger.AddActivity(models.Activity{
		ID:                    id,
		Type:                  constants.ActivityTypeWork,
		Description:           desc,
		StartTime:             start.UnixMilli(),
		EndTime:               start.Add(duration).UnixMilli(),
		Duration:              duration.Milliseconds(),
		UsedDuration:          used.Milliseconds(),
		IsAvailableForDeposit: duration > used,
		UserID:                constants.DefaultUserID,
	}))
}

func TestWalletCmd(t *testing.T) {
	ctx, out := setupTestCtx(t)
	addActivity(t, ctx, "a1", "homework", time.Hour, 15*time.Minute)
	addActivity(t, ctx, "a2", "chores", 10*time.Minute, 10*time.Minute)

	require.NoError(t, (&WalletCmd{}).Run(ctx))
	s := out.String()
	assert.Contains(t, s, "Available today:   00:45:00")
	assert.Contains(t, s, "Earned today:      01:10:00")
	assert.Contains(t, s, "homework")
	assert.NotContains(t, s, "chores", "used-up activities are hidden by default")
	assert.Contains(t, s, "(0 so far)")

	out.Reset()
	require.NoError(t, (&WalletCmd{All: true}).Run(ctx))
	assert.Contains(t, out.String(), "chores (used)")
}

func TestHolidayDeposit(t *testing.T) {
	ctx, out := setupTestCtx(t)
	addActivity(t, ctx, "a1", "homework", time.Hour, 0)

	require.NoError(t, (&HolidayDepositCmd{Activity: "a1"}).Run(ctx))
	assert.Contains(t, out.String(), "Deposited 01:00:00 +0h 06m bonus: homework")

	assert.Empty(t, ctx.Ledger.GetActivities(constants.DefaultUserID))
	deposits := ctx.Ledger.GetDeposits(constants.DefaultUserID)
	require.Len(t, deposits, 1)
	assert.Equal(t, (6 * time.Minute).Milliseconds(), deposits[0].AccumulatedBonus)

	assert.Error(t, (&HolidayDepositCmd{Activity: "a1"}).Run(ctx), "already deposited")
	assert.Error(t, (&HolidayDepositCmd{}).Run(ctx), "no activity given")
}

func TestHolidayDepositAll(t *testing.T) {
	ctx, out := setupTestCtx(t)
	addActivity(t, ctx, "a1", "homework", time.Hour, 0)
	addActivity(t, ctx, "a2", "reading", 30*time.Minute, 10*time.Minute)
	addActivity(t, ctx, "a3", "chores", 10*time.Minute, 10*time.Minute)

	require.NoError(t, (&HolidayDepositCmd{All: true}).Run(ctx))
	assert.Contains(t, out.String(), "Total: 01:20:00 +0h 08m bonus")
	assert.Len(t, ctx.Ledger.GetDeposits(constants.DefaultUserID), 2)
	assert.Len(t, ctx.Ledger.GetActivities(constants.DefaultUserID), 1, "used-up activity stays")

	out.Reset()
	require.NoError(t, (&HolidayDepositCmd{All: true}).Run(ctx))
	assert.Contains(t, out.String(), "Nothing to deposit.")
}

func TestHolidayCancel(t *testing.T) {
	ctx, out := setupTestCtx(t)
	addActivity(t, ctx, "a1", "homework", time.Hour, 20*time.Minute)
	require.NoError(t, (&HolidayDepositCmd{Activity: "a1"}).Run(ctx))
	depositID := ctx.Ledger.GetDeposits(constants.DefaultUserID)[0].ID

	var asked string
	ctx.Confirm = holiday.ConfirmFunc(func(title, message string) (bool, error) {
		asked = message
		return false, nil
	})
	out.Reset()
	require.NoError(t, (&HolidayCancelCmd{Deposit: depositID}).Run(ctx))
	assert.Equal(t, "You will lose 0h 04m of bonus time!", asked)
	assert.Contains(t, out.String(), "Deposit kept.")
	assert.Len(t, ctx.Ledger.GetDeposits(constants.DefaultUserID), 1)

	out.Reset()
	require.NoError(t, (&HolidayCancelCmd{Deposit: depositID, Yes: true}).Run(ctx))
	assert.Contains(t, out.String(), "00:40:00 is back in homework (ID: a1)")
	assert.Empty(t, ctx.Ledger.GetDeposits(constants.DefaultUserID))

	a, err := ctx.Ledger.GetActivity(constants.DefaultUserID, "a1")
	require.NoError(t, err)
	assert.Equal(t, (20 * time.Minute).Milliseconds(), a.UsedDuration)

	assert.Error(t, (&HolidayCancelCmd{Deposit: "missing", Yes: true}).Run(ctx))
}

func TestHolidayList(t *testing.T) {
	ctx, out := setupTestCtx(t)

	require.NoError(t, (&HolidayListCmd{}).Run(ctx))
	assert.Contains(t, out.String(), "The holiday wallet is empty.")

	addActivity(t, ctx, "a1", "homework", time.Hour, 0)
	require.NoError(t, (&HolidayDepositCmd{Activity: "a1"}).Run(ctx))

	out.Reset()
	require.NoError(t, (&HolidayListCmd{}).Run(ctx))
	s := out.String()
	assert.Contains(t, s, "Wed 13 Mar")
	assert.Contains(t, s, "expires Sun 17 Mar 23:59")
	assert.Contains(t, s, "cancel forfeits 0h 06m")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(s), "Balance: 01:06:00"), s)
}

func TestHolidayListWeekendBonus(t *testing.T) {
	ctx, out := setupTestCtx(t)
	saturday := time.Date(2024, time.March, 9, 11, 0, 0, 0, time.UTC)
	require.NoError(t, ctx.Ledger.AddDeposit(models.TimeDeposit{
		ID:                    "d1",
		SourceActivityID:      "a1",
		UserID:                constants.DefaultUserID,
		Description:           "garden",
		StartTime:             saturday.Add(-time.Hour).UnixMilli(),
		EndTime:               saturday.UnixMilli(),
		Duration:              time.Hour.Milliseconds(),
		DepositedDuration:     time.Hour.Milliseconds(),
		AccumulatedBonus:      (6 * time.Minute).Milliseconds(),
		DepositTimestamp:      saturday.UnixMilli(),
		IsAvailableForDeposit: true,
	}))

	settings := models.DefaultUserSettings()
	settings.HolidayBonusPercentage = 10
	settings.WeeklyBonusPercentage = 20
	settings.WeekendTimeToNextWeek = true
	require.NoError(t, ctx.Ledger.SaveUserSettings(constants.DefaultUserID, settings))

	require.NoError(t, (&HolidayListCmd{}).Run(ctx))
	assert.Contains(t, out.String(), "Weekend deposits bonus: +0h 12m", "weekend bonus uses the weekly rate")

	settings.WeekendTimeToNextWeek = false
	require.NoError(t, ctx.Ledger.SaveUserSettings(constants.DefaultUserID, settings))

	out.Reset()
	require.NoError(t, (&HolidayListCmd{}).Run(ctx))
	assert.NotContains(t, out.String(), "Weekend deposits bonus")
	assert.Contains(t, out.String(), "Balance: 01:06:00")
}

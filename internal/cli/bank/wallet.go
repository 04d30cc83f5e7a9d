package bank

import (
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/roulendz/timebank/internal/cli"
	"github.com/roulendz/timebank/internal/constants"
	"github.com/roulendz/timebank/internal/models"
	"github.com/roulendz/timebank/internal/utils"
	"github.com/roulendz/timebank/internal/wallet"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	bonusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

type WalletCmd struct {
	All bool `help:"Include used-up activities."`
}

func (c *WalletCmd) Run(ctx *cli.Context) error {
	uid, err := ctx.UserID()
	if err != nil {
		return err
	}
	user, err := ctx.Ledger.GetUser(uid)
	if err != nil {
		return err
	}
	settings, err := ctx.Ledger.GetUserSettings(uid)
	if err := ctx.Check(err); err != nil {
		return err
	}
	now := ctx.Now()

	ctx.Println(headerStyle.Render("Wallet: " + user.DisplayName()))
	ctx.Printf("  Available today:   %s\n", utils.FormatDuration(wallet.TotalAvailableToday(user.ActivityLog, now)))
	ctx.Printf("  Earned today:      %s\n", utils.FormatDuration(wallet.TotalAccumulatedToday(user.ActivityLog, now)))
	ctx.Printf("  Available overall: %s\n", utils.FormatDuration(wallet.TotalAvailable(user.ActivityLog)))

	today := wallet.TodayActivities(user.ActivityLog, now)
	ctx.Println()
	ctx.Println(headerStyle.Render("Today's activities"))
	shown := 0
	for _, a := range today {
		if !c.All && !a.Available() {
			continue
		}
		printActivity(ctx, a)
		shown++
	}
	if shown == 0 {
		ctx.Println(mutedStyle.Render("  No activities yet."))
	}

	ctx.Println()
	ctx.Println(headerStyle.Render("Holiday wallet"))
	ctx.Printf("  Balance: %s\n", utils.FormatDuration(wallet.HolidayBalance(user.Deposits)))
	for _, d := range user.Deposits {
		printDeposit(ctx, d, settings)
	}

	week := wallet.WeekDeposits(user.Deposits, now)
	if wallet.IsEligibleForWeeklyBonus(week, now.Location()) {
		bonus := wallet.WeeklyBonus(week, settings.WeeklyBonusPercentage, now.Location())
		ctx.Println(bonusStyle.Render("  Full week! Weekly bonus: +" + utils.FormatHoursMinutes(bonus)))
	} else {
		days := make(map[time.Weekday]bool)
		for _, d := range week {
			days[d.Deposited().In(now.Location()).Weekday()] = true
		}
		ctx.Printf("  Weekly bonus: deposit on %d different days this week (%d so far)\n",
			constants.WeeklyBonusMinDays, len(days))
	}
	return nil
}

func printActivity(ctx *cli.Context, a models.Activity) {
	line := "  " + a.Started().In(ctx.Location).Format("15:04") + "  " +
		utils.FormatDuration(wallet.RemainingTime(a)) + " of " + utils.FormatDuration(a.Duration) +
		"  " + a.Description
	if !a.Available() {
		line = mutedStyle.Render(line + " (used)")
	}
	ctx.Println(line)
	ctx.Println(mutedStyle.Render("    ID: " + a.ID))
}

func printDeposit(ctx *cli.Context, d models.TimeDeposit, settings models.UserSettings) {
	expires := wallet.ExpirationDate(d, settings.WeekendTimeToNextWeek, ctx.Location)
	ctx.Printf("  %s  %s +%s bonus  %s (expires %s)\n",
		d.Deposited().In(ctx.Location).Format("Mon 02 Jan"),
		utils.FormatDuration(d.DepositedDuration),
		utils.FormatHoursMinutes(d.AccumulatedBonus),
		d.Description,
		expires.Format("Mon 02 Jan 15:04"))
	if loss := wallet.PotentialLoss(d); loss > 0 {
		ctx.Println(mutedStyle.Render("    ID: " + d.ID + "  cancel forfeits " + utils.FormatHoursMinutes(loss)))
	} else {
		ctx.Println(mutedStyle.Render("    ID: " + d.ID))
	}
}

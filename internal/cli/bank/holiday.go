package bank

import (
	"errors"
	"fmt"

	"github.com/roulendz/timebank/internal/cli"
	errs "github.com/roulendz/timebank/internal/errors"
	"github.com/roulendz/timebank/internal/holiday"
	"github.com/roulendz/timebank/internal/utils"
	"github.com/roulendz/timebank/internal/wallet"
)

type HolidayDepositCmd struct {
	Activity string `arg:"" optional:"" help:"ID of the activity to deposit."`
	All      bool   `help:"Deposit every available activity."`
}

func (c *HolidayDepositCmd) Run(ctx *cli.Context) error {
	uid, err := ctx.UserID()
	if err != nil {
		return err
	}

	var ids []string
	switch {
	case c.All:
		for _, a := range ctx.Ledger.GetActivities(uid) {
			if wallet.CanTransferToHoliday(a) {
				ids = append(ids, a.ID)
			}
		}
		if len(ids) == 0 {
			ctx.Println("Nothing to deposit.")
			return nil
		}
	case c.Activity != "":
		ids = []string{c.Activity}
	default:
		return fmt.Errorf("specify an activity ID or --all")
	}

	var total, bonus int64
	for _, id := range ids {
		d, err := ctx.Holiday.Transfer(uid, id)
		if err := ctx.Check(err); err != nil {
			return fmt.Errorf("failed to deposit %s: %w", id, err)
		}
		total += d.DepositedDuration
		bonus += d.AccumulatedBonus
		ctx.Printf("Deposited %s +%s bonus: %s (ID: %s)\n",
			utils.FormatDuration(d.DepositedDuration), utils.FormatHoursMinutes(d.AccumulatedBonus), d.Description, d.ID)
	}
	if len(ids) > 1 {
		ctx.Printf("Total: %s +%s bonus\n", utils.FormatDuration(total), utils.FormatHoursMinutes(bonus))
	}
	return nil
}

type HolidayCancelCmd struct {
	Deposit string `arg:"" help:"ID of the deposit to cancel."`
	Yes     bool   `short:"y" help:"Do not ask for confirmation."`
}

func (c *HolidayCancelCmd) Run(ctx *cli.Context) error {
	uid, err := ctx.UserID()
	if err != nil {
		return err
	}

	confirm := ctx.Confirm
	if c.Yes {
		confirm = holiday.AlwaysConfirm
	}

	a, err := ctx.Holiday.Cancel(uid, c.Deposit, confirm)
	if errors.Is(err, errs.ErrCanceled) {
		ctx.Println("Deposit kept.")
		return nil
	}
	if err := ctx.Check(err); err != nil {
		return fmt.Errorf("failed to cancel deposit: %w", err)
	}
	ctx.Printf("Deposit canceled. %s is back in %s (ID: %s)\n",
		utils.FormatDuration(wallet.RemainingTime(a)), a.Description, a.ID)
	return nil
}

type HolidayListCmd struct{}

func (c *HolidayListCmd) Run(ctx *cli.Context) error {
	uid, err := ctx.UserID()
	if err != nil {
		return err
	}
	settings, err := ctx.Ledger.GetUserSettings(uid)
	if err := ctx.Check(err); err != nil {
		return err
	}

	deposits := ctx.Ledger.GetDeposits(uid)
	if len(deposits) == 0 {
		ctx.Println("The holiday wallet is empty.")
		return nil
	}
	for _, d := range deposits {
		printDeposit(ctx, d, settings)
	}
	ctx.Printf("Balance: %s\n", utils.FormatDuration(wallet.HolidayBalance(deposits)))
	// weekend deposits only earn the weekly rate when they carry over to next week
	if !settings.WeekendTimeToNextWeek {
		return nil
	}
	if weekend := wallet.WeekendBonus(deposits, settings.WeeklyBonusPercentage, ctx.Location); weekend > 0 {
		ctx.Printf("Weekend deposits bonus: +%s\n", utils.FormatHoursMinutes(weekend))
	}
	return nil
}

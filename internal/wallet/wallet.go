// Package wallet computes balances, bonuses and usage consumption from the
// activity log and holiday deposits. Every function is pure: the current
// time is passed in, and its location decides where "today" begins.
package wallet

import (
	"math"
	"sort"
	"time"

	"github.com/roulendz/timebank/internal/constants"
	"github.com/roulendz/timebank/internal/models"
	"github.com/roulendz/timebank/internal/utils"
)

// Transferable is anything that may be moved into the holiday wallet
type Transferable interface {
	Available() bool
}

// RemainingTime is the unspent part of an activity, never negative.
func RemainingTime(a models.Activity) int64 {
	if a.Duration <= 0 {
		return 0
	}
	used := a.UsedDuration
	if used < 0 {
		used = 0
	}
	return max(0, a.Duration-used)
}

// todayWindow returns [midnight, next midnight) of now's day in Unix ms.
func todayWindow(now time.Time) (int64, int64) {
	start := utils.StartOfDay(now)
	return start.UnixMilli(), start.AddDate(0, 0, 1).UnixMilli()
}

func startedToday(a models.Activity, from, to int64) bool {
	return a.StartTime >= from && a.StartTime < to
}

// TotalAvailableToday sums the remaining time of today's available activities.
func TotalAvailableToday(acts []models.Activity, now time.Time) int64 {
	from, to := todayWindow(now)
	var total int64
	for _, a := range acts {
		if startedToday(a, from, to) && a.Available() {
			total += RemainingTime(a)
		}
	}
	return total
}

// TotalAccumulatedToday sums the full duration of today's activities.
func TotalAccumulatedToday(acts []models.Activity, now time.Time) int64 {
	from, to := todayWindow(now)
	var total int64
	for _, a := range acts {
		if startedToday(a, from, to) && a.Duration > 0 {
			total += a.Duration
		}
	}
	return total
}

// TodayActivities returns today's activities, newest first.
func TodayActivities(acts []models.Activity, now time.Time) []models.Activity {
	from, to := todayWindow(now)
	out := []models.Activity{}
	for _, a := range acts {
		if startedToday(a, from, to) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime > out[j].StartTime })
	return out
}

// TotalAvailable sums the remaining time of every available activity
// regardless of day.
func TotalAvailable(acts []models.Activity) int64 {
	var total int64
	for _, a := range acts {
		if a.Available() {
			total += RemainingTime(a)
		}
	}
	return total
}

// FindNextAvailableActivity returns the first activity in list order that
// still has time to spend.
func FindNextAvailableActivity(acts []models.Activity) (models.Activity, bool) {
	for _, a := range acts {
		if a.Available() && RemainingTime(a) > 0 {
			return a, true
		}
	}
	return models.Activity{}, false
}

// CanTransferToHoliday reports whether e may move to the holiday wallet.
func CanTransferToHoliday(e Transferable) bool {
	return e.Available()
}

// DepositBonus is floor(deposited * pct / 100), never negative.
func DepositBonus(deposited int64, pct float64) int64 {
	if deposited <= 0 || pct <= 0 || math.IsNaN(pct) {
		return 0
	}
	return int64(math.Floor(float64(deposited) * pct / 100))
}

// WeekendBonus sums the bonus pct would give each deposit made on a weekend.
func WeekendBonus(deposits []models.TimeDeposit, pct float64, loc *time.Location) int64 {
	var total int64
	for _, d := range deposits {
		if utils.IsWeekend(d.Deposited().In(loc)) {
			total += DepositBonus(d.DepositedDuration, pct)
		}
	}
	return total
}

// HolidayBalance sums deposited time plus bonus over all deposits.
func HolidayBalance(deposits []models.TimeDeposit) int64 {
	var total int64
	for _, d := range deposits {
		total += max(0, d.TotalValue())
	}
	return total
}

// TodayDeposits returns deposits made today, newest first.
func TodayDeposits(deposits []models.TimeDeposit, now time.Time) []models.TimeDeposit {
	from, to := todayWindow(now)
	out := []models.TimeDeposit{}
	for _, d := range deposits {
		if d.DepositTimestamp >= from && d.DepositTimestamp < to {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DepositTimestamp > out[j].DepositTimestamp })
	return out
}

// WeekDeposits returns deposits made in now's ISO week.
func WeekDeposits(deposits []models.TimeDeposit, now time.Time) []models.TimeDeposit {
	year, week := utils.ISOWeek(now)
	out := []models.TimeDeposit{}
	for _, d := range deposits {
		y, w := utils.ISOWeek(d.Deposited().In(now.Location()))
		if y == year && w == week {
			out = append(out, d)
		}
	}
	return out
}

// ExpirationDate is the end of the weekend following the deposit. A weekend
// deposit expires one weekend later when weekendToNextWeek is set.
func ExpirationDate(d models.TimeDeposit, weekendToNextWeek bool, loc *time.Location) time.Time {
	deposited := d.Deposited().In(loc)
	if weekendToNextWeek && utils.IsWeekend(deposited) {
		return utils.WeekendEnd(deposited.AddDate(0, 0, 7))
	}
	return utils.WeekendEnd(deposited)
}

// PotentialLoss is the bonus forfeited if d is canceled.
func PotentialLoss(d models.TimeDeposit) int64 {
	return max(0, d.AccumulatedBonus)
}

// IsEligibleForWeeklyBonus requires deposits on at least five distinct weekdays.
func IsEligibleForWeeklyBonus(weekDeposits []models.TimeDeposit, loc *time.Location) bool {
	days := make(map[time.Weekday]struct{})
	for _, d := range weekDeposits {
		days[d.Deposited().In(loc).Weekday()] = struct{}{}
	}
	return len(days) >= constants.WeeklyBonusMinDays
}

// WeeklyBonus is the extra bonus earned by a full week of deposits, zero when
// the week does not qualify.
func WeeklyBonus(weekDeposits []models.TimeDeposit, pct float64, loc *time.Location) int64 {
	if !IsEligibleForWeeklyBonus(weekDeposits, loc) {
		return 0
	}
	var total int64
	for _, d := range weekDeposits {
		total += DepositBonus(d.DepositedDuration, pct)
	}
	return total
}

// ConsumeUsage spends usedMs across acts in list order. It returns a copy of
// acts with the consumption applied, the indexes that changed and any amount
// that could not be covered. An activity whose remaining time reaches zero
// becomes unavailable.
func ConsumeUsage(acts []models.Activity, usedMs int64) (updated []models.Activity, touched []int, leftover int64) {
	updated = append([]models.Activity(nil), acts...)
	leftover = max(0, usedMs)

	for i := range updated {
		if leftover == 0 {
			break
		}
		a := &updated[i]
		remaining := RemainingTime(*a)
		if !a.Available() || remaining == 0 {
			continue
		}

		take := min(remaining, leftover)
		if a.UsedDuration < 0 {
			a.UsedDuration = 0
		}
		a.UsedDuration += take
		leftover -= take
		if RemainingTime(*a) == 0 {
			a.IsAvailableForDeposit = false
		}
		touched = append(touched, i)
	}
	return updated, touched, leftover
}

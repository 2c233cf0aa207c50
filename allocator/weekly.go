// Package allocator splits a target contact volume down to weekly, daily and hourly buckets.
package allocator

import (
	"fmt"
	"math/rand"

	simerrors "ticket-simulator/errors"
	"ticket-simulator/models"

	"github.com/shopspring/decimal"
)

// Bounds of a full week's share of the target volume.
const (
	MinWeekShare = 0.23
	MaxWeekShare = 0.29
)

var seven = decimal.NewFromInt(7)

// WeeklyPlan is the weekly split of a window's target volume.
type WeeklyPlan struct {
	Buckets   []models.WeekVolume
	FullWeeks int
	ExtraDays int
	// Remaining is what was left of the target after the full-week draws.
	// It is negative when the window holds more weeks than the target can cover.
	Remaining float64
}

// Total sums every bucket.
func (p WeeklyPlan) Total() float64 {
	total := decimal.Zero
	for _, b := range p.Buckets {
		total = total.Add(decimal.NewFromFloat(b.Volume))
	}
	return total.InexactFloat64()
}

// Weekly draws a volume in [0.23V, 0.29V] for every full week of w, rounded to cents.
// A trailing partial week receives remaining*extraDays/7; without one, the last full
// week absorbs the remainder so the buckets sum to the target.
func Weekly(rng *rand.Rand, volume float64, w models.Window) (WeeklyPlan, error) {
	fullWeeks, extraDays := w.Weeks()
	if fullWeeks == 0 && extraDays == 0 {
		return WeeklyPlan{}, simerrors.Config("period",
			fmt.Errorf("%w: %s", simerrors.ErrEmptyWindow, w.End.Sub(w.Start)))
	}

	plan := WeeklyPlan{
		Buckets:   make([]models.WeekVolume, 0, fullWeeks+1),
		FullWeeks: fullWeeks,
		ExtraDays: extraDays,
	}

	lo, hi := volume*MinWeekShare, volume*MaxWeekShare
	remaining := decimal.NewFromFloat(volume)
	for i := 0; i < fullWeeks; i++ {
		draw := decimal.NewFromFloat(lo + rng.Float64()*(hi-lo)).Round(2)
		remaining = remaining.Sub(draw)
		plan.Buckets = append(plan.Buckets, models.WeekVolume{
			Index:  i,
			Start:  w.Start.AddDate(0, 0, 7*i),
			Days:   7,
			Volume: draw.InexactFloat64(),
		})
	}
	plan.Remaining = remaining.InexactFloat64()

	if extraDays > 0 {
		partial := remaining.Mul(decimal.NewFromInt(int64(extraDays))).Div(seven).Round(2)
		plan.Buckets = append(plan.Buckets, models.WeekVolume{
			Index:   fullWeeks,
			Start:   w.Start.AddDate(0, 0, 7*fullWeeks),
			Days:    extraDays,
			Volume:  partial.InexactFloat64(),
			Partial: true,
		})
		return plan, nil
	}

	last := &plan.Buckets[len(plan.Buckets)-1]
	last.Volume = decimal.NewFromFloat(last.Volume).Add(remaining).InexactFloat64()
	return plan, nil
}

package allocator

import (
	"fmt"
	"math/rand"
	"time"

	"ticket-simulator/config"
	simerrors "ticket-simulator/errors"
	"ticket-simulator/models"
)

// DayShapeSource looks up the weekday proportions of a catalog profile.
type DayShapeSource interface {
	DayShape(profile models.DayProfile) (config.DayShape, error)
}

// ChooseDayProfile picks a catalog profile by its selection weight.
func ChooseDayProfile(rng *rand.Rand) models.DayProfile {
	var total float64
	for _, entry := range models.DayProfileCatalog {
		total += entry.Weight
	}

	r := rng.Float64() * total
	var cumulative float64
	for _, entry := range models.DayProfileCatalog {
		cumulative += entry.Weight
		if r < cumulative {
			return entry.Profile
		}
	}
	return models.DayProfileCatalog[len(models.DayProfileCatalog)-1].Profile
}

// Daily draws a day profile and splits the week's volume across its weekdays.
func Daily(rng *rand.Rand, week models.WeekVolume, shapes DayShapeSource) ([]models.DayVolume, models.DayProfile, error) {
	profile := ChooseDayProfile(rng)
	shape, err := shapes.DayShape(profile)
	if err != nil {
		return nil, profile, err
	}
	days, err := SplitWeek(week, shape)
	if err != nil {
		return nil, profile, err
	}
	return days, profile, nil
}

// SplitWeek emits week.Volume*proportion for every weekday in shape, Monday first.
// Each weekday is dated inside the week; on a partial week, weekdays past the
// window's end wrap onto the days the week does cover.
func SplitWeek(week models.WeekVolume, shape config.DayShape) ([]models.DayVolume, error) {
	if week.Days <= 0 {
		return nil, simerrors.Config("period", fmt.Errorf("%w: week %d has no days", simerrors.ErrEmptyWindow, week.Index))
	}
	shares, err := shape.Shares()
	if err != nil {
		return nil, simerrors.Config("day_profiles", err)
	}

	start := midnight(week.Start)
	days := make([]models.DayVolume, 0, len(shares))
	for _, s := range shares {
		offset := (int(s.Weekday) - int(start.Weekday()) + 7) % 7
		if offset >= week.Days {
			offset %= week.Days
		}
		days = append(days, models.DayVolume{
			Weekday: s.Weekday,
			Date:    start.AddDate(0, 0, offset),
			Volume:  week.Volume * s.Proportion,
		})
	}
	return days, nil
}

// ByWeekday groups day volumes under their weekday, in input order.
func ByWeekday(days []models.DayVolume) map[time.Weekday][]float64 {
	out := make(map[time.Weekday][]float64)
	for _, d := range days {
		out[d.Weekday] = append(out[d.Weekday], d.Volume)
	}
	return out
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Package window resolves the simulation period from either a month count or a date pair.
package window

import (
	"fmt"
	"strings"
	"time"

	simerrors "ticket-simulator/errors"
	"ticket-simulator/models"
)

// DaysPerMonth is the fixed month length used for relative periods.
const DaysPerMonth = 30

// Upper bounds of a simulation period.
const (
	MaxMonths     = 12
	MaxWindowDays = 366
)

// DateLayouts are the accepted date string formats, ISO first.
var DateLayouts = []string{"2006-01-02", "02/01/2006"}

// FromMonths returns the window ending at now and starting at midnight
// 30*months days earlier.
func FromMonths(now time.Time, months int) (models.Window, error) {
	if months <= 0 || months > MaxMonths {
		return models.Window{}, simerrors.Config("months",
			fmt.Errorf("%w: got %d, want 1..%d", simerrors.ErrInvalidMonths, months, MaxMonths))
	}
	y, m, d := now.AddDate(0, 0, -DaysPerMonth*months).Date()
	return FromDates(time.Date(y, m, d, 0, 0, 0, 0, now.Location()), now)
}

// FromDates validates an explicit [start, end) pair.
func FromDates(start, end time.Time) (models.Window, error) {
	if start.IsZero() || end.IsZero() {
		return models.Window{}, simerrors.Config("period", simerrors.ErrMissingTimePeriod)
	}
	if !start.Before(end) {
		return models.Window{}, simerrors.Config("period",
			fmt.Errorf("%w: start=%s end=%s", simerrors.ErrInvertedWindow,
				start.Format(time.DateOnly), end.Format(time.DateOnly)))
	}
	w := models.Window{Start: start, End: end}
	if w.TotalDays() == 0 {
		return models.Window{}, simerrors.Config("period",
			fmt.Errorf("%w: %s", simerrors.ErrEmptyWindow, end.Sub(start)))
	}
	if days := w.TotalDays(); days > MaxWindowDays {
		return models.Window{}, simerrors.Config("period",
			fmt.Errorf("%w: %d days, at most %d", simerrors.ErrWindowTooLong, days, MaxWindowDays))
	}
	return w, nil
}

// FromStrings parses both dates in loc and validates the pair.
func FromStrings(start, end string, loc *time.Location) (models.Window, error) {
	if strings.TrimSpace(start) == "" || strings.TrimSpace(end) == "" {
		return models.Window{}, simerrors.Config("period", simerrors.ErrMissingTimePeriod)
	}
	s, err := ParseDate(start, loc)
	if err != nil {
		return models.Window{}, simerrors.Config("start_date", err)
	}
	e, err := ParseDate(end, loc)
	if err != nil {
		return models.Window{}, simerrors.Config("end_date", err)
	}
	return FromDates(s, e)
}

// ParseDate parses a calendar date in any of DateLayouts at midnight in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	value = strings.TrimSpace(value)
	var lastErr error
	for _, layout := range DateLayouts {
		t, err := time.ParseInLocation(layout, value, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, fmt.Errorf("%w %q: %v", simerrors.ErrInvalidDate, value, lastErr)
}

package models

import "time"

// TicketType is the contact channel of a ticket.
type TicketType string

const (
	TicketVoice TicketType = "voice"
	TicketChat  TicketType = "chat"
	TicketEmail TicketType = "email"
)

// TicketTypes is the closed set of channels, in export order.
var TicketTypes = []TicketType{TicketVoice, TicketChat, TicketEmail}

// Valid reports whether t is one of the known channels.
func (t TicketType) Valid() bool {
	switch t {
	case TicketVoice, TicketChat, TicketEmail:
		return true
	}
	return false
}

// Ticket is a single synthesized contact event. It is never mutated after creation.
type Ticket struct {
	ID        int64
	StartTime time.Time
	EndTime   time.Time
	Type      TicketType
}

// Duration returns the handling time of the ticket.
func (t Ticket) Duration() time.Duration {
	return t.EndTime.Sub(t.StartTime)
}

// Window is the resolved [Start, End) simulation period.
type Window struct {
	Start time.Time
	End   time.Time
}

// TotalDays is the number of whole days in the window, measured on the wall clock
// so DST transitions do not shorten a calendar day.
func (w Window) TotalDays() int {
	return int(wallClock(w.End).Sub(wallClock(w.Start)) / (24 * time.Hour))
}

func wallClock(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// Contains reports whether t falls in [Start, End).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Weeks splits the window into full weeks and the remaining extra days.
func (w Window) Weeks() (fullWeeks, extraDays int) {
	total := w.TotalDays()
	return total / 7, total % 7
}

// OperationHours is the [Start, End) range of hour labels a contact centre is open.
type OperationHours struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Hours returns the hour labels in the operating window.
func (o OperationHours) Hours() []int {
	if o.End <= o.Start {
		return nil
	}
	hours := make([]int, 0, o.End-o.Start)
	for h := o.Start; h < o.End; h++ {
		hours = append(hours, h)
	}
	return hours
}

// WeekVolume is the volume allocated to one week of the window.
// The trailing bucket is partial when the window does not end on a week boundary.
type WeekVolume struct {
	Index   int
	Start   time.Time
	Days    int
	Volume  float64
	Partial bool
}

// DayVolume is the volume allocated to one calendar day.
type DayVolume struct {
	Weekday time.Weekday
	Date    time.Time
	Volume  float64
}

// HourVolume is the real-valued volume of a single hour bucket.
type HourVolume struct {
	Date   time.Time
	Hour   int
	Volume float64
}

// Tickets is the whole number of tickets the bucket produces; fractions are dropped.
func (h HourVolume) Tickets() int {
	if h.Volume < 1 {
		return 0
	}
	return int(h.Volume)
}

// ExportRow is the flattened form of a ticket consumed by writers.
type ExportRow struct {
	ID        int64  `json:"id"`
	StartDate string `json:"start_date"`
	StartTime string `json:"start_time"`
	EndDate   string `json:"end_date"`
	EndTime   string `json:"end_time"`
	Type      string `json:"type"`
}

// DayProfile names a day-of-week shape from the fixed selection catalog.
type DayProfile string

const (
	DayProfileClassic          DayProfile = "classic"
	DayProfileWeekendHeavy     DayProfile = "weekend_heavy"
	DayProfileMidweekPeak      DayProfile = "midweek_peak"
	DayProfileEvenDistribution DayProfile = "even_distribution"
	DayProfileEndweekPeak      DayProfile = "endweek_peak"
)

// WeightedDayProfile pairs a catalog profile with its selection weight.
type WeightedDayProfile struct {
	Profile DayProfile
	Weight  float64
}

// DayProfileCatalog lists every selectable day profile with its weight. Weights sum to 1.
var DayProfileCatalog = []WeightedDayProfile{
	{DayProfileClassic, 0.40},
	{DayProfileWeekendHeavy, 0.20},
	{DayProfileMidweekPeak, 0.15},
	{DayProfileEvenDistribution, 0.15},
	{DayProfileEndweekPeak, 0.10},
}

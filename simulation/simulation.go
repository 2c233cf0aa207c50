// Package simulation drives the allocators top-down and owns the generated tickets.
package simulation

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"ticket-simulator/allocator"
	"ticket-simulator/config"
	simerrors "ticket-simulator/errors"
	"ticket-simulator/metrics"
	"ticket-simulator/models"
	"ticket-simulator/synthesizer"
	"ticket-simulator/window"

	"github.com/rs/zerolog/log"
)

// State is the lifecycle stage of a Simulator.
type State int

const (
	StateConfigured State = iota
	StateWindowSet
	StateRunning
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateConfigured:
		return "configured"
	case StateWindowSet:
		return "window_set"
	case StateRunning:
		return "running"
	case StateComplete:
		return "complete"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Plan records every allocation level of a completed run.
type Plan struct {
	TargetVolume int
	Weekly       allocator.WeeklyPlan
	Weeks        []WeekPlan
	// TruncatedVolume is the hourly volume that produced no ticket: the
	// fractions dropped by flooring plus any ticket clipped by the window.
	TruncatedVolume float64
	// Clipped counts tickets dropped because they started outside the window.
	Clipped int
}

// WeekPlan is one week's day profile and its daily split.
type WeekPlan struct {
	Week    models.WeekVolume
	Profile models.DayProfile
	Days    []DayPlan
}

// DayPlan is one day's hourly split.
type DayPlan struct {
	Day   models.DayVolume
	Hours []models.HourVolume
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithSeed makes the run reproducible. Any value, zero included, is used as given.
func WithSeed(seed int64) Option {
	return func(s *Simulator) {
		s.seed = seed
		s.seedSet = true
	}
}

// WithClock replaces the clock used for month-relative periods.
func WithClock(c window.Clock) Option {
	return func(s *Simulator) { s.clock = c }
}

// WithLocation sets the time zone date strings are parsed in.
func WithLocation(loc *time.Location) Option {
	return func(s *Simulator) { s.loc = loc }
}

// Simulator generates ticket streams for a configured window.
// A Simulator is not safe for concurrent use; use one per run.
type Simulator struct {
	cfg   *config.Config
	clock window.Clock
	loc   *time.Location
	seed    int64
	seedSet bool
	rng     *rand.Rand

	state   State
	window  models.Window
	plan    *Plan
	tickets []models.Ticket
}

// New validates cfg and returns a Simulator in the configured state.
func New(cfg *config.Config, opts ...Option) (*Simulator, error) {
	if cfg == nil {
		return nil, simerrors.Config("", errors.New("configuration is required"))
	}
	if err := cfg.Validate(); err != nil {
		recordConfigError(err)
		return nil, err
	}

	s := &Simulator{
		cfg:   cfg.Clone(),
		clock: window.RealClock{},
		loc:   time.Local,
		state: StateConfigured,
	}
	for _, opt := range opts {
		opt(s)
	}
	if !s.seedSet {
		s.seed = time.Now().UnixNano()
	}
	s.rng = rand.New(rand.NewSource(s.seed))
	return s, nil
}

// Seed returns the seed of the random source.
func (s *Simulator) Seed() int64 { return s.seed }

// State returns the current lifecycle state.
func (s *Simulator) State() State { return s.state }

// Config returns a copy of the active configuration.
func (s *Simulator) Config() *config.Config { return s.cfg.Clone() }

// UpdateConfig merges partial into the active configuration. The merge is
// rejected, leaving the configuration unchanged, if the result is invalid.
func (s *Simulator) UpdateConfig(partial *config.Config) error {
	merged := s.cfg.Merge(partial)
	if err := merged.Validate(); err != nil {
		recordConfigError(err)
		return err
	}
	s.cfg = merged
	return nil
}

// SetTimePeriodMonths sets the window to the last 30*months days.
func (s *Simulator) SetTimePeriodMonths(months int) error {
	w, err := window.FromMonths(s.clock.Now(), months)
	if err != nil {
		recordConfigError(err)
		return err
	}
	s.setWindow(w)
	return nil
}

// SetTimePeriodDates sets an explicit [start, end) window.
func (s *Simulator) SetTimePeriodDates(start, end time.Time) error {
	w, err := window.FromDates(start, end)
	if err != nil {
		recordConfigError(err)
		return err
	}
	s.setWindow(w)
	return nil
}

// SetTimePeriodStrings parses start and end as dates and sets the window.
func (s *Simulator) SetTimePeriodStrings(start, end string) error {
	w, err := window.FromStrings(start, end, s.loc)
	if err != nil {
		recordConfigError(err)
		return err
	}
	s.setWindow(w)
	return nil
}

func (s *Simulator) setWindow(w models.Window) {
	s.window = w
	s.state = StateWindowSet
	s.plan = nil
	s.tickets = nil
}

// Window returns the resolved window and whether one has been set.
func (s *Simulator) Window() (models.Window, bool) {
	return s.window, s.state != StateConfigured
}

// Run generates the ticket stream for the current window. On error the
// Simulator keeps its previous state and tickets.
func (s *Simulator) Run() error {
	if s.state == StateConfigured {
		err := simerrors.Config("period", simerrors.ErrWindowNotSet)
		recordConfigError(err)
		return err
	}

	started := time.Now()
	previous := s.state
	s.state = StateRunning

	plan, tickets, err := s.generate()
	if err != nil {
		s.state = previous
		metrics.RunsTotal.WithLabelValues("error").Inc()
		recordConfigError(err)
		log.Error().Err(err).Msg("simulation failed")
		return err
	}

	s.plan = plan
	s.tickets = tickets
	s.state = StateComplete

	elapsed := time.Since(started)
	metrics.RunsTotal.WithLabelValues("success").Inc()
	metrics.RunDurationSeconds.Observe(elapsed.Seconds())
	metrics.TicketsPerRun.Observe(float64(len(tickets)))
	metrics.TargetVolume.Set(float64(plan.TargetVolume))
	metrics.WeeklyBuckets.Set(float64(len(plan.Weekly.Buckets)))
	metrics.RemainingVolume.Set(plan.Weekly.Remaining)
	metrics.TruncatedVolume.Set(plan.TruncatedVolume)
	for _, wp := range plan.Weeks {
		metrics.DayProfileSelections.WithLabelValues(string(wp.Profile)).Inc()
	}
	for _, t := range tickets {
		metrics.TicketsGeneratedTotal.WithLabelValues(string(t.Type)).Inc()
	}

	log.Info().
		Int("tickets", len(tickets)).
		Int("clipped", plan.Clipped).
		Int("target_volume", plan.TargetVolume).
		Dur("elapsed", elapsed).
		Msg("simulation complete")
	return nil
}

func (s *Simulator) generate() (*Plan, []models.Ticket, error) {
	size, err := s.cfg.SizeProfile()
	if err != nil {
		return nil, nil, err
	}
	profile, err := s.cfg.IntradayProfile()
	if err != nil {
		return nil, nil, err
	}
	hours := s.cfg.Default.OperationHours
	noise := s.cfg.NoiseStdDev()

	target := size.Draw(s.rng)
	log.Info().
		Str("size_profile", s.cfg.Default.SizeProfile).
		Int("target_volume", target).
		Time("start", s.window.Start).
		Time("end", s.window.End).
		Int64("seed", s.seed).
		Msg("simulation started")

	weekly, err := allocator.Weekly(s.rng, float64(target), s.window)
	if err != nil {
		return nil, nil, err
	}
	if weekly.Remaining < 0 {
		log.Warn().
			Float64("remaining", weekly.Remaining).
			Int("full_weeks", weekly.FullWeeks).
			Msg("window overdraws target volume")
	}

	plan := &Plan{
		TargetVolume: target,
		Weekly:       weekly,
		Weeks:        make([]WeekPlan, 0, len(weekly.Buckets)),
	}
	synth := synthesizer.New(s.rng)
	var tickets []models.Ticket

	for _, week := range weekly.Buckets {
		days, dayProfile, err := allocator.Daily(s.rng, week, s.cfg)
		if err != nil {
			return nil, nil, err
		}
		log.Debug().
			Int("week", week.Index).
			Float64("volume", week.Volume).
			Str("day_profile", string(dayProfile)).
			Msg("week allocated")

		wp := WeekPlan{Week: week, Profile: dayProfile, Days: make([]DayPlan, 0, len(days))}
		for _, day := range days {
			buckets, err := allocator.Intraday(s.rng, day, hours, profile, noise)
			if err != nil {
				return nil, nil, err
			}
			for _, b := range buckets {
				kept := 0
				for _, t := range synth.Synthesize(b) {
					if !s.window.Contains(t.StartTime) {
						plan.Clipped++
						continue
					}
					tickets = append(tickets, t)
					kept++
				}
				if b.Volume > 0 {
					plan.TruncatedVolume += b.Volume - float64(kept)
				}
			}
			wp.Days = append(wp.Days, DayPlan{Day: day, Hours: buckets})
		}
		plan.Weeks = append(plan.Weeks, wp)
	}
	return plan, tickets, nil
}

// Tickets returns a copy of the last completed run's tickets.
func (s *Simulator) Tickets() []models.Ticket {
	out := make([]models.Ticket, len(s.tickets))
	copy(out, s.tickets)
	return out
}

// Plan returns the allocation plan of the last completed run, or nil.
func (s *Simulator) Plan() *Plan {
	return s.plan
}

func recordConfigError(err error) {
	var cfgErr *simerrors.ConfigurationError
	if errors.As(err, &cfgErr) {
		field := cfgErr.Field
		if field == "" {
			field = "unknown"
		}
		metrics.ConfigurationErrorsTotal.WithLabelValues(field).Inc()
	}
}

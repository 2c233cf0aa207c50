package simulation_test

import (
	"errors"
	"testing"
	"time"

	"ticket-simulator/allocator"
	"ticket-simulator/config"
	customerrors "ticket-simulator/errors"
	"ticket-simulator/models"
	"ticket-simulator/simulation"
	"ticket-simulator/metrics"
	"ticket-simulator/window"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	return cfg
}

// fixedVolume selects a size profile of exactly volume tickets.
func fixedVolume(volume int) *config.Config {
	return &config.Config{
		OperationSizes: map[string]config.OperationSize{"fixed": {Min: volume, Max: volume}},
		Default:        config.Defaults{SizeProfile: "fixed"},
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	_, err := simulation.New(nil)
	require.Error(t, err)

	cfg := newConfig(t)
	cfg.Default.SizeProfile = "gigantic"
	_, err = simulation.New(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, customerrors.ErrUnknownProfile)
}

func TestNew_ClonesConfig(t *testing.T) {
	cfg := newConfig(t)
	sim, err := simulation.New(cfg, simulation.WithSeed(1))
	require.NoError(t, err)

	cfg.Default.SizeProfile = "gigantic"
	assert.Equal(t, "medium", sim.Config().Default.SizeProfile)
	assert.Equal(t, int64(1), sim.Seed())
}

func TestRun_WithoutWindow(t *testing.T) {
	sim, err := simulation.New(newConfig(t), simulation.WithSeed(1))
	require.NoError(t, err)

	err = sim.Run()
	require.Error(t, err)
	assert.ErrorIs(t, err, customerrors.ErrWindowNotSet)

	var cfgErr *customerrors.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "period", cfgErr.Field)
	assert.Equal(t, simulation.StateConfigured, sim.State())
	assert.Empty(t, sim.Tickets())
}

func TestRun_TicketInvariants(t *testing.T) {
	sim, err := simulation.New(newConfig(t), simulation.WithSeed(20240101))
	require.NoError(t, err)
	assert.Equal(t, simulation.StateConfigured, sim.State())

	require.NoError(t, sim.SetTimePeriodDates(date(2024, 1, 1), date(2024, 1, 22)))
	assert.Equal(t, simulation.StateWindowSet, sim.State())

	require.NoError(t, sim.Run())
	assert.Equal(t, simulation.StateComplete, sim.State())

	w, ok := sim.Window()
	require.True(t, ok)

	tickets := sim.Tickets()
	require.NotEmpty(t, tickets)
	hours := sim.Config().Default.OperationHours

	ids := make(map[int64]struct{}, len(tickets))
	for _, tk := range tickets {
		_, dup := ids[tk.ID]
		require.False(t, dup, "duplicate id %d", tk.ID)
		ids[tk.ID] = struct{}{}

		assert.True(t, tk.StartTime.Before(tk.EndTime))
		assert.GreaterOrEqual(t, tk.Duration(), time.Minute)
		assert.LessOrEqual(t, tk.Duration(), 10*time.Minute)
		assert.GreaterOrEqual(t, tk.StartTime.Hour(), hours.Start)
		assert.Less(t, tk.StartTime.Hour(), hours.End)
		assert.False(t, tk.StartTime.Before(w.Start))
		assert.True(t, tk.StartTime.Before(w.End))
		assert.True(t, tk.Type.Valid())
	}

	plan := sim.Plan()
	require.NotNil(t, plan)
	assert.LessOrEqual(t, len(tickets), plan.TargetVolume)
	assert.Len(t, plan.Weeks, 3)
	for _, wp := range plan.Weeks {
		assert.Contains(t, sim.Config().DayProfiles, string(wp.Profile))
		assert.Len(t, wp.Days, 7)
		for _, dp := range wp.Days {
			assert.Len(t, dp.Hours, hours.End-hours.Start)
		}
	}
}

func TestRun_TwoWeekFixedVolume(t *testing.T) {
	sim, err := simulation.New(newConfig(t), simulation.WithSeed(3))
	require.NoError(t, err)
	require.NoError(t, sim.UpdateConfig(fixedVolume(1000)))
	require.NoError(t, sim.SetTimePeriodStrings("2024-01-01", "2024-01-15"))

	require.NoError(t, sim.Run())
	plan := sim.Plan()
	require.NotNil(t, plan)

	assert.Equal(t, 1000, plan.TargetVolume)
	require.Len(t, plan.Weekly.Buckets, 2)
	first := plan.Weekly.Buckets[0].Volume
	assert.GreaterOrEqual(t, first, 1000*allocator.MinWeekShare-0.005)
	assert.LessOrEqual(t, first, 1000*allocator.MaxWeekShare+0.005)
	assert.InDelta(t, 1000, plan.Weekly.Total(), 1e-6)

	// Every hourly fraction is dropped, so the shortfall is exactly the truncated volume.
	tickets := sim.Tickets()
	assert.Less(t, len(tickets), 1000)
	assert.InDelta(t, 1000-float64(len(tickets)), plan.TruncatedVolume, 1e-6)
	assert.Positive(t, plan.TruncatedVolume)
}

func TestRun_SameSeedSameTickets(t *testing.T) {
	run := func() []models.Ticket {
		sim, err := simulation.New(newConfig(t), simulation.WithSeed(77))
		require.NoError(t, err)
		require.NoError(t, sim.SetTimePeriodDates(date(2024, 2, 1), date(2024, 2, 12)))
		require.NoError(t, sim.Run())
		return sim.Tickets()
	}

	assert.Equal(t, run(), run())
}

func TestSetTimePeriodMonths_Idempotent(t *testing.T) {
	clock := window.NewFakeClock(time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC))
	sim, err := simulation.New(newConfig(t), simulation.WithSeed(1), simulation.WithClock(clock))
	require.NoError(t, err)

	require.NoError(t, sim.SetTimePeriodMonths(2))
	first, _ := sim.Window()
	require.NoError(t, sim.SetTimePeriodMonths(2))
	second, _ := sim.Window()

	assert.Equal(t, first, second)
	assert.Equal(t, clock.Now(), first.End)
	assert.Equal(t, 60, first.TotalDays())
}

func TestSetTimePeriod_Invalid(t *testing.T) {
	tests := map[string]struct {
		set      func(s *simulation.Simulator) error
		sentinel error
	}{
		"ZeroMonths": {
			set:      func(s *simulation.Simulator) error { return s.SetTimePeriodMonths(0) },
			sentinel: customerrors.ErrInvalidMonths,
		},
		"Inverted": {
			set:      func(s *simulation.Simulator) error { return s.SetTimePeriodDates(date(2024, 2, 1), date(2024, 1, 1)) },
			sentinel: customerrors.ErrInvertedWindow,
		},
		"MissingEnd": {
			set:      func(s *simulation.Simulator) error { return s.SetTimePeriodStrings("2024-01-01", "") },
			sentinel: customerrors.ErrMissingTimePeriod,
		},
		"BadDate": {
			set:      func(s *simulation.Simulator) error { return s.SetTimePeriodStrings("2024-13-45", "2024-02-01") },
			sentinel: customerrors.ErrInvalidDate,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			sim, err := simulation.New(newConfig(t), simulation.WithSeed(1))
			require.NoError(t, err)

			err = tt.set(sim)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, simulation.StateConfigured, sim.State())
			_, ok := sim.Window()
			assert.False(t, ok)
		})
	}
}

func TestSetTimePeriod_ClearsPreviousRun(t *testing.T) {
	sim, err := simulation.New(newConfig(t), simulation.WithSeed(4))
	require.NoError(t, err)
	require.NoError(t, sim.SetTimePeriodDates(date(2024, 1, 1), date(2024, 1, 8)))
	require.NoError(t, sim.Run())
	require.NotEmpty(t, sim.Tickets())

	require.NoError(t, sim.SetTimePeriodDates(date(2024, 3, 1), date(2024, 3, 8)))
	assert.Equal(t, simulation.StateWindowSet, sim.State())
	assert.Empty(t, sim.Tickets())
	assert.Nil(t, sim.Plan())

	// Running again from a complete state is allowed.
	require.NoError(t, sim.Run())
	require.NoError(t, sim.Run())
	assert.Equal(t, simulation.StateComplete, sim.State())
}

func TestRun_FailureKeepsPreviousResult(t *testing.T) {
	sim, err := simulation.New(newConfig(t), simulation.WithSeed(8))
	require.NoError(t, err)
	require.NoError(t, sim.SetTimePeriodDates(date(2024, 1, 1), date(2024, 1, 8)))
	require.NoError(t, sim.Run())
	before := sim.Tickets()
	plan := sim.Plan()

	noNoise := 0.0
	flat := &config.Config{
		IntradayProfiles: map[string]config.IntradayProfile{
			"business_hours": {GaussianPeaks: []config.GaussianPeak{{Amplitude: 0, Center: 11, Width: 3}}},
		},
		Default: config.Defaults{NoiseStdDev: &noNoise},
	}
	require.NoError(t, sim.UpdateConfig(flat))

	err = sim.Run()
	require.Error(t, err)
	assert.ErrorIs(t, err, customerrors.ErrDegenerateCurve)
	assert.Equal(t, simulation.StateComplete, sim.State())
	assert.Equal(t, before, sim.Tickets())
	assert.Same(t, plan, sim.Plan())
}

func TestUpdateConfig_RejectsInvalidMerge(t *testing.T) {
	sim, err := simulation.New(newConfig(t), simulation.WithSeed(1))
	require.NoError(t, err)

	err = sim.UpdateConfig(&config.Config{
		DayProfiles: map[string]config.DayShape{"classic": {"monday": 0.5, "tuesday": 0.2}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, customerrors.ErrInvalidProportion)

	var cfgErr *customerrors.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "day_profiles.classic", cfgErr.Field)

	shape, err := sim.Config().DayShape(models.DayProfileClassic)
	require.NoError(t, err)
	assert.Len(t, shape, 7)
}

func TestTickets_ReturnsCopy(t *testing.T) {
	sim, err := simulation.New(newConfig(t), simulation.WithSeed(2))
	require.NoError(t, err)
	require.NoError(t, sim.SetTimePeriodDates(date(2024, 1, 1), date(2024, 1, 8)))
	require.NoError(t, sim.Run())

	tickets := sim.Tickets()
	require.NotEmpty(t, tickets)
	tickets[0].ID = -1
	assert.NotEqual(t, int64(-1), sim.Tickets()[0].ID)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "configured", simulation.StateConfigured.String())
	assert.Equal(t, "window_set", simulation.StateWindowSet.String())
	assert.Equal(t, "running", simulation.StateRunning.String())
	assert.Equal(t, "complete", simulation.StateComplete.String())
}

func assertInsideWindow(t *testing.T, sim *simulation.Simulator) {
	t.Helper()
	w, ok := sim.Window()
	require.True(t, ok)
	for _, tk := range sim.Tickets() {
		require.True(t, w.Contains(tk.StartTime), "ticket %d starts at %s outside [%s, %s)", tk.ID, tk.StartTime, w.Start, w.End)
	}
}

func TestRun_MonthsFromMidAfternoonStaysInsideWindow(t *testing.T) {
	clock := window.NewFakeClock(time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC))
	sim, err := simulation.New(newConfig(t), simulation.WithSeed(12), simulation.WithClock(clock))
	require.NoError(t, err)

	require.NoError(t, sim.SetTimePeriodMonths(1))
	w, _ := sim.Window()
	assert.Equal(t, time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, clock.Now(), w.End)

	require.NoError(t, sim.Run())
	require.NotEmpty(t, sim.Tickets())
	assertInsideWindow(t, sim)

	// The first day is fully inside the window, so its morning hours produce tickets.
	var firstDay int
	for _, tk := range sim.Tickets() {
		if tk.StartTime.Day() == 14 && tk.StartTime.Month() == time.February {
			firstDay++
		}
	}
	assert.Positive(t, firstDay)
}

func TestRun_ClipsTicketsOutsideExplicitWindow(t *testing.T) {
	sim, err := simulation.New(newConfig(t), simulation.WithSeed(13))
	require.NoError(t, err)
	require.NoError(t, sim.UpdateConfig(fixedVolume(5000)))

	start := time.Date(2024, 1, 1, 12, 30, 0, 0, time.UTC)
	require.NoError(t, sim.SetTimePeriodDates(start, start.AddDate(0, 0, 14)))
	require.NoError(t, sim.Run())
	assertInsideWindow(t, sim)

	plan := sim.Plan()
	require.NotNil(t, plan)
	assert.Positive(t, plan.Clipped)
	assert.InDelta(t, 5000-float64(len(sim.Tickets())), plan.TruncatedVolume, 1e-6)
}

func TestSetTimePeriodMonths_FollowsClock(t *testing.T) {
	clock := window.NewFakeClock(time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC))
	sim, err := simulation.New(newConfig(t), simulation.WithSeed(1), simulation.WithClock(clock))
	require.NoError(t, err)
	require.NoError(t, sim.SetTimePeriodMonths(1))

	later := time.Date(2024, 9, 1, 18, 0, 0, 0, time.UTC)
	clock.Set(later)
	require.NoError(t, sim.SetTimePeriodMonths(1))

	w, _ := sim.Window()
	assert.Equal(t, later, w.End)
	assert.Equal(t, time.Date(2024, 8, 2, 0, 0, 0, 0, time.UTC), w.Start)
}

func TestSetTimePeriodMonths_AboveMaximum(t *testing.T) {
	sim, err := simulation.New(newConfig(t), simulation.WithSeed(1))
	require.NoError(t, err)

	err = sim.SetTimePeriodMonths(window.MaxMonths + 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, customerrors.ErrInvalidMonths)
}

func TestNew_ZeroSeedIsReproducible(t *testing.T) {
	run := func() (int64, []models.Ticket) {
		sim, err := simulation.New(newConfig(t), simulation.WithSeed(0))
		require.NoError(t, err)
		require.NoError(t, sim.SetTimePeriodDates(date(2024, 4, 1), date(2024, 4, 8)))
		require.NoError(t, sim.Run())
		return sim.Seed(), sim.Tickets()
	}

	seedA, a := run()
	seedB, b := run()
	assert.Zero(t, seedA)
	assert.Zero(t, seedB)
	assert.Equal(t, a, b)
}

func profileSelections() float64 {
	var total float64
	for _, entry := range models.DayProfileCatalog {
		total += testutil.ToFloat64(metrics.DayProfileSelections.WithLabelValues(string(entry.Profile)))
	}
	return total
}

func TestRun_FailureLeavesMetricsUntouched(t *testing.T) {
	sim, err := simulation.New(newConfig(t), simulation.WithSeed(21))
	require.NoError(t, err)
	require.NoError(t, sim.SetTimePeriodDates(date(2024, 1, 1), date(2024, 1, 15)))
	require.NoError(t, sim.Run())

	plan := sim.Plan()
	assert.Equal(t, float64(plan.TargetVolume), testutil.ToFloat64(metrics.TargetVolume))
	assert.Equal(t, float64(len(plan.Weekly.Buckets)), testutil.ToFloat64(metrics.WeeklyBuckets))
	selections := profileSelections()

	noNoise := 0.0
	require.NoError(t, sim.UpdateConfig(&config.Config{
		IntradayProfiles: map[string]config.IntradayProfile{
			"business_hours": {GaussianPeaks: []config.GaussianPeak{{Amplitude: 0, Center: 11, Width: 3}}},
		},
		Default: config.Defaults{NoiseStdDev: &noNoise},
	}))
	require.Error(t, sim.Run())

	assert.Equal(t, float64(plan.TargetVolume), testutil.ToFloat64(metrics.TargetVolume))
	assert.Equal(t, float64(len(plan.Weekly.Buckets)), testutil.ToFloat64(metrics.WeeklyBuckets))
	assert.Equal(t, selections, profileSelections())
}

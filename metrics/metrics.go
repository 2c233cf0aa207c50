// Package metrics provides Prometheus observability metrics for the ticket simulator.
// It covers run outcomes, generated volume and configuration health.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the custom prometheus registry for our application
var Registry = prometheus.NewRegistry()

// factory allows us to register metrics to our custom Registry directly
var factory = promauto.With(Registry)

// =============================================================================
// SIMULATION METRICS - Generated volume
// =============================================================================

// TicketsGeneratedTotal counts generated tickets by channel.
var TicketsGeneratedTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "simulation",
	Name:      "tickets_generated_total",
	Help:      "Total tickets generated, by channel type",
}, []string{"type"})

// TargetVolume is the target volume drawn for the last run.
var TargetVolume = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "simulation",
	Name:      "target_volume",
	Help:      "Target contact volume drawn from the size profile for the last run",
})

// WeeklyBuckets is the number of weekly buckets of the last run.
var WeeklyBuckets = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "simulation",
	Name:      "weekly_buckets",
	Help:      "Number of weekly volume buckets (full and partial) in the last run",
})

// RemainingVolume is the target left after full-week draws. Negative means the window overdraws the target.
var RemainingVolume = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "simulation",
	Name:      "remaining_volume",
	Help:      "Volume left after the full-week draws of the last run",
})

// TruncatedVolume is the fractional hourly volume dropped when bucket volumes were floored.
var TruncatedVolume = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "simulation",
	Name:      "truncated_volume",
	Help:      "Fractional hourly volume dropped by per-bucket truncation in the last run",
})

// DayProfileSelections counts day profiles drawn per week.
var DayProfileSelections = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "simulation",
	Name:      "day_profile_selections_total",
	Help:      "Number of weeks allocated with each day profile",
}, []string{"profile"})

// =============================================================================
// OPERATIONAL METRICS - Run health
// =============================================================================

// RunsTotal counts simulation runs by outcome.
var RunsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "simulation",
	Name:      "runs_total",
	Help:      "Total simulation runs by outcome (success, error)",
}, []string{"outcome"})

// ConfigurationErrorsTotal counts configuration errors by field.
var ConfigurationErrorsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "simulation",
	Name:      "configuration_errors_total",
	Help:      "Total configuration errors by offending field",
}, []string{"field"})

// RunDurationSeconds tracks time to generate a run.
var RunDurationSeconds = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "simulation",
	Name:      "duration_seconds",
	Help:      "Time taken to run a simulation",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
})

// TicketsPerRun tracks the number of tickets a run produces.
var TicketsPerRun = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "simulation",
	Name:      "tickets_per_run",
	Help:      "Number of tickets generated per simulation run",
	Buckets:   []float64{10, 100, 500, 1000, 5000, 10000, 50000, 100000},
})

// ParserErrorsTotal tracks parse errors of exported ticket files by error type.
var ParserErrorsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "parser",
	Name:      "errors_total",
	Help:      "Total parse errors by error type",
}, []string{"error_type"})

// ParserRecordsTotal tracks total ticket records successfully parsed.
var ParserRecordsTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "parser",
	Name:      "records_total",
	Help:      "Total CSV ticket records successfully parsed",
})

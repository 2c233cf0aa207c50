package allocator

import (
	"fmt"
	"math"
	"math/rand"

	"ticket-simulator/config"
	simerrors "ticket-simulator/errors"
	"ticket-simulator/models"
)

// HourlyShares evaluates the profile's gaussian peaks at every operating hour, adds
// N(0, noise) per hour and normalizes the curve to sum to 1. Negative values left by
// the noise are clamped to 0 before normalizing.
func HourlyShares(rng *rand.Rand, hours models.OperationHours, profile config.IntradayProfile, noise float64) ([]float64, error) {
	labels := hours.Hours()
	if len(labels) == 0 {
		return nil, simerrors.Config("default.operation_hours",
			fmt.Errorf("%w: start=%d end=%d", simerrors.ErrInvalidHours, hours.Start, hours.End))
	}
	if len(profile.GaussianPeaks) == 0 {
		return nil, simerrors.Config("intraday_profiles", fmt.Errorf("%w: no peaks", simerrors.ErrDegenerateCurve))
	}

	curve := make([]float64, len(labels))
	var sum float64
	for i, h := range labels {
		var v float64
		for _, p := range profile.GaussianPeaks {
			v += p.Value(float64(h))
		}
		if noise > 0 {
			v += rng.NormFloat64() * noise
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, simerrors.Config("intraday_profiles",
				fmt.Errorf("%w: non-finite value at hour %d", simerrors.ErrDegenerateCurve, h))
		}
		if v < 0 {
			v = 0
		}
		curve[i] = v
		sum += v
	}
	if sum <= 0 {
		return nil, simerrors.Config("intraday_profiles",
			fmt.Errorf("%w: curve sums to %g", simerrors.ErrDegenerateCurve, sum))
	}

	for i := range curve {
		curve[i] /= sum
	}
	return curve, nil
}

// Intraday spreads one day's volume over the operating hours.
func Intraday(rng *rand.Rand, day models.DayVolume, hours models.OperationHours, profile config.IntradayProfile, noise float64) ([]models.HourVolume, error) {
	shares, err := HourlyShares(rng, hours, profile, noise)
	if err != nil {
		return nil, err
	}

	out := make([]models.HourVolume, len(shares))
	for i, share := range shares {
		out[i] = models.HourVolume{
			Date:   day.Date,
			Hour:   hours.Start + i,
			Volume: share * day.Volume,
		}
	}
	return out, nil
}

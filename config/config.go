// Package config holds the simulation configuration document and its loading rules.
package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	simerrors "ticket-simulator/errors"
	"ticket-simulator/models"

	"gopkg.in/yaml.v3"
)

// DefaultNoiseStdDev is the intraday noise used when the document does not set one.
const DefaultNoiseStdDev = 0.05

// MaxOperationVolume bounds every operation size so a run stays finite.
const MaxOperationVolume = 1_000_000

//go:embed default.json
var defaultDocument []byte

// Config is the root configuration document.
type Config struct {
	OperationSizes   map[string]OperationSize   `json:"operation_sizes" yaml:"operation_sizes"`
	DayProfiles      map[string]DayShape        `json:"day_profiles" yaml:"day_profiles"`
	IntradayProfiles map[string]IntradayProfile `json:"intraday_profiles" yaml:"intraday_profiles"`
	Default          Defaults                   `json:"default" yaml:"default"`
}

// Defaults selects which profiles a run uses.
type Defaults struct {
	SizeProfile           string                `json:"size_profile" yaml:"size_profile"`
	OperationHours        models.OperationHours `json:"operation_hours" yaml:"operation_hours"`
	ChosenIntradayProfile string                `json:"chosen_intraday_profile" yaml:"chosen_intraday_profile"`
	NoiseStdDev           *float64              `json:"noise_std_dev,omitempty" yaml:"noise_std_dev,omitempty"`
}

// IntradayProfile is a sum of gaussian peaks over the operating hours.
type IntradayProfile struct {
	GaussianPeaks []GaussianPeak `json:"gaussian_peaks" yaml:"gaussian_peaks"`
}

// GaussianPeak is one bell of the intraday curve.
type GaussianPeak struct {
	Amplitude float64 `json:"amplitude" yaml:"amplitude"`
	Center    float64 `json:"center" yaml:"center"`
	Width     float64 `json:"width" yaml:"width"`
}

// Value evaluates the peak at hour h.
func (p GaussianPeak) Value(h float64) float64 {
	z := (h - p.Center) / p.Width
	return p.Amplitude * math.Exp(-0.5*z*z)
}

// Load reads a JSON or YAML (by extension) configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		return ParseYAML(data)
	}
	return ParseJSON(data)
}

// ParseJSON decodes a JSON configuration document.
func ParseJSON(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return &cfg, nil
}

// ParseYAML decodes a YAML configuration document.
func ParseYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return &cfg, nil
}

// Default returns the built-in configuration document.
func Default() (*Config, error) {
	return ParseJSON(defaultDocument)
}

// NoiseStdDev returns the configured intraday noise, or the default when unset.
func (c *Config) NoiseStdDev() float64 {
	if c.Default.NoiseStdDev == nil {
		return DefaultNoiseStdDev
	}
	return *c.Default.NoiseStdDev
}

// SizeProfile returns the operation volume of the selected size profile.
func (c *Config) SizeProfile() (OperationSize, error) {
	size, ok := c.OperationSizes[c.Default.SizeProfile]
	if !ok {
		return OperationSize{}, simerrors.Config("default.size_profile",
			fmt.Errorf("%w: %q", simerrors.ErrUnknownProfile, c.Default.SizeProfile))
	}
	return size, nil
}

// IntradayProfile returns the selected intraday profile.
func (c *Config) IntradayProfile() (IntradayProfile, error) {
	p, ok := c.IntradayProfiles[c.Default.ChosenIntradayProfile]
	if !ok {
		return IntradayProfile{}, simerrors.Config("default.chosen_intraday_profile",
			fmt.Errorf("%w: %q", simerrors.ErrUnknownProfile, c.Default.ChosenIntradayProfile))
	}
	return p, nil
}

// DayShape returns the weekday proportions of a catalog profile.
func (c *Config) DayShape(profile models.DayProfile) (DayShape, error) {
	shape, ok := c.DayProfiles[string(profile)]
	if !ok {
		return nil, simerrors.Config("day_profiles",
			fmt.Errorf("%w: %q", simerrors.ErrUnknownProfile, profile))
	}
	return shape, nil
}

// Validate checks every invariant the allocators rely on.
func (c *Config) Validate() error {
	if _, err := c.SizeProfile(); err != nil {
		return err
	}
	for name, size := range c.OperationSizes {
		if size.Min < 0 || size.Min > size.Max {
			return simerrors.Config("operation_sizes."+name,
				fmt.Errorf("%w: [%d, %d]", simerrors.ErrInvalidVolume, size.Min, size.Max))
		}
		if size.Max > MaxOperationVolume {
			return simerrors.Config("operation_sizes."+name,
				fmt.Errorf("%w: %d exceeds %d", simerrors.ErrInvalidVolume, size.Max, MaxOperationVolume))
		}
	}

	for _, entry := range models.DayProfileCatalog {
		shape, err := c.DayShape(entry.Profile)
		if err != nil {
			return err
		}
		if err := shape.validate(); err != nil {
			return simerrors.Config("day_profiles."+string(entry.Profile), err)
		}
	}

	hours := c.Default.OperationHours
	if hours.Start < 0 || hours.End > 24 || hours.Start >= hours.End {
		return simerrors.Config("default.operation_hours",
			fmt.Errorf("%w: start=%d end=%d", simerrors.ErrInvalidHours, hours.Start, hours.End))
	}

	profile, err := c.IntradayProfile()
	if err != nil {
		return err
	}
	if len(profile.GaussianPeaks) == 0 {
		return simerrors.Config("intraday_profiles."+c.Default.ChosenIntradayProfile,
			fmt.Errorf("%w: no peaks", simerrors.ErrInvalidPeak))
	}
	for i, p := range profile.GaussianPeaks {
		if p.Width <= 0 || p.Amplitude < 0 || math.IsNaN(p.Center) || math.IsInf(p.Center, 0) {
			return simerrors.Config(fmt.Sprintf("intraday_profiles.%s.gaussian_peaks[%d]", c.Default.ChosenIntradayProfile, i),
				fmt.Errorf("%w: amplitude=%g center=%g width=%g", simerrors.ErrInvalidPeak, p.Amplitude, p.Center, p.Width))
		}
	}

	if noise := c.NoiseStdDev(); noise < 0 || math.IsNaN(noise) {
		return simerrors.Config("default.noise_std_dev", fmt.Errorf("must be non-negative, got %g", noise))
	}
	return nil
}

// Merge returns a copy of c with the non-zero parts of partial applied on top.
// Maps merge per key, scalar settings override only when set.
func (c *Config) Merge(partial *Config) *Config {
	merged := c.Clone()
	if partial == nil {
		return merged
	}
	for k, v := range partial.OperationSizes {
		merged.OperationSizes[k] = v
	}
	for k, v := range partial.DayProfiles {
		merged.DayProfiles[k] = v.clone()
	}
	for k, v := range partial.IntradayProfiles {
		merged.IntradayProfiles[k] = v.clone()
	}

	d := partial.Default
	if d.SizeProfile != "" {
		merged.Default.SizeProfile = d.SizeProfile
	}
	if d.OperationHours != (models.OperationHours{}) {
		merged.Default.OperationHours = d.OperationHours
	}
	if d.ChosenIntradayProfile != "" {
		merged.Default.ChosenIntradayProfile = d.ChosenIntradayProfile
	}
	if d.NoiseStdDev != nil {
		noise := *d.NoiseStdDev
		merged.Default.NoiseStdDev = &noise
	}
	return merged
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := &Config{
		OperationSizes:   make(map[string]OperationSize, len(c.OperationSizes)),
		DayProfiles:      make(map[string]DayShape, len(c.DayProfiles)),
		IntradayProfiles: make(map[string]IntradayProfile, len(c.IntradayProfiles)),
		Default:          c.Default,
	}
	for k, v := range c.OperationSizes {
		out.OperationSizes[k] = v
	}
	for k, v := range c.DayProfiles {
		out.DayProfiles[k] = v.clone()
	}
	for k, v := range c.IntradayProfiles {
		out.IntradayProfiles[k] = v.clone()
	}
	if c.Default.NoiseStdDev != nil {
		noise := *c.Default.NoiseStdDev
		out.Default.NoiseStdDev = &noise
	}
	return out
}

func (p IntradayProfile) clone() IntradayProfile {
	return IntradayProfile{GaussianPeaks: append([]GaussianPeak(nil), p.GaussianPeaks...)}
}

// OperationSize is a fixed monthly volume (Min == Max) or an inclusive [Min, Max] range.
type OperationSize struct {
	Min int
	Max int
}

// Fixed reports whether the size is a single value.
func (s OperationSize) Fixed() bool {
	return s.Min == s.Max
}

// Draw picks the run's target volume. A fixed size returns its value.
func (s OperationSize) Draw(rng *rand.Rand) int {
	if s.Fixed() {
		return s.Min
	}
	return s.Min + rng.Intn(s.Max-s.Min+1)
}

func (s OperationSize) MarshalJSON() ([]byte, error) {
	if s.Fixed() {
		return json.Marshal(s.Min)
	}
	return json.Marshal([2]int{s.Min, s.Max})
}

func (s *OperationSize) UnmarshalJSON(data []byte) error {
	var fixed int
	if err := json.Unmarshal(data, &fixed); err == nil {
		s.Min, s.Max = fixed, fixed
		return nil
	}
	var bounds []int
	if err := json.Unmarshal(data, &bounds); err != nil {
		return fmt.Errorf("%w: expected integer or [min, max], got %s", simerrors.ErrInvalidVolume, data)
	}
	return s.setBounds(bounds)
}

func (s *OperationSize) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var fixed int
		if err := node.Decode(&fixed); err != nil {
			return fmt.Errorf("%w: line %d: %v", simerrors.ErrInvalidVolume, node.Line, err)
		}
		s.Min, s.Max = fixed, fixed
		return nil
	case yaml.SequenceNode:
		var bounds []int
		if err := node.Decode(&bounds); err != nil {
			return fmt.Errorf("%w: line %d: %v", simerrors.ErrInvalidVolume, node.Line, err)
		}
		return s.setBounds(bounds)
	default:
		return fmt.Errorf("%w: line %d: expected integer or [min, max]", simerrors.ErrInvalidVolume, node.Line)
	}
}

func (s *OperationSize) setBounds(bounds []int) error {
	if len(bounds) != 2 {
		return fmt.Errorf("%w: range needs exactly two values, got %d", simerrors.ErrInvalidVolume, len(bounds))
	}
	s.Min, s.Max = bounds[0], bounds[1]
	return nil
}

// DayShape maps weekday names to their share of a week's volume.
type DayShape map[string]float64

// WeekdayShare is one resolved entry of a DayShape.
type WeekdayShare struct {
	Weekday    time.Weekday
	Proportion float64
}

// Shares resolves the shape into weekday order, Monday first.
func (d DayShape) Shares() ([]WeekdayShare, error) {
	byDay := make(map[time.Weekday]float64, len(d))
	for name, proportion := range d {
		wd, ok := ParseWeekday(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", simerrors.ErrUnknownWeekday, name)
		}
		byDay[wd] += proportion
	}

	shares := make([]WeekdayShare, 0, len(byDay))
	for _, wd := range weekOrder {
		if p, ok := byDay[wd]; ok {
			shares = append(shares, WeekdayShare{Weekday: wd, Proportion: p})
		}
	}
	return shares, nil
}

func (d DayShape) validate() error {
	shares, err := d.Shares()
	if err != nil {
		return err
	}
	var sum float64
	for _, s := range shares {
		if s.Proportion < 0 || math.IsNaN(s.Proportion) {
			return fmt.Errorf("%w: %s=%g", simerrors.ErrInvalidProportion, s.Weekday, s.Proportion)
		}
		sum += s.Proportion
	}
	if math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("%w: proportions sum to %g, want 1", simerrors.ErrInvalidProportion, sum)
	}
	return nil
}

func (d DayShape) clone() DayShape {
	out := make(DayShape, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

var weekOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
}

// ParseWeekday accepts full or three-letter English weekday names in any case.
func ParseWeekday(name string) (time.Weekday, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, wd := range weekOrder {
		full := strings.ToLower(wd.String())
		if name == full || name == full[:3] {
			return wd, true
		}
	}
	return time.Sunday, false
}

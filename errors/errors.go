package errors

import "fmt"

// ConfigurationError reports a missing, contradictory or degenerate simulation setting.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %v", e.Err)
	}
	return fmt.Sprintf("configuration error: %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Config builds a ConfigurationError for field wrapping err.
func Config(field string, err error) error {
	return &ConfigurationError{Field: field, Err: err}
}

// ValidationError reports malformed user input at the CLI or HTTP boundary.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ParseError wraps a specific error with context about where it occurred.
type ParseError struct {
	Line   int
	Record []string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d: %v (record: %v)", e.Line, e.Err, e.Record)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Define specific error types for better error handling
var (
	ErrMissingTimePeriod = fmt.Errorf("either months or start and end dates must be provided")
	ErrInvalidMonths     = fmt.Errorf("months out of range")
	ErrInvalidDate       = fmt.Errorf("invalid date")
	ErrInvertedWindow    = fmt.Errorf("start date must be before end date")
	ErrEmptyWindow       = fmt.Errorf("window is shorter than one day")
	ErrWindowTooLong     = fmt.Errorf("window is too long")
	ErrWindowNotSet      = fmt.Errorf("time period not set")
	ErrUnknownProfile    = fmt.Errorf("unknown profile")
	ErrInvalidVolume     = fmt.Errorf("invalid operation volume")
	ErrInvalidProportion = fmt.Errorf("invalid day proportion")
	ErrUnknownWeekday    = fmt.Errorf("unknown weekday")
	ErrInvalidHours      = fmt.Errorf("invalid operation hours")
	ErrInvalidPeak       = fmt.Errorf("invalid gaussian peak")
	ErrDegenerateCurve   = fmt.Errorf("intraday curve is degenerate")
	ErrInvalidChoice     = fmt.Errorf("invalid choice")

	ErrInvalidFieldCount = fmt.Errorf("invalid field count")
	ErrInvalidID         = fmt.Errorf("invalid ticket id")
	ErrInvalidStartTime  = fmt.Errorf("invalid start time")
	ErrInvalidEndTime    = fmt.Errorf("invalid end time")
	ErrInvalidType       = fmt.Errorf("invalid ticket type")
)

package window

import "time"

// Clock provides the current time and can be faked in tests.
type Clock interface {
	Now() time.Time
}

// RealClock uses the standard time package.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// FakeClock is a test clock that can be manually advanced.
type FakeClock struct {
	current time.Time
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{current: start}
}

func (f *FakeClock) Now() time.Time          { return f.current }
func (f *FakeClock) Advance(d time.Duration) { f.current = f.current.Add(d) }
func (f *FakeClock) Set(t time.Time)         { f.current = t }

package clock

import "time"

// Clock abstracts wall-clock access so time-dependent logic can be tested
// deterministically.
type Clock interface {
	Now() time.Time
}

// RealClock returns the system time.
type RealClock struct{}

func (c RealClock) Now() time.Time {
	return time.Now()
}

// MockClock returns a fixed time that tests can advance manually.
type MockClock struct {
	CurrentTime time.Time
}

func (c *MockClock) Now() time.Time {
	return c.CurrentTime
}

// Advance moves the mock clock forward by d.
func (c *MockClock) Advance(d time.Duration) {
	c.CurrentTime = c.CurrentTime.Add(d)
}

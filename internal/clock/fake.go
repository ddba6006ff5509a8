package clock

import "time"

// FakeClock pins "now" so daily-goal slices and reconcile windows are
// reproducible in tests.
type FakeClock struct {
	now time.Time
}

func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

func (c *FakeClock) Now() time.Time {
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// SetNow jumps to an absolute instant, for tests that cross a day boundary.
func (c *FakeClock) SetNow(t time.Time) {
	c.now = t.UTC()
}

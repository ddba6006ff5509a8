package cache

import (
	"testing"
	"time"

	"github.com/ondasul/airtrack/internal/clock"
	"github.com/stretchr/testify/assert"
)

func TestCacheExpiry(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC))
	c := New[int64, string](time.Minute, clk)

	c.Set(7, "Cliente 7")

	got, ok := c.Get(7)
	assert.True(t, ok)
	assert.Equal(t, "Cliente 7", got)

	clk.Advance(2 * time.Minute)
	_, ok = c.Get(7)
	assert.False(t, ok)
}

func TestCacheInvalidate(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC))
	c := New[int64, string](time.Minute, clk)

	c.Set(7, "old name")
	c.Invalidate(7)

	_, ok := c.Get(7)
	assert.False(t, ok)

	_, ok = c.Get(99)
	assert.False(t, ok)
}

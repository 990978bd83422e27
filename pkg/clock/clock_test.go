package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystemMovesForward(t *testing.T) {
	clk := System()
	a := clk.Now()
	b := clk.Now()
	assert.False(t, b.Before(a))
}

func TestManual(t *testing.T) {
	start := time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC)
	clk := NewManual(start)

	assert.Equal(t, start, clk.Now())

	clk.Advance(1500 * time.Millisecond)
	assert.Equal(t, start.Add(1500*time.Millisecond), clk.Now())

	// Negative advances are ignored to keep the clock monotonic.
	clk.Advance(-time.Hour)
	assert.Equal(t, start.Add(1500*time.Millisecond), clk.Now())

	clk.Set(start)
	assert.Equal(t, start, clk.Now())
}

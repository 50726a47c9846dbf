package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJitter_WithinRange(t *testing.T) {
	for range 200 {
		d := jitter(6*time.Second, 11*time.Second)
		assert.GreaterOrEqual(t, d, 6*time.Second)
		assert.LessOrEqual(t, d, 11*time.Second)
	}
}

func TestJitter_DegenerateRange(t *testing.T) {
	assert.Equal(t, time.Second, jitter(time.Second, time.Second))
	assert.Equal(t, time.Duration(0), jitter(0, 0))
	assert.Equal(t, 3*time.Second, jitter(3*time.Second, time.Second))
}

func TestConfig_WithDefaults(t *testing.T) {
	c := Config{}.withDefaults()
	assert.Equal(t, AcceptBulk, c.AcceptMode)
	assert.Equal(t, 9, c.MaxAcceptIterations)
	assert.Equal(t, 3, c.RefreshEvery)
	assert.Equal(t, 2000, c.InventoryPageSize)
	assert.Equal(t, 5, c.Retry.Attempts)
	assert.Zero(t, c.JitterMax, "waits stay disabled when unset")
}

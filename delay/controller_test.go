package delay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestController_DefaultsStartAtMinimum(t *testing.T) {
	c := New()
	assert.Equal(t, DefaultMinMultiplier, c.CurrentMultiplier())
	assert.False(t, c.AboveMinimum())
	assert.False(t, c.AtMaximum())
}

func TestController_IncreaseSaturatesAtMax(t *testing.T) {
	c := New(WithMinMultiplier(1), WithMaxMultiplier(3), WithCooldownTicks(0))
	for i := 0; i < 10; i++ {
		c.Tick()
		c.IncreaseDelayMultiplier()
	}
	assert.Equal(t, 3, c.CurrentMultiplier())
	assert.True(t, c.AtMaximum())
}

func TestController_DecreaseFloorsAtMin(t *testing.T) {
	c := New(WithMinMultiplier(1), WithMaxMultiplier(6), WithReliableTicks(1))
	c.Tick()
	c.IncreaseDelayMultiplier()
	assert.Equal(t, 2, c.CurrentMultiplier())

	for i := 0; i < 10; i++ {
		c.Tick() // no backpressure -> reliable streak grows
		c.DecreaseDelayMultiplier()
	}
	assert.Equal(t, 1, c.CurrentMultiplier())
}

func TestController_DecreaseRequiresReliability(t *testing.T) {
	c := New(WithMinMultiplier(1), WithMaxMultiplier(6), WithReliableTicks(3))
	c.Tick()
	c.IncreaseDelayMultiplier()
	require := assert.New(t)
	require.Equal(2, c.CurrentMultiplier())

	// immediately after an increase, reliable streak was reset to 0; one
	// backpressure-free tick is not enough to satisfy ReliableTicks=3.
	c.Tick()
	c.DecreaseDelayMultiplier()
	require.Equal(2, c.CurrentMultiplier(), "must not decrease before reliable streak reached")

	c.Tick()
	c.Tick()
	c.DecreaseDelayMultiplier()
	require.Equal(1, c.CurrentMultiplier())
}

// TestController_Hysteresis exercises testable property 8: the multiplier
// does not oscillate more than once per CooldownTicks.
func TestController_Hysteresis(t *testing.T) {
	c := New(WithMinMultiplier(1), WithMaxMultiplier(6), WithCooldownTicks(5))
	c.Tick()
	c.IncreaseDelayMultiplier()
	before := c.CurrentMultiplier()

	for i := 0; i < 4; i++ {
		c.Tick()
		if c.NotIncreasedDelayRecently() {
			c.IncreaseDelayMultiplier()
		}
	}
	assert.Equal(t, before, c.CurrentMultiplier(), "increase must be blocked within the cooldown window")

	c.Tick() // 5th tick since the increase: cooldown elapsed
	assert.True(t, c.NotIncreasedDelayRecently())
}

func TestController_BackpressureResetsReliableStreak(t *testing.T) {
	c := New(WithMinMultiplier(1), WithMaxMultiplier(6), WithReliableTicks(2))
	c.Tick()
	c.Tick()
	assert.True(t, c.IsSendingReliable())

	c.RecordBackpressureDetected()
	c.Tick()
	assert.False(t, c.IsSendingReliable(), "a backpressure hit must reset the reliable streak")
}

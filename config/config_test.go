package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_Defaults(t *testing.T) {
	c := New()
	assert.Equal(t, 20*time.Millisecond, c.AverageAckDelay)
	assert.Equal(t, 20*time.Millisecond, c.AveragePacketDelay)
	assert.Equal(t, 100*time.Millisecond, c.AverageMessageSendingDelay)
	assert.Equal(t, 32*1024, c.CoverPacketSize)
	assert.False(t, c.DisableMainPoissonPacketDistribution)
}

func TestNew_OptionsOverrideDefaults(t *testing.T) {
	c := New(
		WithAverageAckDelay(5*time.Millisecond),
		WithDisablePoisson(true),
		WithCoverPacketSize(64),
		WithOwnFullDestination("client.addr"),
		WithAckKey([]byte("key")),
	)
	assert.Equal(t, 5*time.Millisecond, c.AverageAckDelay)
	assert.True(t, c.DisableMainPoissonPacketDistribution)
	assert.Equal(t, 64, c.CoverPacketSize)
	assert.Equal(t, "client.addr", c.OwnFullDestination)
	assert.Equal(t, []byte("key"), c.AckKey)
}

func TestNew_NilOptionIgnored(t *testing.T) {
	c := New(nil, WithCoverPacketSize(99))
	assert.Equal(t, 99, c.CoverPacketSize)
}

package cover

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nymtech/nym-client-outqueue/internal/xrand"
	"github.com/nymtech/nym-client-outqueue/topology"
)

func TestSource_Next_InvalidTopologyReturnsFalse(t *testing.T) {
	top := topology.NewSource()
	src := New(top, "me", 20*time.Millisecond, 20*time.Millisecond, 32*1024)

	rng := xrand.NewSeeded([32]byte{1})
	_, ok := src.Next(rng)
	assert.False(t, ok)
}

func TestSource_Next_ValidTopologyProducesFixedSizePacket(t *testing.T) {
	top := topology.NewSource()
	top.Set(&topology.Topology{Gateways: []topology.Gateway{{Address: "gw1:1789"}}})
	src := New(top, "me", 20*time.Millisecond, 20*time.Millisecond, 1024)

	rng := xrand.NewSeeded([32]byte{2})
	packet, ok := src.Next(rng)
	require.True(t, ok)
	assert.Equal(t, "gw1:1789", packet.NextHop)
	assert.Len(t, packet.Payload, 1024)
}

func TestSource_Next_ChoosesAmongMultipleGateways(t *testing.T) {
	top := topology.NewSource()
	top.Set(&topology.Topology{Gateways: []topology.Gateway{
		{Address: "gw1"}, {Address: "gw2"}, {Address: "gw3"},
	}})
	src := New(top, "me", 0, 0, 8)

	seen := make(map[string]bool)
	rng := xrand.NewSeeded([32]byte{3})
	for i := 0; i < 100; i++ {
		packet, ok := src.Next(rng)
		require.True(t, ok)
		seen[packet.NextHop] = true
	}
	assert.Greater(t, len(seen), 1, "expected more than one gateway to be chosen across 100 draws")
}

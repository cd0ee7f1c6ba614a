package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSource_AcquireReadPermit_InvalidBeforeSet(t *testing.T) {
	s := NewSource()
	permit := s.AcquireReadPermit()
	_, ok := permit.TryGetValidTopology("a", "b")
	assert.False(t, ok)
}

func TestSource_AcquireReadPermit_ValidAfterSet(t *testing.T) {
	s := NewSource()
	s.Set(&Topology{Gateways: []Gateway{{Address: "gw1:1789"}}})

	permit := s.AcquireReadPermit()
	got, ok := permit.TryGetValidTopology("a", "b")
	assert.True(t, ok)
	assert.Equal(t, "gw1:1789", got.Gateways[0].Address)
}

func TestTopology_ValidRejectsEmptyLayer(t *testing.T) {
	assert.False(t, (&Topology{}).Valid())
	assert.False(t, (*Topology)(nil).Valid())
	assert.True(t, (&Topology{Gateways: []Gateway{{Address: "x"}}}).Valid())
}

func TestSource_SetReplacesSnapshot(t *testing.T) {
	s := NewSource()
	s.Set(&Topology{Gateways: []Gateway{{Address: "gw1"}}})
	s.Set(nil)

	permit := s.AcquireReadPermit()
	_, ok := permit.TryGetValidTopology("a", "b")
	assert.False(t, ok)
}

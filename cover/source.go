// Package cover implements CoverPacketSource (spec.md §4.4): the
// synthesis of loop cover packets, used to pad the outbound stream to a
// constant-rate Poisson process indistinguishable from genuine traffic.
package cover

import (
	"time"

	"github.com/nymtech/nym-client-outqueue/internal/xrand"
	"github.com/nymtech/nym-client-outqueue/mixmsg"
	"github.com/nymtech/nym-client-outqueue/topology"
)

// Source synthesizes loop cover packets: packets whose first hop is some
// valid gateway and whose terminal recipient is the client's own address,
// indistinguishable on the wire from a real Sphinx packet.
//
// Actual Sphinx encryption is delegated to an out-of-scope packet-preparer
// collaborator; this Source instead deterministically derives a
// fixed-size payload from the RNG, so callers exercising the scheduling
// and buffer logic around cover generation don't need a cryptographic
// dependency to do it.
type Source struct {
	topology *topology.Source

	ownDestination     string
	averageAckDelay    time.Duration
	averagePacketDelay time.Duration
	packetSize         int
}

// New constructs a Source reading from top, addressed to ownDestination,
// producing packets of size packetSize. averageAckDelay and
// averagePacketDelay are accepted per the contract (spec.md §4.4) for the
// embedded per-hop delay fields a real Sphinx header would carry.
func New(top *topology.Source, ownDestination string, averageAckDelay, averagePacketDelay time.Duration, packetSize int) *Source {
	return &Source{
		topology:           top,
		ownDestination:     ownDestination,
		averageAckDelay:    averageAckDelay,
		averagePacketDelay: averagePacketDelay,
		packetSize:         packetSize,
	}
}

// Next produces one cover MixPacket using rng, or ok=false if the current
// topology snapshot is invalid, in which case the caller must skip
// emission for this tick without panicking (spec.md §4.4, and the error
// table at spec.md §5: "Cover generation failed (bad topology): skip
// emission for this tick; do not panic").
func (s *Source) Next(rng *xrand.Rand) (packet mixmsg.MixPacket, ok bool) {
	permit := s.topology.AcquireReadPermit()
	snap, ok := permit.TryGetValidTopology(s.ownDestination, s.ownDestination)
	if !ok {
		return mixmsg.MixPacket{}, false
	}

	gw := snap.Gateways[rng.IntN(len(snap.Gateways))]
	payload := make([]byte, s.packetSize)
	for i := range payload {
		payload[i] = byte(rng.IntN(256))
	}
	return mixmsg.MixPacket{NextHop: gw.Address, Payload: payload}, true
}

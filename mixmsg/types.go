// Package mixmsg defines the wire-adjacent value types passed between the
// producer side of a mix client and its outbound queue control: fragment
// identifiers, prepared Sphinx packets, lane tags, and the tagged union of
// messages the scheduler can emit on a given tick.
package mixmsg

import "fmt"

// FragmentId opaquely identifies an application-message fragment, unique for
// the lifetime of a client session. It is created by the fragmenter
// collaborator and consumed by the acknowledgement collaborator once the
// fragment's packet has been handed to transport.
type FragmentId uint64

// MixPacket is a fully prepared, fixed-length, encrypted onion packet plus
// its target first-hop address. Construction (Sphinx encryption, cover vs.
// real payload selection) is delegated to a packet-preparer collaborator;
// this type only carries the already-sealed result.
type MixPacket struct {
	// NextHop is the network address of the packet's first mix hop (for a
	// loop cover packet, a gateway drawn from the current topology).
	NextHop string
	// Payload is the opaque, fixed-size onion-encrypted packet body.
	Payload []byte
}

// Size returns the byte length of the packet payload, used by the status
// reporter to report queue backlog in bytes.
func (p MixPacket) Size() int {
	return len(p.Payload)
}

// RealMessage pairs a prepared packet with the fragment identifier it
// carries, so the engine can notify the acknowledgement collaborator once
// the packet is accepted by transport.
type RealMessage struct {
	Packet     MixPacket
	FragmentId FragmentId
}

// LaneKind distinguishes the tagged variants of TransmissionLane.
type LaneKind uint8

const (
	// LaneGeneral carries ordinary outbound application traffic.
	LaneGeneral LaneKind = iota
	// LaneReplySurbRequest carries requests for reply SURBs.
	LaneReplySurbRequest
	// LaneAdditionalReplySurbs carries unsolicited additional reply SURBs.
	LaneAdditionalReplySurbs
	// LaneRetransmission carries fragments being retried by the
	// acknowledgement collaborator.
	LaneRetransmission
	// LaneConnection carries fragments belonging to a single logical
	// substream (e.g. a SOCKS5 connection), identified by ConnectionId.
	LaneConnection
)

func (k LaneKind) String() string {
	switch k {
	case LaneGeneral:
		return "general"
	case LaneReplySurbRequest:
		return "reply_surb_request"
	case LaneAdditionalReplySurbs:
		return "additional_reply_surbs"
	case LaneRetransmission:
		return "retransmission"
	case LaneConnection:
		return "connection"
	default:
		return "unknown"
	}
}

// TransmissionLane tags a logical substream used to group fragments for fair
// multiplexing and backpressure accounting. Lanes of kind LaneConnection
// additionally carry a ConnectionId; all other kinds ignore it. The zero
// value of TransmissionLane is the LaneGeneral lane, and instances are
// comparable, making TransmissionLane suitable as a map key.
type TransmissionLane struct {
	Kind         LaneKind
	ConnectionId uint64
}

// General returns the General lane.
func General() TransmissionLane { return TransmissionLane{Kind: LaneGeneral} }

// ReplySurbRequest returns the ReplySurbRequest lane.
func ReplySurbRequest() TransmissionLane { return TransmissionLane{Kind: LaneReplySurbRequest} }

// AdditionalReplySurbs returns the AdditionalReplySurbs lane.
func AdditionalReplySurbs() TransmissionLane {
	return TransmissionLane{Kind: LaneAdditionalReplySurbs}
}

// Retransmission returns the Retransmission lane.
func Retransmission() TransmissionLane { return TransmissionLane{Kind: LaneRetransmission} }

// Connection returns the lane for a given connection id.
func Connection(id uint64) TransmissionLane {
	return TransmissionLane{Kind: LaneConnection, ConnectionId: id}
}

// IsConnection reports whether l is a LaneConnection lane, the only kind
// subject to staleness pruning.
func (l TransmissionLane) IsConnection() bool {
	return l.Kind == LaneConnection
}

func (l TransmissionLane) String() string {
	if l.Kind == LaneConnection {
		return fmt.Sprintf("connection(%d)", l.ConnectionId)
	}
	return l.Kind.String()
}

// StreamMessage is the tagged union emitted once per resolved scheduler
// tick: either a cover packet, synthesized locally, or a real message
// dequeued from the transmission buffer.
type StreamMessage struct {
	// Cover is true if this message carries no application payload.
	Cover bool
	// Real holds the dequeued real message when Cover is false; when Cover
	// is true only Real.Packet is set, carrying the cover packet.
	Real RealMessage
	// Lane is the lane Real was dequeued from; meaningless when Cover.
	Lane TransmissionLane
}

// CoverMessage constructs a StreamMessage carrying a synthesized cover
// packet.
func CoverMessage(packet MixPacket) StreamMessage {
	return StreamMessage{Cover: true, Real: RealMessage{Packet: packet}}
}

// RealStreamMessage constructs a StreamMessage carrying a real dequeued
// message from the given lane.
func RealStreamMessage(lane TransmissionLane, msg RealMessage) StreamMessage {
	return StreamMessage{Cover: false, Real: msg, Lane: lane}
}

// Burst is a batch of RealMessage values bound for a single lane, as
// delivered atomically on the real_receiver channel: "all or nothing" per
// spec.md's ingress semantics.
type Burst struct {
	Lane     TransmissionLane
	Messages []RealMessage
}

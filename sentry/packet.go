package sentry

import "github.com/silkwormgo/sentry/types"

// GetBlockBodiesPacket66 is the eth/66-shaped outbound request, per §6.
type GetBlockBodiesPacket66 struct {
	RequestID uint64
	Hashes    []types.Hash
}

// BlockBodiesPacket66 is the eth/66-shaped inbound reply, per §6.
type BlockBodiesPacket66 struct {
	RequestID uint64
	Bodies    []types.Body
}

// PenaltyKind enumerates the validation-failure exit codes of §6.
type PenaltyKind int

const (
	PenaltyNone PenaltyKind = iota
	PenaltyStale
	PenaltyBadBlock
	PenaltyUnexpected
	PenaltyMalformedPacket
)

func (p PenaltyKind) String() string {
	switch p {
	case PenaltyNone:
		return "none"
	case PenaltyStale:
		return "stale"
	case PenaltyBadBlock:
		return "bad_block"
	case PenaltyUnexpected:
		return "unexpected"
	case PenaltyMalformedPacket:
		return "malformed_packet"
	default:
		return "unknown"
	}
}

// Penalty pairs a peer with the reason it is being penalized.
type Penalty struct {
	PeerID string
	Kind   PenaltyKind
}

// Package sentry implements the Body Download Sequencer: it decides which
// block bodies to request from peers, tracks outstanding requests against
// deadlines, accepts replies, and surfaces bodies ready for persistence.
package sentry

import (
	"time"

	"github.com/silkwormgo/sentry/types"
)

// Tuning constants, per spec §4.5.
const (
	RequestDeadline               = 30 * time.Second
	NoPeerDelay                   = 500 * time.Millisecond
	PerPeerMaxOutstandingRequests = 4
	MaxBlocksPerMessage           = 128
	MaxAnnouncedBlocks            = 10_000
)

// BodyRequestStatus is a more granular observability refinement over the
// Issued/Renewed/Received/Withdrawn/Nacked state machine of §4.5: kept as
// an explicit field (rather than only inferring state from BRB/deadline
// membership) the way silkworm's body_sequence.hpp tracks per-request
// status. Only the renewal transition is logged.
type BodyRequestStatus int

const (
	StatusIssued BodyRequestStatus = iota
	StatusRenewed
	StatusReceived
	StatusWithdrawn
	StatusNacked
)

func (s BodyRequestStatus) String() string {
	switch s {
	case StatusIssued:
		return "issued"
	case StatusRenewed:
		return "renewed"
	case StatusReceived:
		return "received"
	case StatusWithdrawn:
		return "withdrawn"
	case StatusNacked:
		return "nacked"
	default:
		return "unknown"
	}
}

// BodyRequest is a single in-flight (or just-completed) body download,
// owned by the BRB, per §3.
type BodyRequest struct {
	RequestID   uint64
	BlockHash   types.Hash
	BlockHeight uint64
	Header      *types.Header
	Body        *types.Body
	RequestTime time.Time
	Ready       bool
	Status      BodyRequestStatus
	// PeerID identifies the peer whose reply marked this request ready;
	// it is empty until then.
	PeerID string
}

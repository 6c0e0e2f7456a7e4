package sentry

import (
	"testing"
	"time"

	"github.com/holiman/uint256"

	"github.com/silkwormgo/sentry/types"
)

// memHeaderStore is a trivial in-memory HeaderStore for tests.
type memHeaderStore struct {
	headers map[uint64]*types.Header
}

func newMemHeaderStore() *memHeaderStore {
	return &memHeaderStore{headers: make(map[uint64]*types.Header)}
}

func (m *memHeaderStore) HeaderByHeight(height uint64) (*types.Header, bool) {
	h, ok := m.headers[height]
	return h, ok
}

func (m *memHeaderStore) put(height uint64) *types.Header {
	h := &types.Header{
		Number:     uint256.NewInt(height),
		Difficulty: uint256.NewInt(1),
		GasLimit:   30_000_000,
		Time:       uint64(1000 + height),
		TxHash:     types.EmptyRootHash,
		UncleHash:  types.EmptyUncleHash,
	}
	m.headers[height] = h
	return h
}

func TestBodyRequestCycleRenewsAfterDeadline(t *testing.T) {
	store := newMemHeaderStore()
	for h := uint64(101); h <= 228; h++ {
		store.put(h)
	}
	seq := NewSequencer(store, nil)
	seq.Start(100, 228)

	now := time.Unix(1_700_000_000, 0)
	packet, penalties, minBlock := seq.RequestMoreBodies(now, 2)
	if len(penalties) != 0 {
		t.Fatalf("expected no penalties on first issue, got %d", len(penalties))
	}
	if len(packet.Hashes) != MaxBlocksPerMessage {
		t.Fatalf("expected %d hashes, got %d", MaxBlocksPerMessage, len(packet.Hashes))
	}
	if minBlock != 101 {
		t.Fatalf("expected min_block 101, got %d", minBlock)
	}
	if seq.OutstandingRequests() != MaxBlocksPerMessage {
		t.Fatalf("expected %d outstanding requests, got %d", MaxBlocksPerMessage, seq.OutstandingRequests())
	}
	if seq.DeadlineTotal() != seq.OutstandingRequests() {
		t.Fatalf("deadline total %d != outstanding %d", seq.DeadlineTotal(), seq.OutstandingRequests())
	}

	later := now.Add(RequestDeadline + time.Second)
	packet2, penalties2, _ := seq.RequestMoreBodies(later, 2)
	if len(penalties2) != MaxBlocksPerMessage {
		t.Fatalf("expected %d stale penalties, got %d", MaxBlocksPerMessage, len(penalties2))
	}
	for _, p := range penalties2 {
		if p.Kind != PenaltyStale {
			t.Fatalf("expected PenaltyStale, got %v", p.Kind)
		}
	}
	if packet2.RequestID == packet.RequestID {
		t.Fatalf("expected a fresh request id on renewal")
	}
}

func TestBadBodyPenalizedAndWithheld(t *testing.T) {
	store := newMemHeaderStore()
	store.put(1)
	seq := NewSequencer(store, nil)
	seq.Start(0, 1)

	now := time.Unix(1_700_000_000, 0)
	packet, _, _ := seq.RequestMoreBodies(now, 1)
	if len(packet.Hashes) != 1 {
		t.Fatalf("expected 1 hash, got %d", len(packet.Hashes))
	}

	badBody := types.Body{
		Transactions: []*types.Transaction{{Nonce: 1, GasPrice: uint256.NewInt(1), Gas: 21000, Value: uint256.NewInt(0)}},
	}
	reply := BlockBodiesPacket66{RequestID: packet.RequestID, Bodies: []types.Body{badBody}}
	penalty := seq.AcceptRequestedBodies(reply, "peer-1")
	if penalty.Kind != PenaltyBadBlock {
		t.Fatalf("expected PenaltyBadBlock, got %v", penalty.Kind)
	}

	withdrawn := seq.WithdrawReadyBodies()
	if len(withdrawn) != 0 {
		t.Fatalf("expected no withdrawn bodies, got %d", len(withdrawn))
	}
}

func TestWithdrawReadyBodiesLeavesNoneReady(t *testing.T) {
	store := newMemHeaderStore()
	store.put(1)
	seq := NewSequencer(store, nil)
	seq.Start(0, 1)

	now := time.Unix(1_700_000_000, 0)
	packet, _, _ := seq.RequestMoreBodies(now, 1)

	goodBody := types.Body{}
	reply := BlockBodiesPacket66{RequestID: packet.RequestID, Bodies: []types.Body{goodBody}}
	penalty := seq.AcceptRequestedBodies(reply, "peer-1")
	if penalty.Kind != PenaltyNone {
		t.Fatalf("expected no penalty, got %v", penalty.Kind)
	}

	blocks := seq.WithdrawReadyBodies()
	if len(blocks) != 1 {
		t.Fatalf("expected 1 withdrawn block, got %d", len(blocks))
	}
	if seq.OutstandingRequests() != 0 {
		t.Fatalf("expected 0 outstanding requests after withdraw, got %d", seq.OutstandingRequests())
	}

	more := seq.WithdrawReadyBodies()
	if len(more) != 0 {
		t.Fatalf("expected no further ready bodies, got %d", len(more))
	}
}

func TestAnnouncementOverflowEvictsOldest(t *testing.T) {
	store := newMemHeaderStore()
	seq := NewSequencer(store, nil)

	for i := uint64(0); i < MaxAnnouncedBlocks+1; i++ {
		h := &types.Header{Number: uint256.NewInt(i), Difficulty: uint256.NewInt(0), TxHash: types.EmptyRootHash, UncleHash: types.EmptyUncleHash}
		block := types.NewBlock(h, &types.Body{})
		if penalty := seq.AcceptNewBlock(block, "peer-1"); penalty.Kind != PenaltyNone {
			t.Fatalf("unexpected penalty at i=%d: %v", i, penalty.Kind)
		}
	}
	if seq.announced.Len() != MaxAnnouncedBlocks {
		t.Fatalf("expected announced cache capped at %d, got %d", MaxAnnouncedBlocks, seq.announced.Len())
	}
	if _, ok := seq.announced.Get(0); ok {
		t.Fatalf("expected the first-inserted announcement (height 0) to be evicted")
	}
	if _, ok := seq.announced.Get(MaxAnnouncedBlocks); !ok {
		t.Fatalf("expected the most recent announcement to still be present")
	}
}

func TestNoPeerReturnsEmptyPacket(t *testing.T) {
	store := newMemHeaderStore()
	store.put(1)
	seq := NewSequencer(store, nil)
	seq.Start(0, 1)

	packet, penalties, minBlock := seq.RequestMoreBodies(time.Unix(1_700_000_000, 0), 0)
	if len(packet.Hashes) != 0 || len(penalties) != 0 || minBlock != 0 {
		t.Fatalf("expected an empty packet with zero active peers")
	}
}

func TestRequestNackRewindsDeadline(t *testing.T) {
	store := newMemHeaderStore()
	store.put(1)
	seq := NewSequencer(store, nil)
	seq.Start(0, 1)

	now := time.Unix(1_700_000_000, 0)
	packet, _, _ := seq.RequestMoreBodies(now, 1)
	seq.RequestNack(now, packet)

	// On the very next tick the nacked request should be treated as stale
	// and renewed with a fresh id.
	next := now.Add(time.Millisecond)
	packet2, penalties, _ := seq.RequestMoreBodies(next.Add(NoPeerDelay), 1)
	if len(penalties) != 1 || penalties[0].Kind != PenaltyStale {
		t.Fatalf("expected the nacked request to renew as stale, got %+v", penalties)
	}
	if packet2.RequestID == packet.RequestID {
		t.Fatalf("expected a fresh request id after nack-driven renewal")
	}
}

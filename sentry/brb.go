package sentry

import (
	"sort"

	"github.com/silkwormgo/sentry/types"
)

// hashTracePair is the secondary index key for FindByHash: a block hash
// together with its "trace" companion hash. trace is given no meaning of
// its own beyond completing the key; the Sequencer passes the block hash
// as trace as well.
type hashTracePair struct {
	origin types.Hash
	trace  types.Hash
}

// BRB (body request book) is an ordered map from block height to in-flight
// BodyRequest, per §3. At most one BodyRequest exists per height; requests
// sharing a RequestID form a batch.
type BRB struct {
	byHeight  map[uint64]*BodyRequest
	byReqID   map[uint64][]*BodyRequest
	byHash    map[hashTracePair]*BodyRequest
	heights   []uint64 // kept sorted ascending; rebuilt lazily
	heightsOK bool
}

// NewBRB returns an empty request book.
func NewBRB() *BRB {
	return &BRB{
		byHeight: make(map[uint64]*BodyRequest),
		byReqID:  make(map[uint64][]*BodyRequest),
		byHash:   make(map[hashTracePair]*BodyRequest),
	}
}

// Insert adds req, keyed by its BlockHeight. It is an internal invariant
// violation to insert two requests at the same height without first
// removing the old one.
func (b *BRB) Insert(req *BodyRequest, trace types.Hash) {
	if _, exists := b.byHeight[req.BlockHeight]; exists {
		panic("sentry: BRB insert: height already occupied")
	}
	b.byHeight[req.BlockHeight] = req
	b.byReqID[req.RequestID] = append(b.byReqID[req.RequestID], req)
	b.byHash[hashTracePair{origin: req.BlockHash, trace: trace}] = req
	b.heightsOK = false
}

// Remove deletes the request at height, if any, along with its indices.
func (b *BRB) Remove(height uint64) {
	req, ok := b.byHeight[height]
	if !ok {
		return
	}
	delete(b.byHeight, height)
	b.heightsOK = false

	ids := b.byReqID[req.RequestID]
	for i, r := range ids {
		if r == req {
			b.byReqID[req.RequestID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(b.byReqID[req.RequestID]) == 0 {
		delete(b.byReqID, req.RequestID)
	}
	for k, v := range b.byHash {
		if v == req {
			delete(b.byHash, k)
			break
		}
	}
}

// Get returns the request at height, if any.
func (b *BRB) Get(height uint64) (*BodyRequest, bool) {
	req, ok := b.byHeight[height]
	return req, ok
}

// Contains reports whether height currently has an outstanding request.
func (b *BRB) Contains(height uint64) bool {
	_, ok := b.byHeight[height]
	return ok
}

// Len returns the number of outstanding requests.
func (b *BRB) Len() int {
	return len(b.byHeight)
}

// FindByRequestID returns every request sharing id — a request batch
// shares one id, per §3.
func (b *BRB) FindByRequestID(id uint64) []*BodyRequest {
	return b.byReqID[id]
}

// FindByHash returns the unique request for the (origin, trace) pair, per
// §3.
func (b *BRB) FindByHash(origin, trace types.Hash) (*BodyRequest, bool) {
	req, ok := b.byHash[hashTracePair{origin: origin, trace: trace}]
	return req, ok
}

// LowestHeight returns the smallest height currently present, or (0,
// false) if empty.
func (b *BRB) LowestHeight() (uint64, bool) {
	b.ensureSorted()
	if len(b.heights) == 0 {
		return 0, false
	}
	return b.heights[0], true
}

// HighestHeight returns the largest height currently present, or (0,
// false) if empty.
func (b *BRB) HighestHeight() (uint64, bool) {
	b.ensureSorted()
	if len(b.heights) == 0 {
		return 0, false
	}
	return b.heights[len(b.heights)-1], true
}

// AscendingHeights returns every occupied height in ascending order.
func (b *BRB) AscendingHeights() []uint64 {
	b.ensureSorted()
	out := make([]uint64, len(b.heights))
	copy(out, b.heights)
	return out
}

func (b *BRB) ensureSorted() {
	if b.heightsOK {
		return
	}
	b.heights = b.heights[:0]
	for h := range b.byHeight {
		b.heights = append(b.heights, h)
	}
	sort.Slice(b.heights, func(i, j int) bool { return b.heights[i] < b.heights[j] })
	b.heightsOK = true
}

package sentry

import (
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/silkwormgo/sentry/types"
)

// Sequencer is the BDS control loop: it issues fresh requests, renews
// stale ones, ingests replies, penalizes bad peers, and surfaces ready
// bodies, per §4.5. It is a synchronous state machine with no internal
// blocking I/O; callers must serialize all calls to one Sequencer, per §5.
type Sequencer struct {
	headers HeaderStore
	stats   *Statistics

	inDownloading      bool
	highestBodyInDB    uint64
	headersStageHeight uint64
	lastNack           time.Time

	brb       *BRB
	deadlines *DeadlineRegister
	announced *AnnouncedBlocks

	announcementsToDo []*types.Block

	nextRequestID atomic.Uint64
}

// NewSequencer constructs an idle Sequencer reading headers from store and
// recording statistics through stats (which may be nil to disable
// metrics).
func NewSequencer(store HeaderStore, stats *Statistics) *Sequencer {
	return &Sequencer{
		headers:   store,
		stats:     stats,
		brb:       NewBRB(),
		deadlines: NewDeadlineRegister(),
		announced: NewAnnouncedBlocks(),
	}
}

// Start enters downloading mode with the given persisted/staged
// boundaries, per §4.5.
func (s *Sequencer) Start(highestBodyInDB, highestHeaderInDB uint64) {
	s.inDownloading = true
	s.highestBodyInDB = highestBodyInDB
	s.headersStageHeight = highestHeaderInDB
}

// Stop leaves downloading mode and clears all outstanding requests and
// deadlines, per §4.5.
func (s *Sequencer) Stop() {
	s.inDownloading = false
	s.brb = NewBRB()
	s.deadlines = NewDeadlineRegister()
}

func (s *Sequencer) newRequestID() uint64 {
	return s.nextRequestID.Add(1)
}

// RequestMoreBodies implements §4.5's request_more_bodies: renew stale
// requests, then fill fresh capacity, and emit a single outbound packet.
func (s *Sequencer) RequestMoreBodies(now time.Time, activePeers int) (GetBlockBodiesPacket66, []Penalty, uint64) {
	if activePeers == 0 || now.Sub(s.lastNack) < NoPeerDelay {
		return GetBlockBodiesPacket66{}, nil, 0
	}

	penalties := s.renewStale(now)

	// PerPeerMaxOutstandingRequests bounds the number of in-flight request
	// batches per peer, not heights directly; each batch can carry up to
	// MaxBlocksPerMessage heights, so the height budget scales by both
	// before being capped at one packet's worth per tick.
	capacity := PerPeerMaxOutstandingRequests*activePeers*MaxBlocksPerMessage - s.brb.Len()
	if capacity > MaxBlocksPerMessage {
		capacity = MaxBlocksPerMessage
	}
	if capacity <= 0 {
		return GetBlockBodiesPacket66{}, penalties, 0
	}

	var hashes []types.Hash
	minBlock := uint64(0)
	reqID := s.newRequestID()

	for h := s.highestBodyInDB + 1; h <= s.headersStageHeight && len(hashes) < capacity; h++ {
		if s.brb.Contains(h) {
			continue
		}
		header, ok := s.headers.HeaderByHeight(h)
		if !ok {
			continue
		}
		blockHash := header.Hash()
		req := &BodyRequest{
			RequestID:   reqID,
			BlockHash:   blockHash,
			BlockHeight: h,
			Header:      header,
			RequestTime: now,
			Status:      StatusIssued,
		}
		s.brb.Insert(req, blockHash)
		s.deadlines.Add(now.Add(RequestDeadline))
		hashes = append(hashes, blockHash)
		if minBlock == 0 || h < minBlock {
			minBlock = h
		}
		if s.stats != nil {
			s.stats.RequestsIssued.Inc()
		}
	}

	if len(hashes) == 0 {
		return GetBlockBodiesPacket66{}, penalties, 0
	}
	s.updateOutstandingGauge()
	return GetBlockBodiesPacket66{RequestID: reqID, Hashes: hashes}, penalties, minBlock
}

// renewStale removes every entry whose deadline has passed, penalizes the
// peer that owed it, and re-enqueues a fresh request for the same height
// with a new id and a fresh deadline, per §4.5 step 1.
func (s *Sequencer) renewStale(now time.Time) []Penalty {
	var penalties []Penalty
	var staleHeights []uint64

	for _, h := range s.brb.AscendingHeights() {
		req, _ := s.brb.Get(h)
		if !req.Ready && req.RequestTime.Add(RequestDeadline).Before(now) {
			staleHeights = append(staleHeights, h)
		}
	}
	if len(staleHeights) == 0 {
		return nil
	}

	reqID := s.newRequestID()
	for _, h := range staleHeights {
		old, _ := s.brb.Get(h)
		s.deadlines.Remove(old.RequestTime.Add(RequestDeadline))
		s.brb.Remove(h)

		// The peer a given request was actually sent to is not tracked
		// here. AcceptRequestedBodies records PeerID only on requests it
		// marks ready, and ready requests are never renewed, so this
		// penalty carries an empty PeerID.
		penalties = append(penalties, Penalty{PeerID: old.PeerID, Kind: PenaltyStale})
		if s.stats != nil {
			s.stats.countPenalty(PenaltyStale)
		}

		fresh := &BodyRequest{
			RequestID:   reqID,
			BlockHash:   old.BlockHash,
			BlockHeight: h,
			Header:      old.Header,
			RequestTime: now,
			Status:      StatusRenewed,
		}
		s.brb.Insert(fresh, fresh.BlockHash)
		s.deadlines.Add(now.Add(RequestDeadline))
		if s.stats != nil {
			s.stats.RequestsRenewed.Inc()
		}
		log.Debug("sentry: renewed stale body request", "height", h, "request_id", reqID)
	}
	return penalties
}

// RequestNack implements §4.5's request_nack: the outgoing packet could
// not be sent, so rewind the included heights' deadlines into the past so
// renewStale re-issues them on the very next tick.
func (s *Sequencer) RequestNack(now time.Time, packet GetBlockBodiesPacket66) {
	s.lastNack = now
	for _, req := range s.brb.FindByRequestID(packet.RequestID) {
		s.deadlines.Remove(req.RequestTime.Add(RequestDeadline))
		req.RequestTime = now.Add(-RequestDeadline - time.Second)
		req.Status = StatusNacked
		s.deadlines.Add(req.RequestTime.Add(RequestDeadline))
	}
}

// AcceptRequestedBodies implements §4.5's accept_requested_bodies: match
// each body in the reply, positionally, against the requests in the batch
// identified by packet.RequestID (the order the hashes were originally
// requested in), validate it, and mark matches ready.
func (s *Sequencer) AcceptRequestedBodies(packet BlockBodiesPacket66, peerID string) Penalty {
	batch := s.brb.FindByRequestID(packet.RequestID)
	if len(batch) == 0 {
		if s.stats != nil {
			s.stats.countPenalty(PenaltyUnexpected)
		}
		return Penalty{PeerID: peerID, Kind: PenaltyUnexpected}
	}

	worst := PenaltyNone
	for i, body := range packet.Bodies {
		if i >= len(batch) {
			worst = PenaltyUnexpected
			continue
		}
		req := batch[i]
		b := body
		if !isValidBody(req.Header, &b) {
			worst = PenaltyBadBlock
			if s.stats != nil {
				s.stats.countPenalty(PenaltyBadBlock)
			}
			continue
		}
		req.Body = &b
		req.Ready = true
		req.Status = StatusReceived
		req.PeerID = peerID
		s.deadlines.Remove(req.RequestTime.Add(RequestDeadline))
		if s.stats != nil {
			s.stats.BodiesReceived.Inc()
		}
	}
	return Penalty{PeerID: peerID, Kind: worst}
}

// AcceptNewBlock implements §4.5's accept_new_block: validate structural
// integrity, insert into AnnouncedBlocks (cap-trim oldest), and queue it
// for later gossip.
func (s *Sequencer) AcceptNewBlock(block *types.Block, peerID string) Penalty {
	if block == nil || block.Header() == nil {
		if s.stats != nil {
			s.stats.countPenalty(PenaltyMalformedPacket)
		}
		return Penalty{PeerID: peerID, Kind: PenaltyMalformedPacket}
	}
	if !isValidBody(block.Header(), block.Body()) {
		if s.stats != nil {
			s.stats.countPenalty(PenaltyBadBlock)
		}
		return Penalty{PeerID: peerID, Kind: PenaltyBadBlock}
	}

	s.announced.Insert(block)
	s.announcementsToDo = append(s.announcementsToDo, block)
	return Penalty{PeerID: peerID, Kind: PenaltyNone}
}

// WithdrawReadyBodies implements §4.5's withdraw_ready_bodies: remove and
// return every ready request's assembled block, in ascending height
// order.
func (s *Sequencer) WithdrawReadyBodies() []*types.Block {
	var out []*types.Block
	for _, h := range s.brb.AscendingHeights() {
		req, _ := s.brb.Get(h)
		if !req.Ready {
			continue
		}
		out = append(out, types.NewBlock(req.Header, req.Body))
		req.Status = StatusWithdrawn
		s.brb.Remove(h)
		if s.stats != nil {
			s.stats.BodiesWithdrawn.Inc()
		}
	}
	s.updateOutstandingGauge()
	return out
}

// PendingAnnouncements drains and returns blocks queued by AcceptNewBlock
// for gossip, per §2's "exposes pending new-block announcements".
func (s *Sequencer) PendingAnnouncements() []*types.Block {
	out := s.announcementsToDo
	s.announcementsToDo = nil
	return out
}

// OutstandingRequests returns the number of requests currently tracked by
// the BRB, for the invariant in §8.
func (s *Sequencer) OutstandingRequests() int {
	return s.brb.Len()
}

// DeadlineTotal returns the DeadlineRegister's total count, for the
// invariant Σ counts == number of outstanding requests in §8.
func (s *Sequencer) DeadlineTotal() int {
	return s.deadlines.Total()
}

func (s *Sequencer) updateOutstandingGauge() {
	if s.stats != nil {
		s.stats.Outstanding.Set(float64(s.brb.Len()))
	}
}

package sentry

import (
	"github.com/ethereum/go-ethereum/common/lru"

	"github.com/silkwormgo/sentry/types"
)

// AnnouncedBlocks caches peer-announced new blocks awaiting their header
// to be downloaded, bounded by MaxAnnouncedBlocks (insertion beyond the
// cap drops the oldest), per §3/§8. Backed by go-ethereum's BasicLRU: used
// Add-only here, so eviction order degrades to insertion order exactly as
// the spec requires, without fastcache's probabilistic eviction under hash
// collisions (see DESIGN.md).
type AnnouncedBlocks struct {
	cache *lru.BasicLRU[uint64, *types.Block]
}

// NewAnnouncedBlocks returns an empty, capacity-bounded announcement
// cache.
func NewAnnouncedBlocks() *AnnouncedBlocks {
	c := lru.NewBasicLRU[uint64, *types.Block](MaxAnnouncedBlocks)
	return &AnnouncedBlocks{cache: &c}
}

// Insert records block under its height, evicting the oldest entry if the
// cache is already at capacity.
func (a *AnnouncedBlocks) Insert(block *types.Block) {
	a.cache.Add(block.NumberU64(), block)
}

// Get returns the announced block at height, if present.
func (a *AnnouncedBlocks) Get(height uint64) (*types.Block, bool) {
	return a.cache.Peek(height)
}

// Len returns the number of cached announcements.
func (a *AnnouncedBlocks) Len() int {
	return a.cache.Len()
}

// Package storage provides a persistent HeaderStore backed by Pebble, the
// same KV engine the teacher's own node uses. It satisfies the sentry
// package's HeaderStore collaborator interface; building a full chain
// database (state trie, receipts, etc.) is out of this module's scope.
package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/silkwormgo/sentry/types"
)

// HeaderStore persists headers keyed by block height in a Pebble
// key-value store.
type HeaderStore struct {
	db *pebble.DB
}

// OpenHeaderStore opens (creating if necessary) a Pebble database at dir.
func OpenHeaderStore(dir string) (*HeaderStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("storage: open header store at %q: %w", dir, err)
	}
	return &HeaderStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *HeaderStore) Close() error {
	return s.db.Close()
}

func heightKey(height uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], height)
	return k[:]
}

// PutHeader persists header under its block height, overwriting any
// existing entry at that height.
func (s *HeaderStore) PutHeader(height uint64, header *types.Header) error {
	enc, err := rlp.EncodeToBytes(header)
	if err != nil {
		return fmt.Errorf("storage: encode header at height %d: %w", height, err)
	}
	if err := s.db.Set(heightKey(height), enc, pebble.Sync); err != nil {
		return fmt.Errorf("storage: put header at height %d: %w", height, err)
	}
	return nil
}

// HeaderByHeight implements sentry.HeaderStore.
func (s *HeaderStore) HeaderByHeight(height uint64) (*types.Header, bool) {
	val, closer, err := s.db.Get(heightKey(height))
	if err != nil {
		return nil, false
	}
	defer closer.Close()

	var header types.Header
	if err := rlp.DecodeBytes(val, &header); err != nil {
		return nil, false
	}
	return &header, true
}

package crypto

import (
	"hash"

	"golang.org/x/crypto/sha3"
)

// NewKeccakState returns a resettable Keccak-256 hasher, mirroring
// silkworm's sha3_hasher.cpp incremental-update API (update/finalize without
// consuming the whole input up front, useful for streaming the growing
// auth-ack buffer through the MAC construction in §4.4).
func NewKeccakState() hash.Hash {
	return sha3.NewLegacyKeccak256()
}

// Keccak256 hashes the concatenation of data and returns the 32-byte digest.
func Keccak256(data ...[]byte) []byte {
	h := NewKeccakState()
	for _, b := range data {
		h.Write(b)
	}
	return h.Sum(nil)
}

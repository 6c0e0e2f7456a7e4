// Package trie provides PrefixSet, a small utility set of nibble-encoded
// byte strings closed under prefixes (if x is in the set and y is a
// prefix of x, y is considered contained too), corresponding to Erigon's
// RetainList. It is a supporting utility for the two cores this module
// otherwise focuses on, not a full trie implementation.
package trie

import (
	"bytes"
	"sort"
)

// PrefixSet lazily sorts and deduplicates its keys on first query, then
// serves subsequent Contains calls with a monotone forward-scanning
// cursor. Contains is NOT safe to call concurrently: it mutates the
// cursor as a micro-cache. Callers that query in ascending nibble order
// get amortized O(1) per call; a non-monotone query resets the cursor via
// binary search, per the usage contract documented on Contains.
type PrefixSet struct {
	keys     [][]byte
	sorted   bool
	lteIndex int
}

// NewPrefixSet returns an empty set.
func NewPrefixSet() *PrefixSet {
	return &PrefixSet{}
}

// Insert adds key to the set. Only key itself is stored; its prefixes
// need not be inserted, because Contains reports every prefix of a stored
// key as contained.
func (p *PrefixSet) Insert(key []byte) {
	cp := make([]byte, len(key))
	copy(cp, key)
	p.keys = append(p.keys, cp)
	p.sorted = false
}

// Len sorts and deduplicates the keys if needed, then returns the number
// of distinct keys currently stored.
func (p *PrefixSet) Len() int {
	p.ensureSorted()
	return len(p.keys)
}

// Contains reports whether prefix is a prefix of (or equal to) some key in
// the set. Not thread-safe: it advances an internal cursor and is meant
// to be driven by a single trie-walking goroutine issuing queries in
// ascending nibble order; a query smaller than the previous one forces a
// binary-search cursor reset rather than a linear rescan.
func (p *PrefixSet) Contains(prefix []byte) bool {
	p.ensureSorted()
	if len(p.keys) == 0 {
		return false
	}

	if p.lteIndex >= len(p.keys) || bytes.Compare(prefix, p.keys[p.lteIndex]) < 0 {
		p.lteIndex = sort.Search(len(p.keys), func(i int) bool {
			return bytes.Compare(p.keys[i], prefix) >= 0
		})
	}
	for p.lteIndex < len(p.keys) && bytes.Compare(p.keys[p.lteIndex], prefix) < 0 {
		p.lteIndex++
	}

	if p.lteIndex < len(p.keys) && hasPrefix(p.keys[p.lteIndex], prefix) {
		return true
	}
	if p.lteIndex > 0 && hasPrefix(p.keys[p.lteIndex-1], prefix) {
		return true
	}
	return false
}

func hasPrefix(key, prefix []byte) bool {
	return len(key) >= len(prefix) && bytes.Equal(key[:len(prefix)], prefix)
}

func (p *PrefixSet) ensureSorted() {
	if p.sorted {
		return
	}
	sort.Slice(p.keys, func(i, j int) bool { return bytes.Compare(p.keys[i], p.keys[j]) < 0 })
	p.keys = dedupe(p.keys)
	p.sorted = true
	p.lteIndex = 0
}

func dedupe(sorted [][]byte) [][]byte {
	if len(sorted) == 0 {
		return sorted
	}
	out := sorted[:1]
	for _, k := range sorted[1:] {
		if !bytes.Equal(k, out[len(out)-1]) {
			out = append(out, k)
		}
	}
	return out
}

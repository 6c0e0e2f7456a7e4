package sentry

import "github.com/silkwormgo/sentry/types"

// HeaderStore is the external, read-only collaborator the sequencer reads
// block hashes and headers from. It is a collaborator referenced by
// interface only, per §1/§4.5 — a persistent implementation lives in
// package storage.
type HeaderStore interface {
	// HeaderByHeight returns the canonical header at height, if known.
	HeaderByHeight(height uint64) (*types.Header, bool)
}

// isValidBody checks a received body against its header's commitments,
// per §4.5/§9: the transactions root, the uncles root, and (when present)
// the withdrawals root must match. The exact consensus rules for
// transaction/uncle/withdrawal validity beyond root equality are an open
// question per spec §9 and are intentionally not enforced here.
func isValidBody(header *types.Header, body *types.Body) bool {
	if header == nil || body == nil {
		return false
	}
	if types.TransactionsRoot(body.Transactions) != header.TxHash {
		return false
	}
	if types.UnclesRoot(body.Uncles) != header.UncleHash {
		return false
	}
	if header.WithdrawalsHash != nil {
		if types.WithdrawalsRoot(body.Withdrawals) != *header.WithdrawalsHash {
			return false
		}
	}
	return true
}

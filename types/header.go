package types

import (
	"sync/atomic"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// Header represents a block header. The fourteen base fields follow the
// Yellow Paper order, with the logs bloom left out, and BaseFee and
// WithdrawalsHash are appended as RLP-optional trailing fields so
// older-shaped headers still decode.
type Header struct {
	ParentHash  Hash
	UncleHash   Hash
	Coinbase    Address
	Root        Hash
	TxHash      Hash
	ReceiptHash Hash
	Difficulty  *uint256.Int
	Number      *uint256.Int
	GasLimit    uint64
	GasUsed     uint64
	Time        uint64
	Extra       []byte
	MixDigest   Hash
	Nonce       uint64

	// EIP-1559.
	BaseFee *uint256.Int `rlp:"optional"`
	// EIP-4895: root of the beacon-chain withdrawal list, when present.
	WithdrawalsHash *Hash `rlp:"optional"`

	hash atomic.Pointer[Hash]
}

// Hash returns the Keccak256 hash of the RLP-encoded header, cached after
// first computation the way block.Header.hash is cached upstream.
func (h *Header) Hash() Hash {
	if cached := h.hash.Load(); cached != nil {
		return *cached
	}
	enc, err := rlp.EncodeToBytes(h)
	if err != nil {
		return Hash{}
	}
	digest := crypto.Keccak256Hash(enc)
	out := Hash(digest)
	h.hash.Store(&out)
	return out
}

// NumberU64 returns the block number as a uint64, or 0 if unset.
func (h *Header) NumberU64() uint64 {
	if h.Number == nil {
		return 0
	}
	return h.Number.Uint64()
}

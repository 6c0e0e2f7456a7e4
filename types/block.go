package types

import (
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// Withdrawal represents a validator withdrawal pushed from the beacon chain.
type Withdrawal struct {
	Index          uint64
	ValidatorIndex uint64
	Address        Address
	Amount         uint64 // Gwei.
}

// Body holds everything that hangs off a header: transactions, uncle
// headers, and (post-Shanghai) withdrawals.
type Body struct {
	Transactions []*Transaction
	Uncles       []*Header
	Withdrawals  []*Withdrawal `rlp:"optional"`
}

// Block pairs a header with its body. Both are treated as immutable once
// constructed; callers that need to mutate make a new Block.
type Block struct {
	header *Header
	body   *Body
}

// NewBlock builds a Block from a header and body. A nil body is treated as
// empty.
func NewBlock(header *Header, body *Body) *Block {
	if body == nil {
		body = &Body{}
	}
	return &Block{header: header, body: body}
}

// Header returns the block's header.
func (b *Block) Header() *Header { return b.header }

// Body returns the block's body.
func (b *Block) Body() *Body { return b.body }

// NumberU64 returns the block height.
func (b *Block) NumberU64() uint64 { return b.header.NumberU64() }

// Hash returns the header hash of the block, which is the block's identity
// on the wire.
func (b *Block) Hash() Hash { return b.header.Hash() }

// ParentHash returns the parent block's header hash.
func (b *Block) ParentHash() Hash { return b.header.ParentHash }

// computeListRoot hashes the RLP encoding of a list value. It is used for
// the transactions root, uncles root, and withdrawals root alike: the spec
// leaves the exact trie-vs-hash construction open (§9, is_valid_body is not
// shown), so all three roots are defined the same simple way here rather
// than reimplementing a full Merkle-Patricia trie, which is explicitly out
// of this module's scope (§1).
func computeListRoot(list interface{}) Hash {
	enc, err := rlp.EncodeToBytes(list)
	if err != nil {
		return Hash{}
	}
	return Hash(crypto.Keccak256Hash(enc))
}

// TransactionsRoot computes the root committing to a list of transactions.
func TransactionsRoot(txs []*Transaction) Hash {
	if len(txs) == 0 {
		return EmptyRootHash
	}
	return computeListRoot(txs)
}

// UnclesRoot computes the root committing to a list of uncle headers.
func UnclesRoot(uncles []*Header) Hash {
	if len(uncles) == 0 {
		return EmptyUncleHash
	}
	return computeListRoot(uncles)
}

// WithdrawalsRoot computes the root committing to a list of withdrawals.
func WithdrawalsRoot(withdrawals []*Withdrawal) Hash {
	if len(withdrawals) == 0 {
		return EmptyRootHash
	}
	return computeListRoot(withdrawals)
}

// EmptyRootHash and EmptyUncleHash are the Keccak256 hashes of RLP-encoded
// empty lists, precomputed the way go-ethereum's types package does for
// types.EmptyRootHash / types.EmptyUncleHash.
var (
	EmptyRootHash  = Hash(crypto.Keccak256Hash(mustEncode([]*Transaction{})))
	EmptyUncleHash = Hash(crypto.Keccak256Hash(mustEncode([]*Header{})))
)

func mustEncode(v interface{}) []byte {
	enc, err := rlp.EncodeToBytes(v)
	if err != nil {
		panic(err)
	}
	return enc
}

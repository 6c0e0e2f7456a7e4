package types

import (
	"io"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// Transaction is a minimal legacy-style transaction envelope, sufficient to
// compute a transactions root and exercise RLP round-tripping. Signature
// validation and execution semantics are out of scope for the sequencer and
// handshake cores this module implements.
type Transaction struct {
	Nonce    uint64
	GasPrice *uint256.Int
	Gas      uint64
	To       *Address `rlp:"nil"`
	Value    *uint256.Int
	Data     []byte
	V, R, S  *uint256.Int

	hash atomic.Pointer[Hash]
}

// rlpTransaction mirrors Transaction's wire shape. uint256.Int already
// implements rlp.Encoder/Decoder, so plain struct field encoding suffices.
type rlpTransaction struct {
	Nonce    uint64
	GasPrice *uint256.Int
	Gas      uint64
	To       *Address `rlp:"nil"`
	Value    *uint256.Int
	Data     []byte
	V, R, S  *uint256.Int
}

// EncodeRLP implements rlp.Encoder.
func (tx *Transaction) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, rlpTransaction{
		Nonce: tx.Nonce, GasPrice: tx.GasPrice, Gas: tx.Gas, To: tx.To,
		Value: tx.Value, Data: tx.Data, V: tx.V, R: tx.R, S: tx.S,
	})
}

// DecodeRLP implements rlp.Decoder.
func (tx *Transaction) DecodeRLP(s *rlp.Stream) error {
	var dec rlpTransaction
	if err := s.Decode(&dec); err != nil {
		return err
	}
	tx.Nonce, tx.GasPrice, tx.Gas = dec.Nonce, dec.GasPrice, dec.Gas
	tx.To, tx.Value, tx.Data = dec.To, dec.Value, dec.Data
	tx.V, tx.R, tx.S = dec.V, dec.R, dec.S
	return nil
}

// Hash returns the Keccak256 hash of the RLP-encoded transaction, cached
// after first computation.
func (tx *Transaction) Hash() Hash {
	if cached := tx.hash.Load(); cached != nil {
		return *cached
	}
	enc, err := rlp.EncodeToBytes(tx)
	if err != nil {
		return Hash{}
	}
	h := crypto.Keccak256Hash(enc)
	hh := Hash(h)
	tx.hash.Store(&hh)
	return hh
}

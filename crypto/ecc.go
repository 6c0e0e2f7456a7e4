// Package crypto wraps the secp256k1 and Keccak-256 primitives the RLPx
// handshake is built on. It is a thin layer over github.com/ethereum/go-ethereum/crypto
// so the rest of this module works with a fixed 64-byte public key
// representation instead of juggling *ecdsa.PublicKey everywhere, the way
// silkworm's sentry/common/ecc_public_key.cpp does for the C++ original.
package crypto

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// PublicKeySize is the length, in bytes, of the unprefixed X||Y public key
// representation this package stores internally.
const PublicKeySize = 64

var (
	// ErrInvalidPublicKey is returned when a public key fails to parse in
	// either 64-byte raw or 65-byte prefixed form.
	ErrInvalidPublicKey = errors.New("crypto: invalid public key encoding")
)

// PublicKey is a secp256k1 public key, stored internally as the unprefixed
// 64-byte X||Y concatenation regardless of which wire form it was
// deserialized from.
type PublicKey struct {
	raw [PublicKeySize]byte
}

// NewPublicKeyFromECDSA builds a PublicKey from a stdlib public key.
func NewPublicKeyFromECDSA(pub *ecdsa.PublicKey) PublicKey {
	var pk PublicKey
	full := gethcrypto.FromECDSAPub(pub) // 65 bytes: 0x04 || X || Y
	copy(pk.raw[:], full[1:])
	return pk
}

// ParsePublicKey parses a public key from either its 65-byte standard form
// (0x04 || X || Y) or its 64-byte raw form (X || Y).
func ParsePublicKey(data []byte) (PublicKey, error) {
	var pk PublicKey
	switch len(data) {
	case PublicKeySize:
		copy(pk.raw[:], data)
	case PublicKeySize + 1:
		if data[0] != 0x04 {
			return pk, ErrInvalidPublicKey
		}
		copy(pk.raw[:], data[1:])
	default:
		return pk, ErrInvalidPublicKey
	}
	// Validate the point lies on the curve by round-tripping through ECDSA.
	if _, err := pk.ecdsa(); err != nil {
		return pk, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return pk, nil
}

// SerializeStandard returns the 65-byte 0x04 || X || Y encoding.
func (pk PublicKey) SerializeStandard() []byte {
	out := make([]byte, PublicKeySize+1)
	out[0] = 0x04
	copy(out[1:], pk.raw[:])
	return out
}

// SerializeRaw returns the 64-byte X || Y encoding.
func (pk PublicKey) SerializeRaw() []byte {
	out := make([]byte, PublicKeySize)
	copy(out, pk.raw[:])
	return out
}

// Hex returns the hex encoding of the raw (64-byte) form.
func (pk PublicKey) Hex() string {
	return hex.EncodeToString(pk.raw[:])
}

// IsZero reports whether the key is the zero value (never a valid point).
func (pk PublicKey) IsZero() bool {
	return pk.raw == [PublicKeySize]byte{}
}

func (pk PublicKey) ecdsa() (*ecdsa.PublicKey, error) {
	return gethcrypto.UnmarshalPubkey(pk.SerializeStandard())
}

// KeyPair owns a secp256k1 private key and its derived public key.
type KeyPair struct {
	Private *ecdsa.PrivateKey
	Public  PublicKey
}

// GenerateKeyPair draws a fresh key pair from the process CSPRNG.
func GenerateKeyPair() (KeyPair, error) {
	priv, err := gethcrypto.GenerateKey()
	if err != nil {
		return KeyPair{}, fmt.Errorf("crypto: generate key pair: %w", err)
	}
	return KeyPair{Private: priv, Public: NewPublicKeyFromECDSA(&priv.PublicKey)}, nil
}

// ComputeSharedSecret performs secp256k1 ECDH and returns the 32-byte
// X-coordinate of peerPub * priv, per §4.1.
func ComputeSharedSecret(peerPub PublicKey, priv *ecdsa.PrivateKey) ([]byte, error) {
	pub, err := peerPub.ecdsa()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	x, _ := pub.Curve.ScalarMult(pub.X, pub.Y, priv.D.Bytes())
	if x.Sign() == 0 {
		return nil, errors.New("crypto: ECDH produced point at infinity")
	}
	shared := make([]byte, 32)
	xb := x.Bytes()
	copy(shared[32-len(xb):], xb)
	return shared, nil
}

// Sign produces a 65-byte recoverable ECDSA signature (r||s||v) over a
// 32-byte hash.
func Sign(hash []byte, priv *ecdsa.PrivateKey) ([]byte, error) {
	return gethcrypto.Sign(hash, priv)
}

// RecoverPublicKey recovers the signer's public key from a recoverable
// signature and the hash it was computed over.
func RecoverPublicKey(hash, sig []byte) (PublicKey, error) {
	pub, err := gethcrypto.SigToPub(hash, sig)
	if err != nil {
		return PublicKey{}, fmt.Errorf("crypto: recover public key: %w", err)
	}
	return NewPublicKeyFromECDSA(pub), nil
}

// RandomBytes fills and returns n cryptographically random bytes.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("crypto: read random bytes: %w", err)
	}
	return b, nil
}

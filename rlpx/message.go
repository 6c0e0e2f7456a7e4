// Package rlpx implements the Ethereum devp2p RLPx v4 authenticated
// handshake: Auth/AuthAck message construction and parsing, the initiator
// and recipient handshake flows, and session-secret derivation.
package rlpx

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/silkwormgo/sentry/crypto"
)

// Version is the RLPx protocol version this package speaks.
const Version = 4

var (
	// ErrAuthDecodeError is returned when the decrypted Auth/AuthAck
	// payload fails to RLP-decode.
	ErrAuthDecodeError = errors.New("rlpx: auth message decode error")
	// ErrAuthSigInvalid is returned when the embedded signature fails to
	// recover a consistent ephemeral public key.
	ErrAuthSigInvalid = errors.New("rlpx: auth signature invalid")
)

// sizePrefixLen is the length of the big-endian u16 size prefix that
// precedes every Auth/AuthAck envelope on the wire.
const sizePrefixLen = 2

// rlpAuthBody is the plaintext RLP shape of an Auth message, per §4.2/§6.
type rlpAuthBody struct {
	Signature     [65]byte
	InitiatorPub  [64]byte
	Nonce         [32]byte
	Version       uint
}

// rlpAuthAckBody is the plaintext RLP shape of an AuthAck message.
type rlpAuthAckBody struct {
	EphemeralPub [64]byte
	Nonce        [32]byte
	Version      uint
}

// AuthMessage is the RLPx v4 plain initiator payload.
type AuthMessage struct {
	Signature    [65]byte
	InitiatorPub crypto.PublicKey
	Nonce        [32]byte
	Version      uint
}

// AuthAckMessage is the RLPx v4 recipient reply payload.
type AuthAckMessage struct {
	EphemeralPub crypto.PublicKey
	Nonce        [32]byte
	Version      uint
}

// NewAuthMessage builds the Auth message an initiator sends to begin a
// handshake with recipientPub, following §4.2 step by step: a fresh
// ephemeral keypair, ECDH with the recipient's static key, a random
// nonce, and a recoverable ECDSA signature over shared XOR nonce.
func NewAuthMessage(initiatorPub crypto.PublicKey, recipientPub crypto.PublicKey) (msg AuthMessage, ephemeral crypto.KeyPair, err error) {
	ephemeral, err = crypto.GenerateKeyPair()
	if err != nil {
		return AuthMessage{}, crypto.KeyPair{}, fmt.Errorf("rlpx: new auth message: %w", err)
	}

	shared, err := crypto.ComputeSharedSecret(recipientPub, ephemeral.Private)
	if err != nil {
		return AuthMessage{}, crypto.KeyPair{}, fmt.Errorf("rlpx: new auth message: %w", err)
	}

	var nonce [32]byte
	nb, err := crypto.RandomBytes(32)
	if err != nil {
		return AuthMessage{}, crypto.KeyPair{}, fmt.Errorf("rlpx: new auth message: %w", err)
	}
	copy(nonce[:], nb)

	signed := xorBytes(shared, nonce[:])
	sig, err := crypto.Sign(signed, ephemeral.Private)
	if err != nil {
		return AuthMessage{}, crypto.KeyPair{}, fmt.Errorf("rlpx: new auth message: sign: %w", err)
	}

	msg = AuthMessage{Nonce: nonce, InitiatorPub: initiatorPub, Version: Version}
	copy(msg.Signature[:], sig)
	return msg, ephemeral, nil
}

// Encode ECIES-encrypts the Auth message under the recipient's static
// public key and prepends the u16 size prefix, per §6's wire layout.
func (msg AuthMessage) Encode(recipientPub crypto.PublicKey) ([]byte, error) {
	body := rlpAuthBody{
		Signature:    msg.Signature,
		InitiatorPub: rawPub(msg.InitiatorPub),
		Nonce:        msg.Nonce,
		Version:      msg.Version,
	}
	plain, err := rlp.EncodeToBytes(body)
	if err != nil {
		return nil, fmt.Errorf("rlpx: encode auth body: %w", err)
	}
	return eciesEncode(plain, recipientPub)
}

// ParseAuthMessage decrypts and decodes an Auth message addressed to
// recipientPriv, recovering the sender's ephemeral public key from the
// embedded signature per §4.2.
func ParseAuthMessage(frame []byte, recipientKeys crypto.KeyPair) (AuthMessage, crypto.PublicKey, error) {
	plain, err := eciesDecode(frame, recipientKeys.Private)
	if err != nil {
		return AuthMessage{}, crypto.PublicKey{}, err
	}

	// Decode the leading RLP value only; the block-size padding follows it.
	var body rlpAuthBody
	if err := rlp.NewStream(bytes.NewReader(plain), 0).Decode(&body); err != nil {
		return AuthMessage{}, crypto.PublicKey{}, fmt.Errorf("%w: %v", ErrAuthDecodeError, err)
	}

	initiatorPub, err := crypto.ParsePublicKey(body.InitiatorPub[:])
	if err != nil {
		return AuthMessage{}, crypto.PublicKey{}, fmt.Errorf("%w: %v", ErrAuthDecodeError, err)
	}

	shared, err := crypto.ComputeSharedSecret(initiatorPub, recipientKeys.Private)
	if err != nil {
		return AuthMessage{}, crypto.PublicKey{}, fmt.Errorf("%w: %v", ErrAuthSigInvalid, err)
	}
	signed := xorBytes(shared, body.Nonce[:])

	ephemeralPub, err := crypto.RecoverPublicKey(signed, body.Signature[:])
	if err != nil {
		return AuthMessage{}, crypto.PublicKey{}, fmt.Errorf("%w: %v", ErrAuthSigInvalid, err)
	}

	msg := AuthMessage{Signature: body.Signature, InitiatorPub: initiatorPub, Nonce: body.Nonce, Version: body.Version}
	return msg, ephemeralPub, nil
}

// NewAuthAckMessage builds the recipient's reply, echoing back its own
// ephemeral public key and a fresh nonce, per §4.2.
func NewAuthAckMessage(ephemeralPubLocal crypto.PublicKey) (AuthAckMessage, error) {
	var nonce [32]byte
	nb, err := crypto.RandomBytes(32)
	if err != nil {
		return AuthAckMessage{}, fmt.Errorf("rlpx: new auth-ack message: %w", err)
	}
	copy(nonce[:], nb)
	return AuthAckMessage{EphemeralPub: ephemeralPubLocal, Nonce: nonce, Version: Version}, nil
}

// Encode ECIES-encrypts the AuthAck message under the initiator's static
// public key and prepends the u16 size prefix.
func (msg AuthAckMessage) Encode(initiatorPub crypto.PublicKey) ([]byte, error) {
	body := rlpAuthAckBody{
		EphemeralPub: rawPub(msg.EphemeralPub),
		Nonce:        msg.Nonce,
		Version:      msg.Version,
	}
	plain, err := rlp.EncodeToBytes(body)
	if err != nil {
		return nil, fmt.Errorf("rlpx: encode auth-ack body: %w", err)
	}
	return eciesEncode(plain, initiatorPub)
}

// ParseAuthAckMessage decrypts and decodes an AuthAck message addressed
// to initiatorPriv.
func ParseAuthAckMessage(frame []byte, initiatorPriv crypto.KeyPair) (AuthAckMessage, error) {
	plain, err := eciesDecode(frame, initiatorPriv.Private)
	if err != nil {
		return AuthAckMessage{}, err
	}

	var body rlpAuthAckBody
	if err := rlp.NewStream(bytes.NewReader(plain), 0).Decode(&body); err != nil {
		return AuthAckMessage{}, fmt.Errorf("%w: %v", ErrAuthDecodeError, err)
	}

	ephemeralPub, err := crypto.ParsePublicKey(body.EphemeralPub[:])
	if err != nil {
		return AuthAckMessage{}, fmt.Errorf("%w: %v", ErrAuthDecodeError, err)
	}

	return AuthAckMessage{EphemeralPub: ephemeralPub, Nonce: body.Nonce, Version: body.Version}, nil
}

func rawPub(pk crypto.PublicKey) [64]byte {
	var out [64]byte
	copy(out[:], pk.SerializeRaw())
	return out
}

func xorBytes(a, b []byte) []byte {
	out := make([]byte, len(a))
	for i := range out {
		out[i] = a[i] ^ b[i%len(b)]
	}
	return out
}

// eciesEncode pads the plaintext to the AES block size, ECIES-encrypts it
// under recipientPub, and assembles the full wire frame: u16 size prefix
// followed by ephemeral_pub(65) || iv(16) || ciphertext || mac(32). The
// size prefix itself is the MAC's associated data, per §4.1/§6.
func eciesEncode(plain []byte, recipientPub crypto.PublicKey) ([]byte, error) {
	padded := make([]byte, crypto.RoundUpToBlockSize(len(plain)))
	copy(padded, plain)

	ephemeral, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("rlpx: ecies encode: %w", err)
	}
	shared, err := crypto.ComputeSharedSecret(recipientPub, ephemeral.Private)
	if err != nil {
		return nil, fmt.Errorf("rlpx: ecies encode: %w", err)
	}

	ephemeralStd := ephemeral.Public.SerializeStandard() // 65 bytes
	totalSize := len(ephemeralStd) + 16 + len(padded) + 32

	var sizePrefix [sizePrefixLen]byte
	binary.BigEndian.PutUint16(sizePrefix[:], uint16(totalSize))

	iv, ct, tag, err := crypto.EciesEncrypt(shared, padded, sizePrefix[:])
	if err != nil {
		return nil, fmt.Errorf("rlpx: ecies encode: %w", err)
	}

	out := make([]byte, 0, sizePrefixLen+totalSize)
	out = append(out, sizePrefix[:]...)
	out = append(out, ephemeralStd...)
	out = append(out, iv...)
	out = append(out, ct...)
	out = append(out, tag...)
	return out, nil
}

// eciesDecode reverses eciesEncode given the full wire frame (including
// its size prefix) and the recipient's static private key.
func eciesDecode(frame []byte, recipientPriv *ecdsa.PrivateKey) ([]byte, error) {
	if len(frame) < sizePrefixLen+65+16+32 {
		return nil, fmt.Errorf("rlpx: ecies decode: %w", io.ErrUnexpectedEOF)
	}

	sizePrefix := frame[:sizePrefixLen]
	size := binary.BigEndian.Uint16(sizePrefix)
	if int(size) != len(frame)-sizePrefixLen {
		return nil, fmt.Errorf("rlpx: ecies decode: size prefix mismatch")
	}

	body := frame[sizePrefixLen:]
	ephemeralStd := body[:65]
	iv := body[65 : 65+16]
	tag := body[len(body)-32:]
	ct := body[65+16 : len(body)-32]

	ephemeralPub, err := crypto.ParsePublicKey(ephemeralStd)
	if err != nil {
		return nil, fmt.Errorf("rlpx: ecies decode: %w", err)
	}

	shared, err := crypto.ComputeSharedSecret(ephemeralPub, recipientPriv)
	if err != nil {
		return nil, fmt.Errorf("rlpx: ecies decode: %w", err)
	}

	plain, err := crypto.EciesDecrypt(shared, iv, ct, tag, sizePrefix)
	if err != nil {
		return nil, err
	}
	return plain, nil
}

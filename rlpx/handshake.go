package rlpx

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/silkwormgo/sentry/crypto"
)

// HandshakeTimeout is the per-phase deadline applied to every read/write
// and to the Hello exchange, per §4.3.
const HandshakeTimeout = 5 * time.Second

// ErrHandshakeFailed is the single opaque error surfaced to callers for
// any crypto or decode failure during the handshake, per §7: no detail
// about which stage failed is leaked beyond this point.
var ErrHandshakeFailed = fmt.Errorf("rlpx: handshake failed")

// Socket is the byte-stream transport the handshake drives. A *net.TCPConn
// (or any io.ReadWriteCloser with an independent deadline-free read/write
// pair) satisfies it; the handshake never issues more than one outstanding
// read and one outstanding write at a time, per §5. Per §4.3/§5, any
// timeout, short read, MAC failure, or RLP failure aborts the handshake and
// closes sock; DoInitiator and DoRecipient close it on every error path.
type Socket interface {
	io.Reader
	io.Writer
	io.Closer
}

// Handshake drives one RLPx v4 authenticated handshake to completion,
// either as initiator or recipient.
type Handshake struct {
	LocalKeys crypto.KeyPair
	ClientID  string
}

// DoInitiator performs the initiator flow of §4.3: send Auth, read
// AuthAck, derive secrets, exchange Hello.
func (h *Handshake) DoInitiator(ctx context.Context, sock Socket, peerStaticPub crypto.PublicKey) (SessionSecrets, HelloMessage, error) {
	authMsg, ephemeral, err := NewAuthMessage(h.LocalKeys.Public, peerStaticPub)
	if err != nil {
		log.Debug("rlpx: build auth message failed", "err", err)
		sock.Close()
		return SessionSecrets{}, HelloMessage{}, ErrHandshakeFailed
	}

	authFrame, err := authMsg.Encode(peerStaticPub)
	if err != nil {
		log.Debug("rlpx: encode auth message failed", "err", err)
		sock.Close()
		return SessionSecrets{}, HelloMessage{}, ErrHandshakeFailed
	}

	if err := withTimeout(ctx, HandshakeTimeout, func(ctx context.Context) error {
		return writeAll(sock, authFrame)
	}); err != nil {
		log.Debug("rlpx: send auth message failed", "err", err)
		sock.Close()
		return SessionSecrets{}, HelloMessage{}, wrapHandshakeErr(err)
	}

	var authAckFrame []byte
	if err := withTimeout(ctx, HandshakeTimeout, func(ctx context.Context) error {
		var readErr error
		authAckFrame, readErr = readSizedFrame(sock)
		return readErr
	}); err != nil {
		log.Debug("rlpx: read auth-ack message failed", "err", err)
		sock.Close()
		return SessionSecrets{}, HelloMessage{}, wrapHandshakeErr(err)
	}

	authAck, err := ParseAuthAckMessage(authAckFrame, h.LocalKeys)
	if err != nil {
		log.Debug("rlpx: parse auth-ack message failed", "err", err)
		sock.Close()
		return SessionSecrets{}, HelloMessage{}, ErrHandshakeFailed
	}

	ephemeralShared, err := crypto.ComputeSharedSecret(authAck.EphemeralPub, ephemeral.Private)
	if err != nil {
		log.Debug("rlpx: ephemeral ecdh failed", "err", err)
		sock.Close()
		return SessionSecrets{}, HelloMessage{}, ErrHandshakeFailed
	}
	secrets := deriveSessionSecrets(authMsg.Nonce[:], authAck.Nonce[:], ephemeralShared, authFrame, authAckFrame, true)

	peerHello, err := h.exchangeHello(ctx, sock)
	if err != nil {
		return SessionSecrets{}, HelloMessage{}, err
	}
	return secrets, peerHello, nil
}

// DoRecipient performs the recipient flow of §4.3: receive Auth, send
// AuthAck, derive secrets, exchange Hello.
func (h *Handshake) DoRecipient(ctx context.Context, sock Socket) (SessionSecrets, HelloMessage, error) {
	var authFrame []byte
	if err := withTimeout(ctx, HandshakeTimeout, func(ctx context.Context) error {
		var readErr error
		authFrame, readErr = readSizedFrame(sock)
		return readErr
	}); err != nil {
		log.Debug("rlpx: read auth message failed", "err", err)
		sock.Close()
		return SessionSecrets{}, HelloMessage{}, wrapHandshakeErr(err)
	}

	authMsg, ephemeralPeerPub, err := ParseAuthMessage(authFrame, h.LocalKeys)
	if err != nil {
		log.Debug("rlpx: parse auth message failed", "err", err)
		sock.Close()
		return SessionSecrets{}, HelloMessage{}, ErrHandshakeFailed
	}

	localEphemeral, err := crypto.GenerateKeyPair()
	if err != nil {
		log.Debug("rlpx: generate ephemeral key failed", "err", err)
		sock.Close()
		return SessionSecrets{}, HelloMessage{}, ErrHandshakeFailed
	}

	authAckMsg, err := NewAuthAckMessage(localEphemeral.Public)
	if err != nil {
		log.Debug("rlpx: build auth-ack message failed", "err", err)
		sock.Close()
		return SessionSecrets{}, HelloMessage{}, ErrHandshakeFailed
	}

	authAckFrame, err := authAckMsg.Encode(authMsg.InitiatorPub)
	if err != nil {
		log.Debug("rlpx: encode auth-ack message failed", "err", err)
		sock.Close()
		return SessionSecrets{}, HelloMessage{}, ErrHandshakeFailed
	}

	if err := withTimeout(ctx, HandshakeTimeout, func(ctx context.Context) error {
		return writeAll(sock, authAckFrame)
	}); err != nil {
		log.Debug("rlpx: send auth-ack message failed", "err", err)
		sock.Close()
		return SessionSecrets{}, HelloMessage{}, wrapHandshakeErr(err)
	}

	ephemeralShared, err := crypto.ComputeSharedSecret(ephemeralPeerPub, localEphemeral.Private)
	if err != nil {
		log.Debug("rlpx: ephemeral ecdh failed", "err", err)
		sock.Close()
		return SessionSecrets{}, HelloMessage{}, ErrHandshakeFailed
	}
	secrets := deriveSessionSecrets(authMsg.Nonce[:], authAckMsg.Nonce[:], ephemeralShared, authFrame, authAckFrame, false)

	peerHello, err := h.exchangeHello(ctx, sock)
	if err != nil {
		return SessionSecrets{}, HelloMessage{}, err
	}
	return secrets, peerHello, nil
}

// exchangeHello sends the local Hello and reads the peer's, both under one
// 5s budget via the a && b parallel-group idiom of §5/§9: both must
// succeed, and the first failure aborts the other.
func (h *Handshake) exchangeHello(ctx context.Context, sock Socket) (HelloMessage, error) {
	local := HelloMessage{
		ProtocolVersion: Version,
		ClientID:        h.ClientID,
		Capabilities:    nil,
		ListenPort:      0,
		NodeID:          rawPub(h.LocalKeys.Public),
	}

	var peer HelloMessage
	err := withTimeout(ctx, HandshakeTimeout, func(ctx context.Context) error {
		return runParallel(ctx,
			func(ctx context.Context) error {
				enc, err := rlp.EncodeToBytes(local)
				if err != nil {
					return err
				}
				// The real RLPx frame codec (length header, Keccak frame MAC,
				// optional snappy) is out of scope; a bare u16 length prefix
				// delimits this one RLP-encoded Hello instead.
				var prefix [sizePrefixLen]byte
				binary.BigEndian.PutUint16(prefix[:], uint16(len(enc)))
				return writeAll(sock, append(prefix[:], enc...))
			},
			func(ctx context.Context) error {
				frame, err := readSizedFrame(sock)
				if err != nil {
					return err
				}
				return rlp.DecodeBytes(frame[sizePrefixLen:], &peer)
			},
		)
	})
	if err != nil {
		log.Debug("rlpx: hello exchange failed", "err", err)
		sock.Close()
		return HelloMessage{}, wrapHandshakeErr(err)
	}
	return peer, nil
}

func wrapHandshakeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTimeoutExpired) {
		return ErrTimeoutExpired
	}
	return ErrHandshakeFailed
}

func writeAll(w io.Writer, b []byte) error {
	n, err := w.Write(b)
	if err != nil {
		return err
	}
	if n != len(b) {
		return io.ErrShortWrite
	}
	return nil
}

// readSizedFrame reads a u16 big-endian size prefix followed by exactly
// that many bytes, returning the whole frame (prefix included) the way
// Auth/AuthAck are framed on the wire per §6.
func readSizedFrame(r io.Reader) ([]byte, error) {
	var prefix [sizePrefixLen]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint16(prefix[:])
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return append(prefix[:], body...), nil
}

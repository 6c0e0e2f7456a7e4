package rlpx

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/silkwormgo/sentry/crypto"
)

// pipeSocket adapts a net.Conn half to the Socket interface; net.Pipe
// conns already satisfy it directly, this alias documents the intent at
// call sites.
type pipeSocket = net.Conn

func newSocketPair() (pipeSocket, pipeSocket) {
	return net.Pipe()
}

func TestHandshakeRoundTrip(t *testing.T) {
	initiatorKeys, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair(initiator): %v", err)
	}
	recipientKeys, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair(recipient): %v", err)
	}

	initSock, recvSock := newSocketPair()
	defer initSock.Close()
	defer recvSock.Close()

	type result struct {
		secrets SessionSecrets
		hello   HelloMessage
		err     error
	}
	initCh := make(chan result, 1)
	recvCh := make(chan result, 1)

	go func() {
		h := &Handshake{LocalKeys: initiatorKeys, ClientID: "sentry-test/initiator"}
		secrets, hello, err := h.DoInitiator(context.Background(), initSock, recipientKeys.Public)
		initCh <- result{secrets, hello, err}
	}()
	go func() {
		h := &Handshake{LocalKeys: recipientKeys, ClientID: "sentry-test/recipient"}
		secrets, hello, err := h.DoRecipient(context.Background(), recvSock)
		recvCh <- result{secrets, hello, err}
	}()

	var initRes, recvRes result
	select {
	case initRes = <-initCh:
	case <-time.After(2 * time.Second):
		t.Fatal("initiator side timed out")
	}
	select {
	case recvRes = <-recvCh:
	case <-time.After(2 * time.Second):
		t.Fatal("recipient side timed out")
	}

	if initRes.err != nil {
		t.Fatalf("initiator handshake failed: %v", initRes.err)
	}
	if recvRes.err != nil {
		t.Fatalf("recipient handshake failed: %v", recvRes.err)
	}

	if string(initRes.secrets.AESSecret) != string(recvRes.secrets.AESSecret) {
		t.Fatalf("aes_secret mismatch: %x != %x", initRes.secrets.AESSecret, recvRes.secrets.AESSecret)
	}
	if string(initRes.secrets.MACSecret) != string(recvRes.secrets.MACSecret) {
		t.Fatalf("mac_secret mismatch: %x != %x", initRes.secrets.MACSecret, recvRes.secrets.MACSecret)
	}
	// The initiator's egress MAC is the recipient's ingress MAC, and vice
	// versa: both sides agree on the same pair of directional seeds.
	if string(initRes.secrets.EgressMAC) != string(recvRes.secrets.IngressMAC) {
		t.Fatalf("initiator egress MAC != recipient ingress MAC")
	}
	if string(initRes.secrets.IngressMAC) != string(recvRes.secrets.EgressMAC) {
		t.Fatalf("initiator ingress MAC != recipient egress MAC")
	}

	if recvRes.hello.ClientID != "sentry-test/initiator" {
		t.Errorf("recipient saw ClientID %q, want sentry-test/initiator", recvRes.hello.ClientID)
	}
	if initRes.hello.ClientID != "sentry-test/recipient" {
		t.Errorf("initiator saw ClientID %q, want sentry-test/recipient", initRes.hello.ClientID)
	}
}

func TestParseAuthMessageTamperedByteFails(t *testing.T) {
	initiatorKeys, _ := crypto.GenerateKeyPair()
	recipientKeys, _ := crypto.GenerateKeyPair()

	authMsg, _, err := NewAuthMessage(initiatorKeys.Public, recipientKeys.Public)
	if err != nil {
		t.Fatalf("NewAuthMessage: %v", err)
	}
	frame, err := authMsg.Encode(recipientKeys.Public)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	frame[len(frame)-1] ^= 0x01 // flip a byte inside the MAC itself
	if _, _, err := ParseAuthMessage(frame, recipientKeys); err == nil {
		t.Fatal("expected ParseAuthMessage to fail on tampered frame")
	}
}

func TestHandshakeTimeoutWhenPeerSilent(t *testing.T) {
	initiatorKeys, _ := crypto.GenerateKeyPair()
	recipientKeys, _ := crypto.GenerateKeyPair()

	clientConn, serverConn := newSocketPair()
	defer clientConn.Close()
	defer serverConn.Close()

	// Drain whatever the initiator sends but never reply, to force the
	// initiator's AuthAck read to time out.
	go io.Copy(io.Discard, serverConn)

	h := &Handshake{LocalKeys: initiatorKeys, ClientID: "sentry-test/initiator"}
	ctx, cancel := context.WithTimeout(context.Background(), HandshakeTimeout+2*time.Second)
	defer cancel()

	start := time.Now()
	_, _, err := h.DoInitiator(ctx, clientConn, recipientKeys.Public)
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected handshake to fail when recipient never replies")
	}
	if elapsed > HandshakeTimeout+time.Second {
		t.Fatalf("handshake took %v, expected to fail around the %v timeout", elapsed, HandshakeTimeout)
	}
}

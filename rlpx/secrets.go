package rlpx

import "github.com/silkwormgo/sentry/crypto"

// SessionSecrets holds the keys derived at the end of a successful
// handshake, per §4.4. The framing layer that would consume AESSecret /
// MACSecret for AES-256-CTR and the Keccak-based frame MAC is out of this
// module's scope; this struct is the handshake's complete output.
type SessionSecrets struct {
	SharedSecret []byte
	AESSecret    []byte
	MACSecret    []byte
	IngressMAC   []byte
	EgressMAC    []byte
}

// deriveSessionSecrets implements §4.4 exactly: given both nonces, the
// ephemeral ECDH secret, the raw bytes of the initiator's Auth frame and
// the recipient's AuthAck frame (as actually placed on the wire), compute
// the chained keccak256 secrets and the two MAC seeds.
//
// isInitiator selects which side's nonce seeds which MAC: each side's
// egress MAC binds the nonce the *other* party generated and the bytes
// this side sent, and its ingress MAC binds its own nonce and the bytes
// the *other* party sent.
func deriveSessionSecrets(initiatorNonce, recipientNonce, ephemeralShared, authFrame, authAckFrame []byte, isInitiator bool) SessionSecrets {
	sharedSecret := crypto.Keccak256(ephemeralShared, crypto.Keccak256(recipientNonce, initiatorNonce))
	aesSecret := crypto.Keccak256(ephemeralShared, sharedSecret)
	macSecret := crypto.Keccak256(ephemeralShared, aesSecret)

	// Initiator's ingress MAC seed = keccak256(mac_secret XOR
	// initiator_nonce), updated with the raw recipient auth-ack bytes.
	ingressSeed := crypto.Keccak256(xorBytes(macSecret, initiatorNonce))
	// Initiator's egress MAC seed = keccak256(mac_secret XOR
	// recipient_nonce), updated with the raw initiator auth bytes.
	egressSeed := crypto.Keccak256(xorBytes(macSecret, recipientNonce))

	// From the initiator's point of view ingress is "what the recipient
	// sent" (the auth-ack) and egress is "what I sent" (the auth). From
	// the recipient's point of view it is the mirror image.
	var ingressMAC, egressMAC []byte
	if isInitiator {
		ingressMAC = crypto.Keccak256(ingressSeed, authAckFrame)
		egressMAC = crypto.Keccak256(egressSeed, authFrame)
	} else {
		ingressMAC = crypto.Keccak256(egressSeed, authFrame)
		egressMAC = crypto.Keccak256(ingressSeed, authAckFrame)
	}

	return SessionSecrets{
		SharedSecret: sharedSecret,
		AESSecret:    aesSecret,
		MACSecret:    macSecret,
		IngressMAC:   ingressMAC,
		EgressMAC:    egressMAC,
	}
}

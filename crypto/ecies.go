package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrEciesAuthFailed is returned by Decrypt when the MAC over the
// ciphertext (and associated data) does not match, per §4.1.
var ErrEciesAuthFailed = errors.New("crypto: ecies mac mismatch")

const (
	aesKeyLen  = 16 // AES-128
	macKeyLen  = 32 // HMAC-SHA256 key length
	kdfKeyLen  = aesKeyLen + macKeyLen
	ivLen      = aes.BlockSize
	blockSize  = aes.BlockSize
)

// RoundUpToBlockSize rounds n up to the next multiple of the AES block size,
// matching the padding silkworm's ECIES layer applies before deriving the
// size-prefix used as associated data for the auth-ack MAC (§4.1, §4.2).
func RoundUpToBlockSize(n int) int {
	if n%blockSize == 0 {
		return n
	}
	return n + (blockSize - n%blockSize)
}

// concatKDF implements NIST SP 800-56 Concatenation KDF with SHA-256, as
// used by go-ethereum's ECIES implementation: repeatedly hash a 4-byte
// big-endian counter, the shared secret, and any shared info, until
// enough key material has been produced.
func concatKDF(sharedSecret []byte, keyLen int) []byte {
	var (
		counter uint32 = 1
		out     []byte
	)
	for len(out) < keyLen {
		var ctr [4]byte
		binary.BigEndian.PutUint32(ctr[:], counter)
		h := sha256.New()
		h.Write(ctr[:])
		h.Write(sharedSecret)
		out = append(out, h.Sum(nil)...)
		counter++
	}
	return out[:keyLen]
}

// deriveKeys runs the shared secret through the concat-KDF and splits the
// result into the AES-128 encryption key and HMAC-SHA256 MAC key.
func deriveKeys(sharedSecret []byte) (encKey, macKey []byte) {
	km := concatKDF(sharedSecret, kdfKeyLen)
	encKey = km[:aesKeyLen]
	// The MAC key is the Keccak256 hash of the KDF's MAC-key half, matching
	// the construction go-ethereum's crypto/ecies package uses.
	macKey = Keccak256(km[aesKeyLen:])
	return encKey, macKey
}

// EciesEncrypt encrypts message under the recipient's ephemeral-derived
// shared secret. sharedMac is the associated data folded into the MAC (the
// outer RLPx auth message's size prefix, per §4.2); it may be nil.
func EciesEncrypt(sharedSecret, message, sharedMac []byte) (iv, ciphertext, tag []byte, err error) {
	encKey, macKey := deriveKeys(sharedSecret)

	iv, err = RandomBytes(ivLen)
	if err != nil {
		return nil, nil, nil, err
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("crypto: ecies new cipher: %w", err)
	}
	stream := cipher.NewCTR(block, iv)
	ciphertext = make([]byte, len(message))
	stream.XORKeyStream(ciphertext, message)

	tag = computeEciesTag(macKey, iv, ciphertext, sharedMac)
	return iv, ciphertext, tag, nil
}

// EciesDecrypt reverses EciesEncrypt, returning ErrEciesAuthFailed if tag
// verification fails.
func EciesDecrypt(sharedSecret, iv, ciphertext, tag, sharedMac []byte) ([]byte, error) {
	encKey, macKey := deriveKeys(sharedSecret)

	want := computeEciesTag(macKey, iv, ciphertext, sharedMac)
	if !hmac.Equal(want, tag) {
		return nil, ErrEciesAuthFailed
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: ecies new cipher: %w", err)
	}
	stream := cipher.NewCTR(block, iv)
	plaintext := make([]byte, len(ciphertext))
	stream.XORKeyStream(plaintext, ciphertext)
	return plaintext, nil
}

func computeEciesTag(macKey, iv, ciphertext, sharedMac []byte) []byte {
	h := hmac.New(sha256.New, macKey)
	h.Write(iv)
	h.Write(ciphertext)
	if len(sharedMac) > 0 {
		h.Write(sharedMac)
	}
	return h.Sum(nil)
}

package crypto

import "testing"

func TestEciesRoundTrip(t *testing.T) {
	shared, err := RandomBytes(32)
	if err != nil {
		t.Fatalf("RandomBytes: %v", err)
	}
	msg := []byte("hello rlpx")
	mac := []byte("associated-data")

	iv, ct, tag, err := EciesEncrypt(shared, msg, mac)
	if err != nil {
		t.Fatalf("EciesEncrypt: %v", err)
	}
	got, err := EciesDecrypt(shared, iv, ct, tag, mac)
	if err != nil {
		t.Fatalf("EciesDecrypt: %v", err)
	}
	if string(got) != string(msg) {
		t.Fatalf("round trip mismatch: got %q want %q", got, msg)
	}
}

func TestEciesTamperedCiphertextFailsAuth(t *testing.T) {
	shared, _ := RandomBytes(32)
	iv, ct, tag, err := EciesEncrypt(shared, []byte("payload"), nil)
	if err != nil {
		t.Fatalf("EciesEncrypt: %v", err)
	}
	ct[0] ^= 0xff

	if _, err := EciesDecrypt(shared, iv, ct, tag, nil); err != ErrEciesAuthFailed {
		t.Fatalf("expected ErrEciesAuthFailed, got %v", err)
	}
}

func TestEciesWrongAssociatedDataFailsAuth(t *testing.T) {
	shared, _ := RandomBytes(32)
	iv, ct, tag, err := EciesEncrypt(shared, []byte("payload"), []byte("size-prefix"))
	if err != nil {
		t.Fatalf("EciesEncrypt: %v", err)
	}
	if _, err := EciesDecrypt(shared, iv, ct, tag, []byte("different-prefix")); err != ErrEciesAuthFailed {
		t.Fatalf("expected ErrEciesAuthFailed, got %v", err)
	}
}

func TestComputeSharedSecretSymmetric(t *testing.T) {
	a, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	b, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	s1, err := ComputeSharedSecret(b.Public, a.Private)
	if err != nil {
		t.Fatalf("ComputeSharedSecret(a): %v", err)
	}
	s2, err := ComputeSharedSecret(a.Public, b.Private)
	if err != nil {
		t.Fatalf("ComputeSharedSecret(b): %v", err)
	}
	if string(s1) != string(s2) {
		t.Fatalf("ECDH shared secrets differ: %x != %x", s1, s2)
	}
}

func TestSignAndRecoverPublicKey(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	hash := Keccak256([]byte("message to sign"))

	sig, err := Sign(hash, kp.Private)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	recovered, err := RecoverPublicKey(hash, sig)
	if err != nil {
		t.Fatalf("RecoverPublicKey: %v", err)
	}
	if recovered.Hex() != kp.Public.Hex() {
		t.Fatalf("recovered key mismatch: got %s want %s", recovered.Hex(), kp.Public.Hex())
	}
}

func TestParsePublicKeyBothForms(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	raw := kp.Public.SerializeRaw()
	std := kp.Public.SerializeStandard()

	fromRaw, err := ParsePublicKey(raw)
	if err != nil {
		t.Fatalf("ParsePublicKey(raw): %v", err)
	}
	fromStd, err := ParsePublicKey(std)
	if err != nil {
		t.Fatalf("ParsePublicKey(std): %v", err)
	}
	if fromRaw.Hex() != kp.Public.Hex() || fromStd.Hex() != kp.Public.Hex() {
		t.Fatalf("parsed keys do not match original")
	}
}

func TestRoundUpToBlockSize(t *testing.T) {
	cases := map[int]int{0: 0, 1: 16, 16: 16, 17: 32, 32: 32}
	for in, want := range cases {
		if got := RoundUpToBlockSize(in); got != want {
			t.Errorf("RoundUpToBlockSize(%d) = %d, want %d", in, got, want)
		}
	}
}

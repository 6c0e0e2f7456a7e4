package crypto

import "testing"

func TestKeccak256MatchesIncrementalState(t *testing.T) {
	data := []byte("the quick brown fox")

	oneShot := Keccak256(data)

	h := NewKeccakState()
	h.Write(data[:10])
	h.Write(data[10:])
	incremental := h.Sum(nil)

	if string(oneShot) != string(incremental) {
		t.Fatalf("one-shot and incremental Keccak256 disagree: %x != %x", oneShot, incremental)
	}
}

func TestKeccak256ConcatenatesArguments(t *testing.T) {
	a := Keccak256([]byte("foo"), []byte("bar"))
	b := Keccak256([]byte("foobar"))
	if string(a) != string(b) {
		t.Fatalf("Keccak256(foo, bar) != Keccak256(foobar): %x != %x", a, b)
	}
}

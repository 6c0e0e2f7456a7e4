package trie

import "testing"

func TestPrefixSetContainsExactAndPrefix(t *testing.T) {
	s := NewPrefixSet()
	s.Insert([]byte{0x1, 0x2, 0x3})
	s.Insert([]byte{0x1, 0x2})
	s.Insert([]byte{0x5})

	cases := []struct {
		prefix []byte
		want   bool
	}{
		{[]byte{0x1}, true},
		{[]byte{0x1, 0x2}, true},
		{[]byte{0x1, 0x2, 0x3}, true},
		{[]byte{0x1, 0x2, 0x3, 0x4}, false},
		{[]byte{0x5}, true},
		{[]byte{0x6}, false},
	}
	for _, c := range cases {
		if got := s.Contains(c.prefix); got != c.want {
			t.Errorf("Contains(%v) = %v, want %v", c.prefix, got, c.want)
		}
	}
}

func TestPrefixSetNonMonotoneQueryResets(t *testing.T) {
	s := NewPrefixSet()
	s.Insert([]byte{0x1})
	s.Insert([]byte{0x5})
	s.Insert([]byte{0x9})

	if !s.Contains([]byte{0x9}) {
		t.Fatal("expected 0x9 to be contained")
	}
	// Non-monotone: go back to a smaller prefix after querying a larger one.
	if !s.Contains([]byte{0x1}) {
		t.Fatal("expected 0x1 to be contained after a non-monotone query")
	}
	if s.Contains([]byte{0x3}) {
		t.Fatal("did not expect 0x3 to be contained")
	}
}

func TestPrefixSetDeduplicates(t *testing.T) {
	s := NewPrefixSet()
	s.Insert([]byte{0x7})
	s.Insert([]byte{0x7})
	s.Insert([]byte{0x7})
	if got := s.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1", got)
	}
}

func TestPrefixSetEmpty(t *testing.T) {
	s := NewPrefixSet()
	if s.Contains([]byte{0x1}) {
		t.Fatal("expected empty set to contain nothing")
	}
}

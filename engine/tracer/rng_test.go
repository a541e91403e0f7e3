package tracer

import (
	"testing"
)

func TestPCGHashDeterministic(t *testing.T) {
	for _, input := range []uint32{0, 1, 42, 1 << 31, ^uint32(0)} {
		if pcgHash(input) != pcgHash(input) {
			t.Fatalf("expected stable hash for input %d", input)
		}
	}
	if pcgHash(1) == pcgHash(2) {
		t.Fatal("expected distinct hashes for adjacent inputs")
	}
}

func TestRNGSequencesDiffer(t *testing.T) {
	// Neighboring pixels and consecutive frames must draw distinct sequences.
	a := newRNGState(10, 10, 0)
	b := newRNGState(11, 10, 0)
	c := newRNGState(10, 10, 1)

	if a == b || a == c || b == c {
		t.Fatal("expected distinct seeds per pixel and frame")
	}
	if a.next() == b.next() {
		t.Fatal("expected neighboring pixels to draw different values")
	}
}

func TestRNGRange(t *testing.T) {
	state := newRNGState(3, 7, 5)
	for i := 0; i < 10000; i++ {
		v := state.next()
		if v < 0 || v > 1 {
			t.Fatalf("draw %d out of [0, 1]: %v", i, v)
		}
	}
}

func TestRNGUniformity(t *testing.T) {
	// Coarse chi-squared style check: 10k draws into 10 buckets should put
	// roughly 1000 in each; a badly biased generator lands far outside.
	state := newRNGState(1, 2, 3)
	var buckets [10]int
	const draws = 10000
	for i := 0; i < draws; i++ {
		idx := int(state.next() * 10)
		if idx > 9 {
			idx = 9
		}
		buckets[idx]++
	}
	for i, count := range buckets {
		if count < 700 || count > 1300 {
			t.Fatalf("bucket %d holds %d of %d draws; expected near-uniform spread", i, count, draws)
		}
	}
}

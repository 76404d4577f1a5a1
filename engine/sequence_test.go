package engine

import (
	"strings"
	"testing"
)

func assertUint16(t testing.TB, got, want uint16) {
	t.Helper()

	if got != want {
		t.Errorf("got: %d, want: %d", got, want)
	}
}

func assertUint16Sequence(t testing.TB, s sequencer, want []uint16) {
	t.Helper()

	for n, wantValue := range want {
		got := s.Advance()
		if got != wantValue {
			t.Errorf("term [%d] got: %d, want: %d", n, got, wantValue)
		}
	}
}

func TestFibonacciTerms(t *testing.T) {
	fib := &fibonacciSeq{}
	fib.Reset()

	assertUint16Sequence(t, fib, []uint16{1, 1, 2, 3, 5, 8, 13, 21, 34, 55, 89, 144})
}

func TestFibonacciWrapsAt16Bits(t *testing.T) {
	fib := &fibonacciSeq{}
	fib.Reset()

	// F(24) = 46368, F(25) = 75025 which exceeds 16 bits
	var value uint16
	for n := 0; n < 25; n++ {
		value = fib.Advance()
	}

	assertUint16(t, value, uint16(75025%65536))
}

func TestPrimeTerms(t *testing.T) {
	prime := &primeSeq{}
	prime.Reset()

	assertUint16Sequence(t, prime, []uint16{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47, 53})

	// the table is exhausted, the 17th advance wraps back to the start
	assertUint16(t, prime.Advance(), 2)
	assertUint16(t, prime.Advance(), 3)
}

func TestSquareTerms(t *testing.T) {
	square := &squareSeq{}
	square.Reset()

	assertUint16Sequence(t, square, []uint16{4, 9, 16, 25, 36, 49, 64, 81, 100})
}

func TestSquareRootRegisterWraps(t *testing.T) {
	square := &squareSeq{}
	square.Reset()

	// 255 advances take the 8-bit root register from 1 to 0
	var value uint16
	for n := 0; n < 255; n++ {
		value = square.Advance()
	}
	assertUint16(t, value, 0)

	assertUint16(t, square.Advance(), 1)
	assertUint16(t, square.Advance(), 4)
}

func TestTriangularTerms(t *testing.T) {
	tri := &triangularSeq{}
	tri.Reset()

	assertUint16Sequence(t, tri, []uint16{3, 6, 10, 15, 21, 28, 36, 45, 55})
}

func TestTriangularIntermediatePrecision(t *testing.T) {
	tri := &triangularSeq{n: 510}

	// n=511: 511*512/2 = 130816, the product must not truncate before
	// the halving step; returned value truncates to 16 bits afterwards
	assertUint16(t, tri.Advance(), uint16(130816%65536))
}

func TestSequencersResetReproducesFirstTerm(t *testing.T) {
	firstTerms := map[SequenceKind]uint16{
		Fibonacci:  1,
		Prime:      2,
		Square:     4,
		Triangular: 3,
	}

	seqs := newSequencers()
	for kind, s := range seqs {
		for n := 0; n < 7; n++ {
			s.Advance()
		}
		s.Reset()
		assertUint16(t, s.Advance(), firstTerms[SequenceKind(kind)])
	}
}

func TestParseSequenceKind(t *testing.T) {
	for _, name := range []string{"fibonacci", "Prime", "SQUARE", "triangular"} {
		kind, err := ParseSequenceKind(name)
		if err != nil {
			t.Errorf("ParseSequenceKind(%s) returned err: %v", name, err)
		}
		if !strings.EqualFold(kind.String(), name) {
			t.Errorf("ParseSequenceKind(%s) got: %s", name, kind)
		}
	}

	_, err := ParseSequenceKind("catalan")
	if err == nil {
		t.Error("got nil error for unknown sequence kind")
	}
}

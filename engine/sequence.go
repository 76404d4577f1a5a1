package engine

import (
	"strings"

	"github.com/pkg/errors"
)

// SequenceKind selects which of the four number sequences drives the blink
// timing. It maps to the two sequence-select input bits.
type SequenceKind uint8

const (
	Fibonacci SequenceKind = iota
	Prime
	Square
	Triangular

	sequenceKindCount = 4
)

func (k SequenceKind) String() string {
	switch k {
	case Fibonacci:
		return "fibonacci"
	case Prime:
		return "prime"
	case Square:
		return "square"
	case Triangular:
		return "triangular"
	}
	return "unknown"
}

func ParseSequenceKind(name string) (SequenceKind, error) {
	for kind := Fibonacci; kind < sequenceKindCount; kind++ {
		if strings.EqualFold(kind.String(), name) {
			return kind, nil
		}
	}

	return Fibonacci, errors.Errorf("unknown sequence kind: %s", name)
}

// sequencer is the common contract of the four generators: Advance produces
// the next term and mutates private state, Reset restores the state from
// which the next Advance reproduces the documented first term
// (fibonacci 1, prime 2, square 4, triangular 3).
//
// All arithmetic wraps silently at the declared register widths.
type sequencer interface {
	Advance() uint16
	Reset()
}

type fibonacciSeq struct {
	a, b uint16
}

func (f *fibonacciSeq) Advance() uint16 {
	next := f.a + f.b
	f.a, f.b = f.b, next
	return next
}

func (f *fibonacciSeq) Reset() {
	f.a, f.b = 0, 1
}

type primeSeq struct {
	index uint8
}

func (p *primeSeq) Advance() uint16 {
	value := primeTable[p.index]
	p.index = (p.index + 1) % primeCount
	return value
}

func (p *primeSeq) Reset() {
	p.index = 0
}

type squareSeq struct {
	root uint8
}

func (s *squareSeq) Advance() uint16 {
	s.root++
	return uint16(s.root) * uint16(s.root)
}

func (s *squareSeq) Reset() {
	s.root = 1
}

type triangularSeq struct {
	n uint16
}

func (t *triangularSeq) Advance() uint16 {
	t.n++
	// product widened before halving, result truncated to 16 bits
	return uint16(uint32(t.n) * (uint32(t.n) + 1) / 2)
}

func (t *triangularSeq) Reset() {
	t.n = 1
}

func newSequencers() [sequenceKindCount]sequencer {
	seqs := [sequenceKindCount]sequencer{
		Fibonacci:  &fibonacciSeq{},
		Prime:      &primeSeq{},
		Square:     &squareSeq{},
		Triangular: &triangularSeq{},
	}
	for _, s := range seqs {
		s.Reset()
	}

	return seqs
}

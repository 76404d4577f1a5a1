package engine

import (
	"strings"

	"github.com/pkg/errors"
)

const (
	// SpeedLevelMax is the highest speed-select value; the counter increment
	// doubles per level: 1, 2, 4, ... 128.
	SpeedLevelMax = 7

	tickCounterBits = 24
	tickCounterMask = 1<<tickCounterBits - 1
	tickCounterMSB  = 1 << (tickCounterBits - 1)
)

// TickPolicy selects how the single-bit tick signal derives from the 24-bit
// counter. The reference netlist asserts tick whenever the counter is
// non-zero, which enables nearly every cycle; the documented intent was a
// strobe on the counter's top bit. Both are supported, non-zero is the
// default for bit-exact compatibility.
type TickPolicy uint8

const (
	TickNonZero TickPolicy = iota
	TickStrobe
)

func (tp TickPolicy) String() string {
	switch tp {
	case TickNonZero:
		return "nonzero"
	case TickStrobe:
		return "strobe"
	}
	return "unknown"
}

func ParseTickPolicy(name string) (TickPolicy, error) {
	if len(name) == 0 {
		return TickNonZero, nil
	}
	for _, tp := range []TickPolicy{TickNonZero, TickStrobe} {
		if strings.EqualFold(tp.String(), name) {
			return tp, nil
		}
	}

	return TickNonZero, errors.Errorf("unknown tick policy: %s", name)
}

// tickGenerator owns the 24-bit free-running counter. It wraps silently,
// no carry out.
type tickGenerator struct {
	policy  TickPolicy
	counter uint32
	prevMSB bool
	tick    bool
}

func (tg *tickGenerator) step(speed uint8) {
	if speed > SpeedLevelMax {
		speed = SpeedLevelMax
	}
	tg.counter = (tg.counter + 1<<speed) & tickCounterMask

	msb := tg.counter&tickCounterMSB != 0
	switch tg.policy {
	case TickStrobe:
		tg.tick = msb && !tg.prevMSB
	default:
		tg.tick = tg.counter != 0
	}
	tg.prevMSB = msb
}

func (tg *tickGenerator) reset() {
	tg.counter = 0
	tg.prevMSB = false
	tg.tick = false
}

package engine

import "testing"

func assertUint32(t testing.TB, got, want uint32) {
	t.Helper()

	if got != want {
		t.Errorf("got: %d, want: %d", got, want)
	}
}

func assertBools(t testing.TB, got, want bool) {
	t.Helper()

	if got != want {
		t.Errorf("got %v want %v", got, want)
	}
}

func TestTickCounterIncrementPerSpeedLevel(t *testing.T) {
	for speed := uint8(0); speed <= SpeedLevelMax; speed++ {
		tg := &tickGenerator{}

		tg.step(speed)
		assertUint32(t, tg.counter, 1<<speed)

		tg.step(speed)
		assertUint32(t, tg.counter, 2<<speed)
	}
}

func TestTickCounterClampsSpeedLevel(t *testing.T) {
	tg := &tickGenerator{}
	tg.step(12)

	assertUint32(t, tg.counter, 1<<SpeedLevelMax)
}

func TestTickCounterWrapsAt24Bits(t *testing.T) {
	tg := &tickGenerator{counter: tickCounterMask}

	tg.step(0)
	assertUint32(t, tg.counter, 0)

	tg = &tickGenerator{counter: tickCounterMask - 2}
	tg.step(3)
	assertUint32(t, tg.counter, 5)
}

func TestTickNonZeroPolicy(t *testing.T) {
	tg := &tickGenerator{policy: TickNonZero}

	tg.step(0)
	assertBools(t, tg.tick, true)

	// wraparound landing exactly on zero is the only cycle without a tick
	tg.counter = tickCounterMask
	tg.step(0)
	assertBools(t, tg.tick, false)

	tg.step(0)
	assertBools(t, tg.tick, true)
}

func TestTickStrobePolicy(t *testing.T) {
	tg := &tickGenerator{policy: TickStrobe}

	// counter below the MSB: no strobe
	tg.step(SpeedLevelMax)
	assertBools(t, tg.tick, false)

	// jump just below the MSB, then cross it
	tg.counter = tickCounterMSB - 1
	tg.step(0)
	assertBools(t, tg.tick, true)

	// MSB stays set: strobe only fires on the rising edge
	tg.step(0)
	assertBools(t, tg.tick, false)

	// wrap clears the MSB, next crossing strobes again
	tg.counter = tickCounterMask
	tg.step(0)
	assertBools(t, tg.tick, false)

	tg.counter = tickCounterMSB - 1
	tg.step(0)
	assertBools(t, tg.tick, true)
}

func TestTickGeneratorReset(t *testing.T) {
	tg := &tickGenerator{}
	tg.step(5)
	tg.step(5)

	tg.reset()
	assertUint32(t, tg.counter, 0)
	assertBools(t, tg.tick, false)
}

func TestParseTickPolicy(t *testing.T) {
	tp, err := ParseTickPolicy("strobe")
	if err != nil {
		t.Errorf("ParseTickPolicy returned err: %v", err)
	}
	if tp != TickStrobe {
		t.Errorf("got: %s, want: strobe", tp)
	}

	tp, err = ParseTickPolicy("")
	if err != nil {
		t.Errorf("ParseTickPolicy of empty name returned err: %v", err)
	}
	if tp != TickNonZero {
		t.Errorf("got: %s, want: nonzero", tp)
	}

	_, err = ParseTickPolicy("sawtooth")
	if err == nil {
		t.Error("got nil error for unknown tick policy")
	}
}

package pulsekit

import (
	"context"
	"testing"

	"github.com/hubertat/pulsekit/drivers"
	"github.com/hubertat/pulsekit/engine"
)

func assertBools(t testing.TB, got, want bool) {
	t.Helper()

	if got != want {
		t.Errorf("got %v want %v", got, want)
	}
}

func assertInts(t testing.TB, got, want int) {
	t.Helper()

	if got != want {
		t.Errorf("got: %d, want: %d", got, want)
	}
}

func makeTestKit(t testing.TB) *PulseKit {
	t.Helper()

	pk := &PulseKit{
		Sequence:      "fibonacci",
		Speed:         7,
		OutputEnabled: true,
		FakeDriver:    &drivers.MockIoDriver{},
	}

	return pk
}

func initTestKit(t testing.TB, pk *PulseKit) {
	t.Helper()

	err := pk.InitEngine()
	if err != nil {
		t.Fatalf("InitEngine returned err: %v", err)
	}
	err = pk.InitDrivers(context.Background())
	if err != nil {
		t.Fatalf("InitDrivers returned err: %v", err)
	}
	err = pk.InitIos()
	if err != nil {
		t.Fatalf("InitIos returned err: %v", err)
	}
}

// runUntilAdvance spins the clock until the engine latches a new value.
func runUntilAdvance(t testing.TB, pk *PulseKit) engine.Snapshot {
	t.Helper()

	const cycleLimit = 1 << 16
	for n := 0; n < cycleLimit; n++ {
		pk.clockCycle()
		snap := pk.Snapshot()
		if snap.NewNumber {
			return snap
		}
	}

	t.Fatal("no advance within cycle limit")
	return engine.Snapshot{}
}

func TestBlinkerInit(t *testing.T) {
	blinker := &Blinker{Name: "test blinker", DriverName: "mock_driver", OutPin: 5}

	md := &drivers.MockIoDriver{}

	err := blinker.Init(md)
	if err == nil {
		t.Error("got nil error when Init with not ready driver")
	}

	md.Setup(context.Background(), []uint16{}, []uint16{5})

	err = blinker.Init(md)
	if err != nil {
		t.Errorf("got error from Blinker Init: %v", err)
	}

	wrongName := &Blinker{Name: "wrong", DriverName: "gpio", OutPin: 5}
	err = wrongName.Init(md)
	if err == nil {
		t.Error("got nil error when Init with mismatched driver")
	}
}

func TestKitBlinksThroughMockDriver(t *testing.T) {
	pk := makeTestKit(t)
	pk.Blinkers = append(pk.Blinkers, &Blinker{Name: "led", DriverName: "mock_driver", OutPin: 1, DisableHomekit: true})
	initTestKit(t, pk)

	ledOut, err := pk.FakeDriver.GetOutput(1)
	if err != nil {
		t.Fatalf("GetOutput returned err: %v", err)
	}

	snap := runUntilAdvance(t, pk)
	assertBools(t, snap.OutputToggle, true)

	state, _ := ledOut.GetState()
	assertBools(t, state, true)

	// the second advance flips the led back off
	snap = runUntilAdvance(t, pk)
	assertBools(t, snap.OutputToggle, false)

	state, _ = ledOut.GetState()
	assertBools(t, state, false)
}

func TestStatusLampFollowsPulseBit(t *testing.T) {
	pk := makeTestKit(t)
	pk.StatusLamps = append(pk.StatusLamps, &StatusLamp{Name: "pulse", DriverName: "mock_driver", OutPin: 3, Signal: "pulse"})
	initTestKit(t, pk)

	lampOut, _ := pk.FakeDriver.GetOutput(3)

	runUntilAdvance(t, pk)
	state, _ := lampOut.GetState()
	assertBools(t, state, true)

	// the pulse lasts a single cycle
	pk.clockCycle()
	state, _ = lampOut.GetState()
	assertBools(t, state, false)
}

func TestStatusLampRejectsUnknownSignal(t *testing.T) {
	pk := makeTestKit(t)
	pk.StatusLamps = append(pk.StatusLamps, &StatusLamp{Name: "bad", DriverName: "mock_driver", OutPin: 3, Signal: "carrier"})

	err := pk.InitEngine()
	if err != nil {
		t.Fatalf("InitEngine returned err: %v", err)
	}
	err = pk.InitDrivers(context.Background())
	if err != nil {
		t.Fatalf("InitDrivers returned err: %v", err)
	}
	err = pk.InitIos()
	if err == nil {
		t.Error("got nil error for unknown status signal")
	}
}

func TestNumberDisplayShowsCurrentNumber(t *testing.T) {
	pk := makeTestKit(t)
	pk.Displays = append(pk.Displays, &NumberDisplay{
		Name:       "bus",
		DriverName: "mock_driver",
		LowPins:    []uint16{10, 11, 12, 13},
		HighPins:   []uint16{20, 21, 22, 23, 24, 25, 26, 27},
	})
	initTestKit(t, pk)

	// fibonacci advances 1, 1, 2, 3, 5
	var snap engine.Snapshot
	for n := 0; n < 5; n++ {
		snap = runUntilAdvance(t, pk)
	}
	assertInts(t, int(snap.CurrentNumber), 5)

	wantLow := []bool{true, false, true, false}
	for n, pin := range []uint16{10, 11, 12, 13} {
		out, _ := pk.FakeDriver.GetOutput(pin)
		state, _ := out.GetState()
		assertBools(t, state, wantLow[n])
	}

	// 5 has no bits above the low nibble
	for _, pin := range []uint16{20, 21, 22, 23, 24, 25, 26, 27} {
		out, _ := pk.FakeDriver.GetOutput(pin)
		state, _ := out.GetState()
		assertBools(t, state, false)
	}
}

func TestKindSelectorDrivesEngine(t *testing.T) {
	pk := makeTestKit(t)
	pk.KindSelectors = append(pk.KindSelectors, &KindSelector{Name: "kind", DriverName: "mock_driver", BitPins: []uint16{4, 5}})
	initTestKit(t, pk)

	// pins read 01: prime
	pk.FakeDriver.SetInput(4, true)
	pk.FakeDriver.SetInput(5, false)

	snap := runUntilAdvance(t, pk)
	assertInts(t, int(snap.Kind), int(engine.Prime))
	assertInts(t, int(snap.CurrentNumber), 2)
}

func TestSpeedSelectorDrivesEngine(t *testing.T) {
	pk := makeTestKit(t)
	pk.SpeedSelectors = append(pk.SpeedSelectors, &SpeedSelector{Name: "speed", DriverName: "mock_driver", BitPins: []uint16{6, 7, 8}})
	initTestKit(t, pk)

	// pins read 101: level 5
	pk.FakeDriver.SetInput(6, true)
	pk.FakeDriver.SetInput(7, false)
	pk.FakeDriver.SetInput(8, true)

	pk.clockCycle()
	assertInts(t, int(pk.Snapshot().Speed), 5)
}

func TestResetButtonHoldsSequenceReset(t *testing.T) {
	pk := makeTestKit(t)
	pk.ResetButtons = append(pk.ResetButtons, &ResetButton{Name: "reset", DriverName: "mock_driver", InPin: 9})
	initTestKit(t, pk)

	for n := 0; n < 4; n++ {
		runUntilAdvance(t, pk)
	}

	pk.FakeDriver.SetInput(9, true)
	for n := 0; n < 3; n++ {
		pk.clockCycle()
		snap := pk.Snapshot()
		assertBools(t, snap.Running, false)
		assertInts(t, int(snap.CurrentNumber), 1)
		assertBools(t, snap.OutputToggle, false)
	}

	// release: the sequence starts over from its first term
	pk.FakeDriver.SetInput(9, false)
	snap := runUntilAdvance(t, pk)
	assertInts(t, int(snap.CurrentNumber), 1)
}

func TestEnableSwitchGatesBlinker(t *testing.T) {
	pk := makeTestKit(t)
	pk.OutputEnabled = false
	pk.Blinkers = append(pk.Blinkers, &Blinker{Name: "led", DriverName: "mock_driver", OutPin: 1, DisableHomekit: true})
	pk.EnableSwitches = append(pk.EnableSwitches, &EnableSwitch{Name: "enable", DriverName: "mock_driver", InPin: 2, DisableHomekit: true})
	initTestKit(t, pk)

	ledOut, _ := pk.FakeDriver.GetOutput(1)

	snap := runUntilAdvance(t, pk)
	assertBools(t, snap.OutputToggle, true)

	// toggle is high internally but the switch keeps the led dark
	state, _ := ledOut.GetState()
	assertBools(t, state, false)

	pk.FakeDriver.SetInput(2, true)
	pk.clockCycle()
	state, _ = ledOut.GetState()
	assertBools(t, state, true)
}

func TestControlsResetPulseIsOneShot(t *testing.T) {
	c := &controls{}
	c.requestReset()

	in := c.inputs()
	assertBools(t, in.ResetRequest, true)

	in = c.inputs()
	assertBools(t, in.ResetRequest, false)
}

func TestApplyControlMessage(t *testing.T) {
	pk := makeTestKit(t)
	initTestKit(t, pk)

	kind := "triangular"
	speed := uint8(2)
	enable := false
	err := pk.applyControlMessage(mqttControlMessage{Kind: &kind, Speed: &speed, Enable: &enable})
	if err != nil {
		t.Errorf("applyControlMessage returned err: %v", err)
	}

	pk.clockCycle()
	snap := pk.Snapshot()
	assertInts(t, int(snap.Kind), int(engine.Triangular))
	assertInts(t, int(snap.Speed), 2)
	assertBools(t, snap.OutputEnable, false)

	badKind := "catalan"
	err = pk.applyControlMessage(mqttControlMessage{Kind: &badKind})
	if err == nil {
		t.Error("got nil error for unknown kind in control message")
	}
}

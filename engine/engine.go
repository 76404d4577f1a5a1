// Package engine implements the clock-driven timing core: four integer
// sequence generators, a speed-scaled tick generator and the controller
// that turns sequence terms into delays between output toggles. The Nth
// term of the selected sequence is the number of ticks the output waits
// before flipping again.
//
// The engine is deterministic and single-writer: one Cycle call equals one
// clock cycle, inputs are sampled fresh on every call, and all arithmetic
// wraps silently at the declared register widths (16-bit sequence values,
// 24-bit tick counter, 32-bit delay registers).
package engine

// Inputs carries the externally driven control signals, sampled every cycle.
type Inputs struct {
	Kind         SequenceKind
	Speed        uint8
	ResetRequest bool
	OutputEnable bool
}

// Outputs is the encoded external view of the engine, recomputed each cycle.
//
// Primary bit layout:
//
//	bit 0    output toggle, forced low when output is disabled
//	bit 1    raw tick signal
//	bit 2    active flag
//	bit 3    new-number pulse, high only on the cycle a value was latched
//	bit 4-7  low nibble of the current number
//
// Secondary carries bits 11..4 of the current number.
type Outputs struct {
	Primary   byte
	Secondary byte
}

// Snapshot exposes the register file for status surfaces and tests.
type Snapshot struct {
	Running       bool         `json:"running"`
	Kind          SequenceKind `json:"-"`
	KindName      string       `json:"kind"`
	Speed         uint8        `json:"speed"`
	CurrentNumber uint16       `json:"current_number"`
	TargetDelay   uint32       `json:"target_delay"`
	DelayCounter  uint32       `json:"delay_counter"`
	TickCounter   uint32       `json:"tick_counter"`
	OutputToggle  bool         `json:"output_toggle"`
	OutputEnable  bool         `json:"output_enable"`
	NewNumber     bool         `json:"new_number"`
	Active        bool         `json:"active"`
}

type runState uint8

const (
	stateResetting runState = iota
	stateRunning
)

// Engine is the sequence controller. It is the sole writer of all internal
// registers; it is not safe for concurrent use, drive it from a single
// clock loop.
type Engine struct {
	tick tickGenerator
	seqs [sequenceKindCount]sequencer

	state         runState
	currentNumber uint16
	targetDelay   uint32
	delayCounter  uint32
	outputToggle  bool
	newNumber     bool
	active        bool

	lastKind     SequenceKind
	lastSpeed    uint8
	outputEnable bool
}

// New returns an Engine in the post-reset state, as if the asynchronous
// reset was just released.
func New(policy TickPolicy) *Engine {
	e := &Engine{
		tick: tickGenerator{policy: policy},
		seqs: newSequencers(),
	}
	e.Reset()

	return e
}

// Reset is the asynchronous power-up reset: all registers reinitialize,
// including the tick counter and all four generators.
func (e *Engine) Reset() {
	e.tick.reset()
	for _, s := range e.seqs {
		s.Reset()
	}
	e.resetRegisters(e.lastKind)
	e.state = stateResetting
}

// resetRegisters is the sequence-reset assignment: only the currently
// selected generator loses its progress, the other three keep theirs.
func (e *Engine) resetRegisters(kind SequenceKind) {
	e.currentNumber = 1
	e.targetDelay = 1
	e.delayCounter = 0
	e.outputToggle = false
	e.newNumber = false
	e.active = true
	e.seqs[kind%sequenceKindCount].Reset()
}

// Cycle performs exactly one clock cycle. A held ResetRequest re-enters the
// resetting state every cycle; one cycle after it is released the engine is
// running again. On a running cycle with the tick signal asserted the delay
// counter either counts up towards the target or, having reached it, the
// selected generator advances: the new term becomes both the displayed
// number and the next target delay, and the output toggles.
func (e *Engine) Cycle(in Inputs) {
	e.tick.step(in.Speed)
	e.lastKind = in.Kind % sequenceKindCount
	e.lastSpeed = in.Speed
	e.outputEnable = in.OutputEnable
	e.newNumber = false

	if in.ResetRequest {
		e.resetRegisters(in.Kind)
		e.state = stateResetting
		return
	}

	if e.state == stateResetting {
		e.state = stateRunning
		return
	}

	if !e.active || !e.tick.tick {
		return
	}

	if e.delayCounter < e.targetDelay {
		e.delayCounter++
		return
	}

	e.delayCounter = 0
	e.outputToggle = !e.outputToggle
	value := e.seqs[e.lastKind].Advance()
	e.currentNumber = value
	e.targetDelay = uint32(value)
	e.newNumber = true
}

// Outputs encodes the current state. Pure, no side effects.
func (e *Engine) Outputs() Outputs {
	var primary byte
	if e.outputToggle && e.outputEnable {
		primary |= 1 << 0
	}
	if e.tick.tick {
		primary |= 1 << 1
	}
	if e.active {
		primary |= 1 << 2
	}
	if e.newNumber {
		primary |= 1 << 3
	}
	primary |= byte(e.currentNumber&0xF) << 4

	return Outputs{
		Primary:   primary,
		Secondary: byte(e.currentNumber >> 4),
	}
}

func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		Running:       e.state == stateRunning,
		Kind:          e.lastKind,
		KindName:      e.lastKind.String(),
		Speed:         e.lastSpeed,
		CurrentNumber: e.currentNumber,
		TargetDelay:   e.targetDelay,
		DelayCounter:  e.delayCounter,
		TickCounter:   e.tick.counter,
		OutputToggle:  e.outputToggle,
		OutputEnable:  e.outputEnable,
		NewNumber:     e.newNumber,
		Active:        e.active,
	}
}

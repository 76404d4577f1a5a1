package pulsekit

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/brutella/hap/accessory"
	"github.com/hubertat/pulsekit/drivers"
	"github.com/hubertat/pulsekit/engine"
	"github.com/pkg/errors"
)

// KindSelector samples up to two input pins into the sequence-select code,
// least significant bit first: 00 fibonacci, 01 prime, 10 square,
// 11 triangular.
type KindSelector struct {
	Name       string
	DriverName string
	BitPins    []uint16

	inputs   []drivers.DigitalInput
	driver   drivers.IoDriver
	controls *controls
}

func (sel *KindSelector) GetDriverName() string {
	return sel.DriverName
}

func (sel *KindSelector) listPins() []uint16 {
	return sel.BitPins
}

func (sel *KindSelector) Init(driver drivers.IoDriver) error {
	if len(sel.BitPins) == 0 || len(sel.BitPins) > 2 {
		return errors.Errorf("kind selector takes 1 or 2 bit pins, got %d", len(sel.BitPins))
	}

	var err error
	sel.inputs, sel.driver, err = initSelectorInputs(driver, sel.DriverName, sel.BitPins)
	return err
}

func (sel *KindSelector) Sync() error {
	code, err := readSelectorCode(sel.inputs)
	if err != nil {
		return errors.Wrap(err, "Sync failed")
	}

	sel.controls.setKind(engine.SequenceKind(code))
	return nil
}

// SpeedSelector samples up to three input pins into the speed level,
// least significant bit first.
type SpeedSelector struct {
	Name       string
	DriverName string
	BitPins    []uint16

	inputs   []drivers.DigitalInput
	driver   drivers.IoDriver
	controls *controls
}

func (sel *SpeedSelector) GetDriverName() string {
	return sel.DriverName
}

func (sel *SpeedSelector) listPins() []uint16 {
	return sel.BitPins
}

func (sel *SpeedSelector) Init(driver drivers.IoDriver) error {
	if len(sel.BitPins) == 0 || len(sel.BitPins) > 3 {
		return errors.Errorf("speed selector takes 1 to 3 bit pins, got %d", len(sel.BitPins))
	}

	var err error
	sel.inputs, sel.driver, err = initSelectorInputs(driver, sel.DriverName, sel.BitPins)
	return err
}

func (sel *SpeedSelector) Sync() error {
	code, err := readSelectorCode(sel.inputs)
	if err != nil {
		return errors.Wrap(err, "Sync failed")
	}

	sel.controls.setSpeed(code)
	return nil
}

// ResetButton holds the engine in sequence reset for as long as the
// physical button is pressed.
type ResetButton struct {
	Name       string
	State      bool
	DriverName string
	InPin      uint16

	input    drivers.DigitalInput
	driver   drivers.IoDriver
	controls *controls
}

func (but *ResetButton) GetDriverName() string {
	return but.DriverName
}

func (but *ResetButton) listPins() []uint16 {
	return []uint16{but.InPin}
}

func (but *ResetButton) Init(driver drivers.IoDriver) error {
	var err error
	inputs, drv, err := initSelectorInputs(driver, but.DriverName, []uint16{but.InPin})
	if err != nil {
		return err
	}
	but.input, but.driver = inputs[0], drv

	return nil
}

func (but *ResetButton) Sync() error {
	state, err := but.input.GetState()
	if err != nil {
		return errors.Wrap(err, "Sync failed")
	}

	but.State = state
	but.controls.setResetLevel(state)
	return nil
}

// EnableSwitch gates the blinker output. Exposed over HomeKit as a plain
// switch next to the blinker bulb.
type EnableSwitch struct {
	Name           string
	State          bool
	DriverName     string
	InPin          uint16
	DisableHomekit bool

	input    drivers.DigitalInput
	driver   drivers.IoDriver
	controls *controls

	hk *accessory.Switch
}

func (sw *EnableSwitch) GetDriverName() string {
	return sw.DriverName
}

func (sw *EnableSwitch) GetUniqueId() uint64 {
	hash := fnv.New64()
	hash.Write([]byte("EnableSwitch_" + sw.Name))
	return hash.Sum64()
}

func (sw *EnableSwitch) listPins() []uint16 {
	return []uint16{sw.InPin}
}

func (sw *EnableSwitch) Init(driver drivers.IoDriver) error {
	inputs, drv, err := initSelectorInputs(driver, sw.DriverName, []uint16{sw.InPin})
	if err != nil {
		return err
	}
	sw.input, sw.driver = inputs[0], drv

	if sw.DisableHomekit {
		return nil
	}
	info := accessory.Info{
		Name:         sw.Name,
		SerialNumber: fmt.Sprintf("enable:%s:%02d", sw.DriverName, sw.InPin),
	}
	sw.hk = accessory.NewSwitch(info)
	sw.hk.Switch.On.OnValueRemoteUpdate(func(enable bool) {
		sw.controls.setEnable(enable)
	})

	return nil
}

func (sw *EnableSwitch) Sync() error {
	state, err := sw.input.GetState()
	if err != nil {
		return errors.Wrap(err, "Sync failed")
	}

	oldState := sw.State
	sw.State = state
	sw.controls.setEnable(state)

	if oldState != sw.State && sw.hk != nil {
		sw.hk.Switch.On.SetValue(sw.State)
	}

	return nil
}

func (sw *EnableSwitch) GetHk() *accessory.A {
	if sw.hk == nil {
		return nil
	}
	return sw.hk.A
}

func initSelectorInputs(driver drivers.IoDriver, driverName string, pins []uint16) (inputs []drivers.DigitalInput, drv drivers.IoDriver, err error) {
	if !strings.EqualFold(driver.String(), driverName) {
		err = fmt.Errorf("Init failed, mismatched or incorrect driver")
		return
	}

	if !driver.IsReady() {
		err = fmt.Errorf("Init failed, driver not ready")
		return
	}

	for _, pin := range pins {
		input, inputErr := driver.GetInput(pin)
		if inputErr != nil {
			err = errors.Wrapf(inputErr, "Init failed on pin %d", pin)
			return
		}
		inputs = append(inputs, input)
	}
	drv = driver

	return
}

func readSelectorCode(inputs []drivers.DigitalInput) (code uint8, err error) {
	for n, input := range inputs {
		state, stateErr := input.GetState()
		if stateErr != nil {
			err = errors.Wrapf(stateErr, "failed to read selector bit %d", n)
			return
		}
		if state {
			code |= 1 << n
		}
	}

	return
}

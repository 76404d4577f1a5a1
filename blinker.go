package pulsekit

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/brutella/hap/accessory"
	"github.com/hubertat/pulsekit/drivers"
	"github.com/pkg/errors"
)

// Blinker is the primary observable: a LED (or relay) that follows the
// engine's gated output toggle. In HomeKit it shows up as a lightbulb whose
// switch drives the engine's output-enable input.
type Blinker struct {
	Name           string
	State          bool
	DriverName     string
	OutPin         uint16
	DisableHomekit bool

	output   drivers.DigitalOutput
	driver   drivers.IoDriver
	source   signalSource
	controls *controls

	hk *accessory.Lightbulb
}

func (bl *Blinker) GetDriverName() string {
	return bl.DriverName
}

func (bl *Blinker) GetUniqueId() uint64 {
	hash := fnv.New64()
	hash.Write([]byte("Blinker_" + bl.Name))
	return hash.Sum64()
}

func (bl *Blinker) listPins() []uint16 {
	return []uint16{bl.OutPin}
}

func (bl *Blinker) Init(driver drivers.IoDriver) error {
	if !strings.EqualFold(driver.String(), bl.DriverName) {
		return fmt.Errorf("Init failed, mismatched or incorrect driver")
	}

	if !driver.IsReady() {
		return fmt.Errorf("Init failed, driver not ready")
	}

	var err error

	bl.driver = driver
	bl.output, err = driver.GetOutput(bl.OutPin)
	if err != nil {
		return errors.Wrap(err, "Init failed")
	}

	if bl.DisableHomekit {
		return nil
	}
	info := accessory.Info{
		Name:         bl.Name,
		SerialNumber: fmt.Sprintf("blinker:%s:%02d", bl.DriverName, bl.OutPin),
	}
	bl.hk = accessory.NewLightbulb(info)
	bl.hk.Lightbulb.On.OnValueRemoteUpdate(func(enable bool) {
		bl.controls.setEnable(enable)
	})

	return nil
}

func (bl *Blinker) Sync() error {
	out := bl.source.Outputs()

	oldState := bl.State
	bl.State = out.Primary&0x01 != 0

	err := bl.output.Set(bl.State)
	if err != nil {
		return errors.Wrap(err, "Sync failed")
	}

	if oldState != bl.State && bl.hk != nil {
		bl.hk.Lightbulb.On.SetValue(bl.State)
	}

	return nil
}

func (bl *Blinker) GetHk() *accessory.A {
	if bl.hk == nil {
		return nil
	}
	return bl.hk.A
}

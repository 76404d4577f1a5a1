package pulsekit

import (
	"fmt"
	"strings"

	"github.com/hubertat/pulsekit/drivers"
	"github.com/pkg/errors"
)

// StatusLamp mirrors one of the encoder's status bits on an output pin:
// the raw tick reference, the active flag or the new-number pulse. The
// reference board routes these next to the LED for scope probing.
type StatusLamp struct {
	Name       string
	State      bool
	DriverName string
	OutPin     uint16
	Signal     string

	bit    byte
	output drivers.DigitalOutput
	driver drivers.IoDriver
	source signalSource
}

var statusSignalBits = map[string]byte{
	"toggle": 0,
	"tick":   1,
	"active": 2,
	"pulse":  3,
}

func (la *StatusLamp) GetDriverName() string {
	return la.DriverName
}

func (la *StatusLamp) listPins() []uint16 {
	return []uint16{la.OutPin}
}

func (la *StatusLamp) Init(driver drivers.IoDriver) error {
	if !strings.EqualFold(driver.String(), la.DriverName) {
		return fmt.Errorf("Init failed, mismatched or incorrect driver")
	}

	if !driver.IsReady() {
		return fmt.Errorf("Init failed, driver not ready")
	}

	bit, found := statusSignalBits[strings.ToLower(la.Signal)]
	if !found {
		return errors.Errorf("unknown status signal: %s", la.Signal)
	}
	la.bit = bit

	var err error
	la.driver = driver
	la.output, err = driver.GetOutput(la.OutPin)
	if err != nil {
		return errors.Wrap(err, "Init failed")
	}

	return nil
}

func (la *StatusLamp) Sync() error {
	out := la.source.Outputs()
	la.State = out.Primary&(1<<la.bit) != 0

	err := la.output.Set(la.State)
	if err != nil {
		return errors.Wrap(err, "Sync failed")
	}

	return nil
}

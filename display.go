package pulsekit

import (
	"fmt"
	"strings"

	"github.com/hubertat/pulsekit/drivers"
	"github.com/pkg/errors"
)

const displayLowBusWidth = 4
const displayHighBusWidth = 8

// NumberDisplay drives the current-number buses: up to four pins for the
// low nibble and up to eight pins for bits 11..4, least significant bit
// first. A partial bus is allowed, it just shows fewer bits.
type NumberDisplay struct {
	Name       string
	DriverName string
	LowPins    []uint16
	HighPins   []uint16

	lowOuts  []drivers.DigitalOutput
	highOuts []drivers.DigitalOutput
	driver   drivers.IoDriver
	source   signalSource
}

func (di *NumberDisplay) GetDriverName() string {
	return di.DriverName
}

func (di *NumberDisplay) listPins() []uint16 {
	return append(append([]uint16{}, di.LowPins...), di.HighPins...)
}

func (di *NumberDisplay) Init(driver drivers.IoDriver) error {
	if !strings.EqualFold(driver.String(), di.DriverName) {
		return fmt.Errorf("Init failed, mismatched or incorrect driver")
	}

	if !driver.IsReady() {
		return fmt.Errorf("Init failed, driver not ready")
	}

	if len(di.LowPins) > displayLowBusWidth {
		return errors.Errorf("too many low bus pins: %d (bus is %d bits)", len(di.LowPins), displayLowBusWidth)
	}
	if len(di.HighPins) > displayHighBusWidth {
		return errors.Errorf("too many high bus pins: %d (bus is %d bits)", len(di.HighPins), displayHighBusWidth)
	}

	di.driver = driver
	di.lowOuts = nil
	di.highOuts = nil

	for _, pin := range di.LowPins {
		out, err := driver.GetOutput(pin)
		if err != nil {
			return errors.Wrap(err, "Init failed on low bus")
		}
		di.lowOuts = append(di.lowOuts, out)
	}

	for _, pin := range di.HighPins {
		out, err := driver.GetOutput(pin)
		if err != nil {
			return errors.Wrap(err, "Init failed on high bus")
		}
		di.highOuts = append(di.highOuts, out)
	}

	return nil
}

func (di *NumberDisplay) Sync() error {
	out := di.source.Outputs()

	for n, digitalOut := range di.lowOuts {
		err := digitalOut.Set(out.Primary&(1<<(4+n)) != 0)
		if err != nil {
			return errors.Wrapf(err, "Sync failed on low bus bit %d", n)
		}
	}

	for n, digitalOut := range di.highOuts {
		err := digitalOut.Set(out.Secondary&(1<<n) != 0)
		if err != nil {
			return errors.Wrapf(err, "Sync failed on high bus bit %d", n)
		}
	}

	return nil
}

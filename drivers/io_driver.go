package drivers

import "context"

// IoDriver is a digital-IO backend: it owns a set of input and output pins
// and hands out per-pin accessors. Drivers are configured from JSON and set
// up once with the pin numbers the kit devices declare.
type IoDriver interface {
	Setup(ctx context.Context, inputs []uint16, outputs []uint16) error
	Close() error
	String() string
	IsReady() bool
	GetInput(pin uint16) (DigitalInput, error)
	GetOutput(pin uint16) (DigitalOutput, error)
	GetAllIo() (inputs []uint16, outputs []uint16)
}

func MapAllIoDrivers() map[string]IoDriver {
	drivers := []IoDriver{
		&GpIO{},
		&McpIO{},
		&MockIoDriver{},
		&ShellyIO{},
	}

	mapped := make(map[string]IoDriver)
	for _, driver := range drivers {
		mapped[driver.String()] = driver
	}
	return mapped
}

type DigitalInput interface {
	GetState() (bool, error)
}

type DigitalOutput interface {
	GetState() (bool, error)
	Set(bool) error
}

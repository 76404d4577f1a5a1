package drivers

import (
	"context"
	"fmt"
	"io"
)

const mockDriverName = "mock_driver"

type MockOutput struct {
	state            bool
	pin              uint16
	writeTo          io.Writer
	writeStateChange bool
}

func (mo *MockOutput) GetState() (bool, error) {
	return mo.state, nil
}

func (mo *MockOutput) Set(state bool) error {
	if mo.writeStateChange && state != mo.state {
		fmt.Fprintf(mo.writeTo, "[pin %d] state changed to %v\n", mo.pin, state)
	}
	mo.state = state
	return nil
}

type MockInput struct {
	State bool
	pin   uint16
}

func (mi *MockInput) GetState() (bool, error) {
	return mi.State, nil
}

// MockIoDriver keeps pin states in memory. Tests and the simulator command
// drive the whole kit against it without touching hardware.
type MockIoDriver struct {
	inputs  []*MockInput
	outputs []*MockOutput
	ready   bool
}

func (md *MockIoDriver) Setup(ctx context.Context, inputs []uint16, outputs []uint16) error {
	for _, inPin := range inputs {
		md.inputs = append(md.inputs, &MockInput{pin: inPin})
	}
	for _, outPin := range outputs {
		md.outputs = append(md.outputs, &MockOutput{pin: outPin})
	}
	md.ready = true
	return nil
}

func (md *MockIoDriver) Close() error {
	return nil
}

func (md *MockIoDriver) String() string {
	return mockDriverName
}

func (md *MockIoDriver) IsReady() bool {
	return md.ready
}

func (md *MockIoDriver) GetInput(pin uint16) (DigitalInput, error) {
	for _, input := range md.inputs {
		if pin == input.pin {
			return input, nil
		}
	}
	return nil, fmt.Errorf("mock input %d not found", pin)
}

func (md *MockIoDriver) GetOutput(pin uint16) (DigitalOutput, error) {
	for _, output := range md.outputs {
		if pin == output.pin {
			return output, nil
		}
	}
	return nil, fmt.Errorf("mock output %d not found", pin)
}

func (md *MockIoDriver) GetAllIo() (inputs []uint16, outputs []uint16) {
	for _, input := range md.inputs {
		inputs = append(inputs, input.pin)
	}
	for _, output := range md.outputs {
		outputs = append(outputs, output.pin)
	}
	return
}

// SetInput forces an input pin state, standing in for a physical switch.
func (md *MockIoDriver) SetInput(pin uint16, state bool) error {
	for _, input := range md.inputs {
		if pin == input.pin {
			input.State = state
			return nil
		}
	}
	return fmt.Errorf("mock input %d not found", pin)
}

// MonitorStateChanges makes every output log its transitions to writer.
func (md *MockIoDriver) MonitorStateChanges(writer io.Writer) {
	for _, out := range md.outputs {
		out.writeTo = writer
		out.writeStateChange = true
	}
}

package drivers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hubertat/go-ethereum/rpc"
	"github.com/pkg/errors"
)

const shellyDriverName = "shelly"
const shellyConnectTimeout = 5 * time.Second
const shellyStateFreshness = 20 * time.Second

// ShellyIO drives the relay channels of a gen2 Shelly device over its
// JSON-RPC interface. Useful when the blink output should be something
// heavier than a LED: the relay clicks out the sequence instead.
//
// Pin numbers map one to one onto Switch component ids. State reads come
// from a cache fed by the device's NotifyStatus websocket stream, with an
// RPC Switch.GetStatus fallback when the cache goes stale.
type ShellyIO struct {
	Addr       string
	OriginAddr string

	outputs []*ShellyOutput
	done    chan bool
	isReady bool
}

type ShellyOutput struct {
	pin  uint16
	addr *url.URL

	mu      sync.Mutex
	state   bool
	refresh time.Time
}

func (so *ShellyOutput) Set(state bool) error {
	so.addr.Scheme = "http"
	client, err := rpc.Dial(so.addr.String())
	if err != nil {
		return errors.Wrap(err, "failed to rpc Dial shelly device")
	}
	defer client.Close()

	err = client.Call(nil, "Switch.Set", map[string]interface{}{"id": int(so.pin), "on": state})
	if err != nil {
		return errors.Wrapf(err, "Switch.Set failed for switch id %d", so.pin)
	}

	so.noteState(state)
	return nil
}

func (so *ShellyOutput) GetState() (state bool, err error) {
	so.mu.Lock()
	state = so.state
	fresh := time.Since(so.refresh) < shellyStateFreshness
	so.mu.Unlock()
	if fresh {
		return
	}

	so.addr.Scheme = "http"
	client, err := rpc.Dial(so.addr.String())
	if err != nil {
		err = errors.Wrap(err, "failed to rpc Dial shelly device")
		return
	}
	defer client.Close()

	status := struct {
		Output bool `json:"output"`
	}{}
	err = client.Call(&status, "Switch.GetStatus", map[string]interface{}{"id": int(so.pin)})
	if err != nil {
		err = errors.Wrapf(err, "Switch.GetStatus failed for switch id %d", so.pin)
		return
	}

	so.noteState(status.Output)
	state = status.Output
	return
}

func (so *ShellyOutput) noteState(state bool) {
	so.mu.Lock()
	so.state = state
	so.refresh = time.Now()
	so.mu.Unlock()
}

func (she *ShellyIO) Setup(ctx context.Context, inputs []uint16, outputs []uint16) error {
	if len(inputs) > 0 {
		return errors.Errorf("shelly driver handles relay outputs only, %d input pins requested", len(inputs))
	}

	addr, err := url.Parse(she.Addr)
	if err != nil {
		return errors.Wrap(err, "failed to parse shelly device address")
	}

	for _, outPin := range outputs {
		outAddr := *addr
		outAddr.Path = "/rpc"
		she.outputs = append(she.outputs, &ShellyOutput{pin: outPin, addr: &outAddr})
	}

	she.done = make(chan bool)
	err = she.subscribeStatus(ctx, addr)
	if err != nil {
		return errors.Wrap(err, "failed to subscribe shelly status notifications")
	}

	she.isReady = true
	return nil
}

// subscribeStatus keeps the output state cache warm from the device's
// websocket NotifyStatus stream.
func (she *ShellyIO) subscribeStatus(ctx context.Context, addr *url.URL) error {
	wsAddr := *addr
	wsAddr.Scheme = "ws"
	wsAddr.Path = "/rpc"

	headers := http.Header{}
	if len(she.OriginAddr) > 0 {
		headers.Add("Origin", she.OriginAddr)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: shellyConnectTimeout,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
	}

	dialCtx, cancel := context.WithTimeout(ctx, shellyConnectTimeout)
	defer cancel()

	conn, _, err := dialer.DialContext(dialCtx, wsAddr.String(), headers)
	if err != nil {
		return errors.Wrap(err, "failed to ws dial")
	}

	go func() {
		defer conn.Close()
		for {
			select {
			case <-she.done:
				return
			default:
			}

			frame := struct {
				Method string                     `json:"method"`
				Params map[string]json.RawMessage `json:"params"`
			}{}
			err := conn.ReadJSON(&frame)
			if err != nil {
				return
			}
			if frame.Method != "NotifyStatus" {
				continue
			}
			she.applyStatus(frame.Params)
		}
	}()

	return nil
}

func (she *ShellyIO) applyStatus(params map[string]json.RawMessage) {
	for _, out := range she.outputs {
		raw, found := params[fmt.Sprintf("switch:%d", out.pin)]
		if !found {
			continue
		}

		status := struct {
			Output *bool `json:"output"`
		}{}
		if json.Unmarshal(raw, &status) != nil || status.Output == nil {
			continue
		}
		out.noteState(*status.Output)
	}
}

func (she *ShellyIO) String() string {
	return shellyDriverName
}

func (she *ShellyIO) IsReady() bool {
	return she.isReady
}

func (she *ShellyIO) Close() error {
	she.isReady = false
	if she.done != nil {
		close(she.done)
	}
	for _, output := range she.outputs {
		output.Set(false)
	}
	return nil
}

func (she *ShellyIO) GetInput(pin uint16) (DigitalInput, error) {
	return nil, errors.Errorf("shelly driver has no inputs (pin %d requested)", pin)
}

func (she *ShellyIO) GetOutput(pin uint16) (DigitalOutput, error) {
	for _, out := range she.outputs {
		if out.pin == pin {
			return out, nil
		}
	}
	return nil, errors.Errorf("shelly output %d not found", pin)
}

func (she *ShellyIO) GetAllIo() (inputs []uint16, outputs []uint16) {
	for _, output := range she.outputs {
		outputs = append(outputs, output.pin)
	}
	return
}

package pulsekit

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	dnslog "github.com/brutella/dnssd/log"
	"github.com/brutella/hap"
	"github.com/brutella/hap/accessory"
	hklog "github.com/brutella/hap/log"
	"github.com/pkg/errors"

	"github.com/hubertat/pulsekit/drivers"
	"github.com/hubertat/pulsekit/engine"
	"github.com/hubertat/pulsekit/mqtt"
)

const defaultHomeKitDirectory = "./homekit"
const homeKitBridgeName = "pulsekit"
const homeKitBridgeAuthor = "github.com/hubertat"

// PulseKit ties the sequence engine to its physical surroundings: the
// blinker output, the number display bus and the selector inputs, each
// bound by name to an io driver. It is also the JSON configuration root.
type PulseKit struct {
	Name string

	Sequence      string
	Speed         uint8
	OutputEnabled bool
	TickPolicy    string

	Blinkers       []*Blinker
	StatusLamps    []*StatusLamp
	Displays       []*NumberDisplay
	KindSelectors  []*KindSelector
	SpeedSelectors []*SpeedSelector
	ResetButtons   []*ResetButton
	EnableSwitches []*EnableSwitch

	HkPin       string
	HkDirectory string
	HkAddress   string
	HkDebug     bool

	MqttBroker string
	HttpAddr   string

	Influx *InfluxRecorder

	Gpio       *drivers.GpIO
	Mcp23017   *drivers.McpIO
	FakeDriver *drivers.MockIoDriver
	Shelly     *drivers.ShellyIO

	engine    *engine.Engine
	controls  controls
	ioDrivers map[string]drivers.IoDriver

	stateMu      sync.Mutex
	lastOutputs  engine.Outputs
	lastSnapshot engine.Snapshot

	mqttClient *mqtt.MqttClient
	ticker     *time.Ticker
	logger     *log.Logger
}

// IO is a configured device bound to a driver pin.
type IO interface {
	Init(driver drivers.IoDriver) error
	GetDriverName() string
	Sync() error
}

type HkThing interface {
	GetHk() *accessory.A
	GetUniqueId() uint64
	Sync() error
}

// signalSource hands devices a race-free view of the engine outputs.
type signalSource interface {
	Outputs() engine.Outputs
	Snapshot() engine.Snapshot
}

// controls gathers the externally driven engine inputs. Selector devices
// overwrite their fields on every clock cycle; the HTTP, MQTT and HomeKit
// surfaces write them from their own goroutines, hence the mutex. Reset
// arrives either as a level (a held physical button) or as a one-shot
// pulse from a control surface.
type controls struct {
	mu           sync.Mutex
	kind         engine.SequenceKind
	speed        uint8
	outputEnable bool
	resetLevel   bool
	resetPulse   bool
}

func (c *controls) inputs() engine.Inputs {
	c.mu.Lock()
	defer c.mu.Unlock()

	in := engine.Inputs{
		Kind:         c.kind,
		Speed:        c.speed,
		OutputEnable: c.outputEnable,
		ResetRequest: c.resetLevel || c.resetPulse,
	}
	c.resetPulse = false

	return in
}

func (c *controls) setKind(kind engine.SequenceKind) {
	c.mu.Lock()
	c.kind = kind
	c.mu.Unlock()
}

func (c *controls) setSpeed(speed uint8) {
	if speed > engine.SpeedLevelMax {
		speed = engine.SpeedLevelMax
	}
	c.mu.Lock()
	c.speed = speed
	c.mu.Unlock()
}

func (c *controls) setEnable(enable bool) {
	c.mu.Lock()
	c.outputEnable = enable
	c.mu.Unlock()
}

func (c *controls) setResetLevel(level bool) {
	c.mu.Lock()
	c.resetLevel = level
	c.mu.Unlock()
}

func (c *controls) requestReset() {
	c.mu.Lock()
	c.resetPulse = true
	c.mu.Unlock()
}

func (pk *PulseKit) name() string {
	if len(pk.Name) > 0 {
		return pk.Name
	}
	return homeKitBridgeName
}

// InitEngine builds the timing core from config, before any driver setup.
func (pk *PulseKit) InitEngine() error {
	pk.logger = log.NewWithOptions(os.Stderr, log.Options{
		Prefix: pk.name() + ": ",
		Level:  log.GetLevel(),
	})

	policy, err := engine.ParseTickPolicy(pk.TickPolicy)
	if err != nil {
		return errors.Wrap(err, "failed to init engine")
	}

	kind := engine.Fibonacci
	if len(pk.Sequence) > 0 {
		kind, err = engine.ParseSequenceKind(pk.Sequence)
		if err != nil {
			return errors.Wrap(err, "failed to init engine")
		}
	}

	if pk.Speed > engine.SpeedLevelMax {
		return errors.Errorf("speed level out of range: %d (max %d)", pk.Speed, engine.SpeedLevelMax)
	}

	pk.controls.setKind(kind)
	pk.controls.setSpeed(pk.Speed)
	pk.controls.setEnable(pk.OutputEnabled)

	pk.engine = engine.New(policy)
	pk.captureState()

	return nil
}

func (pk *PulseKit) getInPins(driverName string) (pins []uint16) {
	for _, io := range pk.getInputIos() {
		if io.GetDriverName() == driverName {
			pins = append(pins, io.(pinLister).listPins()...)
		}
	}

	return
}

func (pk *PulseKit) getOutPins(driverName string) (pins []uint16) {
	for _, io := range pk.getOutputIos() {
		if io.GetDriverName() == driverName {
			pins = append(pins, io.(pinLister).listPins()...)
		}
	}

	return
}

type pinLister interface {
	listPins() []uint16
}

func (pk *PulseKit) getInputIos() (ios []IO) {
	for _, sel := range pk.KindSelectors {
		ios = append(ios, sel)
	}
	for _, sel := range pk.SpeedSelectors {
		ios = append(ios, sel)
	}
	for _, but := range pk.ResetButtons {
		ios = append(ios, but)
	}
	for _, sw := range pk.EnableSwitches {
		ios = append(ios, sw)
	}

	return
}

func (pk *PulseKit) getOutputIos() (ios []IO) {
	for _, bl := range pk.Blinkers {
		ios = append(ios, bl)
	}
	for _, la := range pk.StatusLamps {
		ios = append(ios, la)
	}
	for _, di := range pk.Displays {
		ios = append(ios, di)
	}

	return
}

func (pk *PulseKit) getIos() []IO {
	return append(pk.getInputIos(), pk.getOutputIos()...)
}

func (pk *PulseKit) getHkThings() (things []HkThing) {
	for _, th := range pk.Blinkers {
		things = append(things, th)
	}
	for _, th := range pk.EnableSwitches {
		things = append(things, th)
	}

	return
}

func (pk *PulseKit) InitDrivers(ctx context.Context) error {
	pk.ioDrivers = make(map[string]drivers.IoDriver)

	if pk.Gpio != nil {
		pk.ioDrivers[pk.Gpio.String()] = pk.Gpio
	}

	if pk.Mcp23017 != nil {
		pk.ioDrivers[pk.Mcp23017.String()] = pk.Mcp23017
	}

	if pk.FakeDriver != nil {
		pk.ioDrivers[pk.FakeDriver.String()] = pk.FakeDriver
	}

	if pk.Shelly != nil {
		pk.ioDrivers[pk.Shelly.String()] = pk.Shelly
	}

	for _, driver := range pk.ioDrivers {
		err := driver.Setup(ctx, pk.getInPins(driver.String()), pk.getOutPins(driver.String()))
		if err != nil {
			return errors.Wrapf(err, "failed to setup %s driver", driver)
		}
	}

	for _, io := range pk.getIos() {
		_, driverFound := pk.ioDrivers[io.GetDriverName()]
		if !driverFound {
			return errors.Errorf("driver %s not set up", io.GetDriverName())
		}
	}

	if pk.Influx != nil {
		err := pk.Influx.Setup()
		if err != nil {
			return errors.Wrap(err, "failed to setup influx recorder")
		}
	}

	return nil
}

func (pk *PulseKit) InitIos() error {
	if pk.engine == nil {
		return errors.New("engine not initialized, call InitEngine first")
	}

	for _, bl := range pk.Blinkers {
		bl.source = pk
		bl.controls = &pk.controls
	}
	for _, la := range pk.StatusLamps {
		la.source = pk
	}
	for _, di := range pk.Displays {
		di.source = pk
	}
	for _, sel := range pk.KindSelectors {
		sel.controls = &pk.controls
	}
	for _, sel := range pk.SpeedSelectors {
		sel.controls = &pk.controls
	}
	for _, but := range pk.ResetButtons {
		but.controls = &pk.controls
	}
	for _, sw := range pk.EnableSwitches {
		sw.controls = &pk.controls
	}

	for _, io := range pk.getIos() {
		err := io.Init(pk.ioDrivers[io.GetDriverName()])
		if err != nil {
			return errors.Wrapf(err, "failed to init io")
		}
	}

	return nil
}

func (pk *PulseKit) GetHkAccessories(firmwareVersion string) (acc []*accessory.A) {
	acc = []*accessory.A{}

	for _, th := range pk.getHkThings() {
		accessory := th.GetHk()
		if accessory != nil {
			if accessory.Info != nil && accessory.Info.FirmwareRevision != nil {
				accessory.Info.FirmwareRevision.SetValue(firmwareVersion)
			}
			accessory.Id = th.GetUniqueId()
			acc = append(acc, accessory)
		}
	}

	return
}

// Outputs returns the encoder bytes captured on the last clock cycle.
func (pk *PulseKit) Outputs() engine.Outputs {
	pk.stateMu.Lock()
	defer pk.stateMu.Unlock()
	return pk.lastOutputs
}

// Snapshot returns the register file captured on the last clock cycle.
func (pk *PulseKit) Snapshot() engine.Snapshot {
	pk.stateMu.Lock()
	defer pk.stateMu.Unlock()
	return pk.lastSnapshot
}

func (pk *PulseKit) captureState() {
	pk.stateMu.Lock()
	pk.lastOutputs = pk.engine.Outputs()
	pk.lastSnapshot = pk.engine.Snapshot()
	pk.stateMu.Unlock()
}

// clockCycle is one full pass: sample the selector devices, advance the
// engine one cycle, then push the encoded outputs to the output devices.
func (pk *PulseKit) clockCycle() {
	for _, io := range pk.getInputIos() {
		err := io.Sync()
		if err != nil {
			pk.logger.Error("failed to sync input device", "err", err)
		}
	}

	pk.engine.Cycle(pk.controls.inputs())
	pk.captureState()

	for _, io := range pk.getOutputIos() {
		err := io.Sync()
		if err != nil {
			pk.logger.Error("failed to sync output device", "err", err)
		}
	}

	snap := pk.Snapshot()
	if snap.NewNumber {
		pk.fanOutAdvance(snap)
	}
}

func (pk *PulseKit) fanOutAdvance(snap engine.Snapshot) {
	if pk.mqttClient != nil {
		err := pk.publishAdvance(snap)
		if err != nil {
			pk.logger.Error("failed to publish advance", "err", err)
		}
	}

	if pk.Influx != nil && pk.Influx.IsReady() {
		err := pk.Influx.RecordAdvance(context.Background(), pk.name(), snap)
		if err != nil {
			pk.logger.Error("failed to record advance", "err", err)
		}
	}
}

// StartClock drives the engine at a fixed rate: one ticker fire equals one
// clock cycle. Blocks until StopClock.
func (pk *PulseKit) StartClock(interval time.Duration) {
	pk.ticker = time.NewTicker(interval)

	for range pk.ticker.C {
		pk.clockCycle()
	}
}

func (pk *PulseKit) StopClock() {
	if pk.ticker != nil {
		pk.ticker.Stop()
	}
}

func (pk *PulseKit) Close() (err error) {
	pk.StopClock()

	for _, driver := range pk.ioDrivers {
		if driver != nil {
			closeErr := driver.Close()
			if closeErr != nil {
				err = errors.Wrap(err, closeErr.Error())
			}
		}
	}

	return
}

func (pk *PulseKit) PrintIoStatus(writer io.Writer) {
	fmt.Fprintln(writer)
	fmt.Fprintln(writer, "=== active io drivers ===")
	for driverName, driver := range pk.ioDrivers {
		fmt.Fprintln(writer, "________")
		fmt.Fprintf(writer, "| driver: %s\n", driverName)
		inputs, outputs := driver.GetAllIo()
		fmt.Fprintf(writer, "| in pins: ")
		for _, inpin := range inputs {
			fmt.Fprintf(writer, "%d, ", inpin)
		}
		fmt.Fprintf(writer, "\n| out pins: ")
		for _, outpin := range outputs {
			fmt.Fprintf(writer, "%d, ", outpin)
		}
		fmt.Fprintln(writer)
		fmt.Fprintln(writer, "--------")
	}
	fmt.Fprintln(writer, "-----------------------------")
	fmt.Fprintln(writer)
}

func (pk *PulseKit) StartHomeKit(ctx context.Context, firmwareVersion string) error {
	bridge := accessory.NewBridge(accessory.Info{
		Name:         pk.name(),
		Manufacturer: homeKitBridgeAuthor,
		Firmware:     firmwareVersion,
	})

	var store hap.Store
	if len(pk.HkDirectory) > 1 {
		store = hap.NewFsStore(pk.HkDirectory)
	} else {
		store = hap.NewFsStore(defaultHomeKitDirectory)
	}
	hkServer, err := hap.NewServer(store, bridge.A, pk.GetHkAccessories(firmwareVersion)...)
	if err != nil {
		return errors.Wrap(err, "failed to create HomeKit server")
	}
	hkServer.Pin = pk.HkPin
	if len(pk.HkAddress) > 0 {
		hkServer.Addr = pk.HkAddress
	}

	if pk.HkDebug {
		hklog.Debug.Enable()
		dnslog.Debug.Enable()
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	signal.Notify(c, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		<-c
		// Stop delivering signals.
		signal.Stop(c)
		// Cancel the context to stop the server.
		cancel()
	}()

	return hkServer.ListenAndServe(ctx)
}

func (pk *PulseKit) InitMqtt() (err error) {
	if len(pk.MqttBroker) == 0 {
		err = errors.New("mqtt broker not set")
		return
	}

	mc, err := mqtt.NewMqttClient(pk.MqttBroker, pk.name())
	if err != nil {
		err = errors.Wrap(err, "failed to create mqtt client")
		return
	}

	pk.mqttClient = mc

	err = mc.Connect([]mqtt.MqttHandler{pk})
	if err != nil {
		err = errors.Wrap(err, "failed to connect to mqtt broker")
	}

	return
}

package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/hubertat/pulsekit"
	"github.com/hubertat/pulsekit/drivers"
)

var (
	Version string
	Build   string
)

func main() {
	var err error

	log.Println("pulsekit started")
	log.Println("mock instance for testing purposes, no hardware required")

	clockDuration := 50 * time.Millisecond
	log.Println("clockDuration is ", clockDuration)

	pk := &pulsekit.PulseKit{}

	pk.HkPin = "88008800"
	pk.Sequence = "fibonacci"
	pk.Speed = 7
	pk.OutputEnabled = true

	pk.Blinkers = append(pk.Blinkers, &pulsekit.Blinker{Name: "fake blinker", DriverName: "mock_driver", OutPin: 1})
	pk.StatusLamps = append(pk.StatusLamps, &pulsekit.StatusLamp{Name: "fake pulse lamp", DriverName: "mock_driver", OutPin: 2, Signal: "pulse"})
	pk.FakeDriver = &drivers.MockIoDriver{}

	log.Println("will init pulsekit engine...")
	err = pk.InitEngine()
	if err != nil {
		panic(err)
	}

	log.Println("will init pulsekit drivers...")
	err = pk.InitDrivers(context.Background())
	defer pk.Close()
	if err != nil {
		panic(err)
	}
	log.Println("will init pulsekit IOs...")
	err = pk.InitIos()
	if err != nil {
		panic(err)
	}

	pk.FakeDriver.MonitorStateChanges(os.Stdout)

	pk.PrintIoStatus(os.Stdout)

	log.Println("starting mock with HomeKit service")

	go pk.StartClock(clockDuration)

	pk.HkDirectory = "./mock_homekit"
	log.Fatal(pk.StartHomeKit(context.Background(), "mock: "+Version))
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"
	"time"

	"github.com/hubertat/servicemaker"

	"github.com/hubertat/pulsekit"
)

const defaultClockInterval = "10ms"

var (
	Version string
	Build   string

	config        = flag.String("config", "config.json", "path of the configuration file")
	flagInstall   = flag.Bool("install", false, "Install service in os")
	clockInterval = flag.String("clock", defaultClockInterval, "engine clock interval (time.Duration)")

	pkService = servicemaker.ServiceMaker{
		User:               "pulsekit",
		UserGroups:         []string{"gpio", "i2c"},
		ServicePath:        "/etc/systemd/system/pulsekit.service",
		ServiceDescription: "PulseKit service: sequence-timed blinker with HomeKit/MQTT control. github.com/hubertat/pulsekit",
		ExecDir:            "/srv/pulsekit",
		ExecName:           "pulsekit",
	}
)

func main() {
	log.Printf("pulsekit %s started\n", Version)
	flag.Parse()

	if *flagInstall {
		err := pkService.InstallService()
		if err != nil {
			panic(err)
		} else {
			log.Println("service installed!")
			return
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clockDuration, err := time.ParseDuration(*clockInterval)
	if err != nil {
		panic(err)
	}

	pk := &pulsekit.PulseKit{}
	configFile, err := os.Open(*config)
	if err == nil {
		cBuff, err := io.ReadAll(configFile)
		if err != nil {
			log.Fatalf("failed reading config file: %v\n", err)
		}

		err = json.Unmarshal(cBuff, pk)
		if err != nil {
			log.Fatalf("failed unmarshalling json config: %v", err)
		}
	} else {
		log.Fatalf("can't find/open config file (%s), will terminate. Reason: \n%v\n", *config, err)
	}

	log.Println("will init pulsekit engine...")
	err = pk.InitEngine()
	if err != nil {
		panic(err)
	}

	log.Println("will init pulsekit drivers...")
	err = pk.InitDrivers(ctx)
	defer pk.Close()
	if err != nil {
		panic(err)
	}

	log.Println("will init pulsekit IOs...")
	err = pk.InitIos()
	if err != nil {
		panic(err)
	}

	pk.PrintIoStatus(os.Stdout)

	if len(pk.MqttBroker) > 0 {
		log.Println("connecting to MQTT broker")
		err = pk.InitMqtt()
		if err != nil {
			log.Printf("InitMqtt returned error: %v\n we will proceed...", err)
		}
	}

	if len(pk.HttpAddr) > 0 {
		log.Println("starting HTTP api")
		_, err = pk.StartHTTP()
		if err != nil {
			log.Printf("StartHTTP returned error: %v\n we will proceed...", err)
		}
	}

	if len(pk.HkPin) == 8 {
		log.Println("Starting with HomeKit server")

		go pk.StartClock(clockDuration)
		log.Fatal(pk.StartHomeKit(context.Background(), Version))
	} else {
		log.Println("HomeKit not configured, disabled")
		pk.StartClock(clockDuration)
	}
}

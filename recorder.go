package pulsekit

import (
	"context"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/pkg/errors"

	"github.com/hubertat/pulsekit/engine"
)

const defaultAdvanceMeasurement = "sequence_advance"

// InfluxRecorder writes a point per latched sequence value, so the blink
// history can be graphed next to everything else in the bucket.
type InfluxRecorder struct {
	Host         string
	Organization string
	Bucket       string
	Measurement  string
	Token        string

	client influxdb2.Client
	writer api.WriteAPIBlocking
	ready  bool
}

func (ir *InfluxRecorder) Setup() error {
	if len(ir.Host) == 0 || len(ir.Bucket) == 0 {
		return errors.New("influx recorder requires Host and Bucket")
	}

	if len(ir.Measurement) == 0 {
		ir.Measurement = defaultAdvanceMeasurement
	}

	ir.client = influxdb2.NewClient(ir.Host, ir.Token)
	ir.writer = ir.client.WriteAPIBlocking(ir.Organization, ir.Bucket)
	ir.ready = true

	return nil
}

func (ir *InfluxRecorder) IsReady() bool {
	return ir.ready
}

func (ir *InfluxRecorder) Close() error {
	if ir.client != nil {
		ir.client.Close()
	}
	ir.ready = false
	return nil
}

func (ir *InfluxRecorder) RecordAdvance(ctx context.Context, kitName string, snap engine.Snapshot) error {
	point := influxdb2.NewPoint(ir.Measurement,
		map[string]string{
			"kit":  kitName,
			"kind": snap.KindName,
		},
		map[string]interface{}{
			"number": int64(snap.CurrentNumber),
			"target": int64(snap.TargetDelay),
			"toggle": snap.OutputToggle,
			"speed":  int64(snap.Speed),
		},
		time.Now())

	err := ir.writer.WritePoint(ctx, point)
	if err != nil {
		return errors.Wrap(err, "failed to write advance point")
	}

	return nil
}

package pulsekit

import (
	"encoding/json"

	"github.com/eclipse/paho.golang/paho"
	"github.com/pkg/errors"

	"github.com/hubertat/pulsekit/engine"
)

// mqttControlMessage is the payload accepted on the control topic; absent
// fields leave the corresponding input untouched.
type mqttControlMessage struct {
	Kind   *string `json:"kind,omitempty"`
	Speed  *uint8  `json:"speed,omitempty"`
	Enable *bool   `json:"enable,omitempty"`
	Reset  bool    `json:"reset,omitempty"`
}

type mqttAdvanceMessage struct {
	Kind   string `json:"kind"`
	Number uint16 `json:"number"`
	Target uint32 `json:"target"`
	Toggle bool   `json:"toggle"`
}

func (pk *PulseKit) MqttSubscribeTopic() string {
	return "pulsekit/" + pk.name() + "/control"
}

func (pk *PulseKit) advanceTopic() string {
	return "pulsekit/" + pk.name() + "/advance"
}

func (pk *PulseKit) MqttHandle(pub *paho.Publish) {
	msg := mqttControlMessage{}
	err := json.Unmarshal(pub.Payload, &msg)
	if err != nil {
		pk.logger.Error("failed to parse mqtt control message", "err", err)
		return
	}

	err = pk.applyControlMessage(msg)
	if err != nil {
		pk.logger.Error("failed to apply mqtt control message", "err", err)
	}
}

func (pk *PulseKit) applyControlMessage(msg mqttControlMessage) error {
	if msg.Kind != nil {
		kind, err := engine.ParseSequenceKind(*msg.Kind)
		if err != nil {
			return errors.Wrap(err, "bad control message")
		}
		pk.controls.setKind(kind)
	}

	if msg.Speed != nil {
		if *msg.Speed > engine.SpeedLevelMax {
			return errors.Errorf("speed level out of range: %d", *msg.Speed)
		}
		pk.controls.setSpeed(*msg.Speed)
	}

	if msg.Enable != nil {
		pk.controls.setEnable(*msg.Enable)
	}

	if msg.Reset {
		pk.controls.requestReset()
	}

	return nil
}

func (pk *PulseKit) publishAdvance(snap engine.Snapshot) error {
	payload, err := json.Marshal(mqttAdvanceMessage{
		Kind:   snap.KindName,
		Number: snap.CurrentNumber,
		Target: snap.TargetDelay,
		Toggle: snap.OutputToggle,
	})
	if err != nil {
		return errors.Wrap(err, "failed to marshal advance message")
	}

	return pk.mqttClient.Publish(pk.advanceTopic(), payload)
}

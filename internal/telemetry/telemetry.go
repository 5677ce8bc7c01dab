// Package telemetry runs an MQTT publisher of fused IMU output (C14),
// following the teacher's producer daemon pattern: connect, loop on the
// driver's blocking API publishing one message per new output record,
// marshal JSON, publish, periodically
// log a human-readable summary to the console.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/mpu9250dmp/internal/config"
	"github.com/relabs-tech/mpu9250dmp/internal/driver"
)

// outputMessage is the wire-format JSON payload published to TopicIMUOutput.
type outputMessage struct {
	TimestampUnixNano int64      `json:"ts_ns"`
	Accel             [3]float64 `json:"accel_mps2"`
	Gyro              [3]float64 `json:"gyro_dps"`
	Mag               [3]float64 `json:"mag_ut"`
	FusedQuat         [4]float64 `json:"fused_quat_wxyz"`
	FusedRollDeg      float64    `json:"fused_roll_deg"`
	FusedPitchDeg     float64    `json:"fused_pitch_deg"`
	FusedYawDeg       float64    `json:"fused_yaw_deg"`
	CompassHeadingDeg float64    `json:"compass_heading_deg"`
}

type tapMessage struct {
	TimestampUnixNano int64 `json:"ts_ns"`
	Direction         int   `json:"direction"`
}

const radToDeg = 180.0 / 3.14159265358979323846

// Run connects to the configured MQTT broker and republishes every fused
// Output record produced by d, plus tap events, until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config, d *driver.Driver) error {
	log.Println("starting mpu9250 telemetry producer")

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDTelemetry)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("telemetry: mqtt connect: %w", token.Error())
	}
	defer client.Disconnect(250)

	log.Println("telemetry: connected to MQTT, starting publish loop")

	tickCounter := 0
	logEveryN := 1
	if cfg.ConsoleLogInterval > 0 && cfg.TelemetryPublishInterval > 0 {
		logEveryN = cfg.ConsoleLogInterval / cfg.TelemetryPublishInterval
		if logEveryN < 1 {
			logEveryN = 1
		}
	}

	for {
		out, err := d.BlockUntilNewData(ctx)
		if err != nil {
			return err
		}
		tickCounter++

		msg := outputMessage{
			TimestampUnixNano: out.Timestamp.UnixNano(),
			Accel:             out.Accel,
			Gyro:              out.Gyro,
			Mag:               out.Mag,
			FusedQuat:         [4]float64(out.FusedQuat),
			FusedRollDeg:      out.FusedTB.RollY * radToDeg,
			FusedPitchDeg:     out.FusedTB.PitchX * radToDeg,
			FusedYawDeg:       out.FusedTB.YawZ * radToDeg,
			CompassHeadingDeg: out.CompassHeading * radToDeg,
		}
		payload, err := json.Marshal(msg)
		if err != nil {
			log.Printf("telemetry: marshal error: %v", err)
			continue
		}
		client.Publish(cfg.TopicIMUOutput, 0, false, payload)

		if out.TapDetected {
			tapPayload, _ := json.Marshal(tapMessage{TimestampUnixNano: out.Timestamp.UnixNano(), Direction: out.TapDirection})
			client.Publish(cfg.TopicIMUTap, 0, false, tapPayload)
		}

		if tickCounter%logEveryN == 0 {
			log.Printf("telemetry: roll=%.1f pitch=%.1f yaw=%.1f heading=%.1f",
				msg.FusedRollDeg, msg.FusedPitchDeg, msg.FusedYawDeg, msg.CompassHeadingDeg)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

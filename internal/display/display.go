// Package display renders the fused IMU output to a single SSD1306 OLED
// (C15), subscribed over MQTT to the telemetry topic rather than polling
// the driver directly, so the display can run as its own process.
package display

import (
	"encoding/json"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/mpu9250dmp/internal/config"
)

// outputMessage mirrors telemetry's wire-format payload; it decodes the
// fused angles and heading the display draws, plus accel and gyro, which are
// not drawn.
type outputMessage struct {
	FusedRollDeg      float64 `json:"fused_roll_deg"`
	FusedPitchDeg     float64 `json:"fused_pitch_deg"`
	FusedYawDeg       float64 `json:"fused_yaw_deg"`
	CompassHeadingDeg float64 `json:"compass_heading_deg"`
	Accel             [3]float64 `json:"accel_mps2"`
	Gyro              [3]float64 `json:"gyro_dps"`
}

type tapMessage struct {
	Direction int `json:"direction"`
}

type state struct {
	mu sync.RWMutex

	out     outputMessage
	haveOut bool

	lastTapDirection int
	lastTapAt        time.Time
	haveTap          bool
}

// Run opens the OLED over I2C, subscribes to the configured MQTT topics,
// and redraws the display on cfg.DisplayUpdateInterval until the process
// exits.
func Run(cfg *config.Config) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("display: periph init: %w", err)
	}

	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("display: open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, cfg.DisplayI2CAddr, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("display: init ssd1306 at 0x%02X: %w", cfg.DisplayI2CAddr, err)
	}
	log.Printf("display: initialized at 0x%02X", cfg.DisplayI2CAddr)

	if err := showSplash(dev); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	st := &state{}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDDisplay)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("display: mqtt connect: %w", token.Error())
	}
	defer client.Disconnect(250)
	log.Printf("display: connected to MQTT broker at %s", cfg.MQTTBroker)

	if token := client.Subscribe(cfg.TopicIMUOutput, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var out outputMessage
		if err := json.Unmarshal(msg.Payload(), &out); err != nil {
			log.Printf("display: output unmarshal error: %v", err)
			return
		}
		st.mu.Lock()
		st.out = out
		st.haveOut = true
		st.mu.Unlock()
	}); token.Wait() && token.Error() != nil {
		return fmt.Errorf("display: subscribe %s: %w", cfg.TopicIMUOutput, token.Error())
	}

	if token := client.Subscribe(cfg.TopicIMUTap, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var tap tapMessage
		if err := json.Unmarshal(msg.Payload(), &tap); err != nil {
			return
		}
		st.mu.Lock()
		st.lastTapDirection = tap.Direction
		st.lastTapAt = time.Now()
		st.haveTap = true
		st.mu.Unlock()
	}); token.Wait() && token.Error() != nil {
		return fmt.Errorf("display: subscribe %s: %w", cfg.TopicIMUTap, token.Error())
	}

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")
	for range ticker.C {
		st.mu.RLock()
		snapshot := *st
		st.mu.RUnlock()

		if err := updatePose(dev, snapshot); err != nil {
			log.Printf("display: update error: %v", err)
		}
	}
	return nil
}

func blankImage() *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))
	for i := range img.Pix {
		img.Pix[i] = 0
	}
	return img
}

func updatePose(dev *ssd1306.Dev, st state) error {
	img := blankImage()
	drawer := &font.Drawer{Dst: img, Src: &image.Uniform{image1bit.On}, Face: basicfont.Face7x13}

	if !st.haveOut {
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawBytes([]byte("IMU"))
		drawer.Dot = fixed.P(0, 39)
		drawer.DrawBytes([]byte("Waiting..."))
		return dev.Draw(dev.Bounds(), img, image.Point{})
	}

	drawer.Dot = fixed.P(0, 13)
	drawer.DrawBytes([]byte(fmt.Sprintf("R: %6.1f", st.out.FusedRollDeg)))
	drawer.Dot = fixed.P(0, 26)
	drawer.DrawBytes([]byte(fmt.Sprintf("P: %6.1f", st.out.FusedPitchDeg)))
	drawer.Dot = fixed.P(0, 39)
	drawer.DrawBytes([]byte(fmt.Sprintf("Y: %6.1f", st.out.FusedYawDeg)))
	drawer.Dot = fixed.P(0, 52)
	drawer.DrawBytes([]byte(fmt.Sprintf("Hdg: %5.1f", st.out.CompassHeadingDeg)))

	if st.haveTap && time.Since(st.lastTapAt) < 2*time.Second {
		drawer.Dot = fixed.P(90, 13)
		drawer.DrawBytes([]byte(fmt.Sprintf("T%d", st.lastTapDirection)))
	}

	return dev.Draw(dev.Bounds(), img, image.Point{})
}

func showSplash(dev *ssd1306.Dev) error {
	img := blankImage()
	drawer := &font.Drawer{Dst: img, Src: &image.Uniform{image1bit.On}, Face: basicfont.Face7x13}

	drawer.Dot = fixed.P(10, 26)
	drawer.DrawBytes([]byte("MPU9250 DMP"))
	drawer.Dot = fixed.P(15, 43)
	drawer.DrawBytes([]byte("Fusion Core"))

	return dev.Draw(dev.Bounds(), img, image.Point{})
}

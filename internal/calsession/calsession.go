// Package calsession implements a WebSocket-driven guided calibration
// session (C12): static gyro bias, dynamic gyro re-check, and magnetometer
// ellipsoid-fit phases, each reporting progress and a confidence score,
// finishing with a persisted snapshot via calstore.
package calsession

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/mpu9250dmp/internal/calibration"
	"github.com/relabs-tech/mpu9250dmp/internal/calstore"
	"github.com/relabs-tech/mpu9250dmp/internal/mpu9250"
	"github.com/relabs-tech/mpu9250dmp/internal/mpu9250err"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Request is a client-to-server WebSocket message.
type Request struct {
	Action string `json:"action"` // init, next, cancel
}

// Response is a server-to-client WebSocket message.
type Response struct {
	Type     string                 `json:"type"` // phase, progress, stats, action, step, complete, error
	Phase    string                 `json:"phase,omitempty"`
	Progress float64                `json:"progress,omitempty"`
	Stats    map[string]interface{} `json:"stats,omitempty"`
	Results  interface{}            `json:"results,omitempty"`
	Message  string                 `json:"message,omitempty"`
}

// Result is the summary of a completed session sent to the client in the
// "complete" message; it is not written to disk.
type Result struct {
	Timestamp time.Time `json:"timestamp"`

	GyroBiasX      float64 `json:"gyro_bias_x"`
	GyroBiasY      float64 `json:"gyro_bias_y"`
	GyroBiasZ      float64 `json:"gyro_bias_z"`
	GyroConfidence float64 `json:"gyro_confidence"`
	GyroRetries    int     `json:"gyro_retries"`

	MagOffsetX    float64 `json:"mag_offset_x"`
	MagOffsetY    float64 `json:"mag_offset_y"`
	MagOffsetZ    float64 `json:"mag_offset_z"`
	MagScaleX     float64 `json:"mag_scale_x"`
	MagScaleY     float64 `json:"mag_scale_y"`
	MagScaleZ     float64 `json:"mag_scale_z"`
	MagConfidence float64 `json:"mag_confidence"`
	MagSamples    int     `json:"mag_samples"`
}

// Session holds the state machine of one connected calibration client.
type Session struct {
	Conn *websocket.Conn

	dev *mpu9250.Device
	mag *mpu9250.Magnetometer

	gyroCalPath string
	magCalPath  string

	mu    sync.Mutex
	phase string // "", "gyro-static", "gyro-dynamic", "mag", "done"

	wasLastNoisy bool
	gyroRetries  int
	gyroBias     calibration.GyroBias
	gyroSD       [3]float64

	magCal     calibration.MagCal
	magSamples int
}

// HandleWS upgrades an HTTP request to a WebSocket and runs the guided
// calibration session until the client disconnects or cancels.
func HandleWS(dev *mpu9250.Device, mag *mpu9250.Magnetometer, gyroCalPath, magCalPath string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("calsession: upgrade error: %v", err)
			return
		}
		defer conn.Close()

		s := &Session{Conn: conn, dev: dev, mag: mag, gyroCalPath: gyroCalPath, magCalPath: magCalPath}

		for {
			var req Request
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			switch req.Action {
			case "init":
				s.phase = ""
			case "next":
				if err := s.runNextStep(r.Context()); err != nil {
					s.sendError(err.Error())
				}
			case "cancel":
				log.Println("calsession: cancelled by client")
				return
			}
			if s.phase == "done" {
				return
			}
		}
	}
}

func (s *Session) runNextStep(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case "":
		s.phase = "gyro-static"
		return s.runGyroPhase(ctx, "gyro-static")
	case "gyro-static":
		s.phase = "gyro-dynamic"
		return s.runGyroPhase(ctx, "gyro-dynamic")
	case "gyro-dynamic":
		s.phase = "mag"
		return s.runMagPhase(ctx)
	case "mag":
		return s.complete()
	default:
		return fmt.Errorf("calsession: no step after phase %q", s.phase)
	}
}

// runGyroPhase drives one CalibrateGyro capture window, reporting stddev and
// bias progress. The static and dynamic phases differ only in the prompt
// shown to the user — the capture and gating logic is identical, since a
// stationary device is the precondition for both.
func (s *Session) runGyroPhase(ctx context.Context, phase string) error {
	s.sendPhase(phase)
	s.sendProgress(0)

	bias, stillNoisy, err := calibration.CalibrateGyro(ctx, s.dev, s.wasLastNoisy)
	s.wasLastNoisy = stillNoisy
	if err != nil {
		s.gyroRetries++
		if errors.Is(err, mpu9250err.ErrCalibrationNoisy) {
			s.sendProgress(100)
			s.sendStats(map[string]interface{}{"noisy": true, "retries": s.gyroRetries})
			s.sendActionReady("device moved during capture, hold it still and retry")
			return nil
		}
		return err
	}

	s.gyroBias = bias
	s.sendProgress(100)
	confidence := gyroConfidence(bias)
	s.sendStats(map[string]interface{}{
		"bias_x": bias.X, "bias_y": bias.Y, "bias_z": bias.Z,
		"confidence": confidence, "retries": s.gyroRetries,
	})
	s.sendActionReady("")
	return nil
}

func gyroConfidence(b calibration.GyroBias) float64 {
	mag := abs(b.X) + abs(b.Y) + abs(b.Z)
	return 100.0 / (1.0 + mag/calibration.GyroOffsetThreshMax*10.0)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func (s *Session) runMagPhase(ctx context.Context) error {
	s.sendPhase("mag")
	s.sendStep("rotate the device slowly through as many orientations as possible")

	cal, err := calibration.CalibrateMag(ctx, s.mag, func(count int) {
		s.magSamples = count
		s.sendProgress(float64(count) / float64(calibration.MagSampleCount) * 100.0)
	})
	if err != nil {
		return err
	}

	s.magCal = cal
	confidence := magConfidence(cal)
	s.sendStats(map[string]interface{}{
		"offset_x": cal.OffsetX, "offset_y": cal.OffsetY, "offset_z": cal.OffsetZ,
		"scale_x": cal.ScaleX, "scale_y": cal.ScaleY, "scale_z": cal.ScaleZ,
		"confidence": confidence, "samples": s.magSamples,
	})
	s.sendActionReady("")
	return nil
}

// magConfidence scores how close the three fitted axis scales are to each
// other: a well-conditioned fit should scale all axes similarly.
func magConfidence(c calibration.MagCal) float64 {
	scales := [3]float64{c.ScaleX, c.ScaleY, c.ScaleZ}
	min, max := scales[0], scales[0]
	for _, v := range scales[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if max == 0 {
		return 0
	}
	return (min / max) * 100.0
}

func (s *Session) complete() error {
	s.phase = "done"

	if err := calstore.SaveGyroBias(s.gyroCalPath, s.gyroBias); err != nil {
		return fmt.Errorf("calsession: saving gyro cal: %w", err)
	}
	if err := calstore.SaveMagCal(s.magCalPath, s.magCal); err != nil {
		return fmt.Errorf("calsession: saving mag cal: %w", err)
	}

	result := Result{
		Timestamp:      time.Now(),
		GyroBiasX:      s.gyroBias.X,
		GyroBiasY:      s.gyroBias.Y,
		GyroBiasZ:      s.gyroBias.Z,
		GyroConfidence: gyroConfidence(s.gyroBias),
		GyroRetries:    s.gyroRetries,
		MagOffsetX:     s.magCal.OffsetX,
		MagOffsetY:     s.magCal.OffsetY,
		MagOffsetZ:     s.magCal.OffsetZ,
		MagScaleX:      s.magCal.ScaleX,
		MagScaleY:      s.magCal.ScaleY,
		MagScaleZ:      s.magCal.ScaleZ,
		MagConfidence:  magConfidence(s.magCal),
		MagSamples:     s.magSamples,
	}

	log.Printf("calsession: complete, saved gyro cal to %s and mag cal to %s", s.gyroCalPath, s.magCalPath)
	return s.Conn.WriteJSON(Response{Type: "complete", Results: result})
}

func (s *Session) sendPhase(phase string) {
	s.Conn.WriteJSON(Response{Type: "phase", Phase: phase})
}

func (s *Session) sendStep(message string) {
	s.Conn.WriteJSON(Response{Type: "step", Message: message})
}

func (s *Session) sendProgress(progress float64) {
	s.Conn.WriteJSON(Response{Type: "progress", Progress: progress})
}

func (s *Session) sendStats(stats map[string]interface{}) {
	s.Conn.WriteJSON(Response{Type: "stats", Stats: stats})
}

func (s *Session) sendActionReady(message string) {
	s.Conn.WriteJSON(Response{Type: "action", Message: message})
}

func (s *Session) sendError(message string) {
	s.Conn.WriteJSON(Response{Type: "error", Message: message})
}

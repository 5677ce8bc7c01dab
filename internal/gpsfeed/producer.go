// Package gpsfeed runs the supplemental GPS companion feed: NMEA sentences
// read from a serial port, parsed, and republished as JSON over MQTT
// alongside the IMU telemetry stream.
package gpsfeed

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/mpu9250dmp/internal/config"
	"github.com/relabs-tech/mpu9250dmp/internal/gps"
)

// Run opens the GPS serial port, parses NMEA sentences as they arrive, and
// publishes position/velocity/quality/satellite updates to MQTT until the
// port returns an error.
func Run(cfg *config.Config) error {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDGPS)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("gpsfeed: mqtt connect: %w", token.Error())
	}
	defer client.Disconnect(250)
	log.Printf("gpsfeed: connected to MQTT broker at %s", cfg.MQTTBroker)

	serialOpts := serial.OpenOptions{
		PortName:              cfg.GPSSerialPort,
		BaudRate:              uint(cfg.GPSBaudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	port, err := serial.Open(serialOpts)
	if err != nil {
		return fmt.Errorf("gpsfeed: open serial port %s: %w", serialOpts.PortName, err)
	}
	defer port.Close()
	log.Printf("gpsfeed: serial port opened on %s at %d baud", serialOpts.PortName, serialOpts.BaudRate)

	reader := bufio.NewReader(port)

	var position gps.Position
	var velocity gps.Velocity
	var quality gps.Quality
	var current gps.Fix
	var satelliteBuffer []gps.Satellite
	lastPublishedFull := ""

	publishJSON := func(topic string, data interface{}) {
		if topic == "" {
			return
		}
		payload, err := json.Marshal(data)
		if err != nil {
			log.Printf("gpsfeed: marshal error for %s: %v", topic, err)
			return
		}
		token := client.Publish(topic, 0, false, payload)
		token.Wait()
		if token.Error() != nil {
			log.Printf("gpsfeed: publish error to %s: %v", topic, token.Error())
		}
	}

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("gpsfeed: serial read: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "$") {
			continue
		}

		sentence, err := nmea.Parse(line)
		if err != nil {
			continue
		}

		switch sentence.DataType() {
		case nmea.TypeRMC:
			m := sentence.(nmea.RMC)
			position.Time = m.Time.String()
			position.Date = m.Date.String()
			position.Latitude = m.Latitude
			position.Longitude = m.Longitude
			position.Validity = string(m.Validity)

			velocity.SpeedKnots = m.Speed
			velocity.CourseDeg = m.Course

			current.Time = m.Time.String()
			current.Date = m.Date.String()
			current.Latitude = m.Latitude
			current.Longitude = m.Longitude
			current.SpeedKnots = m.Speed
			current.CourseDeg = m.Course
			current.Validity = string(m.Validity)

			publishJSON(cfg.TopicGPSPosition, position)
			publishJSON(cfg.TopicGPSVelocity, velocity)

			payloadFull, err := json.Marshal(current)
			if err == nil && string(payloadFull) != lastPublishedFull {
				publishJSON(cfg.TopicGPS, current)
				log.Printf("gpsfeed: lat=%.6f lon=%.6f alt=%.1fm sats=%d fix=%s",
					current.Latitude, current.Longitude, current.Altitude,
					current.NumSatellites, current.FixType)
				lastPublishedFull = string(payloadFull)
			}

		case nmea.TypeGGA:
			m := sentence.(nmea.GGA)
			position.Altitude = m.Altitude
			quality.NumSatellites = m.NumSatellites
			quality.HDOP = m.HDOP
			quality.FixQuality = fixQualityName(m.FixQuality)

			current.Altitude = m.Altitude
			current.NumSatellites = m.NumSatellites
			current.HDOP = m.HDOP
			current.FixQuality = quality.FixQuality

			publishJSON(cfg.TopicGPSPosition, position)
			publishJSON(cfg.TopicGPSQuality, quality)

		case nmea.TypeGSA:
			m := sentence.(nmea.GSA)
			quality.FixType = fixTypeName(m.FixType)
			quality.PDOP = m.PDOP
			quality.HDOP = m.HDOP
			quality.VDOP = m.VDOP

			current.FixType = quality.FixType
			current.PDOP = m.PDOP
			current.HDOP = m.HDOP
			current.VDOP = m.VDOP

			publishJSON(cfg.TopicGPSQuality, quality)

		case nmea.TypeVTG:
			m := sentence.(nmea.VTG)
			velocity.SpeedKmh = m.GroundSpeedKPH
			current.SpeedKmh = m.GroundSpeedKPH
			publishJSON(cfg.TopicGPSVelocity, velocity)

		case nmea.TypeGSV:
			m := sentence.(nmea.GSV)
			if m.MessageNumber == 1 {
				satelliteBuffer = make([]gps.Satellite, 0, len(m.Info))
			}
			for _, sv := range m.Info {
				satelliteBuffer = append(satelliteBuffer, gps.Satellite{
					SVNumber:  sv.SVPRNNumber,
					Elevation: sv.Elevation,
					Azimuth:   sv.Azimuth,
					SNR:       sv.SNR,
				})
			}
			if m.MessageNumber == m.TotalMessages {
				current.GPSSatellitesInView = satelliteBuffer
				view := gps.SatellitesInView{GPSSatellites: satelliteBuffer, GPSCount: len(satelliteBuffer)}
				publishJSON(cfg.TopicGPSSatellites, view)
			}

		default:
		}
	}
}

func fixQualityName(code string) string {
	switch code {
	case "0":
		return "invalid"
	case "1":
		return "GPS"
	case "2":
		return "DGPS"
	case "4":
		return "RTK fixed"
	case "5":
		return "RTK float"
	default:
		return code
	}
}

func fixTypeName(code string) string {
	switch code {
	case "1":
		return "no fix"
	case "2":
		return "2D"
	case "3":
		return "3D"
	default:
		return code
	}
}

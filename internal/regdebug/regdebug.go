// Package regdebug implements a WebSocket register debug console over the
// MPU9250/AK8963 register map (C13): read, read-all, write (MPU9250 writes
// are gated by a writable-range allowlist; AK8963 writes are not checked
// against it), and register-map export.
package regdebug

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/mpu9250dmp/internal/i2cbus"
	"github.com/relabs-tech/mpu9250dmp/internal/mpu9250"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Session is one connected debug-console client.
type Session struct {
	Conn *websocket.Conn

	bus         *i2cbus.Bus
	mpuAddr     uint16
	magAddr     uint16
	allowedMask rangeSet
}

// Response is the JSON message shape sent to the client.
type Response struct {
	Type      string            `json:"type"`
	Device    string            `json:"device,omitempty"`
	Address   string            `json:"addr,omitempty"`
	Value     string            `json:"value,omitempty"`
	Registers map[string]string `json:"registers,omitempty"`
	Message   string            `json:"message,omitempty"`
	Timestamp string            `json:"timestamp,omitempty"`
}

// rangeSet is a parsed "0x1B-0x1D,0x6B" writable-address allowlist: a real
// implementation of what the reference console left as a permissive stub.
type rangeSet struct {
	singles map[byte]bool
	ranges  [][2]byte
}

// ParseRanges parses a comma-separated list of "0xAA" singles or
// "0xAA-0xBB" inclusive ranges. An empty string parses to a set that
// allows nothing, matching the console's fail-closed default.
func ParseRanges(spec string) (rangeSet, error) {
	rs := rangeSet{singles: map[byte]bool{}}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return rs, nil
	}
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, "-") {
			bounds := strings.SplitN(part, "-", 2)
			if len(bounds) != 2 {
				return rangeSet{}, fmt.Errorf("regdebug: invalid range %q", part)
			}
			lo, err := parseHexByte(bounds[0])
			if err != nil {
				return rangeSet{}, err
			}
			hi, err := parseHexByte(bounds[1])
			if err != nil {
				return rangeSet{}, err
			}
			if lo > hi {
				lo, hi = hi, lo
			}
			rs.ranges = append(rs.ranges, [2]byte{lo, hi})
		} else {
			v, err := parseHexByte(part)
			if err != nil {
				return rangeSet{}, err
			}
			rs.singles[v] = true
		}
	}
	return rs, nil
}

func parseHexByte(s string) (byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0, fmt.Errorf("regdebug: invalid hex byte %q: %w", s, err)
	}
	return byte(v), nil
}

// Allows reports whether addr is in the allowlist.
func (rs rangeSet) Allows(addr byte) bool {
	if rs.singles[addr] {
		return true
	}
	for _, r := range rs.ranges {
		if addr >= r[0] && addr <= r[1] {
			return true
		}
	}
	return false
}

// NewSession constructs a debug session bound to the given bus/addresses
// and write-allowlist specification.
func NewSession(conn *websocket.Conn, bus *i2cbus.Bus, mpuAddr, magAddr uint16, allowedRangesSpec string) (*Session, error) {
	rs, err := ParseRanges(allowedRangesSpec)
	if err != nil {
		return nil, err
	}
	return &Session{Conn: conn, bus: bus, mpuAddr: mpuAddr, magAddr: magAddr, allowedMask: rs}, nil
}

// HandleWS upgrades an HTTP request to a WebSocket and runs the session's
// message loop until the client disconnects.
func HandleWS(bus *i2cbus.Bus, mpuAddr, magAddr uint16, allowedRangesSpec string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("regdebug: upgrade error: %v", err)
			return
		}
		defer conn.Close()

		session, err := NewSession(conn, bus, mpuAddr, magAddr, allowedRangesSpec)
		if err != nil {
			log.Printf("regdebug: session init error: %v", err)
			return
		}
		session.sendRegisterMap("mpu9250")

		for {
			var raw map[string]interface{}
			if err := conn.ReadJSON(&raw); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("regdebug: websocket error: %v", err)
				}
				return
			}
			action, _ := raw["action"].(string)
			switch action {
			case "get_map":
				device, _ := raw["device"].(string)
				if device == "" {
					device = "mpu9250"
				}
				session.sendRegisterMap(device)
			case "read":
				session.handleRead(raw)
			case "write":
				session.handleWrite(raw)
			default:
				session.sendError(fmt.Sprintf("unknown action: %s", action))
			}
		}
	}
}

func (s *Session) sendRegisterMap(device string) {
	var regs []mpu9250.RegisterInfo
	if device == "ak8963" {
		regs = mpu9250.AK8963RegisterMap()
	} else {
		regs = mpu9250.RegisterMap()
	}
	m := make(map[string]string, len(regs))
	for _, r := range regs {
		m[fmt.Sprintf("0x%02X", r.Address)] = r.Name
	}
	s.Conn.WriteJSON(Response{Type: "register_map", Device: device, Registers: m, Timestamp: time.Now().Format(time.RFC3339)})
}

func (s *Session) handleRead(raw map[string]interface{}) {
	device, _ := raw["device"].(string)
	addrStr, _ := raw["addr"].(string)
	if addrStr == "" {
		s.sendError("missing addr field")
		return
	}
	addr, err := parseHexByte(addrStr)
	if err != nil {
		s.sendError(err.Error())
		return
	}
	devAddr := s.mpuAddr
	if device == "ak8963" {
		devAddr = s.magAddr
	}
	value, err := s.bus.ReadByte(devAddr, addr)
	if err != nil {
		s.sendError(fmt.Sprintf("read error: %v", err))
		return
	}
	s.Conn.WriteJSON(Response{
		Type: "register_data", Device: device, Address: addrStr,
		Value: fmt.Sprintf("0x%02X", value), Timestamp: time.Now().Format(time.RFC3339),
	})
}

func (s *Session) handleWrite(raw map[string]interface{}) {
	device, _ := raw["device"].(string)
	addrStr, _ := raw["addr"].(string)
	valueStr, _ := raw["value"].(string)
	if addrStr == "" || valueStr == "" {
		s.sendError("missing addr or value field")
		return
	}
	addr, err := parseHexByte(addrStr)
	if err != nil {
		s.sendError(err.Error())
		return
	}
	value, err := parseHexByte(valueStr)
	if err != nil {
		s.sendError(err.Error())
		return
	}

	devAddr := s.mpuAddr
	if device == "ak8963" {
		devAddr = s.magAddr
	} else if !s.allowedMask.Allows(addr) {
		s.sendError(fmt.Sprintf("register 0x%02X not in allowed write ranges", addr))
		return
	}

	if err := s.bus.WriteByte(devAddr, addr, value); err != nil {
		s.sendError(fmt.Sprintf("write error: %v", err))
		return
	}
	s.Conn.WriteJSON(Response{
		Type: "register_data", Device: device, Address: addrStr,
		Value: valueStr, Timestamp: time.Now().Format(time.RFC3339),
	})
}

func (s *Session) sendError(msg string) {
	s.Conn.WriteJSON(Response{Type: "error", Message: msg, Timestamp: time.Now().Format(time.RFC3339)})
}

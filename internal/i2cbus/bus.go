// Package i2cbus adapts a periph.io I2C bus into the byte/word/bit and
// bank-paged memory primitives the MPU9250/DMP driver needs, recording the
// last device address used and exposing a cooperative advisory lock.
package i2cbus

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"

	"github.com/relabs-tech/mpu9250dmp/internal/mpu9250err"
)

// BankSize is the DMP RAM page size; a single bank-paged transfer must not
// cross this boundary.
const BankSize = 256

// Bus wraps a periph.io i2c.Bus with address caching and a cooperative
// advisory lock, matching the transport contract of spec.md §4.3.
type Bus struct {
	bus i2c.Bus

	mu         sync.Mutex
	lastAddr   uint16
	haveLast   bool
	lockedByUs bool
}

// New wraps an already-opened periph.io i2c.Bus.
func New(bus i2c.Bus) *Bus {
	return &Bus{bus: bus}
}

func (b *Bus) tx(addr uint16, w, r []byte) error {
	dev := &i2c.Dev{Bus: b.bus, Addr: addr}
	if err := dev.Tx(w, r); err != nil {
		return fmt.Errorf("%w: %v", mpu9250err.ErrTransport, err)
	}
	b.lastAddr = addr
	b.haveLast = true
	return nil
}

// txRetry retries exactly once after 10ms on transport failure, matching
// the reset-sequence and register-access retry policy.
func (b *Bus) txRetry(addr uint16, w, r []byte) error {
	err := b.tx(addr, w, r)
	if err == nil {
		return nil
	}
	time.Sleep(10 * time.Millisecond)
	return b.tx(addr, w, r)
}

// WriteByte writes a single register.
func (b *Bus) WriteByte(addr uint16, reg, value byte) error {
	return b.txRetry(addr, []byte{reg, value}, nil)
}

// ReadByte reads a single register.
func (b *Bus) ReadByte(addr uint16, reg byte) (byte, error) {
	out := make([]byte, 1)
	if err := b.txRetry(addr, []byte{reg}, out); err != nil {
		return 0, err
	}
	return out[0], nil
}

// ReadBytes reads n bytes starting at reg.
func (b *Bus) ReadBytes(addr uint16, reg byte, n int) ([]byte, error) {
	out := make([]byte, n)
	if err := b.txRetry(addr, []byte{reg}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// WriteBytes writes payload starting at reg.
func (b *Bus) WriteBytes(addr uint16, reg byte, payload []byte) error {
	w := make([]byte, 1+len(payload))
	w[0] = reg
	copy(w[1:], payload)
	return b.txRetry(addr, w, nil)
}

// WriteBit sets or clears a single bit of a register. This is a
// read-modify-write with no hardware-level atomicity; callers must
// serialize concurrent access themselves (spec.md §9 open question).
func (b *Bus) WriteBit(addr uint16, reg byte, bit uint, value bool) error {
	cur, err := b.ReadByte(addr, reg)
	if err != nil {
		return err
	}
	if value {
		cur |= 1 << bit
	} else {
		cur &^= 1 << bit
	}
	return b.WriteByte(addr, reg, cur)
}

// TryLock asserts the cooperative advisory lock for the duration of a FIFO
// read or calibration routine. It never blocks; callers check TryLock's
// result and abort if another agent already holds it.
func (b *Bus) TryLock() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lockedByUs {
		return false
	}
	b.lockedByUs = true
	return true
}

// Unlock releases the cooperative advisory lock.
func (b *Bus) Unlock() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lockedByUs = false
}

// IsLocked reports whether the cooperative lock is currently held.
func (b *Bus) IsLocked() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lockedByUs
}

// WriteMem writes a bank-paged DMP memory block: addr16>>8 selects the bank
// register, addr16&0xFF the start-address register, then the payload is
// bulk-written to the memory R/W register. The payload must not cross a
// 256-byte bank boundary.
func (b *Bus) WriteMem(devAddr uint16, bankSelReg, startAddrReg, memRWReg byte, addr16 uint16, payload []byte) error {
	if int(addr16&0xFF)+len(payload) > BankSize {
		return fmt.Errorf("%w: addr=0x%04x len=%d", mpu9250err.ErrBankCrossing, addr16, len(payload))
	}
	if err := b.WriteByte(devAddr, bankSelReg, byte(addr16>>8)); err != nil {
		return err
	}
	if err := b.WriteByte(devAddr, startAddrReg, byte(addr16&0xFF)); err != nil {
		return err
	}
	return b.WriteBytes(devAddr, memRWReg, payload)
}

// ReadMem is the bank-paged read counterpart to WriteMem.
func (b *Bus) ReadMem(devAddr uint16, bankSelReg, startAddrReg, memRWReg byte, addr16 uint16, n int) ([]byte, error) {
	if int(addr16&0xFF)+n > BankSize {
		return nil, fmt.Errorf("%w: addr=0x%04x len=%d", mpu9250err.ErrBankCrossing, addr16, n)
	}
	if err := b.WriteByte(devAddr, bankSelReg, byte(addr16>>8)); err != nil {
		return nil, err
	}
	if err := b.WriteByte(devAddr, startAddrReg, byte(addr16&0xFF)); err != nil {
		return nil, err
	}
	return b.ReadBytes(devAddr, memRWReg, n)
}

package i2cbus

import (
	"errors"
	"testing"

	"github.com/relabs-tech/mpu9250dmp/internal/mpu9250err"
)

// fakeBus is a minimal periph.io i2c.Bus double backed by a flat register
// file indexed by the single byte written before a read.
type fakeBus struct {
	regs    map[byte]byte
	mem     map[uint16]byte
	lastReg byte
}

func (f *fakeBus) String() string { return "fake" }
func (f *fakeBus) Halt() error    { return nil }

func (f *fakeBus) Tx(addr uint16, w, r []byte) error {
	if len(w) > 0 {
		f.lastReg = w[0]
		for i, v := range w[1:] {
			f.regs[f.lastReg+byte(i)] = v
		}
	}
	for i := range r {
		r[i] = f.regs[f.lastReg+byte(i)]
	}
	return nil
}

func newFakeBus() *Bus {
	return New(&fakeBus{regs: map[byte]byte{}})
}

func TestWriteByteReadByteRoundTrip(t *testing.T) {
	b := newFakeBus()
	if err := b.WriteByte(0x68, 0x10, 0x42); err != nil {
		t.Fatalf("WriteByte: %v", err)
	}
	got, err := b.ReadByte(0x68, 0x10)
	if err != nil {
		t.Fatalf("ReadByte: %v", err)
	}
	if got != 0x42 {
		t.Errorf("ReadByte = 0x%02X, want 0x42", got)
	}
}

func TestWriteBit(t *testing.T) {
	b := newFakeBus()
	if err := b.WriteBit(0x68, 0x20, 3, true); err != nil {
		t.Fatalf("WriteBit set: %v", err)
	}
	got, _ := b.ReadByte(0x68, 0x20)
	if got != 1<<3 {
		t.Fatalf("after set bit 3, reg = 0x%02X, want 0x08", got)
	}
	if err := b.WriteBit(0x68, 0x20, 3, false); err != nil {
		t.Fatalf("WriteBit clear: %v", err)
	}
	got, _ = b.ReadByte(0x68, 0x20)
	if got != 0 {
		t.Fatalf("after clear bit 3, reg = 0x%02X, want 0x00", got)
	}
}

func TestTryLockUnlock(t *testing.T) {
	b := newFakeBus()
	if !b.TryLock() {
		t.Fatal("first TryLock should succeed")
	}
	if b.TryLock() {
		t.Fatal("second TryLock should fail while held")
	}
	if !b.IsLocked() {
		t.Fatal("IsLocked should report true while held")
	}
	b.Unlock()
	if b.IsLocked() {
		t.Fatal("IsLocked should report false after Unlock")
	}
	if !b.TryLock() {
		t.Fatal("TryLock should succeed again after Unlock")
	}
}

func TestWriteMemReadMemRoundTrip(t *testing.T) {
	b := newFakeBus()
	payload := []byte{1, 2, 3, 4, 5}
	addr16 := uint16(0x0110)
	if err := b.WriteMem(0x68, 0x6D, 0x6E, 0x6F, addr16, payload); err != nil {
		t.Fatalf("WriteMem: %v", err)
	}
	got, err := b.ReadMem(0x68, 0x6D, 0x6E, 0x6F, addr16, len(payload))
	if err != nil {
		t.Fatalf("ReadMem: %v", err)
	}
	for i, want := range payload {
		if got[i] != want {
			t.Errorf("byte %d = %d, want %d", i, got[i], want)
		}
	}
}

func TestWriteMemRejectsBankCrossing(t *testing.T) {
	b := newFakeBus()
	payload := make([]byte, 10)
	err := b.WriteMem(0x68, 0x6D, 0x6E, 0x6F, 0x00FA, payload) // 0xFA+10 > 0x100
	if !errors.Is(err, mpu9250err.ErrBankCrossing) {
		t.Fatalf("expected ErrBankCrossing, got %v", err)
	}
}

func TestReadMemRejectsBankCrossing(t *testing.T) {
	b := newFakeBus()
	_, err := b.ReadMem(0x68, 0x6D, 0x6E, 0x6F, 0x00FA, 10)
	if !errors.Is(err, mpu9250err.ErrBankCrossing) {
		t.Fatalf("expected ErrBankCrossing, got %v", err)
	}
}

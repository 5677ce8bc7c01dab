package fifo

import (
	"context"
	"testing"
	"time"

	"github.com/relabs-tech/mpu9250dmp/internal/dmp"
)

func TestNewClampsMagSampleDiv(t *testing.T) {
	r := New(nil, nil, nil, 0, dmp.OrientationZUp, 0)
	if r.magSampleDiv != 1 {
		t.Errorf("magSampleDiv = %d, want 1", r.magSampleDiv)
	}
}

func TestDeliverAndNext(t *testing.T) {
	r := New(nil, nil, nil, 0, dmp.OrientationZUp, 1)
	want := Sample{HasMag: true, MagX: 1, MagY: 2, MagZ: 3}
	r.deliver(want)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := r.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if got != want {
		t.Errorf("Next() = %+v, want %+v", got, want)
	}
}

func TestOnSampleBypassesQueue(t *testing.T) {
	r := New(nil, nil, nil, 0, dmp.OrientationZUp, 1)
	received := make(chan Sample, 1)
	r.OnSample(func(s Sample) { received <- s })

	want := Sample{HasMag: true, MagX: 9}
	r.deliver(want)

	select {
	case got := <-received:
		if got != want {
			t.Errorf("OnSample got %+v, want %+v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("OnSample callback was not invoked")
	}
}

func TestNextUnblocksOnContextCancel(t *testing.T) {
	r := New(nil, nil, nil, 0, dmp.OrientationZUp, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := r.Next(ctx)
		done <- err
	}()
	cancel()
	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected context.Canceled from Next")
		}
	case <-time.After(time.Second):
		t.Fatal("Next did not unblock after context cancellation")
	}
}

func TestNextUnblocksOnClose(t *testing.T) {
	r := New(nil, nil, nil, 0, dmp.OrientationZUp, 1)
	done := make(chan struct{})
	go func() {
		_, _ = r.Next(context.Background())
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	r.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Next did not unblock after Close")
	}
}

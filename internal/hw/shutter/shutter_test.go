package shutter

import (
	"testing"
	"time"

	"github.com/cceh/rticapture/internal/hw/gpio"
)

func TestGPIORelease_PulseSequence(t *testing.T) {
	mock := &gpio.MockDriver{}
	r := NewGPIORelease(mock, 24, 25, time.Millisecond, time.Millisecond)

	// Construction parks both lines HIGH.
	setup := mock.Writes()
	if len(setup) != 2 {
		t.Fatalf("setup writes = %d, want 2", len(setup))
	}
	for _, w := range setup {
		if w.Level != gpio.High {
			t.Errorf("pin %d parked %v, want high", w.Pin, w.Level)
		}
	}

	if err := r.Pulse(); err != nil {
		t.Fatal(err)
	}

	writes := mock.Writes()[2:]
	want := []gpio.PinWrite{
		{Pin: 24, Level: gpio.Low},  // half-press focus
		{Pin: 25, Level: gpio.Low},  // fire
		{Pin: 25, Level: gpio.High}, // release shutter
		{Pin: 24, Level: gpio.High}, // release focus
	}
	if len(writes) != len(want) {
		t.Fatalf("pulse writes = %v, want %v", writes, want)
	}
	for i := range want {
		if writes[i] != want[i] {
			t.Errorf("write %d = %+v, want %+v", i, writes[i], want[i])
		}
	}
}

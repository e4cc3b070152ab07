package capture

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/cceh/rticapture/internal/hw/tether"
)

func TestDrain_DispatchesUntilEmpty(t *testing.T) {
	dev := tether.NewMockDevice(tether.NewMockConfig("Nikon D800E", "Nikon Corporation"))
	drain := NewEventDrain(dev, zerolog.Nop())

	var files []string
	var completes int
	drain.OnFileAdded = func(folder, name string) error {
		files = append(files, name)
		return nil
	}
	drain.OnCaptureComplete = func() { completes++ }

	dev.PushFile("/store", "DSC_0001.JPG", []byte("a"))
	dev.PushFile("/store", "DSC_0002.JPG", []byte("b"))
	dev.PushEvent(tether.Event{Type: tether.EventCaptureComplete})

	if err := drain.Drain(time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 || files[0] != "DSC_0001.JPG" || files[1] != "DSC_0002.JPG" {
		t.Errorf("files = %v", files)
	}
	if completes != 1 {
		t.Errorf("completes = %d, want 1", completes)
	}
}

func TestDrain_FileHandlerErrorAborts(t *testing.T) {
	dev := tether.NewMockDevice(tether.NewMockConfig("Nikon D800E", "Nikon Corporation"))
	drain := NewEventDrain(dev, zerolog.Nop())

	boom := errors.New("boom")
	calls := 0
	drain.OnFileAdded = func(folder, name string) error {
		calls++
		return boom
	}

	dev.PushFile("/store", "DSC_0001.JPG", []byte("a"))
	dev.PushFile("/store", "DSC_0002.JPG", []byte("b"))

	if err := drain.Drain(time.Millisecond); !errors.Is(err, boom) {
		t.Fatalf("error = %v, want boom", err)
	}
	if calls != 1 {
		t.Errorf("handler calls = %d, want 1 (drain must stop at the error)", calls)
	}
}

func TestDrain_PropertyEvent(t *testing.T) {
	dev := tether.NewMockDevice(tether.NewMockConfig("Nikon D800E", "Nikon Corporation"))
	drain := NewEventDrain(dev, zerolog.Nop())

	var gotName, gotValue string
	drain.OnProperty = func(id uint32, name, value string) {
		gotName, gotValue = name, value
	}

	dev.PushEvent(tether.Event{
		Type: tether.EventPropertyChanged, PropertyID: 0x500F,
		PropertyName: "iso", PropertyValue: "800",
	})
	if err := drain.Drain(time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if gotName != "iso" || gotValue != "800" {
		t.Errorf("property = %s=%s", gotName, gotValue)
	}
}

func TestDrain_UnknownEventParsing(t *testing.T) {
	cases := []struct {
		raw       string
		wantID    uint32
		wantName  string
		wantValue string
		dispatch  bool
	}{
		{`PTP Property 5007 changed, "f-number" to "f/9"`, 0x5007, "f-number", "f/9", true},
		{`PTP Property d1a8 changed to 2`, 0xd1a8, "", "2", true},
		{`PTP Event c201, Param1 00000001`, 0, "", "", false},
		{`something else entirely`, 0, "", "", false},
	}
	for _, tc := range cases {
		dev := tether.NewMockDevice(tether.NewMockConfig("Nikon D800E", "Nikon Corporation"))
		drain := NewEventDrain(dev, zerolog.Nop())

		dispatched := false
		var id uint32
		var name, value string
		drain.OnProperty = func(i uint32, n, v string) {
			dispatched = true
			id, name, value = i, n, v
		}

		dev.PushEvent(tether.Event{Type: tether.EventUnknown, Raw: tc.raw})
		if err := drain.Drain(time.Millisecond); err != nil {
			t.Fatal(err)
		}

		if dispatched != tc.dispatch {
			t.Errorf("%q: dispatched = %v, want %v", tc.raw, dispatched, tc.dispatch)
			continue
		}
		if !tc.dispatch {
			continue
		}
		if id != tc.wantID || name != tc.wantName || value != tc.wantValue {
			t.Errorf("%q: got %04x %q=%q, want %04x %q=%q", tc.raw, id, name, value, tc.wantID, tc.wantName, tc.wantValue)
		}
	}
}

func TestDrain_EmptyQueue(t *testing.T) {
	dev := tether.NewMockDevice(tether.NewMockConfig("Nikon D800E", "Nikon Corporation"))
	drain := NewEventDrain(dev, zerolog.Nop())
	if err := drain.Drain(time.Millisecond); err != nil {
		t.Errorf("empty drain returned %v", err)
	}
}

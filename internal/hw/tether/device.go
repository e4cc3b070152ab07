// Package tether abstracts the camera-control SDK used to drive a tethered
// camera: device discovery, the hierarchical configuration tree, the
// asynchronous hardware event queue, capture triggering and file transfer.
package tether

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Info identifies an attached camera before a session is opened.
type Info struct {
	Name string
	Port string
}

// Driver enumerates attached cameras and opens device sessions.
type Driver interface {
	// Autodetect lists currently attached cameras. An empty list is not an
	// error; it just means nothing is plugged in yet.
	Autodetect() ([]Info, error)
	// Open claims the device on the given port and returns an exclusive
	// session handle.
	Open(port string) (Device, error)
}

// EventType classifies a device event notification.
type EventType int

const (
	EventUnknown EventType = iota
	EventTimeout
	EventFileAdded
	EventFolderAdded
	EventCaptureComplete
	EventPropertyChanged
)

func (t EventType) String() string {
	switch t {
	case EventTimeout:
		return "Timeout"
	case EventFileAdded:
		return "File Added"
	case EventFolderAdded:
		return "Folder Added"
	case EventCaptureComplete:
		return "Capture Complete"
	case EventPropertyChanged:
		return "Property Changed"
	default:
		return "Unknown Event"
	}
}

// Event is one notification from the device's asynchronous queue.
// Which fields are set depends on Type; Raw carries the textual payload of
// unknown events for pattern matching.
type Event struct {
	Type EventType

	// EventFileAdded
	Folder string
	Name   string

	// EventPropertyChanged
	PropertyID    uint32
	PropertyName  string
	PropertyValue string

	// EventUnknown
	Raw string
}

// Errors reported by device implementations. ErrOutOfFocus is the one
// vendor-specific condition the capture logic must recognize and downgrade.
var (
	ErrNotConnected  = errors.New("tether: device not connected")
	ErrNoSuchConfig  = errors.New("tether: no such config property")
	ErrValueRejected = errors.New("tether: value rejected by device")
	ErrOutOfFocus    = errors.New("tether: could not achieve focus")
)

// Device is an open camera session. It owns exclusive access to the device
// transport; all calls must come from a single goroutine.
type Device interface {
	// Close ends the session. Closing an already-gone device returns an
	// error that callers are expected to swallow.
	Close() error

	// GetConfig fetches the full hierarchical configuration tree.
	GetConfig() (*Widget, error)
	// SetConfig writes a (mutated) configuration tree back to the device.
	SetConfig(cfg *Widget) error
	// GetNamedConfig fetches a single leaf property without reading the full
	// tree. Not all backends support this; those return ErrNoSuchConfig.
	GetNamedConfig(name string) (*Widget, error)

	// WaitForEvent blocks up to timeout for the next queued event. When the
	// queue stays empty it returns an Event with Type EventTimeout, not an
	// error.
	WaitForEvent(timeout time.Duration) (Event, error)

	// TriggerCapture fires one hardware trigger pulse.
	TriggerCapture() error
	// GetFile downloads a file from on-camera storage.
	GetFile(folder, name string) ([]byte, error)
	// DeleteFile removes a file from on-camera storage.
	DeleteFile(folder, name string) error
	// CapturePreview grabs one low-resolution live-view frame.
	CapturePreview() ([]byte, error)
}

// NewDriver selects a driver implementation by name. Only the mock driver is
// built into this binary; real SDK drivers are provided by the deployment.
// The mock driver comes with one simulated camera attached so the full stack
// can run on a development machine.
func NewDriver(name string) (Driver, error) {
	switch name {
	case "mock":
		drv := NewMockDriver()
		dev := NewMockDevice(NewMockConfig("Nikon D800E", "Nikon Corporation"))
		shot := 0
		dev.TriggerFunc = func(d *MockDevice) error {
			burst := 1
			expect := 1
			cfg := d.ConfigTree()
			if w, ok := cfg.ChildByName("burstnumber"); ok {
				if n, err := strconv.Atoi(w.Value); err == nil && n > 0 {
					burst = n
				}
			}
			if w, ok := cfg.ChildByName("imagequality"); ok {
				if strings.Contains(w.Value, "NEF") || strings.Contains(w.Value, "RAW") {
					expect = 2
				}
			}
			d.SimulateBurst(&shot, burst, expect)
			return nil
		}
		drv.Attach(Info{Name: "Nikon D800E (mock)", Port: "mock:0"}, dev)
		return drv, nil
	default:
		return nil, fmt.Errorf("unsupported tether driver: %s", name)
	}
}

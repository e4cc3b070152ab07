package gpio

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Level represents the logical state of a GPIO pin.
type Level bool

const (
	Low  Level = false
	High Level = true
)

// PinMode indicates whether a GPIO is input or output.
type PinMode int

const (
	Input PinMode = iota
	Output
)

// Driver defines the abstract interface for controlling GPIOs.
// This allows plugging in a real Raspberry Pi implementation
// or a mock for development on PC.
type Driver interface {
	SetupPin(pin int, mode PinMode) error
	WritePin(pin int, level Level) error
	Close() error
}

// NewDriver creates a GPIO driver based on the chosen mode.
// If mock is true, returns a MockDriver (for dev/test).
// If mock is false, returns a real RPiDriver (for Raspberry Pi).
func NewDriver(mock bool) (Driver, error) {
	if mock {
		log.Info().Str("component", "gpio").Msg("using mock GPIO driver")
		return &MockDriver{}, nil
	}
	return NewRPiDriver()
}

// PinWrite records a single WritePin call on the mock driver.
type PinWrite struct {
	Pin   int
	Level Level
}

// MockDriver is a test implementation that records pin writes
// instead of touching hardware.
type MockDriver struct {
	mu     sync.Mutex
	writes []PinWrite
}

func (m *MockDriver) SetupPin(pin int, mode PinMode) error {
	return nil
}

func (m *MockDriver) WritePin(pin int, level Level) error {
	m.mu.Lock()
	m.writes = append(m.writes, PinWrite{Pin: pin, Level: level})
	m.mu.Unlock()
	return nil
}

func (m *MockDriver) Close() error {
	return nil
}

// Writes returns a copy of all recorded pin writes in order.
func (m *MockDriver) Writes() []PinWrite {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PinWrite, len(m.writes))
	copy(out, m.writes)
	return out
}

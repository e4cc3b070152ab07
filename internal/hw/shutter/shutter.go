package shutter

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cceh/rticapture/internal/hw/gpio"
)

// Release fires one physical capture pulse on a camera that is triggered
// externally (cable release) instead of through the control SDK.
type Release interface {
	Pulse() error
}

// GPIORelease drives a DSLR remote connector over two GPIO lines:
// - GND: connected to Raspberry Pi ground
// - FOCUS: autofocus (activate by setting to LOW)
// - SHUTTER: trigger (activate by setting to LOW)
//
// Pulse sequence:
// 1. FOCUS to LOW
// 2. Wait for autofocus to complete
// 3. SHUTTER to LOW (fires the shot)
// 4. Hold for a moment
// 5. Set SHUTTER and FOCUS back to HIGH
type GPIORelease struct {
	gpio         gpio.Driver
	focusPin     int
	shutterPin   int
	focusDelay   time.Duration // time for autofocus
	shutterDelay time.Duration // shutter hold time
}

// NewGPIORelease creates a GPIO-driven cable release.
// focusPin and shutterPin are the GPIO pin numbers for the FOCUS and SHUTTER lines.
func NewGPIORelease(g gpio.Driver, focusPin, shutterPin int, focusDelay, shutterDelay time.Duration) *GPIORelease {
	// Configure pins as outputs, lines HIGH (inactive) by default
	_ = g.SetupPin(focusPin, gpio.Output)
	_ = g.SetupPin(shutterPin, gpio.Output)
	_ = g.WritePin(focusPin, gpio.High)
	_ = g.WritePin(shutterPin, gpio.High)

	return &GPIORelease{
		gpio:         g,
		focusPin:     focusPin,
		shutterPin:   shutterPin,
		focusDelay:   focusDelay,
		shutterDelay: shutterDelay,
	}
}

// Pulse fires one shot: FOCUS -> wait -> SHUTTER -> hold -> release.
func (r *GPIORelease) Pulse() error {
	log.Debug().Str("component", "shutter").
		Int("focus_pin", r.focusPin).Int("shutter_pin", r.shutterPin).
		Msg("firing release pulse")

	if err := r.gpio.WritePin(r.focusPin, gpio.Low); err != nil {
		return err
	}
	time.Sleep(r.focusDelay)

	if err := r.gpio.WritePin(r.shutterPin, gpio.Low); err != nil {
		// Release FOCUS on error
		_ = r.gpio.WritePin(r.focusPin, gpio.High)
		return err
	}
	time.Sleep(r.shutterDelay)

	if err := r.gpio.WritePin(r.shutterPin, gpio.High); err != nil {
		return err
	}
	return r.gpio.WritePin(r.focusPin, gpio.High)
}

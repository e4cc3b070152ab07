// Package led drives the dome light controller. The controller speaks a
// two-byte request/response protocol over a byte transport (an RFCOMM
// serial device in production): a request is [command, parameter], a
// response is [status, echoed command].
package led

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Protocol command bytes.
const (
	cmdLEDOn        byte = 0x01
	cmdLEDOff       byte = 0x02
	cmdSetLED       byte = 0x03
	cmdPilotLightOn byte = 0x04
)

// Protocol status bytes.
const (
	respOK             byte = 0x01
	respInvalidCommand byte = 0x10
	respInvalidLED     byte = 0x11
)

// NumLEDs is the number of addressable lights in the dome.
const NumLEDs = 60

var (
	ErrNotConnected   = errors.New("led: controller not connected")
	ErrTimeout        = errors.New("led: response timeout")
	ErrInvalidCommand = errors.New("led: controller rejected command")
	ErrInvalidLED     = errors.New("led: led index out of range")
)

// Transport is a connected byte pipe to the controller hardware.
type Transport interface {
	Connect() error
	Write(data []byte) error
	// Notifications delivers inbound frames. The channel is closed when the
	// link drops.
	Notifications() <-chan []byte
	Close() error
}

// ConnState is the link state of the controller.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	}
	return "unknown"
}

type request struct {
	frame [2]byte
	reply chan error
}

// Controller serializes commands to the dome controller. All transport
// access happens on the goroutine running Run; the link auto-reconnects
// after errors.
type Controller struct {
	transport Transport
	log       zerolog.Logger

	timeout time.Duration // response wait per command
	retry   time.Duration // reconnect interval

	reqs chan request

	mu    sync.Mutex
	state ConnState
}

func NewController(t Transport, logger zerolog.Logger) *Controller {
	return &Controller{
		transport: t,
		log:       logger.With().Str("component", "led").Logger(),
		timeout:   5 * time.Second,
		retry:     1 * time.Second,
		reqs:      make(chan request, 8),
	}
}

// SetTimeouts overrides the response and reconnect intervals. Call before
// Run.
func (c *Controller) SetTimeouts(response, retry time.Duration) {
	c.timeout = response
	c.retry = retry
}

// State reports the current link state.
func (c *Controller) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setState(s ConnState) {
	c.mu.Lock()
	prev := c.state
	c.state = s
	c.mu.Unlock()
	if prev != s {
		c.log.Debug().Str("from", prev.String()).Str("to", s.String()).Msg("link state changed")
	}
}

// Run connects the transport and serves commands until ctx is cancelled,
// reconnecting after link errors.
func (c *Controller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			c.setState(StateDisconnected)
			return
		}

		c.setState(StateConnecting)
		if err := c.transport.Connect(); err != nil {
			c.log.Warn().Err(err).Msg("controller connect failed, retrying")
			c.setState(StateDisconnected)
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.retry):
			}
			continue
		}

		c.log.Info().Msg("dome controller connected")
		c.setState(StateConnected)
		c.serve(ctx)

		c.setState(StateDisconnecting)
		if err := c.transport.Close(); err != nil {
			c.log.Debug().Err(err).Msg("transport close failed")
		}
		c.setState(StateDisconnected)

		if ctx.Err() != nil {
			return
		}
		c.log.Warn().Msg("dome controller link lost, reconnecting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.retry):
		}
	}
}

// serve handles one connected session; it returns when the link drops or
// ctx is cancelled.
func (c *Controller) serve(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-c.transport.Notifications():
			if !ok {
				return
			}
			// Nothing in flight; the controller should only talk when asked.
			c.log.Debug().Hex("frame", frame).Msg("unsolicited frame, dropping")
		case req := <-c.reqs:
			if err := c.execute(req); err != nil {
				req.reply <- err
				if isLinkError(err) {
					return
				}
				continue
			}
			req.reply <- nil
		}
	}
}

type linkError struct{ err error }

func (e linkError) Error() string { return e.err.Error() }
func (e linkError) Unwrap() error { return e.err }

func isLinkError(err error) bool {
	var le linkError
	return errors.As(err, &le)
}

// execute writes one frame and waits for its acknowledgement. A response is
// matched to the request by the echoed command byte; stale frames from an
// earlier timed-out request are skipped.
func (c *Controller) execute(req request) error {
	if err := c.transport.Write(req.frame[:]); err != nil {
		return linkError{fmt.Errorf("write frame: %w", err)}
	}

	deadline := time.NewTimer(c.timeout)
	defer deadline.Stop()
	for {
		select {
		case <-deadline.C:
			return ErrTimeout
		case frame, ok := <-c.transport.Notifications():
			if !ok {
				return linkError{errors.New("link closed while waiting for response")}
			}
			if len(frame) < 2 {
				c.log.Debug().Hex("frame", frame).Msg("short frame, dropping")
				continue
			}
			status, echo := frame[0], frame[1]
			switch status {
			case respOK:
				if echo != req.frame[0] {
					c.log.Debug().Hex("frame", frame).Msg("stale response, skipping")
					continue
				}
				return nil
			case respInvalidCommand:
				return ErrInvalidCommand
			case respInvalidLED:
				return ErrInvalidLED
			default:
				c.log.Warn().Hex("frame", frame).Msg("unknown response status")
				continue
			}
		}
	}
}

func (c *Controller) send(cmd, param byte) error {
	if c.State() != StateConnected {
		return ErrNotConnected
	}
	req := request{frame: [2]byte{cmd, param}, reply: make(chan error, 1)}
	select {
	case c.reqs <- req:
	case <-time.After(c.timeout):
		return ErrTimeout
	}
	select {
	case err := <-req.reply:
		return err
	case <-time.After(2 * c.timeout):
		return ErrTimeout
	}
}

// TurnOn switches the main dome lights on.
func (c *Controller) TurnOn() error { return c.send(cmdLEDOn, 0) }

// TurnOff switches all dome lights off.
func (c *Controller) TurnOff() error { return c.send(cmdLEDOff, 0) }

// SetLED lights a single LED by its dome position.
func (c *Controller) SetLED(index int) error {
	if index < 0 || index >= NumLEDs {
		return ErrInvalidLED
	}
	return c.send(cmdSetLED, byte(index))
}

// PilotLightOn switches on the dim pilot light used while framing.
func (c *Controller) PilotLightOn() error { return c.send(cmdPilotLightOn, 0) }

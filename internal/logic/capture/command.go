package capture

import "github.com/cceh/rticapture/internal/hw/tether"

// Command is an inbound instruction for the worker. Commands are delivered
// to the worker's single execution context through its queue; they never
// touch the device directly.
type Command interface {
	command()
	name() string
}

// FindCamera starts polling for an attached camera.
type FindCamera struct{}

// ConnectCamera opens a session to the most recently found camera.
type ConnectCamera struct{}

// DisconnectCamera ends the current session without auto-reconnect.
type DisconnectCamera struct{}

// Reconnect ends the current session and immediately starts looking for the
// camera again.
type Reconnect struct{}

// CaptureImages starts a capture operation.
type CaptureImages struct {
	Request Request
}

// Cancel cooperatively stops the running capture operation.
type Cancel struct{}

// SetProperty writes a single named configuration value, best-effort.
type SetProperty struct {
	Name  string
	Value string
}

// SetFullConfig writes a complete configuration tree back to the device.
type SetFullConfig struct {
	Config *tether.Widget
}

// GetConfig requests the current configuration tree. The reply is sent
// non-blocking; the channel should be buffered.
type GetConfig struct {
	Reply chan<- *tether.Widget
}

// SetLiveView switches continuous preview capture on or off.
type SetLiveView struct {
	Enabled bool
}

// TriggerAutofocus runs one autofocus cycle. Only honored while live view is
// active.
type TriggerAutofocus struct{}

func (FindCamera) command()       {}
func (ConnectCamera) command()    {}
func (DisconnectCamera) command() {}
func (Reconnect) command()        {}
func (CaptureImages) command()    {}
func (Cancel) command()           {}
func (SetProperty) command()      {}
func (SetFullConfig) command()    {}
func (GetConfig) command()        {}
func (SetLiveView) command()      {}
func (TriggerAutofocus) command() {}

func (FindCamera) name() string       { return "find-camera" }
func (ConnectCamera) name() string    { return "connect-camera" }
func (DisconnectCamera) name() string { return "disconnect-camera" }
func (Reconnect) name() string        { return "reconnect" }
func (CaptureImages) name() string    { return "capture-images" }
func (Cancel) name() string           { return "cancel" }
func (SetProperty) name() string      { return "set-property" }
func (SetFullConfig) name() string    { return "set-full-config" }
func (GetConfig) name() string        { return "get-config" }
func (SetLiveView) name() string      { return "set-live-view" }
func (TriggerAutofocus) name() string { return "trigger-autofocus" }

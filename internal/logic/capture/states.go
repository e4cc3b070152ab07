package capture

import "time"

// State is the camera worker's externally visible operating state. Exactly
// one state is current at any time; transitions are published on the Bus as
// an ordered stream. The closed set of implementations makes transition
// sites exhaustively checkable.
type State interface {
	state()
}

// Waiting: no camera attached, polling for one.
type Waiting struct{}

// Found: a camera was detected but no session is open yet.
type Found struct {
	Name string
	Port string
}

// Connecting: a session to the named camera is being opened.
type Connecting struct {
	Name string
}

// Ready: connected and idle. Name is the display name derived from the
// camera model and manufacturer properties.
type Ready struct {
	Name string
}

// Disconnecting: orderly session teardown in progress.
type Disconnecting struct{}

// Disconnected: the session ended. AutoReconnect tells the controller to
// start looking for the camera again.
type Disconnected struct {
	Name          string
	AutoReconnect bool
}

// ConnectionError: a device error made the session unusable.
type ConnectionError struct {
	Err error
}

// LiveViewStarted: live view was switched on. Lightmeter carries the last
// known meter reading when one is available.
type LiveViewStarted struct {
	Lightmeter    float64
	HasLightmeter bool
}

// LiveViewActive: continuous preview capture is running.
type LiveViewActive struct{}

// LiveViewStopped: live view was switched off.
type LiveViewStopped struct{}

// FocusStarted: an autofocus cycle is running.
type FocusStarted struct{}

// FocusFinished: the autofocus cycle ended. Success is false when the camera
// reported it could not achieve focus; that is not an error condition.
type FocusFinished struct {
	Success bool
}

// CaptureInProgress: a capture operation is running. Captured is the number
// of completed shots so far; it is republished on every completed shot and
// is monotonically non-decreasing within one operation.
type CaptureInProgress struct {
	Request  Request
	Captured int
}

// CaptureCancelling: cancellation was requested; in-flight frames are still
// settling.
type CaptureCancelling struct{}

// CaptureCanceled: the capture operation stopped on request.
type CaptureCanceled struct {
	Request Request
	Elapsed time.Duration
}

// CaptureFinished: the capture operation completed normally.
type CaptureFinished struct {
	Request  Request
	Elapsed  time.Duration
	Captured int
}

// CaptureError: a device error aborted the capture operation.
type CaptureError struct {
	Request Request
	Message string
}

func (Waiting) state()           {}
func (Found) state()             {}
func (Connecting) state()        {}
func (Ready) state()             {}
func (Disconnecting) state()     {}
func (Disconnected) state()      {}
func (ConnectionError) state()   {}
func (LiveViewStarted) state()   {}
func (LiveViewActive) state()    {}
func (LiveViewStopped) state()   {}
func (FocusStarted) state()      {}
func (FocusFinished) state()     {}
func (CaptureInProgress) state() {}
func (CaptureCancelling) state() {}
func (CaptureCanceled) state()   {}
func (CaptureFinished) state()   {}
func (CaptureError) state()      {}

// StateName returns a stable identifier for a state, used for logging and
// the control API.
func StateName(s State) string {
	switch s.(type) {
	case Waiting:
		return "waiting"
	case Found:
		return "found"
	case Connecting:
		return "connecting"
	case Ready:
		return "ready"
	case Disconnecting:
		return "disconnecting"
	case Disconnected:
		return "disconnected"
	case ConnectionError:
		return "connection-error"
	case LiveViewStarted:
		return "live-view-started"
	case LiveViewActive:
		return "live-view-active"
	case LiveViewStopped:
		return "live-view-stopped"
	case FocusStarted:
		return "focus-started"
	case FocusFinished:
		return "focus-finished"
	case CaptureInProgress:
		return "capture-in-progress"
	case CaptureCancelling:
		return "capture-cancelling"
	case CaptureCanceled:
		return "capture-canceled"
	case CaptureFinished:
		return "capture-finished"
	case CaptureError:
		return "capture-error"
	default:
		return "unknown"
	}
}

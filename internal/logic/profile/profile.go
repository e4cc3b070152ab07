// Package profile isolates per-camera-model quirks from the capture state
// machine: which named properties exist, how they are called, and which
// setting bundles to apply around each phase of a session.
package profile

import "fmt"

// Settings is a named-property bundle applied best-effort in one batch.
type Settings map[string]string

// Quality selects the capture output format.
type Quality string

const (
	QualityJPEG       Quality = "JPEG"
	QualityRAWAndJPEG Quality = "RAW+JPEG"
)

// Profile supplies model-specific behavior and configuration to the worker.
// Implementations are pure data providers with no mutable state.
type Profile interface {
	// Name returns the user-facing name of the rig/camera combination.
	Name() string

	// ManualTrigger reports whether capture pulses are fired externally
	// (dome controller, cable release) instead of through the SDK.
	ManualTrigger() bool
	// UseBurst reports whether one trigger pulse yields multiple frames up
	// to the burst-count property value.
	UseBurst() bool
	// NumCaptures is the length of a full multi-light series on this rig.
	NumCaptures() int
	// PollConfig lists properties to re-read periodically because the model
	// does not deliver property-changed events for them. Nil when the model
	// pushes changes itself.
	PollConfig() []string

	BurstProperty() string
	ISOProperty() string
	ShutterSpeedProperty() string
	FNumberProperty() string
	ImageFormatProperty() string

	InitialSettings() Settings
	StartAutofocusSettings() Settings
	StopAutofocusSettings() Settings
	StartLiveViewSettings() Settings
	StopLiveViewSettings() Settings
	StartCaptureSettings() Settings
	StopCaptureSettings() Settings

	// FormatSettings maps a requested quality to the property bundle that
	// selects it, plus the number of files the camera produces per shot
	// (1 for JPEG only, 2 for RAW+JPEG pairs). Always at least 1.
	FormatSettings(q Quality) (Settings, int)
}

// ByName returns the profile registered under the given identifier.
func ByName(name string) (Profile, error) {
	switch name {
	case "cceh-dome-nikon-d800e":
		return NikonD800E{}, nil
	case "paris-dome-sony-ilce7rm5":
		return SonyILCE7RM5{}, nil
	default:
		return nil, fmt.Errorf("unknown camera profile: %s", name)
	}
}

// Names lists all registered profile identifiers.
func Names() []string {
	return []string{"cceh-dome-nikon-d800e", "paris-dome-sony-ilce7rm5"}
}

package profile

// SonyILCE7RM5 is the Paris light dome with a Sony ILCE-7RM5. The dome fires
// the camera itself through the flash sync port, so every capture is manually
// triggered and the worker only collects the resulting file events. Some
// properties are only reachable through numeric PTP codes, and the model does
// not push property-changed events, so the named subset is polled.
type SonyILCE7RM5 struct{}

func (SonyILCE7RM5) Name() string { return "Paris Dome with Sony ILCE-7RM5" }

func (SonyILCE7RM5) ManualTrigger() bool { return true }
func (SonyILCE7RM5) UseBurst() bool      { return false }
func (SonyILCE7RM5) NumCaptures() int    { return 60 }
func (SonyILCE7RM5) PollConfig() []string {
	return []string{"iso", "f-number", "shutterspeed", "aspectratio"}
}

func (SonyILCE7RM5) BurstProperty() string        { return "" }
func (SonyILCE7RM5) ISOProperty() string          { return "iso" }
func (SonyILCE7RM5) ShutterSpeedProperty() string { return "shutterspeed" }
func (SonyILCE7RM5) FNumberProperty() string      { return "f-number" }
func (SonyILCE7RM5) ImageFormatProperty() string  { return "aspectratio" }

func (SonyILCE7RM5) InitialSettings() Settings {
	return Settings{
		"500e":         "4", // Exposure Program Mode: manual
		"whitebalance": "Daylight",
		"d1a7":         "2", // Enable release w/o card
	}
}

func (SonyILCE7RM5) StartAutofocusSettings() Settings {
	return Settings{
		"focusmode":     "Automatic", // AF-S
		"afwithshutter": "On",
		"autofocus":     "1",
	}
}

func (SonyILCE7RM5) StopAutofocusSettings() Settings {
	return Settings{
		"focusmode": "Manual",
		"autofocus": "0",
	}
}

func (SonyILCE7RM5) StartLiveViewSettings() Settings {
	return Settings{
		"focusmode": "Automatic",
	}
}

func (SonyILCE7RM5) StopLiveViewSettings() Settings {
	return Settings{
		"autofocus": "0",
	}
}

func (SonyILCE7RM5) StartCaptureSettings() Settings {
	return Settings{}
}

func (SonyILCE7RM5) StopCaptureSettings() Settings {
	return Settings{}
}

func (SonyILCE7RM5) FormatSettings(q Quality) (Settings, int) {
	if q == QualityRAWAndJPEG {
		return Settings{"imagequality": "RAW+JPEG"}, 2
	}
	return Settings{"imagequality": "JPEG"}, 1
}

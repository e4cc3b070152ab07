package profile

// NikonD800E is the CCeH light dome with a tethered Nikon D800E. The camera
// is burst-triggered: one pulse fires up to burstnumber frames while the dome
// steps through its lights. Property identifiers are the vendor's textual
// names.
type NikonD800E struct{}

func (NikonD800E) Name() string { return "CCeH Dome with Nikon D800E" }

func (NikonD800E) ManualTrigger() bool { return false }
func (NikonD800E) UseBurst() bool      { return true }
func (NikonD800E) NumCaptures() int    { return 60 }
func (NikonD800E) PollConfig() []string {
	return nil
}

func (NikonD800E) BurstProperty() string        { return "burstnumber" }
func (NikonD800E) ISOProperty() string          { return "iso" }
func (NikonD800E) ShutterSpeedProperty() string { return "shutterspeed2" }
func (NikonD800E) FNumberProperty() string      { return "f-number" }
func (NikonD800E) ImageFormatProperty() string  { return "d030" }

func (NikonD800E) InitialSettings() Settings {
	return Settings{
		"expprogram": "M",
	}
}

func (NikonD800E) StartAutofocusSettings() Settings {
	return Settings{
		"autofocusdrive": "1", // AF-S
		"focusmetermode": "Single Area",
	}
}

func (NikonD800E) StopAutofocusSettings() Settings {
	return Settings{
		"autofocusdrive": "0",
	}
}

func (NikonD800E) StartLiveViewSettings() Settings {
	return Settings{
		"viewfinder":   "1",
		"liveviewsize": "VGA",
		"expprogram":   "M",
	}
}

func (NikonD800E) StopLiveViewSettings() Settings {
	return Settings{
		"viewfinder":     "0",
		"autofocusdrive": "0",
	}
}

func (NikonD800E) StartCaptureSettings() Settings {
	return Settings{
		"viewfinder":     "1",
		"capturetarget":  "Internal RAM",
		"recordingmedia": "SDRAM",
		"autofocusdrive": "0",
		"focusmode":      "Manual",
		"focusmode2":     "MF (fixed)",
		"imagesize":      "0",
		"expprogram":     "M",
	}
}

func (NikonD800E) StopCaptureSettings() Settings {
	return Settings{
		"viewfinder": "0",
	}
}

func (NikonD800E) FormatSettings(q Quality) (Settings, int) {
	if q == QualityRAWAndJPEG {
		return Settings{"imagequality": "NEF+Fine"}, 2
	}
	return Settings{"imagequality": "JPEG Fine"}, 1
}

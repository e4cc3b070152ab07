package tether

// NewMockConfig builds a configuration tree resembling what a tethered DSLR
// exposes, with the properties the capture logic and the bundled profiles
// touch. Tests and the mock driver mode share it.
func NewMockConfig(model, manufacturer string) *Widget {
	leaf := func(name, value string, choices ...string) *Widget {
		return &Widget{Name: name, Label: name, Type: WidgetMenu, Value: value, Choices: choices}
	}
	text := func(name, value string) *Widget {
		return &Widget{Name: name, Label: name, Type: WidgetText, Value: value}
	}

	return &Widget{
		Name:  "main",
		Label: "Camera and Driver Configuration",
		Type:  WidgetWindow,
		Children: []*Widget{
			{
				Name: "status", Label: "Camera Status", Type: WidgetSection,
				Children: []*Widget{
					{Name: "cameramodel", Label: "Camera Model", Type: WidgetText, Value: model, ReadOnly: true},
					{Name: "manufacturer", Label: "Camera Manufacturer", Type: WidgetText, Value: manufacturer, ReadOnly: true},
					{Name: "lightmeter", Label: "Light Meter", Type: WidgetText, Value: "0", ReadOnly: true},
				},
			},
			{
				Name: "capturesettings", Label: "Capture Settings", Type: WidgetSection,
				Children: []*Widget{
					leaf("iso", "100", "100", "200", "400", "800"),
					leaf("f-number", "f/8", "f/4", "f/5.6", "f/8", "f/11"),
					leaf("shutterspeed", "1/60", "1/30", "1/60", "1/125"),
					leaf("shutterspeed2", "1/60", "1/30", "1/60", "1/125"),
					text("burstnumber", "1"),
					leaf("expprogram", "M", "P", "A", "S", "M"),
					leaf("imagequality", "JPEG Fine", "JPEG Fine", "JPEG", "NEF+Fine", "RAW+JPEG"),
					leaf("imagesize", "0", "0", "1", "2"),
					leaf("d030", "0", "0", "1", "2", "3"),
					leaf("aspectratio", "3:2", "3:2", "16:9"),
					text("500e", "4"),
					text("d1a7", "2"),
					leaf("whitebalance", "Automatic", "Automatic", "Daylight"),
				},
			},
			{
				Name: "settings", Label: "Camera Settings", Type: WidgetSection,
				Children: []*Widget{
					{Name: "viewfinder", Label: "Viewfinder", Type: WidgetToggle, Value: "0"},
					{Name: "autofocus", Label: "Autofocus", Type: WidgetToggle, Value: "0"},
					{Name: "autofocusdrive", Label: "Drive Autofocus", Type: WidgetToggle, Value: "0"},
					leaf("focusmode", "Manual", "Manual", "Automatic", "AF-S", "AF-C"),
					leaf("focusmode2", "MF (fixed)", "MF (fixed)", "AF-S", "AF-C"),
					leaf("focusmetermode", "Single Area", "Single Area", "Multi Area"),
					leaf("afwithshutter", "Off", "On", "Off"),
					leaf("liveviewsize", "VGA", "VGA", "XGA"),
					leaf("capturetarget", "Internal RAM", "Internal RAM", "Memory card"),
					leaf("recordingmedia", "SDRAM", "SDRAM", "Card"),
				},
			},
		},
	}
}

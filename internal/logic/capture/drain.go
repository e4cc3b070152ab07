package capture

import (
	"regexp"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/cceh/rticapture/internal/hw/tether"
)

// Some backends report property changes and vendor events only as loosely
// formatted text on otherwise unknown events. Two shapes are recognized;
// anything else is logged and dropped.
var (
	propChangedPattern = regexp.MustCompile(`PTP Property ([0-9a-fA-F]{4}) changed(?:, "([^"]*)")?(?: to "?([^"]*?)"?)?$`)
	ptpEventPattern    = regexp.MustCompile(`PTP Event ([0-9a-fA-F]{4})(?:, Param1 ([0-9a-fA-F]+))?`)
)

// EventDrain pulls hardware event notifications from the device and
// dispatches them synchronously into the worker. There is no queuing layer
// of its own; ordering is preserved because only the worker goroutine calls
// Drain.
type EventDrain struct {
	dev tether.Device
	log zerolog.Logger

	// OnFileAdded handles a new file on the camera. A non-nil error aborts
	// the drain and is returned to the caller.
	OnFileAdded func(folder, name string) error
	// OnCaptureComplete marks the end of a burst.
	OnCaptureComplete func()
	// OnProperty reports a changed property value.
	OnProperty func(id uint32, name, value string)
}

func NewEventDrain(dev tether.Device, logger zerolog.Logger) *EventDrain {
	return &EventDrain{
		dev: dev,
		log: logger.With().Str("component", "drain").Logger(),
	}
}

// Drain polls the device for events with the given timeout for the first
// poll and a 1ms timeout for follow-ups, dispatching every non-timeout event
// until the queue reports empty.
func (d *EventDrain) Drain(timeout time.Duration) error {
	ev, err := d.dev.WaitForEvent(timeout)
	for err == nil && ev.Type != tether.EventTimeout {
		if derr := d.dispatch(ev); derr != nil {
			return derr
		}
		ev, err = d.dev.WaitForEvent(1 * time.Millisecond)
	}
	return err
}

func (d *EventDrain) dispatch(ev tether.Event) error {
	d.log.Debug().Str("event", ev.Type.String()).Str("folder", ev.Folder).Str("name", ev.Name).Msg("device event")

	switch ev.Type {
	case tether.EventFileAdded:
		if d.OnFileAdded != nil {
			return d.OnFileAdded(ev.Folder, ev.Name)
		}
	case tether.EventCaptureComplete:
		if d.OnCaptureComplete != nil {
			d.OnCaptureComplete()
		}
	case tether.EventPropertyChanged:
		if d.OnProperty != nil {
			d.OnProperty(ev.PropertyID, ev.PropertyName, ev.PropertyValue)
		}
	case tether.EventFolderAdded:
		// nothing to do
	case tether.EventUnknown:
		d.dispatchUnknown(ev.Raw)
	}
	return nil
}

// dispatchUnknown matches the textual payload of an unknown event against
// the two known shapes. Property changes are always published; a bare PTP
// event is only logged.
func (d *EventDrain) dispatchUnknown(raw string) {
	if m := propChangedPattern.FindStringSubmatch(raw); m != nil {
		id, _ := strconv.ParseUint(m[1], 16, 32)
		if d.OnProperty != nil {
			d.OnProperty(uint32(id), m[2], m[3])
		}
		return
	}
	if m := ptpEventPattern.FindStringSubmatch(raw); m != nil {
		d.log.Debug().Str("code", m[1]).Str("param", m[2]).Msg("vendor PTP event")
		return
	}
	d.log.Debug().Str("raw", raw).Msg("unrecognized device event")
}

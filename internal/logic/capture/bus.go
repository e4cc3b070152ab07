package capture

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/cceh/rticapture/internal/hw/tether"
)

// Event is an outbound notification published by the worker.
type Event interface {
	event()
}

// Initialized is published once when the worker loop starts.
type Initialized struct{}

// StateChanged carries every state transition, in order.
type StateChanged struct {
	State State
}

// PropertyChanged reports a device property value change, whether observed
// through the event queue or by polling.
type PropertyChanged struct {
	ID    uint32
	Name  string
	Value string
}

// ConfigUpdated carries a fresh copy of the configuration tree.
type ConfigUpdated struct {
	Config *tether.Widget
}

// PreviewFrame carries one live-view frame.
type PreviewFrame struct {
	Image []byte
}

// ImageSaved reports a captured file written to disk.
type ImageSaved struct {
	Path string
}

// CommandRejected reports a command that was not valid in the current state.
type CommandRejected struct {
	Command string
	Reason  string
}

func (Initialized) event()     {}
func (StateChanged) event()    {}
func (PropertyChanged) event() {}
func (ConfigUpdated) event()   {}
func (PreviewFrame) event()    {}
func (ImageSaved) event()      {}
func (CommandRejected) event() {}

// Bus distributes worker events to multiple subscribers. Publishing happens
// from the single worker goroutine and subscriber channels are buffered, so
// each subscriber observes events in publish order. Delivery is
// non-blocking: a subscriber that falls behind loses events rather than
// stalling the worker.
type Bus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
	log  zerolog.Logger
}

func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		subs: make(map[chan Event]struct{}),
		log:  logger.With().Str("component", "bus").Logger(),
	}
}

// Subscribe returns a channel receiving published events and a cleanup
// function the caller must invoke when done.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 256)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	unsub := func() {
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
		close(ch)
	}
	return ch, unsub
}

// Publish sends an event to all subscribers.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.log.Warn().Type("event", ev).Msg("subscriber queue full, dropping event")
		}
	}
}

package tether

import (
	"fmt"
	"strconv"
	"sync"
	"time"
)

// MockDriver is a scriptable Driver used for development on PC and in tests.
type MockDriver struct {
	mu      sync.Mutex
	cameras []Info
	devices map[string]*MockDevice

	// AutodetectErr, when set, is returned by Autodetect.
	AutodetectErr error
	// OpenErr, when set, is returned by Open.
	OpenErr error
}

func NewMockDriver() *MockDriver {
	return &MockDriver{devices: make(map[string]*MockDevice)}
}

// Attach registers a camera so that Autodetect finds it and Open returns dev.
func (m *MockDriver) Attach(info Info, dev *MockDevice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cameras = append(m.cameras, info)
	m.devices[info.Port] = dev
}

// Detach removes all attached cameras.
func (m *MockDriver) Detach() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cameras = nil
	m.devices = make(map[string]*MockDevice)
}

func (m *MockDriver) Autodetect() ([]Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AutodetectErr != nil {
		return nil, m.AutodetectErr
	}
	return append([]Info(nil), m.cameras...), nil
}

func (m *MockDriver) Open(port string) (Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.OpenErr != nil {
		return nil, m.OpenErr
	}
	dev, ok := m.devices[port]
	if !ok {
		return nil, fmt.Errorf("mock: no device on port %s", port)
	}
	return dev, nil
}

// FileOp records a GetFile or DeleteFile call.
type FileOp struct {
	Folder string
	Name   string
}

// MockDevice is a scriptable camera session. Events are consumed from a
// queue that tests fill directly or via a TriggerFunc hook; all state is
// mutex-guarded so tests can push events while the worker drains them.
type MockDevice struct {
	mu     sync.Mutex
	config *Widget
	events []Event
	files  map[string][]byte

	gone   bool
	closed bool

	triggers int
	gets     []FileOp
	deletes  []FileOp

	// TriggerFunc, when set, replaces the default TriggerCapture behavior.
	// It runs with the device unlocked so it may call PushEvent.
	TriggerFunc func(d *MockDevice) error

	// Error injection. Each applies to the corresponding method.
	ConfigErr   error
	SetCfgErr   error
	TriggerErr  error
	GetFileErr  error
	DeleteErr   error
	PreviewErr  error
	CloseErr    error
	WaitErr     error
	PreviewData []byte
}

func NewMockDevice(cfg *Widget) *MockDevice {
	return &MockDevice{
		config:      cfg,
		files:       make(map[string][]byte),
		PreviewData: []byte("preview"),
	}
}

// Inject runs fn under the device lock, so tests can flip error-injection
// fields while the worker is using the device.
func (d *MockDevice) Inject(fn func(d *MockDevice)) {
	d.mu.Lock()
	fn(d)
	d.mu.Unlock()
}

// Vanish makes every subsequent call fail as if the device was unplugged.
func (d *MockDevice) Vanish() {
	d.mu.Lock()
	d.gone = true
	d.mu.Unlock()
}

func (d *MockDevice) check() error {
	if d.gone {
		return ErrNotConnected
	}
	if d.closed {
		return ErrNotConnected
	}
	return nil
}

func (d *MockDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gone {
		return ErrNotConnected
	}
	d.closed = true
	return d.CloseErr
}

func (d *MockDevice) GetConfig() (*Widget, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(); err != nil {
		return nil, err
	}
	if d.ConfigErr != nil {
		return nil, d.ConfigErr
	}
	return d.config.Clone(), nil
}

func (d *MockDevice) SetConfig(cfg *Widget) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(); err != nil {
		return err
	}
	if d.SetCfgErr != nil {
		return d.SetCfgErr
	}
	d.config = cfg.Clone()
	return nil
}

func (d *MockDevice) GetNamedConfig(name string) (*Widget, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(); err != nil {
		return nil, err
	}
	if d.ConfigErr != nil {
		return nil, d.ConfigErr
	}
	w, ok := d.config.ChildByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchConfig, name)
	}
	return w.Clone(), nil
}

// PushEvent appends an event to the queue.
func (d *MockDevice) PushEvent(ev Event) {
	d.mu.Lock()
	d.events = append(d.events, ev)
	d.mu.Unlock()
}

// PushFile registers file data on the camera and queues the matching
// file-added event.
func (d *MockDevice) PushFile(folder, name string, data []byte) {
	d.mu.Lock()
	d.files[folder+"/"+name] = data
	d.events = append(d.events, Event{Type: EventFileAdded, Folder: folder, Name: name})
	d.mu.Unlock()
}

func (d *MockDevice) WaitForEvent(timeout time.Duration) (Event, error) {
	d.mu.Lock()
	if err := d.check(); err != nil {
		d.mu.Unlock()
		return Event{}, err
	}
	if d.WaitErr != nil {
		err := d.WaitErr
		d.mu.Unlock()
		return Event{}, err
	}
	if len(d.events) > 0 {
		ev := d.events[0]
		d.events = d.events[1:]
		d.mu.Unlock()
		return ev, nil
	}
	d.mu.Unlock()

	// Behave like the SDK: block up to timeout, then report a timeout event.
	time.Sleep(timeout)

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(); err != nil {
		return Event{}, err
	}
	if len(d.events) > 0 {
		ev := d.events[0]
		d.events = d.events[1:]
		return ev, nil
	}
	return Event{Type: EventTimeout}, nil
}

func (d *MockDevice) TriggerCapture() error {
	d.mu.Lock()
	if err := d.check(); err != nil {
		d.mu.Unlock()
		return err
	}
	d.triggers++
	fn := d.TriggerFunc
	err := d.TriggerErr
	d.mu.Unlock()

	if err != nil {
		return err
	}
	if fn != nil {
		return fn(d)
	}
	return nil
}

// SimulateBurst queues burst shots of expectFiles files each, followed by a
// capture-complete event, the way a burst-triggered camera delivers them.
// File names continue from the given shot counter, which is advanced.
func (d *MockDevice) SimulateBurst(shot *int, burst, expectFiles int) {
	exts := []string{".NEF", ".JPG"}
	if expectFiles == 1 {
		exts = []string{".JPG"}
	}
	for i := 0; i < burst; i++ {
		*shot++
		for f := 0; f < expectFiles; f++ {
			name := fmt.Sprintf("DSC_%04d%s", *shot, exts[f%len(exts)])
			d.PushFile("/store_00010001/DCIM/100ND800", name, []byte("img"+strconv.Itoa(*shot)))
		}
	}
	d.PushEvent(Event{Type: EventCaptureComplete})
}

func (d *MockDevice) GetFile(folder, name string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(); err != nil {
		return nil, err
	}
	if d.GetFileErr != nil {
		return nil, d.GetFileErr
	}
	d.gets = append(d.gets, FileOp{Folder: folder, Name: name})
	data, ok := d.files[folder+"/"+name]
	if !ok {
		return nil, fmt.Errorf("mock: no file %s/%s", folder, name)
	}
	return data, nil
}

func (d *MockDevice) DeleteFile(folder, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(); err != nil {
		return err
	}
	if d.DeleteErr != nil {
		return d.DeleteErr
	}
	d.deletes = append(d.deletes, FileOp{Folder: folder, Name: name})
	delete(d.files, folder+"/"+name)
	return nil
}

func (d *MockDevice) CapturePreview() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(); err != nil {
		return nil, err
	}
	if d.PreviewErr != nil {
		return nil, d.PreviewErr
	}
	return d.PreviewData, nil
}

// Triggers returns how many trigger pulses were issued.
func (d *MockDevice) Triggers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.triggers
}

// Gets returns all recorded file downloads in order.
func (d *MockDevice) Gets() []FileOp {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]FileOp(nil), d.gets...)
}

// Deletes returns all recorded file deletions in order.
func (d *MockDevice) Deletes() []FileOp {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]FileOp(nil), d.deletes...)
}

// Config returns the device's current configuration tree (a copy).
func (d *MockDevice) ConfigTree() *Widget {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.config.Clone()
}

package led

import "sync"

// MockTransport is an in-memory controller used in tests and mock
// deployments. By default it acknowledges every command; Respond and the
// error fields override that per test.
type MockTransport struct {
	mu       sync.Mutex
	notifs   chan []byte
	written  [][]byte
	attached bool

	// ConnectErr fails the next Connect call.
	ConnectErr error
	// WriteErr fails every Write call.
	WriteErr error
	// Respond builds the response frame for a written command frame.
	// Returning nil suppresses the response (the request times out).
	Respond func(frame []byte) []byte
}

func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

func (t *MockTransport) Connect() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ConnectErr != nil {
		err := t.ConnectErr
		t.ConnectErr = nil
		return err
	}
	t.notifs = make(chan []byte, 8)
	t.attached = true
	return nil
}

func (t *MockTransport) Write(data []byte) error {
	t.mu.Lock()
	if !t.attached {
		t.mu.Unlock()
		return ErrNotConnected
	}
	if t.WriteErr != nil {
		err := t.WriteErr
		t.mu.Unlock()
		return err
	}
	frame := make([]byte, len(data))
	copy(frame, data)
	t.written = append(t.written, frame)
	respond := t.Respond
	notifs := t.notifs
	t.mu.Unlock()

	var resp []byte
	if respond != nil {
		resp = respond(frame)
	} else if len(frame) == 2 {
		resp = []byte{respOK, frame[0]}
	}
	if resp != nil {
		notifs <- resp
	}
	return nil
}

func (t *MockTransport) Notifications() <-chan []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.notifs
}

func (t *MockTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.attached {
		return nil
	}
	t.attached = false
	close(t.notifs)
	return nil
}

// Inject queues a frame as if the controller had sent it unprompted.
func (t *MockTransport) Inject(frame []byte) {
	t.mu.Lock()
	notifs := t.notifs
	t.mu.Unlock()
	notifs <- frame
}

// Written returns all frames written so far.
func (t *MockTransport) Written() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]byte, len(t.written))
	copy(out, t.written)
	return out
}

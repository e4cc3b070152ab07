package led

import (
	"fmt"
	"os"
	"sync"
)

// SerialTransport talks to the controller through a serial device node,
// typically an RFCOMM binding of the controller's Bluetooth channel
// (/dev/rfcomm0). Frames are two bytes on the wire with no framing layer.
type SerialTransport struct {
	path string

	mu     sync.Mutex
	file   *os.File
	notifs chan []byte
}

func NewSerialTransport(path string) *SerialTransport {
	return &SerialTransport{path: path}
}

func (t *SerialTransport) Connect() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.file != nil {
		return nil
	}
	f, err := os.OpenFile(t.path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", t.path, err)
	}
	t.file = f
	t.notifs = make(chan []byte, 8)
	go t.readLoop(f, t.notifs)
	return nil
}

// readLoop pushes two-byte response frames until the device read fails,
// then closes the notification channel to signal the dropped link.
func (t *SerialTransport) readLoop(f *os.File, notifs chan []byte) {
	defer close(notifs)
	buf := make([]byte, 2)
	for {
		n, err := f.Read(buf)
		if err != nil {
			return
		}
		if n == 0 {
			continue
		}
		frame := make([]byte, n)
		copy(frame, buf[:n])
		notifs <- frame
	}
}

func (t *SerialTransport) Write(data []byte) error {
	t.mu.Lock()
	f := t.file
	t.mu.Unlock()
	if f == nil {
		return ErrNotConnected
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", t.path, err)
	}
	return nil
}

func (t *SerialTransport) Notifications() <-chan []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.notifs
}

func (t *SerialTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.file == nil {
		return nil
	}
	err := t.file.Close()
	t.file = nil
	return err
}

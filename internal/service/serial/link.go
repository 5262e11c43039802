package serial

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"facewatch/internal/service/presence"

	bugst "go.bug.st/serial"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("serial link closed")

// Port is the part of a serial port the link needs.
type Port interface {
	io.Writer
	Close() error
}

// Link writes one-byte presence signals to a microcontroller. There is no
// framing and no acknowledgement.
type Link struct {
	name string
	port Port
	mu   sync.Mutex
}

// Open opens portName at baud (8N1) and waits settle for the board to reset.
func Open(portName string, baud int, settle time.Duration) (*Link, error) {
	mode := &bugst.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   bugst.NoParity,
		StopBits: bugst.OneStopBit,
	}

	port, err := bugst.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}
	if err := port.SetReadTimeout(time.Second); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to configure serial port %s: %w", portName, err)
	}

	// Opening the port resets most boards; give the firmware time to boot.
	if settle > 0 {
		time.Sleep(settle)
	}

	return NewLink(portName, port), nil
}

// NewLink wraps an already opened port.
func NewLink(name string, port Port) *Link {
	return &Link{name: name, port: port}
}

// Name returns the port name the link was opened with.
func (l *Link) Name() string {
	return l.name
}

// Send writes sig as a single byte.
func (l *Link) Send(sig presence.Signal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.port == nil {
		return ErrClosed
	}

	n, err := l.port.Write([]byte{byte(sig)})
	if err != nil {
		return fmt.Errorf("failed to write signal %q to %s: %w", sig.String(), l.name, err)
	}
	if n != 1 {
		return fmt.Errorf("short write of signal %q to %s", sig.String(), l.name)
	}
	return nil
}

// Close releases the port. It is safe to call more than once.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.port == nil {
		return nil
	}
	err := l.port.Close()
	l.port = nil
	return err
}

// ListPorts returns the serial ports present on the system.
func ListPorts() ([]string, error) {
	ports, err := bugst.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}

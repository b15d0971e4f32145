package comm

import (
	"errors"
	"io"
	"sync"
)

// Mock is an in-memory Channel.  Each written line earns exactly one reply
// line (Ack), which makes it a stand-in for focuser firmware in tests and
// in the servers' mock mode.
type Mock struct {
	sync.Mutex

	// Ack is the reply line owed for every write
	Ack string

	name     string
	written  []string
	owed     int
	closed   bool
	closedCh chan struct{}
	hold     chan struct{}
	writeErr error
}

// NewMock returns an open mock channel with the given port name
func NewMock(name string) *Mock {
	return &Mock{
		Ack:      "OK",
		name:     name,
		closedCh: make(chan struct{}),
	}
}

// Name returns the port name
func (m *Mock) Name() string {
	return m.name
}

// WriteLine records s.  It fails with the error set by FailWrites, if any.
func (m *Mock) WriteLine(s string) error {
	m.Lock()
	defer m.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.writeErr != nil {
		return m.writeErr
	}
	m.written = append(m.written, s)
	m.owed++
	return nil
}

// ReadLine returns Ack for an outstanding write.  While reads are held it
// blocks until ReleaseReads or Close.
func (m *Mock) ReadLine() (string, error) {
	m.Lock()
	hold, closedCh := m.hold, m.closedCh
	m.Unlock()
	if hold != nil {
		select {
		case <-hold:
		case <-closedCh:
			return "", ErrClosed
		}
	}
	m.Lock()
	defer m.Unlock()
	if m.closed {
		return "", ErrClosed
	}
	if m.owed == 0 {
		return "", io.EOF
	}
	m.owed--
	return m.Ack, nil
}

// Close marks the mock closed and wakes any held reader
func (m *Mock) Close() error {
	m.Lock()
	defer m.Unlock()
	if !m.closed {
		m.closed = true
		close(m.closedCh)
	}
	return nil
}

// Closed reports if Close has been called
func (m *Mock) Closed() bool {
	m.Lock()
	defer m.Unlock()
	return m.closed
}

// Written returns a copy of every line written so far, without terminators
func (m *Mock) Written() []string {
	m.Lock()
	defer m.Unlock()
	out := make([]string, len(m.written))
	copy(out, m.written)
	return out
}

// FailWrites makes every following WriteLine return err; nil restores writes
func (m *Mock) FailWrites(err error) {
	m.Lock()
	defer m.Unlock()
	m.writeErr = err
}

// HoldReads makes ReadLine block until ReleaseReads is called
func (m *Mock) HoldReads() {
	m.Lock()
	defer m.Unlock()
	if m.hold == nil {
		m.hold = make(chan struct{})
	}
}

// ReleaseReads unblocks readers waiting in ReadLine
func (m *Mock) ReleaseReads() {
	m.Lock()
	defer m.Unlock()
	if m.hold != nil {
		close(m.hold)
		m.hold = nil
	}
}

// ErrMockOpen is returned by a MockDialer told to fail
var ErrMockOpen = errors.New("mock: port could not be opened")

// MockDialer hands out Mocks in place of real ports
type MockDialer struct {
	sync.Mutex

	// Fail makes Open return ErrMockOpen
	Fail bool

	// Available is what Ports reports
	Available []string

	opened []*Mock
}

// Open returns a new Mock named name
func (d *MockDialer) Open(name string) (Channel, error) {
	d.Lock()
	defer d.Unlock()
	if d.Fail {
		return nil, ErrMockOpen
	}
	m := NewMock(name)
	d.opened = append(d.opened, m)
	return m, nil
}

// Last returns the most recently opened Mock, or nil
func (d *MockDialer) Last() *Mock {
	d.Lock()
	defer d.Unlock()
	if len(d.opened) == 0 {
		return nil
	}
	return d.opened[len(d.opened)-1]
}

// Ports returns Available, and has the same shape as ListPorts
func (d *MockDialer) Ports() ([]string, error) {
	d.Lock()
	defer d.Unlock()
	out := make([]string, len(d.Available))
	copy(out, d.Available)
	return out, nil
}

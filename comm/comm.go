/*Package comm provides the line-oriented channel used to talk to serial hardware.

A Channel is opened by name through a Dialer.  Names that look like host:port
are dialed over TCP (e.g. a port on a digi portserver), anything else is
treated as a serial device (/dev/ttyUSB0, COM5) and opened with go.bug.st/serial,
whose Close interrupts a read blocked on another goroutine.

Every command is a single line terminated by '\n', and every reply is read up
to the next '\n' with the terminator (and a trailing '\r', if any) stripped.

A minimal exchange looks like:

	d := comm.Dialer{Baud: 115200}
	ch, err := d.Open("/dev/ttyUSB0")
	if err != nil {
		return err
	}
	defer ch.Close()
	if err := ch.WriteLine("E"); err != nil {
		return err
	}
	ack, err := ch.ReadLine()
*/
package comm

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"sync"
)

var (
	terminator = byte('\n')

	// ErrNotConnected is generated when there is no open channel to send on
	ErrNotConnected = errors.New("conn is nil, not connected to remote")

	// ErrTerminatorNotFound is generated when the termination byte is not found in a response
	ErrTerminatorNotFound = errors.New("termination byte not found")

	// ErrClosed is generated when a closed channel is used
	ErrClosed = errors.New("channel is closed")
)

// Channel is an open, named, line-delimited connection to a device.
// ReadLine blocks until a full line arrives or the channel is closed.
type Channel interface {
	io.Closer

	// Name is the port name the channel was opened with
	Name() string

	// WriteLine writes s followed by the terminator
	WriteLine(s string) error

	// ReadLine reads one line, without its terminator
	ReadLine() (string, error)
}

// LineConn adapts an io.ReadWriteCloser to a Channel.  The reader is kept
// for the life of the connection so bytes buffered past one terminator are
// not lost before the next ReadLine.
type LineConn struct {
	name string
	conn io.ReadWriteCloser
	r    *bufio.Reader

	mu     sync.Mutex
	closed bool
}

// NewLineConn wraps conn, which is owned by the returned LineConn from here on
func NewLineConn(name string, conn io.ReadWriteCloser) *LineConn {
	return &LineConn{name: name, conn: conn, r: bufio.NewReader(conn)}
}

// Name returns the port name
func (lc *LineConn) Name() string {
	return lc.name
}

// WriteLine writes s to the remote after appending the terminator
func (lc *LineConn) WriteLine(s string) error {
	if lc.isClosed() {
		return ErrClosed
	}
	b := make([]byte, 0, len(s)+1)
	b = append(b, s...)
	b = append(b, terminator)
	_, err := lc.conn.Write(b)
	return err
}

// ReadLine receives one line from the remote and strips the terminator
func (lc *LineConn) ReadLine() (string, error) {
	if lc.isClosed() {
		return "", ErrClosed
	}
	buf, err := lc.r.ReadBytes(terminator)
	if err != nil {
		if lc.isClosed() {
			return "", ErrClosed
		}
		if len(buf) > 0 && err == io.EOF {
			return string(buf), ErrTerminatorNotFound
		}
		return "", err
	}
	buf = bytes.TrimSuffix(buf, []byte{terminator})
	buf = bytes.TrimSuffix(buf, []byte{'\r'})
	return string(buf), nil
}

// Close closes the underlying connection.  It is safe to call more than once,
// and a ReadLine blocked on another goroutine returns ErrClosed.
func (lc *LineConn) Close() error {
	lc.mu.Lock()
	if lc.closed {
		lc.mu.Unlock()
		return nil
	}
	lc.closed = true
	lc.mu.Unlock()
	return lc.conn.Close()
}

func (lc *LineConn) isClosed() bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.closed
}

package comm

import (
	"errors"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/cenkalti/backoff"
	"go.bug.st/serial"
)

// DefaultBaud is the symbol rate of the focuser firmware
const DefaultBaud = 115200

// ErrReadTimeout is generated when a serial read saw no byte within the
// dialer's ReadTimeout
var ErrReadTimeout = errors.New("read timed out")

// Dialer opens Channels.  The zero value is usable and opens serial ports
// at DefaultBaud with a single attempt and no read timeout.
type Dialer struct {
	// Baud is the serial symbol rate, DefaultBaud if zero
	Baud int

	// ReadTimeout bounds a single read on serial ports.  Zero blocks until
	// a byte arrives or the port is closed.
	ReadTimeout time.Duration

	// OpenTimeout is how long to keep retrying a failed open with
	// exponential backoff.  Zero makes exactly one attempt.
	OpenTimeout time.Duration

	// DialTimeout bounds the TCP connect for network-attached ports
	DialTimeout time.Duration
}

// IsNetworkAddr reports if name is a host:port pair rather than a serial device
func IsNetworkAddr(name string) bool {
	host, port, err := net.SplitHostPort(name)
	if err != nil || host == "" {
		return false
	}
	_, err = strconv.Atoi(port)
	return err == nil
}

// SerialMode yields the 8N1 line settings used with serial.Open
func (d Dialer) SerialMode() *serial.Mode {
	baud := d.Baud
	if baud == 0 {
		baud = DefaultBaud
	}
	return &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit}
}

// Open opens the named port.  Transient failures are retried with an
// exponential backoff for up to OpenTimeout; a missing device or a
// permission problem is returned immediately.
func (d Dialer) Open(name string) (Channel, error) {
	var (
		conn      io.ReadWriteCloser
		permanent error
	)
	op := func() error {
		c, err := d.open(name)
		if err != nil {
			if isPermanent(err) {
				// no amount of waiting fixes these
				permanent = err
				return nil
			}
			return err
		}
		conn = c
		return nil
	}
	err := backoff.Retry(op, d.retryPolicy())
	if permanent != nil {
		return nil, permanent
	}
	if err != nil {
		return nil, err
	}
	return NewLineConn(name, conn), nil
}

func (d Dialer) open(name string) (io.ReadWriteCloser, error) {
	if IsNetworkAddr(name) {
		timeout := d.DialTimeout
		if timeout == 0 {
			timeout = 3 * time.Second
		}
		return net.DialTimeout("tcp", name, timeout)
	}
	p, err := serial.Open(name, d.SerialMode())
	if err != nil {
		return nil, err
	}
	if d.ReadTimeout > 0 {
		if err := p.SetReadTimeout(d.ReadTimeout); err != nil {
			p.Close()
			return nil, err
		}
	}
	return timeoutPort{p}, nil
}

// timeoutPort reports the (0, nil) read that go.bug.st/serial returns on a
// read timeout as ErrReadTimeout, so a silent device does not spin the reader
type timeoutPort struct {
	serial.Port
}

func (p timeoutPort) Read(b []byte) (int, error) {
	n, err := p.Port.Read(b)
	if n == 0 && err == nil {
		return 0, ErrReadTimeout
	}
	return n, err
}

func isPermanent(err error) bool {
	if os.IsNotExist(err) || os.IsPermission(err) {
		return true
	}
	var pe *serial.PortError
	if errors.As(err, &pe) {
		switch pe.Code() {
		case serial.PortNotFound, serial.PermissionDenied, serial.InvalidSerialPort:
			return true
		}
	}
	return false
}

func (d Dialer) retryPolicy() backoff.BackOff {
	if d.OpenTimeout <= 0 {
		return &backoff.StopBackOff{}
	}
	return &backoff.ExponentialBackOff{
		InitialInterval:     25 * time.Millisecond,
		RandomizationFactor: 0.,
		Multiplier:          2.,
		MaxInterval:         1 * time.Second,
		MaxElapsedTime:      d.OpenTimeout,
		Clock:               backoff.SystemClock}
}

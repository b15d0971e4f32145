package comm_test

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/nasa-jpl/atomfocus/comm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipePair returns both ends of a synchronous in-memory connection
func pipePair() (net.Conn, net.Conn) {
	return net.Pipe()
}

func TestLineConnWriteAppendsTerminator(t *testing.T) {
	local, remote := pipePair()
	lc := comm.NewLineConn("pipe", local)
	defer lc.Close()

	got := make(chan string, 1)
	go func() {
		buf := make([]byte, 16)
		n, _ := remote.Read(buf)
		got <- string(buf[:n])
	}()
	require.NoError(t, lc.WriteLine("-50"))
	assert.Equal(t, "-50\n", <-got)
}

func TestLineConnReadStripsTerminators(t *testing.T) {
	local, remote := pipePair()
	lc := comm.NewLineConn("pipe", local)
	defer lc.Close()

	go func() {
		io.WriteString(remote, "OK\r\nsecond\n")
	}()
	line, err := lc.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "OK", line)

	// the second line was buffered by the first read and must survive
	line, err = lc.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "second", line)
}

func TestLineConnCloseUnblocksRead(t *testing.T) {
	local, _ := pipePair()
	lc := comm.NewLineConn("pipe", local)

	done := make(chan error, 1)
	go func() {
		_, err := lc.ReadLine()
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, lc.Close())
	select {
	case err := <-done:
		assert.ErrorIs(t, err, comm.ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("ReadLine still blocked after Close")
	}
	assert.NoError(t, lc.Close(), "second Close should be a no-op")
	assert.ErrorIs(t, lc.WriteLine("E"), comm.ErrClosed)
}

func TestIsNetworkAddr(t *testing.T) {
	cases := map[string]bool{
		"192.168.100.123:2006": true,
		"localhost:4001":       true,
		"/dev/ttyUSB0":         false,
		"COM5":                 false,
		":8000":                false,
		"host:notaport":        false,
	}
	for in, want := range cases {
		assert.Equal(t, want, comm.IsNetworkAddr(in), in)
	}
}

func TestDialerSerialModeDefaults(t *testing.T) {
	mode := comm.Dialer{}.SerialMode()
	assert.Equal(t, comm.DefaultBaud, mode.BaudRate)
	assert.Equal(t, 8, mode.DataBits)

	mode = comm.Dialer{Baud: 9600}.SerialMode()
	assert.Equal(t, 9600, mode.BaudRate)
}

func TestDialerOpensTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		io.Copy(conn, conn) // echo
	}()

	ch, err := comm.Dialer{DialTimeout: time.Second}.Open(ln.Addr().String())
	require.NoError(t, err)
	defer ch.Close()
	assert.Equal(t, ln.Addr().String(), ch.Name())
	require.NoError(t, ch.WriteLine("E"))
	line, err := ch.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "E", line)
}

func TestDialerMissingDeviceFailsFast(t *testing.T) {
	d := comm.Dialer{OpenTimeout: 5 * time.Second}
	start := time.Now()
	_, err := d.Open("/dev/this-port-does-not-exist")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second, "a missing device should not be retried")
}

func TestMockAcksEachWrite(t *testing.T) {
	m := comm.NewMock("COM5")
	require.NoError(t, m.WriteLine("E"))
	require.NoError(t, m.WriteLine("50"))
	for i := 0; i < 2; i++ {
		ack, err := m.ReadLine()
		require.NoError(t, err)
		assert.Equal(t, "OK", ack)
	}
	_, err := m.ReadLine()
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []string{"E", "50"}, m.Written())
}

func TestMockHeldReadReleasedByClose(t *testing.T) {
	m := comm.NewMock("COM5")
	m.HoldReads()
	require.NoError(t, m.WriteLine("E"))
	done := make(chan error, 1)
	go func() {
		_, err := m.ReadLine()
		done <- err
	}()
	select {
	case <-done:
		t.Fatal("read should be held")
	case <-time.After(20 * time.Millisecond):
	}
	m.Close()
	assert.ErrorIs(t, <-done, comm.ErrClosed)
}

func TestMockDialer(t *testing.T) {
	d := &comm.MockDialer{Available: []string{"COM3", "COM5"}}
	ch, err := d.Open("COM5")
	require.NoError(t, err)
	assert.Same(t, d.Last(), ch)

	ports, err := d.Ports()
	require.NoError(t, err)
	assert.Equal(t, []string{"COM3", "COM5"}, ports)

	d.Fail = true
	_, err = d.Open("COM3")
	assert.ErrorIs(t, err, comm.ErrMockOpen)
}

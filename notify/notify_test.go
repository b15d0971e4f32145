package notify

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nasa-jpl/atomfocus/focuser"
	"github.com/nasa-jpl/atomfocus/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ focuser.Notifier = (*Broadcaster)(nil)
	_ focuser.Notifier = Log{}
	_ focuser.Notifier = Multi{}
	_ focuser.Notifier = Func{}
)

func recv(t *testing.T, ch <-chan string) Event {
	t.Helper()
	select {
	case msg := <-ch:
		var evt Event
		require.NoError(t, json.Unmarshal([]byte(msg), &evt))
		return evt
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for broadcast")
	}
	return Event{}
}

func TestBroadcasterEvents(t *testing.T) {
	b := NewBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	b.PositionChanged(-50)
	evt := recv(t, ch)
	assert.Equal(t, KindPosition, evt.Kind)
	require.NotNil(t, evt.Pos)
	assert.Equal(t, -50, *evt.Pos)
	assert.NotEmpty(t, evt.Time)

	b.ConnectionChanged("COM5", true)
	evt = recv(t, ch)
	assert.Equal(t, KindConnection, evt.Kind)
	assert.Equal(t, "COM5", evt.Port)
	require.NotNil(t, evt.Connected)
	assert.True(t, *evt.Connected)

	b.Error(errors.New("can't open COM5"))
	evt = recv(t, ch)
	assert.Equal(t, KindError, evt.Kind)
	assert.Equal(t, "can't open COM5", evt.Msg)
}

func TestBroadcasterPositionZeroIsSent(t *testing.T) {
	b := NewBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()
	b.PositionChanged(0)
	evt := recv(t, ch)
	require.NotNil(t, evt.Pos)
	assert.Equal(t, 0, *evt.Pos)
}

func TestBroadcasterSlowClientSkipped(t *testing.T) {
	b := NewBroadcaster()
	_, unsub := b.Subscribe()
	defer unsub()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			b.PositionChanged(i)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked on a client that never reads")
	}
}

func TestUnsubscribeTwice(t *testing.T) {
	b := NewBroadcaster()
	ch, unsub := b.Subscribe()
	assert.Equal(t, 1, b.Subscribers())
	unsub()
	unsub()
	assert.Equal(t, 0, b.Subscribers())
	_, ok := <-ch
	assert.False(t, ok)
}

func TestServeHTTPStreamsEvents(t *testing.T) {
	b := NewBroadcaster()
	srv := httptest.NewServer(b)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	sc := bufio.NewScanner(resp.Body)
	require.True(t, sc.Scan())
	assert.Equal(t, ": connected", sc.Text())

	require.Eventually(t, func() bool { return b.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
	b.PositionChanged(30)

	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var evt Event
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &evt))
		assert.Equal(t, KindPosition, evt.Kind)
		assert.Equal(t, 30, *evt.Pos)
		return
	}
	t.Fatal("stream ended without an event")
}

func TestMultiAndFunc(t *testing.T) {
	var (
		positions []int
		conns     []string
		errs      []error
	)
	f := Func{
		Position:   func(pos int) { positions = append(positions, pos) },
		Connection: func(port string, connected bool) { conns = append(conns, port) },
		Err:        func(err error) { errs = append(errs, err) },
	}
	m := Multi{f, f, Func{}}
	m.PositionChanged(10)
	m.ConnectionChanged("COM5", false)
	m.Error(errors.New("boom"))
	assert.Equal(t, []int{10, 10}, positions)
	assert.Equal(t, []string{"COM5", "COM5"}, conns)
	assert.Len(t, errs, 2)
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	l, err := logger.New(logger.Options{Format: logger.FormatJSON, Output: &buf})
	require.NoError(t, err)
	n := Log{L: l}
	n.ConnectionChanged("COM5", true)
	n.PositionChanged(50)
	n.Error(errors.New("no ack"))
	out := buf.String()
	assert.Contains(t, out, `"msg":"connected"`)
	assert.Contains(t, out, `"pos":50`)
	assert.Contains(t, out, `"err":"no ack"`)
}

// Package notify provides sinks for focuser display events: a logger, a
// fan-out to several sinks, and a Server-Sent Events broadcaster.
package notify

import (
	"log/slog"

	"github.com/nasa-jpl/atomfocus/focuser"
)

// Log writes events to a structured logger
type Log struct {
	L *slog.Logger
}

// PositionChanged logs the new position
func (l Log) PositionChanged(pos int) {
	l.L.Info("position", "pos", pos)
}

// ConnectionChanged logs a connect or disconnect
func (l Log) ConnectionChanged(port string, connected bool) {
	if connected {
		l.L.Info("connected", "port", port)
		return
	}
	l.L.Info("disconnected", "port", port)
}

// Error logs err
func (l Log) Error(err error) {
	l.L.Error("focuser error", "err", err)
}

// Multi sends every event to each of its sinks, in order
type Multi []focuser.Notifier

// PositionChanged forwards to every sink
func (m Multi) PositionChanged(pos int) {
	for _, n := range m {
		n.PositionChanged(pos)
	}
}

// ConnectionChanged forwards to every sink
func (m Multi) ConnectionChanged(port string, connected bool) {
	for _, n := range m {
		n.ConnectionChanged(port, connected)
	}
}

// Error forwards to every sink
func (m Multi) Error(err error) {
	for _, n := range m {
		n.Error(err)
	}
}

// Func adapts plain functions to a Notifier.  Nil fields ignore their event.
type Func struct {
	Position   func(pos int)
	Connection func(port string, connected bool)
	Err        func(err error)
}

// PositionChanged calls f.Position
func (f Func) PositionChanged(pos int) {
	if f.Position != nil {
		f.Position(pos)
	}
}

// ConnectionChanged calls f.Connection
func (f Func) ConnectionChanged(port string, connected bool) {
	if f.Connection != nil {
		f.Connection(port, connected)
	}
}

// Error calls f.Err
func (f Func) Error(err error) {
	if f.Err != nil {
		f.Err(err)
	}
}

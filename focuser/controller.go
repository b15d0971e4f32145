// Package focuser drives a stepper focuser over a line-oriented serial channel.
//
// The Controller owns the logical position, the motor power state, two marks,
// and an idle timer that powers the motor down after a period without motion.
// Every command goes through one choke point that writes a line and consumes
// exactly one acknowledgement line; the position only changes after a move
// command was acknowledged.
package focuser

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nasa-jpl/atomfocus/comm"
	"github.com/nasa-jpl/atomfocus/logger"
)

// DefaultIdleTimeout is how long the motor stays energized without motion
const DefaultIdleTimeout = 5 * time.Minute

// Opener opens a channel to the focuser by port name
type Opener interface {
	Open(port string) (comm.Channel, error)
}

// PortSaver remembers the last port that was connected successfully
type PortSaver interface {
	Save(port string) error
}

// Notifier receives display updates from the controller.  Methods are called
// while the controller is busy and must not call back into it.
type Notifier interface {
	// PositionChanged is called with the new position after an applied move
	PositionChanged(pos int)

	// ConnectionChanged is called after a connect or disconnect
	ConnectionChanged(port string, connected bool)

	// Error is called once for every error an operation returns
	Error(err error)
}

type nopNotifier struct{}

func (nopNotifier) PositionChanged(int)            {}
func (nopNotifier) ConnectionChanged(string, bool) {}
func (nopNotifier) Error(error)                    {}

// Option configures a Controller
type Option func(*Controller)

// WithLogger sets the structured logger, which otherwise discards
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithNotifier sets the display sink
func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notify = n }
}

// WithPortSaver sets where successful port names are persisted
func WithPortSaver(s PortSaver) Option {
	return func(c *Controller) { c.saver = s }
}

// WithIdleTimeout sets the auto power-off delay
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Controller) { c.SetIdleTimeout(d) }
}

// Status is a snapshot of the controller state
type Status struct {
	Connected     bool   `json:"connected"`
	Port          string `json:"port,omitempty"`
	Session       string `json:"session,omitempty"`
	Position      int    `json:"position"`
	Motor         string `json:"motor"`
	M1            *int   `json:"m1,omitempty"`
	M2            *int   `json:"m2,omitempty"`
	IdleTimeout   string `json:"idleTimeout"`
	PowerOffArmed bool   `json:"powerOffArmed"`
}

// Controller is a concurrent-safe focuser controller.  Controllers must be
// created with New.
type Controller struct {
	// mu serializes operations: all protocol traffic and every
	// read-modify-write of the fields below happen with mu held.
	mu sync.Mutex

	opener Opener
	saver  PortSaver
	notify Notifier
	log    *slog.Logger
	timer  *IdleTimer
	idle   atomic.Int64

	// stateMu guards the fields below for readers that do not hold mu, and
	// lets Disconnect close the channel while an operation is blocked in a read.
	stateMu sync.RWMutex
	ch      comm.Channel
	port    string
	session string
	pos     int
	motor   MotorState
	marks   Marks
}

// New returns a disconnected controller at position 0 with the motor disabled
func New(opener Opener, opts ...Option) *Controller {
	c := &Controller{
		opener: opener,
		notify: nopNotifier{},
		log:    logger.Discard(),
	}
	c.idle.Store(int64(DefaultIdleTimeout))
	c.timer = NewIdleTimer(c.idleTimeout)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetIdleTimeout changes the auto power-off delay.  It applies from the next
// motor activity on; a pending power-off keeps its original deadline.
func (c *Controller) SetIdleTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultIdleTimeout
	}
	c.idle.Store(int64(d))
}

// IdleTimeout returns the auto power-off delay
func (c *Controller) IdleTimeout() time.Duration {
	return time.Duration(c.idle.Load())
}

// Connect opens port, enables the motor, and starts the idle timer
func (c *Controller) Connect(port string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel() != nil {
		return ErrAlreadyConnected
	}

	ch, err := c.opener.Open(port)
	if err != nil {
		err = &OpenError{Port: port, Err: err}
		c.log.Error("open failed", "port", port, "err", err)
		c.notify.Error(err)
		return err
	}
	session := uuid.NewString()
	c.stateMu.Lock()
	c.ch, c.port, c.session = ch, port, session
	c.stateMu.Unlock()
	log := c.log.With("port", port, "session", session)
	log.Info("port opened")

	if err := c.sendRaw(CmdEnable); err != nil {
		c.release(ch)
		err = fmt.Errorf("enable after connect: %w", err)
		log.Error("enable failed, port closed", "err", err)
		c.notify.Error(err)
		return err
	}
	c.setMotor(Enabled)
	log.Info("motor enabled")
	c.rearm(ch)

	if c.saver != nil {
		if err := c.saver.Save(port); err != nil {
			log.Warn("could not save last port", "err", err)
		}
	}
	c.notify.ConnectionChanged(port, true)
	c.notify.PositionChanged(c.Position())
	return nil
}

// Disconnect cancels the idle timer and closes the channel, aborting a read
// that is blocked waiting for an acknowledgement.  Nothing is sent, and the
// motor is reported disabled until the next connect enables it.
// It does nothing if not connected.
func (c *Controller) Disconnect() {
	c.stateMu.Lock()
	ch, port := c.ch, c.port
	if ch != nil {
		c.ch, c.session, c.motor = nil, "", Disabled
	}
	c.stateMu.Unlock()
	if ch == nil {
		return
	}
	c.timer.Cancel()
	if err := ch.Close(); err != nil {
		c.log.Warn("close failed", "port", port, "err", err)
	}
	c.log.Info("port closed", "port", port)
	c.notify.ConnectionChanged(port, false)
}

// MoveStep moves the focuser by delta steps, enabling the motor first if the
// idle timer powered it down.  The position changes only if the move command
// was acknowledged.
func (c *Controller) MoveStep(delta int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.moveStep(delta)
}

// SetAbsolutePosition moves the focuser to target
func (c *Controller) SetAbsolutePosition(target int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.moveStep(target - c.Position())
}

// RecenterToMarks moves the focuser to the midpoint of M1 and M2
func (c *Controller) RecenterToMarks() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	mid, err := c.Marks().Midpoint()
	if err != nil {
		c.notify.Error(err)
		return err
	}
	c.log.Debug("recenter", "target", mid)
	return c.moveStep(mid - c.Position())
}

// MarkFirst stores the current position in M1, shifting the old M1 into M2
func (c *Controller) MarkFirst() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stateMu.Lock()
	c.marks.MarkFirst(c.pos)
	c.stateMu.Unlock()
}

// MarkSecond stores the current position in M2
func (c *Controller) MarkSecond() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stateMu.Lock()
	c.marks.MarkSecond(c.pos)
	c.stateMu.Unlock()
}

// Enable energizes the motor and starts the idle timer
func (c *Controller) Enable() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := c.channel()
	defer c.rearm(ch)
	if err := c.sendRaw(CmdEnable); err != nil {
		c.notify.Error(err)
		return err
	}
	c.setMotor(Enabled)
	c.log.Info("motor enabled")
	return nil
}

// Disable de-energizes the motor and cancels the idle timer
func (c *Controller) Disable() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timer.Cancel()
	if err := c.sendRaw(CmdDisable); err != nil {
		c.rearm(c.channel())
		c.notify.Error(err)
		return err
	}
	c.setMotor(Disabled)
	c.log.Info("motor disabled")
	return nil
}

// GetEnabled reports if the motor is energized
func (c *Controller) GetEnabled() (bool, error) {
	return c.MotorState() == Enabled, nil
}

// Position returns the logical position in steps
func (c *Controller) Position() int {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.pos
}

// MotorState returns the motor power state
func (c *Controller) MotorState() MotorState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.motor
}

// Marks returns a copy of the marks
func (c *Controller) Marks() Marks {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.marks
}

// Connected reports if a channel is open
func (c *Controller) Connected() bool {
	return c.channel() != nil
}

// Port returns the name of the open port, or "" if disconnected
func (c *Controller) Port() string {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	if c.ch == nil {
		return ""
	}
	return c.port
}

// SessionID identifies the current connection; it is "" if disconnected
func (c *Controller) SessionID() string {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.session
}

// Status returns a snapshot of the controller state
func (c *Controller) Status() Status {
	c.stateMu.RLock()
	s := Status{
		Connected:   c.ch != nil,
		Session:     c.session,
		Position:    c.pos,
		Motor:       c.motor.String(),
		IdleTimeout: c.IdleTimeout().String(),
	}
	if s.Connected {
		s.Port = c.port
	}
	if m1, ok := c.marks.M1(); ok {
		s.M1 = &m1
	}
	if m2, ok := c.marks.M2(); ok {
		s.M2 = &m2
	}
	c.stateMu.RUnlock()
	s.PowerOffArmed = c.timer.Pending()
	return s
}

// moveStep must be called with mu held
func (c *Controller) moveStep(delta int) error {
	ch := c.channel()
	defer c.rearm(ch)
	if err := c.ensureEnabled(); err != nil {
		c.notify.Error(err)
		return err
	}
	if err := c.sendRaw(EncodeStep(delta)); err != nil {
		c.log.Warn("move not applied", "delta", delta, "err", err)
		c.notify.Error(err)
		return err
	}
	c.stateMu.Lock()
	c.pos += delta
	pos := c.pos
	c.stateMu.Unlock()
	c.log.Debug("moved", "delta", delta, "pos", pos)
	c.notify.PositionChanged(pos)
	return nil
}

// ensureEnabled is the Disabled -> Enabled transition taken before a move.
// An already enabled motor has its power-off cancelled for the duration of
// the move instead; rearm restarts it afterwards.
func (c *Controller) ensureEnabled() error {
	if c.MotorState() == Enabled {
		c.timer.Cancel()
		return nil
	}
	if err := c.sendRaw(CmdEnable); err != nil {
		return err
	}
	c.setMotor(Enabled)
	c.log.Info("motor enabled")
	return nil
}

// rearm restarts the power-off countdown if the motor is energized and ch is
// still the open channel.  Must be called with mu held.
func (c *Controller) rearm(ch comm.Channel) {
	if ch == nil || c.channel() != ch || c.MotorState() != Enabled {
		return
	}
	c.timer.Start(c.IdleTimeout())
}

// idleTimeout runs on the timer's goroutine and waits its turn on mu like
// any other operation.
func (c *Controller) idleTimeout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer.Pending() {
		// an operation re-armed the timer while this firing waited on mu
		return
	}
	err := c.sendRaw(CmdDisable)
	if errors.Is(err, ErrNotConnected) {
		c.log.Debug("idle timeout after disconnect, nothing to power off")
		return
	}
	c.setMotor(Disabled)
	if err != nil {
		// the firmware may have taken the D, so the next move sends E again
		err = fmt.Errorf("idle power-off: %w", err)
		c.log.Error("power-off not acknowledged", "err", err)
		c.notify.Error(err)
		return
	}
	c.log.Info("motor disabled after idle timeout", "after", c.IdleTimeout())
}

// sendRaw is the only place commands are written.  It writes cmd as one line
// and consumes one acknowledgement line, whose content carries no meaning.
func (c *Controller) sendRaw(cmd string) error {
	ch := c.channel()
	if ch == nil {
		return ErrNotConnected
	}
	if err := ch.WriteLine(cmd); err != nil {
		return c.channelErr(ch, fmt.Errorf("write %q: %w", cmd, err))
	}
	if _, err := ch.ReadLine(); err != nil {
		return c.channelErr(ch, fmt.Errorf("read ack for %q: %w", cmd, err))
	}
	return nil
}

// channelErr reports a failure on a channel that Disconnect closed underneath
// us as ErrNotConnected
func (c *Controller) channelErr(ch comm.Channel, err error) error {
	if c.channel() != ch {
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	return err
}

func (c *Controller) channel() comm.Channel {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.ch
}

func (c *Controller) setMotor(s MotorState) {
	c.stateMu.Lock()
	c.motor = s
	c.stateMu.Unlock()
}

// release closes ch and forgets it, if it is still the open channel
func (c *Controller) release(ch comm.Channel) {
	c.stateMu.Lock()
	if c.ch == ch {
		c.ch, c.session, c.motor = nil, "", Disabled
	}
	c.stateMu.Unlock()
	ch.Close()
}

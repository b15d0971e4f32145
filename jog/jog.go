// Package jog turns keyboard and scroll-wheel gestures into relative moves.
//
// A gesture has a size, chosen by a modifier key, and a direction.  Up moves
// toward negative positions and Down toward positive ones.  Bursts of
// gestures, as produced by a spinning scroll wheel, are paced by a token
// bucket so the serial link is never queued deeper than the limiter allows.
package jog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrThrottled is returned by Jog when a gesture arrives faster than the
// configured rate and was dropped
var ErrThrottled = errors.New("jog gesture dropped, too fast")

// Size selects the step magnitude of a gesture
type Size int

const (
	// Fine is the smallest step, bound to the control modifier
	Fine Size = iota

	// Medium is the unmodified step
	Medium

	// Coarse is the largest step, bound to the shift modifier
	Coarse
)

func (s Size) String() string {
	switch s {
	case Fine:
		return "fine"
	case Medium:
		return "medium"
	case Coarse:
		return "coarse"
	default:
		return "unknown"
	}
}

// ParseSize parses fine, medium, or coarse.  The empty string is Medium.
func ParseSize(s string) (Size, error) {
	switch strings.ToLower(s) {
	case "fine", "f":
		return Fine, nil
	case "", "medium", "m":
		return Medium, nil
	case "coarse", "c":
		return Coarse, nil
	}
	return Medium, fmt.Errorf("unknown jog size %q, want fine, medium, or coarse", s)
}

// Direction is the sign of a move
type Direction int

const (
	// Up moves toward negative positions
	Up Direction = -1

	// Down moves toward positive positions
	Down Direction = 1
)

// ParseDirection parses up or down
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "up", "u":
		return Up, nil
	case "down", "d":
		return Down, nil
	}
	return Down, fmt.Errorf("unknown jog direction %q, want up or down", s)
}

// Wheel maps a scroll-wheel delta to a direction.  A positive delta moves
// Down; zero and negative deltas move Up.
func Wheel(delta int) Direction {
	if delta > 0 {
		return Down
	}
	return Up
}

// Steps holds the step count for each Size
type Steps struct {
	Fine   int `koanf:"Fine" yaml:"Fine" json:"fine"`
	Medium int `koanf:"Medium" yaml:"Medium" json:"medium"`
	Coarse int `koanf:"Coarse" yaml:"Coarse" json:"coarse"`
}

// DefaultSteps are 10, 50, and 100 steps
var DefaultSteps = Steps{Fine: 10, Medium: 50, Coarse: 100}

// Of returns the step count for size
func (s Steps) Of(size Size) int {
	switch size {
	case Fine:
		return s.Fine
	case Coarse:
		return s.Coarse
	default:
		return s.Medium
	}
}

// Delta is the signed relative move for a gesture
func (s Steps) Delta(size Size, dir Direction) int {
	return int(dir) * s.Of(size)
}

// Gesture is one jog input
type Gesture struct {
	Size      Size      `json:"size"`
	Direction Direction `json:"direction"`
}

// Mover makes relative moves.  *focuser.Controller satisfies it.
type Mover interface {
	MoveStep(delta int) error
}

// Jogger translates gestures into paced MoveStep calls
type Jogger struct {
	m       Mover
	steps   Steps
	limiter *rate.Limiter
}

// New returns a Jogger allowing perSecond gestures per second with bursts of
// burst.  perSecond <= 0 disables pacing.
func New(m Mover, steps Steps, perSecond float64, burst int) *Jogger {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst < 1 {
		burst = 1
	}
	return &Jogger{m: m, steps: steps, limiter: rate.NewLimiter(limit, burst)}
}

// Steps returns the step table in use
func (j *Jogger) Steps() Steps {
	return j.steps
}

// Jog moves immediately if the rate allows, else drops the gesture and
// returns ErrThrottled
func (j *Jogger) Jog(g Gesture) error {
	if !j.limiter.Allow() {
		return ErrThrottled
	}
	return j.m.MoveStep(j.steps.Delta(g.Size, g.Direction))
}

// JogWait waits for the limiter instead of dropping the gesture
func (j *Jogger) JogWait(ctx context.Context, g Gesture) error {
	if err := j.limiter.Wait(ctx); err != nil {
		return err
	}
	return j.m.MoveStep(j.steps.Delta(g.Size, g.Direction))
}

// SetRate changes the pacing.  perSecond <= 0 disables it.
func (j *Jogger) SetRate(perSecond float64) {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	j.limiter.SetLimitAt(time.Now(), limit)
}

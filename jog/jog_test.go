package jog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type moves struct {
	sync.Mutex
	deltas []int
}

func (m *moves) MoveStep(delta int) error {
	m.Lock()
	defer m.Unlock()
	m.deltas = append(m.deltas, delta)
	return nil
}

func TestDeltaSigns(t *testing.T) {
	s := DefaultSteps
	assert.Equal(t, -10, s.Delta(Fine, Up))
	assert.Equal(t, -50, s.Delta(Medium, Up))
	assert.Equal(t, -100, s.Delta(Coarse, Up))
	assert.Equal(t, 10, s.Delta(Fine, Down))
	assert.Equal(t, 50, s.Delta(Medium, Down))
	assert.Equal(t, 100, s.Delta(Coarse, Down))
}

func TestWheel(t *testing.T) {
	assert.Equal(t, Down, Wheel(120))
	assert.Equal(t, Up, Wheel(-120))
	assert.Equal(t, Up, Wheel(0))
}

func TestParse(t *testing.T) {
	s, err := ParseSize("")
	require.NoError(t, err)
	assert.Equal(t, Medium, s)
	s, err = ParseSize("Coarse")
	require.NoError(t, err)
	assert.Equal(t, Coarse, s)
	_, err = ParseSize("huge")
	assert.Error(t, err)

	d, err := ParseDirection("UP")
	require.NoError(t, err)
	assert.Equal(t, Up, d)
	_, err = ParseDirection("left")
	assert.Error(t, err)
}

func TestJogUnpaced(t *testing.T) {
	m := &moves{}
	j := New(m, DefaultSteps, 0, 1)
	for i := 0; i < 5; i++ {
		require.NoError(t, j.Jog(Gesture{Size: Fine, Direction: Down}))
	}
	assert.Equal(t, []int{10, 10, 10, 10, 10}, m.deltas)
}

func TestJogThrottlesBursts(t *testing.T) {
	m := &moves{}
	j := New(m, DefaultSteps, 1, 2)
	g := Gesture{Size: Coarse, Direction: Up}
	require.NoError(t, j.Jog(g))
	require.NoError(t, j.Jog(g))
	assert.ErrorIs(t, j.Jog(g), ErrThrottled)
	assert.Equal(t, []int{-100, -100}, m.deltas)

	j.SetRate(0)
	assert.NoError(t, j.Jog(g))
}

func TestJogWaitHonorsContext(t *testing.T) {
	m := &moves{}
	j := New(m, DefaultSteps, 0.001, 1)
	require.NoError(t, j.JogWait(context.Background(), Gesture{Size: Medium, Direction: Down}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, j.JogWait(ctx, Gesture{Size: Medium, Direction: Down}))
	assert.Equal(t, []int{50}, m.deltas)
}

// SPDX-License-Identifier: MIT

package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

var errBoom = errors.New("boom")

func fail() error    { return errBoom }
func succeed() error { return nil }

func TestCircuitBreaker_TripsAfterThreshold(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	cb := NewCircuitBreaker("test", 3, 30*time.Second, WithClock(clock.Now))

	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, cb.Execute(fail), errBoom)
		assert.Equal(t, StateClosed, cb.State())
	}
	assert.ErrorIs(t, cb.Execute(fail), errBoom)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker("test", 2, time.Minute)

	require.Error(t, cb.Execute(fail))
	require.NoError(t, cb.Execute(succeed))
	require.Error(t, cb.Execute(fail))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	cb := NewCircuitBreaker("test", 1, 10*time.Second, WithClock(clock.Now))

	require.Error(t, cb.Execute(fail))
	require.Equal(t, StateOpen, cb.State())

	clock.now = clock.now.Add(11 * time.Second)

	// probe fails: back to open
	require.ErrorIs(t, cb.Execute(fail), errBoom)
	assert.Equal(t, StateOpen, cb.State())
	assert.ErrorIs(t, cb.Execute(succeed), ErrCircuitOpen)

	clock.now = clock.now.Add(11 * time.Second)
	require.NoError(t, cb.Execute(succeed))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_SingleProbeInHalfOpen(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	cb := NewCircuitBreaker("test", 1, time.Second, WithClock(clock.Now))

	require.Error(t, cb.Execute(fail))
	clock.now = clock.now.Add(2 * time.Second)

	err := cb.Execute(func() error {
		assert.Equal(t, StateHalfOpen, cb.State())
		assert.ErrorIs(t, cb.Execute(succeed), ErrCircuitOpen)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_FailurePredicate(t *testing.T) {
	errClient := errors.New("client error")
	cb := NewCircuitBreaker("test", 1, time.Minute, WithFailurePredicate(func(err error) bool {
		return !errors.Is(err, errClient)
	}))

	assert.ErrorIs(t, cb.Execute(func() error { return errClient }), errClient)
	assert.Equal(t, StateClosed, cb.State())

	assert.ErrorIs(t, cb.Execute(fail), errBoom)
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_StaleResultIgnored(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, time.Minute)

	// A call admitted while closed finishes after another call tripped the
	// breaker; its success must not close it again.
	err := cb.Execute(func() error {
		require.ErrorIs(t, cb.Execute(fail), errBoom)
		require.Equal(t, StateOpen, cb.State())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker("test", 0, 0)
	assert.Equal(t, defaultThreshold, cb.threshold)
	assert.Equal(t, defaultCooldown, cb.cooldown)
}

func TestRegistry_OneBreakerPerKey(t *testing.T) {
	r := NewRegistry("upstream", 1, time.Minute)

	a := r.Get("a.example.com")
	assert.Same(t, a, r.Get("a.example.com"))
	assert.NotSame(t, a, r.Get("b.example.com"))
	assert.Equal(t, "upstream:a.example.com", a.Name())

	require.Error(t, a.Execute(fail))
	assert.Equal(t, StateOpen, a.State())
	assert.Equal(t, StateClosed, r.Get("b.example.com").State())
}

func TestRegistry_States(t *testing.T) {
	r := NewRegistry("upstream", 1, time.Minute)
	assert.Empty(t, r.States())

	require.Error(t, r.Get("down.example.com").Execute(fail))
	require.NoError(t, r.Get("up.example.com").Execute(succeed))

	assert.Equal(t, map[string]State{
		"down.example.com": StateOpen,
		"up.example.com":   StateClosed,
	}, r.States())
}

package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
)

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b := NewBreaker(3, 50*time.Millisecond)
	failing := errors.New("boom")

	for i := 0; i < 3; i++ {
		err := b.Call(func() error { return failing })
		assert.ErrorIs(t, err, failing)
	}

	assert.Equal(t, gobreaker.StateOpen, b.State())

	err := b.Call(func() error { return nil })
	assert.Error(t, err, "calls while open should be rejected without invoking fn")
}

func TestBreakerStaysClosedOnSuccess(t *testing.T) {
	b := NewBreaker(3, 50*time.Millisecond)

	for i := 0; i < 10; i++ {
		err := b.Call(func() error { return nil })
		assert.NoError(t, err)
	}

	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreakerHalfOpensAfterTimeout(t *testing.T) {
	b := NewBreaker(1, 20*time.Millisecond)

	err := b.Call(func() error { return errors.New("fail") })
	assert.Error(t, err)
	assert.Equal(t, gobreaker.StateOpen, b.State())

	time.Sleep(30 * time.Millisecond)

	err = b.Call(func() error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

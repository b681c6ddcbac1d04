package driver

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollSatisfiedImmediately(t *testing.T) {
	var calls atomic.Int32
	ok, err := Poll(context.Background(), time.Millisecond, time.Second, func(context.Context) (bool, error) {
		calls.Add(1)
		return true, nil
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPollSatisfiedLater(t *testing.T) {
	var calls atomic.Int32
	ok, err := Poll(context.Background(), time.Millisecond, time.Second, func(context.Context) (bool, error) {
		return calls.Add(1) >= 3, nil
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPollTimesOut(t *testing.T) {
	start := time.Now()
	ok, err := Poll(context.Background(), 5*time.Millisecond, 30*time.Millisecond, func(context.Context) (bool, error) {
		return false, nil
	})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestPollPropagatesConditionError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Poll(context.Background(), time.Millisecond, time.Second, func(context.Context) (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestPollParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Poll(ctx, time.Millisecond, time.Second, func(context.Context) (bool, error) {
		return false, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFault(t *testing.T) {
	err := NewFault("fill", "#lat", ErrElementNotFound)
	require.Error(t, err)
	assert.True(t, IsFault(err))
	assert.ErrorIs(t, err, ErrElementNotFound)
	assert.Equal(t, "driver fault: fill #lat: element not found", err.Error())

	// Wrapping twice keeps the innermost fault.
	again := NewFault("click", "#x", fmt.Errorf("outer: %w", err))
	var f *Fault
	require.True(t, errors.As(again, &f))
	assert.Equal(t, "fill", f.Op)

	assert.NoError(t, NewFault("navigate", "/", nil))
	assert.False(t, IsFault(errors.New("plain")))
}

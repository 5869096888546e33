package memo

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_ComputesOnce(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	v := New(func(context.Context) (string, error) {
		calls.Add(1)
		return "out.jar", nil
	})

	_, ok := v.Get()
	assert.False(t, ok, "Get must not trigger the computation")
	assert.Equal(t, Pending, v.State())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := v.Force(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "out.jar", got)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, Computed, v.State())
	got, ok := v.Get()
	require.True(t, ok)
	assert.Equal(t, "out.jar", got)
}

func TestValue_RetriesAfterError(t *testing.T) {
	t.Parallel()

	// Arrange
	boom := errors.New("boom")
	var calls atomic.Int32
	v := New(func(context.Context) (int, error) {
		if calls.Add(1) == 1 {
			return 0, boom
		}
		return 7, nil
	})

	// Act
	_, firstErr := v.Force(context.Background())
	stateAfterFailure := v.State()
	got, err := v.Force(context.Background())
	again, againErr := v.Force(context.Background())

	// Assert
	require.ErrorIs(t, firstErr, boom)
	assert.Equal(t, Pending, stateAfterFailure)
	require.NoError(t, err)
	require.NoError(t, againErr)
	assert.Equal(t, 7, got)
	assert.Equal(t, 7, again)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, Computed, v.State())
}

func TestValue_PanicBecomesError(t *testing.T) {
	t.Parallel()

	// Arrange
	var calls atomic.Int32
	v := New(func(context.Context) (string, error) {
		if calls.Add(1) == 1 {
			panic("handler exploded")
		}
		return "ok", nil
	})

	// Act
	_, err := v.Force(context.Background())
	got, retryErr := v.Force(context.Background())

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler exploded")
	require.NoError(t, retryErr)
	assert.Equal(t, "ok", got)
}

func TestReady(t *testing.T) {
	t.Parallel()

	v := Ready(42)
	assert.Equal(t, Computed, v.State())
	got, err := v.Force(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

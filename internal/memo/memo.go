// Package memo provides explicitly memoized values.
//
// A Value is either pending, computing, or computed. The first call to Force
// runs the computation; concurrent callers block until it finishes. A
// successful result is kept for every later caller. A failed computation
// returns the Value to pending so the next Force runs it again. Reads through
// Get never trigger a computation.
package memo

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// State describes where a Value is in its lifecycle.
type State int32

const (
	Pending State = iota
	Computing
	Computed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Computing:
		return "computing"
	case Computed:
		return "computed"
	default:
		return "unknown"
	}
}

// Value is a lazily computed, cached result of type T.
type Value[T any] struct {
	fn    func(context.Context) (T, error)
	mu    sync.Mutex
	state atomic.Int32
	val   T
}

// New returns a pending Value backed by fn.
func New[T any](fn func(context.Context) (T, error)) *Value[T] {
	return &Value[T]{fn: fn}
}

// Ready returns a Value that is already computed.
func Ready[T any](v T) *Value[T] {
	m := &Value[T]{val: v}
	m.state.Store(int32(Computed))
	return m
}

// Force computes the value if needed and returns the cached result. Errors
// are returned to the caller that ran the computation and are not kept.
func (m *Value[T]) Force(ctx context.Context) (T, error) {
	if State(m.state.Load()) == Computed {
		return m.val, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if State(m.state.Load()) == Computed {
		return m.val, nil
	}

	m.state.Store(int32(Computing))
	val, err := m.run(ctx)
	if err != nil {
		m.state.Store(int32(Pending))
		var zero T
		return zero, err
	}
	m.val = val
	m.state.Store(int32(Computed))
	return val, nil
}

func (m *Value[T]) run(ctx context.Context) (val T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("memoized computation panicked: %v", r)
		}
	}()
	return m.fn(ctx)
}

// Get returns the computed value without computing it. The boolean is false
// until a computation has succeeded.
func (m *Value[T]) Get() (T, bool) {
	if State(m.state.Load()) != Computed {
		var zero T
		return zero, false
	}
	return m.val, true
}

// State reports the current lifecycle state.
func (m *Value[T]) State() State {
	return State(m.state.Load())
}

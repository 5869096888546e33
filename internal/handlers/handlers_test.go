package handlers

import (
	"context"
	"testing"

	"github.com/specialistvlad/gamepipe/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubModule struct{ name string }

func (m stubModule) Register(h *Handlers) {
	h.Register(m.name, func(context.Context, *pipeline.Invocation) error { return nil })
}

func TestHandlers_RegisterAndLookup(t *testing.T) {
	t.Parallel()

	h := New(stubModule{"b"}, stubModule{"a"})

	_, ok := h.Lookup("a")
	require.True(t, ok)
	_, ok = h.Lookup("missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"a", "b"}, h.Names())
}

func TestHandlers_DuplicatePanics(t *testing.T) {
	t.Parallel()

	assert.PanicsWithValue(t, "step handler with name 'a' already registered", func() {
		New(stubModule{"a"}, stubModule{"a"})
	})
}

package pipeline

import (
	"context"
	"testing"

	"github.com/specialistvlad/gamepipe/internal/dependency"
	"github.com/specialistvlad/gamepipe/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstance_Delegation(t *testing.T) {
	t.Parallel()

	// Arrange
	m, _, _ := newTestMaterializer(t)
	base, err := m.Materialize(context.Background(), mustSpec(t, StepDefinition{Name: "a", Type: "append"}))
	require.NoError(t, err)
	wrapperSpec, err := NewSpecification(Options{Version: "1.20.4", Side: game.Client, Distribution: "special"})
	require.NoError(t, err)

	// Act
	wrapper := NewDelegating(base, wrapperSpec)
	outer := NewDelegating(wrapper, nil)

	// Assert
	assert.True(t, wrapper.IsDelegating())
	assert.False(t, base.IsDelegating())
	assert.NotEqual(t, base.ID(), wrapper.ID())
	assert.Same(t, base, wrapper.Unwrap())
	assert.Same(t, wrapper, outer.Unwrap())
	assert.Same(t, base, outer.Root())
	assert.True(t, outer.Delegates(base))
	assert.False(t, base.Delegates(outer))

	a, ok := wrapper.Step("a")
	require.True(t, ok)
	baseA, _ := base.Step("a")
	assert.Same(t, baseA, a)
	assert.Same(t, base.Compiled(), outer.Compiled())
	assert.Equal(t, "special", wrapper.Spec().Distribution())
	assert.Equal(t, "special", outer.Spec().Distribution())
}

func TestInstance_ReplacedDependency(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestMaterializer(t)
	base, err := m.Materialize(context.Background(), mustSpec(t))
	require.NoError(t, err)
	wrapper := NewDelegating(base, nil)

	_, ok := wrapper.ReplacedDependency()
	assert.False(t, ok)

	dep := dependency.Dependency{Group: game.Group, Name: "client", Version: "1.20.4"}
	base.SetReplacedDependency(dep)

	got, ok := wrapper.ReplacedDependency()
	require.True(t, ok)
	assert.True(t, dep.Equal(got))
}

func TestInstance_RealizeUnknownStep(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestMaterializer(t)
	inst, err := m.Materialize(context.Background(), mustSpec(t))
	require.NoError(t, err)

	_, err = inst.Realize(context.Background(), "ghost")

	assert.ErrorContains(t, err, `no step "ghost"`)
}

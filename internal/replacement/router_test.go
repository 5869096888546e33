package replacement

import (
	"context"
	"errors"
	"testing"

	"github.com/specialistvlad/gamepipe/internal/dependency"
	"github.com/specialistvlad/gamepipe/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func always(Request) bool { return true }

func TestRouter_FirstMatchingHandlerWins(t *testing.T) {
	t.Parallel()

	// Arrange
	var called []string
	handler := func(name string, match Matcher) Handler {
		return Handler{Name: name, Match: match, Produce: func(context.Context, Request) (*Result, error) {
			called = append(called, name)
			return &Result{}, nil
		}}
	}
	r := NewRouter(nil)
	r.Register(handler("never", func(Request) bool { return false }))
	r.Register(handler("first", always))
	r.Register(handler("second", always))

	// Act
	res, ok, err := r.TryReplace(context.Background(), Request{})

	// Assert
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotNil(t, res)
	assert.Equal(t, []string{"first"}, called)
	assert.Equal(t, []string{"never", "first", "second"}, r.Names())
}

func TestRouter_NoMatch(t *testing.T) {
	t.Parallel()

	r := NewRouter(nil)
	r.Register(Handler{Name: "never", Match: func(Request) bool { return false }})

	res, ok, err := r.TryReplace(context.Background(), Request{})

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, res)
}

func TestRouter_DuplicateNamePanics(t *testing.T) {
	t.Parallel()

	r := NewRouter(nil)
	r.Register(Handler{Name: "game", Match: always})

	assert.PanicsWithValue(t, "replacement handler with name 'game' already registered", func() {
		r.Register(Handler{Name: "game", Match: always})
	})
}

func TestRouter_ProducerErrorIsWrapped(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	r := NewRouter(nil)
	r.Register(Handler{Name: "broken", Match: always, Produce: func(context.Context, Request) (*Result, error) {
		return nil, boom
	}})

	_, ok, err := r.TryReplace(context.Background(), Request{Dependency: dependency.Dependency{Group: "g", Name: "n"}})

	assert.True(t, ok)
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "'broken'")
}

func TestMatchGame(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		notation string
		want     bool
	}{
		{"net.minecraft:client:1.20.4", true},
		{"net.minecraft:server", true},
		{"net.minecraft:client:1.20.4:sources", true},
		{"net.minecraft:client:1.20.4:sources@zip", false},
		{"net.minecraft:client:1.20.4:natives", false},
		{"net.minecraft:launcher:1.0", false},
		{"com.example:client:1.0", false},
	}

	for _, tc := range testCases {
		t.Run(tc.notation, func(t *testing.T) {
			t.Parallel()
			req, err := Declared(tc.notation, "p", "implementation")
			require.NoError(t, err)
			assert.Equal(t, tc.want, MatchGame(req))
		})
	}
}

func TestGameHandler_DefaultsToLatest(t *testing.T) {
	t.Parallel()

	// Arrange
	versions := &fixedVersions{latest: "1.20.4"}
	instances := &recordingInstances{}
	h := GameHandler(GameConfig{Versions: versions, Instances: instances})
	req := Request{Dependency: dependency.Dependency{Group: game.Group, Name: "server"}, Scope: "p"}

	// Act
	res, err := h.Produce(context.Background(), req)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{game.LatestVersion}, versions.tokens)
	require.Len(t, instances.specs, 1)
	assert.Equal(t, "1.20.4", instances.specs[0].Version())
	assert.Equal(t, game.Server, instances.specs[0].Side())
	assert.Equal(t, "1.20.4", res.Dependency.Version)
}

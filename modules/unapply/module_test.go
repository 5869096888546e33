package unapply

import (
	"context"
	"testing"

	"github.com/specialistvlad/gamepipe/internal/game"
	"github.com/specialistvlad/gamepipe/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mappingsCache struct {
	pipeline.ArtifactCache
	requested []string
}

func (c *mappingsCache) VersionMappings(_ context.Context, version string, side game.Side) (string, error) {
	c.requested = append(c.requested, version+"/"+side.String())
	return "/cache/" + version + "/client_mappings.txt", nil
}

type recordingRunner struct{ args []string }

func (r *recordingRunner) Run(_ context.Context, _, _ string, args []string) error {
	r.args = args
	return nil
}

func invocation(t *testing.T, c pipeline.ArtifactCache, values map[string]string) *pipeline.Invocation {
	t.Helper()
	spec, err := pipeline.NewSpecification(pipeline.Options{Version: "1.20.4", Side: game.Client})
	require.NoError(t, err)
	return &pipeline.Invocation{
		Spec:   spec,
		Step:   pipeline.StepDefinition{Name: "obfuscate", Type: "unapplyMappings"},
		Values: values,
		Input:  "in.jar",
		Output: "out/output.jar",
		Cache:  c,
	}
}

func TestUnapply_UsesClientMappingsOfExplicitVersion(t *testing.T) {
	t.Parallel()

	// Arrange
	cache := &mappingsCache{}
	runner := &recordingRunner{}
	step := (&Module{Runner: runner}).OnRunUnapply()

	// Act
	err := step(context.Background(), invocation(t, cache, map[string]string{"version": "1.20.2", "tool": "renamer"}))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"1.20.2/client"}, cache.requested)
	assert.Equal(t, []string{
		"--in-jar", "in.jar", "--out-jar", "out/output.jar", "--srg-in", "/cache/1.20.2/client_mappings.txt", "--live", "-r",
	}, runner.args)
}

func TestUnapply_RequiresExplicitVersion(t *testing.T) {
	t.Parallel()

	step := (&Module{Runner: &recordingRunner{}}).OnRunUnapply()

	for _, version := range []string{"", game.LatestVersion} {
		cache := &mappingsCache{}
		err := step(context.Background(), invocation(t, cache, map[string]string{"version": version, "tool": "renamer"}))

		assert.ErrorContains(t, err, `requires an explicit "version" value`)
		assert.Empty(t, cache.requested)
	}
}

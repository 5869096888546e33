package yamlconfig

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/specialistvlad/gamepipe/internal/config"
	"github.com/specialistvlad/gamepipe/internal/hcl"
	"github.com/specialistvlad/gamepipe/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_Load(t *testing.T) {
	t.Parallel()

	// Arrange
	dir := testutil.WriteFiles(t, map[string]string{
		"gamepipe.yaml": `
settings:
  work_dir: /tmp/work
  default_version: "1.20.4"
  maven_repositories:
    - https://maven.example.com/releases
pipelines:
  server-named:
    version: "+"
    side: server
    compiled: remap
    extras:
      remapper: "0.10"
    steps:
      - name: remap
        type: exec
        values:
          tool: remapper.jar
          threads: 8
`,
		"empty.yml": "",
	})

	// Act
	model, err := NewLoader().Load(context.Background(), dir)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, config.Settings{
		WorkDir:           "/tmp/work",
		DefaultVersion:    "1.20.4",
		MavenRepositories: []string{"https://maven.example.com/releases"},
	}, model.Settings)
	want := &config.Pipeline{
		Name:         "server-named",
		Version:      "+",
		Side:         "server",
		CompiledStep: "remap",
		Extras:       map[string]string{"remapper": "0.10"},
		Steps: []*config.Step{
			{Name: "remap", Type: "exec", Values: map[string]string{"tool": "remapper.jar", "threads": "8"}},
		},
		Source: filepath.Join(dir, "gamepipe.yaml"),
	}
	if diff := cmp.Diff(want, model.Pipelines["server-named"], cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("pipeline mismatch (-want +got):\n%s", diff)
	}
}

func TestLoader_Load_UnknownFieldFails(t *testing.T) {
	t.Parallel()

	dir := testutil.WriteFiles(t, map[string]string{
		"gamepipe.yaml": "pipelines:\n  p:\n    sid: client\n",
	})

	_, err := NewLoader().Load(context.Background(), dir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode YAML file")
}

func TestMultiLoader_MixesFormats(t *testing.T) {
	t.Parallel()

	// Arrange
	dir := testutil.WriteFiles(t, map[string]string{
		"a.hcl": `
pipeline "from-hcl" {
  version = "1.20.4"
  side    = "client"
}
`,
		"b.yaml": "pipelines:\n  from-yaml:\n    version: \"1.20.2\"\n    side: server\n",
	})
	loader := config.MultiLoader{hcl.NewLoader(), NewLoader()}

	// Act
	model, err := loader.Load(context.Background(), dir)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"from-hcl", "from-yaml"}, model.PipelineNames())
}

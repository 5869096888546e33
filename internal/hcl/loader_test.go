package hcl

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/specialistvlad/gamepipe/internal/config"
	"github.com/specialistvlad/gamepipe/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_Load_FullPipeline(t *testing.T) {
	t.Parallel()

	// Arrange
	dir := testutil.WriteFiles(t, map[string]string{
		"settings.hcl": `
settings {
  cache_dir          = "/var/cache/gamepipe"
  offline            = true
  asset_workers      = 4
  maven_repositories = ["https://maven.example.com/releases"]
}
`,
		"pipelines/client.hcl": `
pipeline "client-named" {
  version = "+"
  side    = "client"
  sources = "decompile"

  extras {
    decompiler = "1.9.3"
    threads    = 4
  }

  step "remap" {
    type = "exec"
    values {
      tool = "remapper.jar"
      args = "--in {input} --out {output}"
    }
  }

  step "decompile" {
    type     = "exec"
    input    = "{remapOutput}"
    optional = true
  }

  step "report" {
    type  = "copy"
    after = "decompile"
  }
}
`,
		"notes.txt": "ignored",
	})

	// Act
	model, err := NewLoader().Load(context.Background(), dir)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, config.Settings{
		CacheDir:          "/var/cache/gamepipe",
		Offline:           true,
		AssetWorkers:      4,
		MavenRepositories: []string{"https://maven.example.com/releases"},
	}, model.Settings)

	want := &config.Pipeline{
		Name:        "client-named",
		Version:     "+",
		Side:        "client",
		SourcesStep: "decompile",
		Extras:      map[string]string{"decompiler": "1.9.3", "threads": "4"},
		Steps: []*config.Step{
			{Name: "remap", Type: "exec", Values: map[string]string{"tool": "remapper.jar", "args": "--in {input} --out {output}"}},
			{Name: "decompile", Type: "exec", Input: "{remapOutput}", Optional: true},
			{Name: "report", Type: "copy", After: "decompile"},
		},
		Source: filepath.Join(dir, "pipelines", "client.hcl"),
	}
	got, err := model.Pipeline("client-named")
	require.NoError(t, err)
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("pipeline mismatch (-want +got):\n%s", diff)
	}
}

func TestLoader_Load_EnvironmentVariables(t *testing.T) {
	t.Setenv("GAMEPIPE_TEST_TOOL", "/opt/tools/remapper.jar")

	dir := testutil.WriteFiles(t, map[string]string{
		"main.hcl": `
pipeline "p" {
  version = "1.20.4"
  side    = "server"
  step "remap" {
    type = "exec"
    values {
      tool = env.GAMEPIPE_TEST_TOOL
    }
  }
}
`,
	})

	model, err := NewLoader().Load(context.Background(), dir)

	require.NoError(t, err)
	assert.Equal(t, "/opt/tools/remapper.jar", model.Pipelines["p"].Steps[0].Values["tool"])
}

func TestLoader_Load_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		files   map[string]string
		wantErr string
	}{
		{
			name:    "syntax error",
			files:   map[string]string{"main.hcl": `pipeline "p" {`},
			wantErr: "failed to parse HCL file",
		},
		{
			name:    "missing required attribute",
			files:   map[string]string{"main.hcl": `pipeline "p" { side = "client" }`},
			wantErr: "failed to decode HCL file",
		},
		{
			name: "non-scalar value",
			files: map[string]string{"main.hcl": `
pipeline "p" {
  version = "1"
  side    = "client"
  step "s" {
    type = "copy"
    values {
      list = ["a", "b"]
    }
  }
}`},
			wantErr: "cannot convert",
		},
		{
			name: "duplicate pipeline across files",
			files: map[string]string{
				"a.hcl": `pipeline "p" {
  version = "1"
  side = "client"
}`,
				"b.hcl": `pipeline "p" {
  version = "2"
  side = "client"
}`,
			},
			wantErr: "pipeline 'p' declared in both",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			dir := testutil.WriteFiles(t, tc.files)

			_, err := NewLoader().Load(context.Background(), dir)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoader_Load_MissingPathIsEmpty(t *testing.T) {
	t.Parallel()

	model, err := NewLoader().Load(context.Background(), filepath.Join(t.TempDir(), "nope"))

	require.NoError(t, err)
	assert.Empty(t, model.Pipelines)
}

package pipeline

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/gamepipe/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpecification_KeyIsValueIdentity(t *testing.T) {
	t.Parallel()

	opts := func() Options {
		return Options{
			Version: "1.20.4",
			Side:    game.Client,
			Extras:  map[string]string{"decompiler": "1.0", "renamer": "2.0"},
			Steps: []StepDefinition{
				{Name: "rename", Type: "exec", Values: map[string]string{"tool": "a", "args": "b"}},
			},
		}
	}

	a, err := NewSpecification(opts())
	require.NoError(t, err)
	b, err := NewSpecification(opts())
	require.NoError(t, err)
	assert.Equal(t, a.Key(), b.Key())
	assert.True(t, a.Equal(b))

	changed := opts()
	changed.Steps[0].Values["tool"] = "c"
	c, err := NewSpecification(changed)
	require.NoError(t, err)
	assert.NotEqual(t, a.Key(), c.Key())
}

func TestSpecification_IsImmutable(t *testing.T) {
	t.Parallel()

	values := map[string]string{"k": "v"}
	steps := []StepDefinition{{Name: "s", Type: "exec", Values: values}}
	spec, err := NewSpecification(Options{Version: "1.20.4", Side: game.Client, Steps: steps})
	require.NoError(t, err)
	key := spec.Key()

	values["k"] = "changed"
	steps[0].Name = "renamed"
	got := spec.Steps()
	got[0].Values["k"] = "changed again"

	want := []StepDefinition{{Name: "s", Type: "exec", Values: map[string]string{"k": "v"}}}
	if diff := cmp.Diff(want, spec.Steps()); diff != "" {
		t.Errorf("Steps() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, key, spec.Key())
	assert.Equal(t, "client", spec.Distribution())
}

func TestNewSpecification_Validation(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		opts    Options
		wantErr string
	}{
		{
			name:    "unresolved latest version",
			opts:    Options{Version: "+", Side: game.Client},
			wantErr: "must be resolved",
		},
		{
			name:    "missing version",
			opts:    Options{Side: game.Client},
			wantErr: "version is required",
		},
		{
			name:    "unknown side",
			opts:    Options{Version: "1.20.4", Side: "both"},
			wantErr: `unknown side "both"`,
		},
		{
			name: "duplicate step",
			opts: Options{Version: "1.20.4", Side: game.Client, Steps: []StepDefinition{
				{Name: "a", Type: "exec"}, {Name: "a", Type: "exec"},
			}},
			wantErr: `step "a" is declared more than once`,
		},
		{
			name: "built-in name",
			opts: Options{Version: "1.20.4", Side: game.Client, Steps: []StepDefinition{
				{Name: BuiltinClient, Type: "exec"},
			}},
			wantErr: "reserved for a built-in step",
		},
		{
			name: "missing type",
			opts: Options{Version: "1.20.4", Side: game.Client, Steps: []StepDefinition{
				{Name: "a"},
			}},
			wantErr: `step "a" has no type`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewSpecification(tc.opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestParseReference(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in      string
		want    string
		wantRef bool
	}{
		{"{renameOutput}", "rename", true},
		{"{downloadClientOutput}", BuiltinClient, true},
		{"{Output}", "", false},
		{"rename", "", false},
		{"/tmp/{renameOutput}", "", false},
		{"{rename-stepOutput}", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := ParseReference(tc.in)
			assert.Equal(t, tc.wantRef, ok)
			assert.Equal(t, tc.want, got)
		})
	}
	assert.Equal(t, "{renameOutput}", OutputReference("rename"))
}

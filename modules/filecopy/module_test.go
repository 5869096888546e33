package filecopy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/gamepipe/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnRunCopy(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := filepath.Join(dir, "in.jar")
	out := filepath.Join(dir, "out.jar")
	require.NoError(t, os.WriteFile(in, []byte("payload"), 0o644))

	err := OnRunCopy(context.Background(), &pipeline.Invocation{Input: in, Output: out})

	require.NoError(t, err)
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))
}

func TestOnRunCopy_MissingInput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	err := OnRunCopy(context.Background(), &pipeline.Invocation{
		Input:  filepath.Join(dir, "missing"),
		Output: filepath.Join(dir, "out"),
	})

	assert.ErrorContains(t, err, "failed to open input")
}

package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFilesByExtension(t *testing.T) {
	t.Parallel()

	// Arrange
	dir := t.TempDir()
	for _, name := range []string{"a.hcl", "nested/b.yaml", "nested/c.yml", "notes.txt"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, nil, 0o644))
	}

	// Act
	yamlFiles, err := FindFilesByExtension(dir, ".yaml", ".yml")
	require.NoError(t, err)
	single, err := FindFilesByExtension(filepath.Join(dir, "a.hcl"), ".hcl")
	require.NoError(t, err)

	// Assert
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "nested", "b.yaml"),
		filepath.Join(dir, "nested", "c.yml"),
	}, yamlFiles)
	assert.Equal(t, []string{filepath.Join(dir, "a.hcl")}, single)
}

func TestFindFilesByExtension_PanicsWithoutExtension(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { _, _ = FindFilesByExtension(t.TempDir()) })
}

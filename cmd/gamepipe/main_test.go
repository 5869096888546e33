package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/gamepipe/internal/cli"
	"github.com/stretchr/testify/require"
)

func TestRun_Help(t *testing.T) {
	t.Parallel()

	// Arrange
	out := &bytes.Buffer{}

	// Act
	err := run(context.Background(), out, []string{"-h"})

	// Assert
	require.NoError(t, err, "run() should return a nil error for help")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}

	err := run(context.Background(), out, []string{"run", "--this-is-not-a-valid-flag"})

	require.Error(t, err, "run() should return an error when argument parsing fails")
	require.Equal(t, cli.ExitUsage, cli.AsExitError(err).Code)
}

func TestRun_InvalidConfiguration(t *testing.T) {
	t.Parallel()

	// Arrange: an HCL file with a syntax error fails while loading.
	dir := t.TempDir()
	path := filepath.Join(dir, "main.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`pipeline "p" {`), 0o600))
	out := &bytes.Buffer{}

	// Act
	err := run(context.Background(), out, []string{"--cache-dir", t.TempDir(), "--config", path, "run", "p"})

	// Assert
	require.Error(t, err)
	exitErr := cli.AsExitError(err)
	require.Equal(t, cli.ExitUsage, exitErr.Code)
	require.Contains(t, exitErr.Message, "failed to parse")
}

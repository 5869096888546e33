// Package extract provides the "extractExisting" step. It reads the step
// input as a zip archive and overwrites files under the target directories
// that already exist at an entry's path. Entries without an existing
// counterpart are skipped, so the step refreshes a tree without adding to
// it.
//
// Targets come from the "target" value (which may reference another step's
// output) and the comma-separated "targets" value. The step output lists the
// files it replaced, one per line.
package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/specialistvlad/gamepipe/internal/ctxlog"
	"github.com/specialistvlad/gamepipe/internal/handlers"
	"github.com/specialistvlad/gamepipe/internal/pipeline"
)

// Module implements the handlers.Module interface for this package.
type Module struct{}

// OnRunExtract is the handler for the 'extractExisting' step type.
func OnRunExtract(ctx context.Context, inv *pipeline.Invocation) error {
	targets := targetDirs(inv.Values)
	if len(targets) == 0 {
		return fmt.Errorf("extractExisting step %q requires a %q or %q value", inv.Step.Name, "target", "targets")
	}

	zr, err := zip.OpenReader(inv.Input)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer zr.Close()

	var replaced []string
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		for _, dir := range targets {
			out, ok := entryPath(dir, f.Name)
			if !ok {
				return fmt.Errorf("archive entry %q escapes target %s", f.Name, dir)
			}
			if _, err := os.Stat(out); err != nil {
				continue
			}
			if err := extractEntry(f, out); err != nil {
				return err
			}
			replaced = append(replaced, out)
		}
	}

	ctxlog.FromContext(ctx).Debug("Replaced existing files from archive.", "archive", inv.Input, "count", len(replaced))
	listing := strings.Join(replaced, "\n")
	if listing != "" {
		listing += "\n"
	}
	return os.WriteFile(inv.Output, []byte(listing), 0o644)
}

func targetDirs(values map[string]string) []string {
	var dirs []string
	if t := strings.TrimSpace(values["target"]); t != "" {
		dirs = append(dirs, t)
	}
	for _, t := range strings.Split(values["targets"], ",") {
		if t = strings.TrimSpace(t); t != "" {
			dirs = append(dirs, t)
		}
	}
	return dirs
}

// entryPath joins name under dir, rejecting names that leave dir.
func entryPath(dir, name string) (string, bool) {
	out := filepath.Join(dir, filepath.FromSlash(name))
	rel, err := filepath.Rel(dir, out)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return out, true
}

func extractEntry(f *zip.File, out string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open archive entry %q: %w", f.Name, err)
	}
	defer rc.Close()

	dst, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to overwrite %s: %w", out, err)
	}
	if _, err := io.Copy(dst, rc); err != nil {
		dst.Close()
		return fmt.Errorf("failed to extract %q: %w", f.Name, err)
	}
	return dst.Close()
}

// Register registers the handler with the engine.
func (m *Module) Register(h *handlers.Handlers) {
	h.Register("extractExisting", OnRunExtract)
}

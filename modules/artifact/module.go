// Package artifact provides the "downloadArtifact" step, which fetches a
// tool or library by Maven coordinate through the artifact cache and copies
// it to the step output.
//
// The coordinate comes from the "artifact" value, or from the specification
// extra named by the "extra" value, so tool versions can live with the rest
// of the pipeline parameters. The step input is ignored.
package artifact

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/specialistvlad/gamepipe/internal/ctxlog"
	"github.com/specialistvlad/gamepipe/internal/dependency"
	"github.com/specialistvlad/gamepipe/internal/handlers"
	"github.com/specialistvlad/gamepipe/internal/pipeline"
)

// Source downloads repository artifacts. *cache.Store implements it.
type Source interface {
	MavenArtifact(ctx context.Context, d dependency.Dependency) (string, error)
}

// Module implements the handlers.Module interface for this package.
type Module struct {
	Source Source
}

// OnRunDownload returns the handler for the 'downloadArtifact' step type.
func (m *Module) OnRunDownload() pipeline.StepFunc {
	return func(ctx context.Context, inv *pipeline.Invocation) error {
		notation, err := coordinate(inv)
		if err != nil {
			return err
		}
		d, err := dependency.Parse(notation)
		if err != nil {
			return fmt.Errorf("downloadArtifact step %q: %w", inv.Step.Name, err)
		}
		path, err := m.Source.MavenArtifact(ctx, d)
		if err != nil {
			return fmt.Errorf("downloadArtifact step %q: %w", inv.Step.Name, err)
		}
		ctxlog.FromContext(ctx).Debug("Copying downloaded artifact.", "artifact", notation, "from", path, "to", inv.Output)
		return copyFile(path, inv.Output)
	}
}

func coordinate(inv *pipeline.Invocation) (string, error) {
	if v := inv.Values["artifact"]; v != "" {
		return v, nil
	}
	name := inv.Values["extra"]
	if name == "" {
		return "", fmt.Errorf("downloadArtifact step %q requires an %q or %q value", inv.Step.Name, "artifact", "extra")
	}
	if inv.Spec != nil {
		if v, ok := inv.Spec.Extra(name); ok && v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("downloadArtifact step %q: pipeline has no extra %q", inv.Step.Name, name)
}

func copyFile(from, to string) error {
	src, err := os.Open(from)
	if err != nil {
		return fmt.Errorf("failed to open artifact: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(to)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("failed to copy artifact: %w", err)
	}
	return dst.Close()
}

// Register registers the handler with the engine.
func (m *Module) Register(h *handlers.Handlers) {
	h.Register("downloadArtifact", m.OnRunDownload())
}

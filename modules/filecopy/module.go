// Package filecopy provides the "copy" step, which copies its input to its
// output unchanged.
package filecopy

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/specialistvlad/gamepipe/internal/ctxlog"
	"github.com/specialistvlad/gamepipe/internal/handlers"
	"github.com/specialistvlad/gamepipe/internal/pipeline"
)

// Module implements the handlers.Module interface for this package.
type Module struct{}

// OnRunCopy is the handler for the 'copy' step type.
func OnRunCopy(ctx context.Context, inv *pipeline.Invocation) error {
	ctxlog.FromContext(ctx).Debug("Copying step input.", "from", inv.Input, "to", inv.Output)

	src, err := os.Open(inv.Input)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(inv.Output)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("failed to copy input: %w", err)
	}
	return dst.Close()
}

// Register registers the handler with the engine.
func (m *Module) Register(h *handlers.Handlers) {
	h.Register("copy", OnRunCopy)
}

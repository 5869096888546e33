// Package unapply provides the "unapplyMappings" step, which maps a compiled
// jar back to obfuscated names with an external renaming tool.
//
// The step requires an explicit "version" value naming the game version
// whose client mappings are applied in reverse. It never guesses the version
// from other artifacts.
package unapply

import (
	"context"
	"fmt"
	"maps"

	"github.com/specialistvlad/gamepipe/internal/game"
	"github.com/specialistvlad/gamepipe/internal/handlers"
	"github.com/specialistvlad/gamepipe/internal/pipeline"
	"github.com/specialistvlad/gamepipe/modules/exec"
)

// DefaultArgs is used when the step sets no "args" value.
const DefaultArgs = "--in-jar {input} --out-jar {output} --srg-in {mappings} --live -r"

// Module implements the handlers.Module interface for this package.
type Module struct {
	Runner exec.Runner
}

// OnRunUnapply returns the handler for the 'unapplyMappings' step type.
func (m *Module) OnRunUnapply() pipeline.StepFunc {
	run := (&exec.Module{Runner: m.Runner}).Step()
	return func(ctx context.Context, inv *pipeline.Invocation) error {
		version := inv.Values["version"]
		if version == "" || version == game.LatestVersion {
			return fmt.Errorf("unapplyMappings step %q requires an explicit %q value", inv.Step.Name, "version")
		}
		if inv.Values["tool"] == "" {
			return fmt.Errorf("unapplyMappings step %q requires a %q value", inv.Step.Name, "tool")
		}
		mappings, err := inv.Cache.VersionMappings(ctx, version, game.Client)
		if err != nil {
			return fmt.Errorf("unapplyMappings step %q: %w", inv.Step.Name, err)
		}

		values := maps.Clone(inv.Values)
		values["mappings"] = mappings
		if values["args"] == "" {
			values["args"] = DefaultArgs
		}
		next := *inv
		next.Values = values
		return run(ctx, &next)
	}
}

// Register registers the handler with the engine.
func (m *Module) Register(h *handlers.Handlers) {
	h.Register("unapplyMappings", m.OnRunUnapply())
}

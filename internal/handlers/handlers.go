// Package handlers maps pipeline step types to the Go functions that run them.
package handlers

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/specialistvlad/gamepipe/internal/pipeline"
)

// Module is implemented by every package that contributes step types.
type Module interface {
	Register(h *Handlers)
}

// Handlers holds all the registered step handlers.
type Handlers struct {
	all map[string]pipeline.StepFunc
}

// New creates an empty Handlers and registers mods into it.
func New(mods ...Module) *Handlers {
	h := &Handlers{all: make(map[string]pipeline.StepFunc)}
	for _, m := range mods {
		m.Register(h)
	}
	return h
}

// Register registers fn as the handler for steps of type name.
func (h *Handlers) Register(name string, fn pipeline.StepFunc) {
	if _, exists := h.all[name]; exists {
		panic(fmt.Sprintf("step handler with name '%s' already registered", name))
	}
	slog.Debug("Registering step handler.", "name", name)
	h.all[name] = fn
}

// Lookup implements pipeline.StepRunners.
func (h *Handlers) Lookup(name string) (pipeline.StepFunc, bool) {
	fn, ok := h.all[name]
	return fn, ok
}

// Names returns the registered step types in sorted order.
func (h *Handlers) Names() []string {
	out := make([]string, 0, len(h.all))
	for name := range h.all {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

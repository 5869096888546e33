// Package replacement substitutes declared library dependencies with the
// outputs of pipeline instances.
package replacement

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/specialistvlad/gamepipe/internal/ctxlog"
	"github.com/specialistvlad/gamepipe/internal/dependency"
	"github.com/specialistvlad/gamepipe/internal/metrics"
	"github.com/specialistvlad/gamepipe/internal/pipeline"
)

// Request is a dependency a consumer declared.
type Request struct {
	Dependency dependency.Dependency
	// Scope identifies the consumer; instances are shared within a scope.
	Scope string
	// Configuration names the consumer's dependency bucket, e.g. "implementation".
	Configuration string
}

// Result is what replaces a matched dependency.
type Result struct {
	Instance *pipeline.Instance
	// Raw is the unmodified game artifact unit.
	Raw *pipeline.Unit
	// Processed is the unit whose output stands in for the dependency.
	Processed *pipeline.Unit
	// Dependency is the declared coordinate with its version resolved.
	Dependency dependency.Dependency
	// OnWired is called by the host once the result is attached to the
	// consumer. It may be nil.
	OnWired func()
	// Extra units the consumer also needs at runtime, such as assets.
	Extra []*pipeline.Unit
}

// Wired runs the OnWired hook if there is one.
func (r *Result) Wired() {
	if r.OnWired != nil {
		r.OnWired()
	}
}

// Matcher decides whether a handler takes a request.
type Matcher func(req Request) bool

// Producer builds the result for a matched request.
type Producer func(ctx context.Context, req Request) (*Result, error)

// Handler is a named replacement rule.
type Handler struct {
	Name    string
	Match   Matcher
	Produce Producer
}

// Router holds handlers in registration order.
type Router struct {
	metrics *metrics.Collectors

	mu       sync.RWMutex
	handlers []Handler
}

// NewRouter creates an empty router.
func NewRouter(m *metrics.Collectors) *Router {
	return &Router{metrics: m}
}

// Register appends h. It panics if a handler with the same name exists.
func (r *Router) Register(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slog.Debug("Registering replacement handler", "name", h.Name)
	for _, existing := range r.handlers {
		if existing.Name == h.Name {
			panic(fmt.Sprintf("replacement handler with name '%s' already registered", h.Name))
		}
	}
	r.handlers = append(r.handlers, h)
}

// Names returns the registered handler names in order.
func (r *Router) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.handlers))
	for i, h := range r.handlers {
		names[i] = h.Name
	}
	return names
}

// TryReplace runs the first handler that matches req. It returns false when
// no handler matches.
func (r *Router) TryReplace(ctx context.Context, req Request) (*Result, bool, error) {
	r.mu.RLock()
	handlers := r.handlers
	r.mu.RUnlock()

	for _, h := range handlers {
		if !h.Match(req) {
			continue
		}
		logger := ctxlog.FromContext(ctx)
		logger.Debug("Replacing dependency.", "handler", h.Name, "dependency", req.Dependency.String(), "scope", req.Scope)
		res, err := h.Produce(ctx, req)
		if err != nil {
			return nil, true, fmt.Errorf("replacement handler '%s' failed for %s: %w", h.Name, req.Dependency, err)
		}
		if res == nil {
			return nil, true, fmt.Errorf("replacement handler '%s' returned no result for %s", h.Name, req.Dependency)
		}
		r.metrics.Replacement(h.Name)
		return res, true, nil
	}
	return nil, false, nil
}

// Package registry memoizes materialized pipeline instances per consumer
// scope and specification key.
//
// Instances are pure functions of immutable specifications, so entries are
// never evicted. Concurrent requests for an equal key share one
// materialization.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/opencontainers/go-digest"
	"github.com/specialistvlad/gamepipe/internal/ctxlog"
	"github.com/specialistvlad/gamepipe/internal/metrics"
	"github.com/specialistvlad/gamepipe/internal/pipeline"
)

// Materializer builds an instance from a specification.
type Materializer interface {
	Materialize(ctx context.Context, spec *pipeline.Specification) (*pipeline.Instance, error)
}

// Producer builds the instance for a new registry entry.
type Producer func(ctx context.Context) (*pipeline.Instance, error)

type key struct {
	scope string
	spec  digest.Digest
}

type entry struct {
	scope string
	once  sync.Once
	// Written once under Registry.mu.
	done bool
	inst *pipeline.Instance
	err  error
}

// Registry holds one instance per (scope, specification).
type Registry struct {
	materializer Materializer
	metrics      *metrics.Collectors

	mu      sync.Mutex
	entries map[key]*entry
	order   []*entry
}

// New creates an empty registry backed by m.
func New(m Materializer, c *metrics.Collectors) *Registry {
	return &Registry{
		materializer: m,
		metrics:      c,
		entries:      make(map[key]*entry),
	}
}

// GetOrCreate returns the instance for (scope, spec), materializing it on
// first use.
func (r *Registry) GetOrCreate(ctx context.Context, scope string, spec *pipeline.Specification) (*pipeline.Instance, error) {
	return r.GetOrCreateWith(ctx, scope, spec, func(ctx context.Context) (*pipeline.Instance, error) {
		return r.materializer.Materialize(ctx, spec)
	})
}

// GetOrCreateWith is GetOrCreate with a custom producer. The producer runs at
// most once per key; its result, including an error, is kept.
func (r *Registry) GetOrCreateWith(ctx context.Context, scope string, spec *pipeline.Specification, produce Producer) (*pipeline.Instance, error) {
	k := key{scope: scope, spec: spec.Key()}

	r.mu.Lock()
	e, found := r.entries[k]
	if !found {
		e = &entry{scope: scope}
		r.entries[k] = e
		r.order = append(r.order, e)
	}
	r.mu.Unlock()
	r.metrics.RegistryLookup(found)

	e.once.Do(func() {
		ctxlog.FromContext(ctx).Debug("Creating pipeline instance.", "scope", scope, "spec", spec.String())
		inst, err := produce(ctx)
		if err == nil && inst == nil {
			err = fmt.Errorf("producer for %s returned no instance", spec)
		}
		r.mu.Lock()
		e.inst, e.err, e.done = inst, err, true
		r.mu.Unlock()
	})
	return e.inst, e.err
}

// Wrap registers a delegating instance for (scope, spec) around delegate. An
// existing entry for the key is returned unchanged.
func (r *Registry) Wrap(ctx context.Context, scope string, spec *pipeline.Specification, delegate *pipeline.Instance) (*pipeline.Instance, error) {
	return r.GetOrCreateWith(ctx, scope, spec, func(context.Context) (*pipeline.Instance, error) {
		return pipeline.NewDelegating(delegate, spec), nil
	})
}

// Instances returns the successfully created instances of scope in creation
// order.
func (r *Registry) Instances(scope string) []*pipeline.Instance {
	return r.collect(func(e *entry) bool { return e.scope == scope })
}

// All returns every successfully created instance in creation order.
func (r *Registry) All() []*pipeline.Instance {
	return r.collect(func(*entry) bool { return true })
}

func (r *Registry) collect(keep func(*entry) bool) []*pipeline.Instance {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*pipeline.Instance
	for _, e := range r.order {
		// Entries still being produced are skipped, not waited on.
		if e.done && e.err == nil && keep(e) {
			out = append(out, e.inst)
		}
	}
	return out
}

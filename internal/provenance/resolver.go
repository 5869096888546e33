// Package provenance finds the pipeline instance that produced a build-graph
// node.
//
// The walk is exhaustive: every node reachable under the expansion rules is
// visited once, and every pipeline found is collected before uniqueness is
// judged. Wrappers shadow the instances they delegate to.
package provenance

import (
	"context"
	"slices"
	"sync"

	"github.com/specialistvlad/gamepipe/internal/ctxlog"
	"github.com/specialistvlad/gamepipe/internal/pipeline"
)

// Resolver answers provenance queries. It keeps a per-source-set side table
// for the lifetime of the Resolver; it is safe for concurrent use.
type Resolver struct {
	graph      Graph
	candidates Candidates

	sourceSets sync.Map // Node -> *pipeline.Instance
}

// New creates a Resolver over graph. candidates may be nil when no
// declarations need matching.
func New(graph Graph, candidates Candidates) *Resolver {
	return &Resolver{graph: graph, candidates: candidates}
}

// Resolve returns the unique instance that produced node.
func (r *Resolver) Resolve(ctx context.Context, node Node) (*pipeline.Instance, error) {
	found := r.Find(ctx, node)
	switch len(found) {
	case 0:
		return nil, &ProvenanceNotFoundError{Node: r.graph.Name(node)}
	case 1:
		return found[0], nil
	default:
		return nil, &AmbiguousProvenanceError{Node: r.graph.Name(node), Candidates: found}
	}
}

// Find returns every instance reachable from node after wrappers have
// replaced their delegates, in discovery order.
func (r *Resolver) Find(ctx context.Context, node Node) []*pipeline.Instance {
	w := r.newWalker(make(map[Node]bool))
	w.visit(node)
	found := disambiguate(w.found)
	ctxlog.FromContext(ctx).Debug("Resolved provenance.", "node", r.graph.Name(node), "visited", len(w.visited), "found", len(found))
	return found
}

// Forget drops the memoized result of a source set.
func (r *Resolver) Forget(sourceSet Node) {
	r.sourceSets.Delete(sourceSet)
}

type walker struct {
	r       *Resolver
	visited map[Node]bool
	found   []*pipeline.Instance
	// active holds the source sets being walked by this walker or an
	// enclosing one; it stops a classpath that loops back to its owner.
	active map[Node]bool
	// cut records the active source sets this walk skipped. A source-set
	// result is only complete once every cut node is the set itself.
	cut map[Node]bool
}

func (r *Resolver) newWalker(active map[Node]bool) *walker {
	return &walker{r: r, visited: make(map[Node]bool), active: active, cut: make(map[Node]bool)}
}

func (w *walker) add(inst *pipeline.Instance) {
	if inst != nil && !slices.Contains(w.found, inst) {
		w.found = append(w.found, inst)
	}
}

func (w *walker) visit(node Node) {
	if node == nil || w.visited[node] {
		return
	}
	w.visited[node] = true

	g := w.r.graph
	switch g.Kind(node) {
	case KindPipeline:
		w.add(g.Instance(node))
	case KindCompiled, KindContainer, KindSourceDirectory:
		for _, next := range g.Expand(node) {
			w.visit(next)
		}
	case KindSourceSet:
		for _, inst := range w.sourceSet(node) {
			w.add(inst)
		}
	case KindDeclarations:
		w.declarations(node)
	}
}

// sourceSet resolves a source set with a fresh walker so the memoized
// result does not depend on what the enclosing walk already visited. A walk
// that skipped an enclosing source set saw only part of the classpath and is
// not memoized.
func (w *walker) sourceSet(node Node) []*pipeline.Instance {
	if v, ok := w.r.sourceSets.Load(node); ok {
		return []*pipeline.Instance{v.(*pipeline.Instance)}
	}
	if w.active[node] {
		w.cut[node] = true
		return nil
	}
	w.active[node] = true
	defer delete(w.active, node)

	sub := w.r.newWalker(w.active)
	sub.visited[node] = true
	for _, next := range w.r.graph.Expand(node) {
		sub.visit(next)
	}
	delete(sub.cut, node)
	for n := range sub.cut {
		w.cut[n] = true
	}
	found := disambiguate(sub.found)
	if len(found) == 1 && len(sub.cut) == 0 {
		w.r.sourceSets.Store(node, found[0])
	}
	return found
}

func (w *walker) declarations(node Node) {
	if w.r.candidates == nil {
		return
	}
	decls := w.r.graph.Declarations(node)
	if len(decls) == 0 {
		return
	}
	for _, inst := range w.r.candidates.Instances(w.r.graph.Scope(node)) {
		replaced, ok := inst.ReplacedDependency()
		if !ok {
			continue
		}
		for _, d := range decls {
			if d.Equal(replaced) {
				w.add(inst)
				break
			}
		}
	}
}

// disambiguate drops every instance that another found instance delegates
// to, then removes duplicates.
func disambiguate(found []*pipeline.Instance) []*pipeline.Instance {
	var out []*pipeline.Instance
	for _, inst := range found {
		shadowed := slices.ContainsFunc(found, func(other *pipeline.Instance) bool {
			return other != inst && other.Delegates(inst)
		})
		if !shadowed && !slices.Contains(out, inst) {
			out = append(out, inst)
		}
	}
	return out
}

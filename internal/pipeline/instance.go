package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/specialistvlad/gamepipe/internal/dependency"
)

// Instance is a materialized pipeline. A delegating instance has its own
// identity and specification but forwards step queries to its delegate.
type Instance struct {
	id       uuid.UUID
	spec     *Specification
	delegate *Instance

	units    map[string]*Unit
	order    []string
	raw      *Unit
	sources  *Unit
	compiled *Unit
	assets   *Unit

	mu       sync.Mutex
	replaced *dependency.Dependency
}

func newInstance(spec *Specification) *Instance {
	return &Instance{
		id:    uuid.New(),
		spec:  spec,
		units: make(map[string]*Unit),
	}
}

// NewDelegating wraps delegate under a distinct identity described by spec.
func NewDelegating(delegate *Instance, spec *Specification) *Instance {
	if spec == nil {
		spec = delegate.spec
	}
	return &Instance{
		id:       uuid.New(),
		spec:     spec,
		delegate: delegate,
	}
}

func (i *Instance) add(u *Unit) {
	i.units[u.name] = u
	if !u.builtin {
		i.order = append(i.order, u.name)
	}
}

func (i *Instance) seal() {
	for _, u := range i.units {
		u.seal()
	}
}

// base is the instance that owns the units.
func (i *Instance) base() *Instance {
	return i.Root()
}

func (i *Instance) ID() uuid.UUID { return i.id }

func (i *Instance) Spec() *Specification { return i.spec }

// IsDelegating reports whether the instance wraps another one.
func (i *Instance) IsDelegating() bool { return i.delegate != nil }

// Unwrap returns the nearest wrapped instance, or nil for a direct instance.
func (i *Instance) Unwrap() *Instance { return i.delegate }

// Root follows delegation to the direct instance.
func (i *Instance) Root() *Instance {
	cur := i
	for cur.delegate != nil {
		cur = cur.delegate
	}
	return cur
}

// Delegates reports whether other is reachable from i through delegation.
func (i *Instance) Delegates(other *Instance) bool {
	for cur := i.delegate; cur != nil; cur = cur.delegate {
		if cur == other {
			return true
		}
	}
	return false
}

// Step returns the unit named name; built-in names are accepted.
func (i *Instance) Step(name string) (*Unit, bool) {
	u, ok := i.base().units[name]
	return u, ok
}

// Steps returns the user steps in declared order.
func (i *Instance) Steps() []*Unit {
	b := i.base()
	out := make([]*Unit, 0, len(b.order))
	for _, name := range b.order {
		out = append(out, b.units[name])
	}
	return out
}

func (i *Instance) Raw() *Unit { return i.base().raw }

// Sources returns the sources terminal, or nil when none was declared.
func (i *Instance) Sources() *Unit { return i.base().sources }

func (i *Instance) Compiled() *Unit { return i.base().compiled }

// Assets returns the unit that downloads the version's assets.
func (i *Instance) Assets() *Unit { return i.base().assets }

// Realize realizes the named step.
func (i *Instance) Realize(ctx context.Context, name string) (string, error) {
	u, ok := i.Step(name)
	if !ok {
		return "", fmt.Errorf("pipeline %s has no step %q", i, name)
	}
	return u.Realize(ctx)
}

// SetReplacedDependency records the dependency this instance stands in for.
func (i *Instance) SetReplacedDependency(d dependency.Dependency) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.replaced = &d
}

// ReplacedDependency returns the dependency recorded on the instance or, for
// a wrapper with none of its own, on its delegate.
func (i *Instance) ReplacedDependency() (dependency.Dependency, bool) {
	i.mu.Lock()
	d := i.replaced
	i.mu.Unlock()
	if d != nil {
		return *d, true
	}
	if i.delegate != nil {
		return i.delegate.ReplacedDependency()
	}
	return dependency.Dependency{}, false
}

func (i *Instance) String() string {
	kind := "pipeline"
	if i.delegate != nil {
		kind = "delegating pipeline"
	}
	return fmt.Sprintf("%s %s (%s)", kind, i.spec, i.id.String()[:8])
}

package pipeline

import (
	"context"
	"sync"

	"github.com/specialistvlad/gamepipe/internal/memo"
)

// Unit is one materialized step. It exposes a single output file and is
// computed at most once.
type Unit struct {
	name     string
	stepType string
	builtin  bool
	output   string

	// input is the upstream unit, or nil when the step reads a literal path.
	input        *Unit
	literalInput string
	deps         []*Unit

	result *memo.Value[string]

	mu         sync.Mutex
	sealed     bool
	finalizers []*Unit
}

func (u *Unit) Name() string { return u.name }

// Type is the handler type of the step, or "builtin".
func (u *Unit) Type() string { return u.stepType }

func (u *Unit) IsBuiltin() bool { return u.builtin }

// Output is the path the unit writes or resolves to. It is known before the
// unit runs.
func (u *Unit) Output() string { return u.output }

// Input returns the path the unit reads: the upstream output or the literal.
func (u *Unit) Input() string {
	if u.input != nil {
		return u.input.output
	}
	return u.literalInput
}

// InputUnit returns the upstream unit, if the input is a step reference.
func (u *Unit) InputUnit() *Unit { return u.input }

// Dependencies returns the units that must complete before this one.
func (u *Unit) Dependencies() []*Unit {
	return append([]*Unit(nil), u.deps...)
}

// State reports whether the unit is pending, computing or computed.
func (u *Unit) State() memo.State { return u.result.State() }

// Result returns the output path if the unit completed successfully.
func (u *Unit) Result() (string, bool) { return u.result.Get() }

// Finally attaches f to run after u whenever u is realized. Attachments are
// only accepted while the owning instance is being materialized.
func (u *Unit) Finally(f *Unit) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.sealed {
		return ErrSealed
	}
	u.finalizers = append(u.finalizers, f)
	return nil
}

// Finalizers returns the units attached with Finally.
func (u *Unit) Finalizers() []*Unit {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]*Unit(nil), u.finalizers...)
}

func (u *Unit) seal() {
	u.mu.Lock()
	u.sealed = true
	u.mu.Unlock()
}

// Force computes the unit and its dependencies, without running attached
// finalizers, and returns the output path.
func (u *Unit) Force(ctx context.Context) (string, error) {
	return u.result.Force(ctx)
}

// Realize forces the unit, then runs the finalizers attached anywhere in its
// dependency closure.
func (u *Unit) Realize(ctx context.Context) (string, error) {
	out, err := u.Force(ctx)
	if err != nil {
		return "", err
	}
	if err := u.runFinalizers(ctx, make(map[*Unit]bool)); err != nil {
		return "", err
	}
	return out, nil
}

func (u *Unit) runFinalizers(ctx context.Context, visited map[*Unit]bool) error {
	if visited[u] {
		return nil
	}
	visited[u] = true
	for _, d := range u.deps {
		if err := d.runFinalizers(ctx, visited); err != nil {
			return err
		}
	}
	for _, f := range u.Finalizers() {
		if _, err := f.Force(ctx); err != nil {
			return err
		}
		if err := f.runFinalizers(ctx, visited); err != nil {
			return err
		}
	}
	return nil
}

func (u *Unit) String() string {
	return u.name
}

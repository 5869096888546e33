package pipeline

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/specialistvlad/gamepipe/internal/cache"
	"github.com/specialistvlad/gamepipe/internal/ctxlog"
	"github.com/specialistvlad/gamepipe/internal/game"
	"github.com/specialistvlad/gamepipe/internal/memo"
	"github.com/specialistvlad/gamepipe/internal/metrics"
)

// ArtifactCache is the subset of the cache store the built-in steps use.
type ArtifactCache interface {
	Root() string
	Path(sel cache.Selector) string
	LauncherMetadata(ctx context.Context) (string, error)
	VersionMetadata(ctx context.Context, version string) (string, error)
	VersionArtifact(ctx context.Context, version string, side game.Side) (string, error)
	VersionMappings(ctx context.Context, version string, side game.Side) (string, error)
	DownloadAssets(ctx context.Context, version string) (string, error)
}

// Invocation is what a step handler receives.
type Invocation struct {
	Spec *Specification
	Step StepDefinition
	// Values are the step values with references replaced by output paths.
	Values map[string]string
	Input  string
	Output string
	Cache  ArtifactCache
}

// StepFunc runs one step. It must write Invocation.Output.
type StepFunc func(ctx context.Context, inv *Invocation) error

// StepRunners resolves a step type to its handler.
type StepRunners interface {
	Lookup(stepType string) (StepFunc, bool)
}

// DefaultOutputExtension is used when a step sets no "outputExtension" value.
const DefaultOutputExtension = "jar"

// Materializer turns specifications into instances.
type Materializer struct {
	cache    ArtifactCache
	runners  StepRunners
	workRoot string
	metrics  *metrics.Collectors
}

// NewMaterializer creates a Materializer that writes step outputs below workRoot.
func NewMaterializer(c ArtifactCache, runners StepRunners, workRoot string, m *metrics.Collectors) *Materializer {
	return &Materializer{cache: c, runners: runners, workRoot: workRoot, metrics: m}
}

// Materialize wires the steps of spec in one pass over the declared order.
// Nothing runs here; every configuration problem is reported before any
// unit can be realized.
func (m *Materializer) Materialize(ctx context.Context, spec *Specification) (*Instance, error) {
	logger := ctxlog.FromContext(ctx).With("pipeline", spec.String())
	inst := newInstance(spec)
	m.addBuiltins(inst)

	var errs *multierror.Error
	prev := inst.units[RawBuiltin(spec.Side())]
	for _, def := range spec.steps {
		u, err := m.stepUnit(inst, def, prev)
		if err != nil {
			var unresolved *UnresolvedStepReferenceError
			if def.Optional && errors.As(err, &unresolved) {
				logger.Debug("Omitting optional step.", "step", def.Name, "reference", unresolved.Reference)
				continue
			}
			errs = multierror.Append(errs, err)
			continue
		}
		inst.add(u)
		if def.After != "" {
			if err := inst.units[def.After].Finally(u); err != nil {
				errs = multierror.Append(errs, err)
			}
			continue
		}
		prev = u
	}

	terminal := func(field, name string, fallback *Unit) *Unit {
		if name == "" {
			return fallback
		}
		u, ok := inst.units[name]
		if !ok {
			errs = multierror.Append(errs, &UnresolvedStepReferenceError{Step: field, Field: "terminal", Reference: name})
		}
		return u
	}
	inst.raw = terminal("raw", spec.rawStep, inst.units[RawBuiltin(spec.Side())])
	inst.sources = terminal("sources", spec.sourcesStep, nil)
	inst.compiled = terminal("compiled", spec.compiledStep, prev)

	if err := errs.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("materializing pipeline %s: %w", spec, err)
	}
	inst.seal()
	m.metrics.Materialized()
	logger.Debug("Materialized pipeline.", "id", inst.id.String(), "steps", len(inst.order))
	return inst, nil
}

func (m *Materializer) addBuiltins(inst *Instance) {
	version := inst.spec.Version()
	add := func(name, output string, fn func(context.Context) (string, error)) {
		inst.add(&Unit{
			name:     name,
			stepType: "builtin",
			builtin:  true,
			output:   output,
			result:   memo.New(fn),
		})
	}

	add(BuiltinManifest, m.cache.Path(cache.LauncherMetadata()), func(ctx context.Context) (string, error) {
		return m.cache.LauncherMetadata(ctx)
	})
	add(BuiltinVersionJSON, m.cache.Path(cache.ForVersionJSON(version)), func(ctx context.Context) (string, error) {
		return m.cache.VersionMetadata(ctx, version)
	})
	for _, side := range game.Sides {
		add(RawBuiltin(side), m.cache.Path(cache.ForVersionJar(version, side)), func(ctx context.Context) (string, error) {
			return m.cache.VersionArtifact(ctx, version, side)
		})
		add(MappingsBuiltin(side), m.cache.Path(cache.ForVersionMappings(version, side)), func(ctx context.Context) (string, error) {
			return m.cache.VersionMappings(ctx, version, side)
		})
	}
	add(BuiltinAssets, filepath.Join(m.cache.Root(), "assets"), func(ctx context.Context) (string, error) {
		return m.cache.DownloadAssets(ctx, version)
	})
	inst.assets = inst.units[BuiltinAssets]
}

func (m *Materializer) stepUnit(inst *Instance, def StepDefinition, prev *Unit) (*Unit, error) {
	resolve := func(field, ref string) (*Unit, error) {
		u, ok := inst.units[ref]
		if !ok {
			return nil, &UnresolvedStepReferenceError{Step: def.Name, Field: field, Reference: ref}
		}
		return u, nil
	}

	u := &Unit{name: def.Name, stepType: def.Type}

	var target *Unit
	if def.After != "" {
		t, err := resolve("after", def.After)
		if err != nil {
			return nil, err
		}
		target = t
	}

	switch ref, isRef := ParseReference(def.Input); {
	case def.Input == "" && target != nil:
		u.input = target
	case def.Input == "":
		u.input = prev
	case isRef:
		in, err := resolve("input", ref)
		if err != nil {
			return nil, err
		}
		u.input = in
	default:
		u.literalInput = def.Input
	}
	if u.input != nil {
		u.deps = append(u.deps, u.input)
	}

	values := make(map[string]string, len(def.Values))
	for _, k := range slices.Sorted(maps.Keys(def.Values)) {
		v := def.Values[k]
		ref, isRef := ParseReference(v)
		if !isRef {
			values[k] = v
			continue
		}
		dep, err := resolve("value "+k, ref)
		if err != nil {
			return nil, err
		}
		values[k] = dep.output
		if !slices.Contains(u.deps, dep) {
			u.deps = append(u.deps, dep)
		}
	}

	run, ok := m.runners.Lookup(def.Type)
	if !ok {
		return nil, &UnknownStepTypeError{Step: def.Name, Type: def.Type}
	}

	u.output = m.outputPath(inst.spec, def)
	u.result = memo.New(func(ctx context.Context) (string, error) {
		return m.runStep(ctx, inst.spec, def, u, values, run)
	})
	return u, nil
}

func (m *Materializer) outputPath(spec *Specification, def StepDefinition) string {
	ext := def.Values["outputExtension"]
	if ext == "" {
		ext = DefaultOutputExtension
	}
	return filepath.Join(m.workRoot, spec.Version(), spec.Distribution()+"-"+spec.ShortKey(), def.Name, "output."+ext)
}

func (m *Materializer) runStep(ctx context.Context, spec *Specification, def StepDefinition, u *Unit, values map[string]string, run StepFunc) (string, error) {
	for _, d := range u.deps {
		if _, err := d.Force(ctx); err != nil {
			return "", &StepError{Step: def.Name, Err: fmt.Errorf("dependency %s: %w", d.name, err)}
		}
	}

	input := u.Input()
	if u.input == nil {
		if _, err := os.Stat(input); err != nil {
			return "", &StepError{Step: def.Name, Err: fmt.Errorf("missing expected input file: %w", err)}
		}
	}
	if err := os.MkdirAll(filepath.Dir(u.output), 0o755); err != nil {
		return "", &StepError{Step: def.Name, Err: err}
	}

	logger := ctxlog.FromContext(ctx).With("step", def.Name, "type", def.Type)
	logger.Info("Running step.", "input", input, "output", u.output)
	start := time.Now()

	inv := &Invocation{
		Spec:   spec,
		Step:   def.clone(),
		Values: maps.Clone(values),
		Input:  input,
		Output: u.output,
		Cache:  m.cache,
	}
	if err := run(ctx, inv); err != nil {
		return "", &StepError{Step: def.Name, Err: err}
	}
	if _, err := os.Stat(u.output); err != nil {
		return "", &StepError{Step: def.Name, Err: fmt.Errorf("handler did not produce %s", u.output)}
	}

	logger.Info("Step completed.", "duration", time.Since(start))
	return u.output, nil
}

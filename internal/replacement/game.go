package replacement

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/specialistvlad/gamepipe/internal/dependency"
	"github.com/specialistvlad/gamepipe/internal/game"
	"github.com/specialistvlad/gamepipe/internal/pipeline"
)

// GameHandlerName is the name the stock game handler registers under.
const GameHandlerName = "game"

// VersionResolver turns a version token into a concrete version.
type VersionResolver interface {
	ResolveVersion(ctx context.Context, token string) (string, error)
}

// InstanceSource returns the instance for a scope and specification.
type InstanceSource interface {
	GetOrCreate(ctx context.Context, scope string, spec *pipeline.Specification) (*pipeline.Instance, error)
}

// GameConfig configures the stock game handler.
type GameConfig struct {
	Versions  VersionResolver
	Instances InstanceSource
	// DefaultVersion is used when the dependency pins none. Defaults to "+".
	DefaultVersion string
	// Template returns the pipeline for a side. Version and Side of the
	// returned options are overwritten. A nil Template yields a pipeline
	// without steps.
	Template func(side game.Side) pipeline.Options
}

// MatchGame accepts the reserved group with a side name, requesting either
// the default artifact or exactly one sources jar.
func MatchGame(req Request) bool {
	d := req.Dependency
	if d.Group != game.Group {
		return false
	}
	if !game.Side(d.Name).Valid() {
		return false
	}
	return len(d.Artifacts) == 0 || d.HasOnlySources()
}

// GameHandler builds the stock handler that replaces game dependencies with
// pipeline outputs.
func GameHandler(cfg GameConfig) Handler {
	return Handler{
		Name:  GameHandlerName,
		Match: MatchGame,
		Produce: func(ctx context.Context, req Request) (*Result, error) {
			return produceGame(ctx, cfg, req)
		},
	}
}

func produceGame(ctx context.Context, cfg GameConfig, req Request) (*Result, error) {
	side, err := game.ParseSide(req.Dependency.Name)
	if err != nil {
		return nil, err
	}

	token := req.Dependency.Version
	if token == "" {
		token = cfg.DefaultVersion
	}
	if token == "" {
		token = game.LatestVersion
	}
	version, err := cfg.Versions.ResolveVersion(ctx, token)
	if err != nil {
		return nil, err
	}

	opts := pipeline.Options{}
	if cfg.Template != nil {
		opts = cfg.Template(side)
		opts.Steps = slices.Clone(opts.Steps)
		opts.Extras = maps.Clone(opts.Extras)
	}
	opts.Version = version
	opts.Side = side
	spec, err := pipeline.NewSpecification(opts)
	if err != nil {
		return nil, err
	}

	inst, err := cfg.Instances.GetOrCreate(ctx, req.Scope, spec)
	if err != nil {
		return nil, err
	}

	processed := inst.Compiled()
	if req.Dependency.HasOnlySources() {
		processed = inst.Sources()
		if processed == nil {
			return nil, fmt.Errorf("%s declares no sources step", inst)
		}
	}

	declared := req.Dependency
	res := &Result{
		Instance:   inst,
		Raw:        inst.Raw(),
		Processed:  processed,
		Dependency: declared.WithVersion(version),
		OnWired: func() {
			inst.SetReplacedDependency(declared)
		},
	}
	if assets := inst.Assets(); assets != nil {
		res.Extra = append(res.Extra, assets)
	}
	return res, nil
}

// Declared is a convenience for callers holding a dependency notation.
func Declared(notation, scope, configuration string) (Request, error) {
	d, err := dependency.Parse(notation)
	if err != nil {
		return Request{}, err
	}
	return Request{Dependency: d, Scope: scope, Configuration: configuration}, nil
}

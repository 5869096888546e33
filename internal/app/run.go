package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/gamepipe/internal/cache"
	"github.com/specialistvlad/gamepipe/internal/ctxlog"
	"github.com/specialistvlad/gamepipe/internal/dependency"
	"github.com/specialistvlad/gamepipe/internal/game"
	"github.com/specialistvlad/gamepipe/internal/pipeline"
	"github.com/specialistvlad/gamepipe/internal/provenance"
	"github.com/specialistvlad/gamepipe/internal/replacement"
)

// ResolveVersion turns a version token ("+" or an explicit version) into a
// concrete version.
func (a *App) ResolveVersion(ctx context.Context, token string) (string, error) {
	if token == "" {
		token = a.defaultVersion()
	}
	return a.store.ResolveVersion(a.Context(ctx), token)
}

// CacheVersion caches every artifact one side of a version needs, plus its
// assets when withAssets is set.
func (a *App) CacheVersion(ctx context.Context, token string, side game.Side, withAssets bool) (cache.GameArtifacts, error) {
	ctx = a.Context(ctx)
	if token == "" {
		token = a.defaultVersion()
	}
	artifacts, err := a.store.CacheGameVersion(ctx, token, side)
	if err != nil {
		return cache.GameArtifacts{}, err
	}
	if withAssets {
		if _, err := a.store.DownloadAssets(ctx, artifacts.Version); err != nil {
			return cache.GameArtifacts{}, err
		}
	}
	a.logger.Info("Cached game version.", "version", artifacts.Version, "side", side.String(), "assets", withAssets)
	return artifacts, nil
}

// Pipeline returns the instance of a configured pipeline for scope,
// materializing it on first use.
func (a *App) Pipeline(ctx context.Context, name, scope string) (*pipeline.Instance, error) {
	ctx = a.Context(ctx)
	def, err := a.model.Pipeline(name)
	if err != nil {
		return nil, err
	}
	token := def.Version
	if token == "" {
		token = a.defaultVersion()
	}
	version, err := a.store.ResolveVersion(ctx, token)
	if err != nil {
		return nil, err
	}
	opts, err := def.Options(version)
	if err != nil {
		return nil, err
	}
	spec, err := pipeline.NewSpecification(opts)
	if err != nil {
		return nil, fmt.Errorf("pipeline '%s': %w", name, err)
	}
	return a.registry.GetOrCreate(ctx, scope, spec)
}

// RunPipeline realizes step of a configured pipeline and returns its output
// path. An empty step realizes the compiled terminal.
func (a *App) RunPipeline(ctx context.Context, name, scope, step string) (string, error) {
	ctx = a.Context(ctx)
	ctx = ctxlog.With(ctx, "pipeline", name, "scope", scope)
	inst, err := a.Pipeline(ctx, name, scope)
	if err != nil {
		return "", err
	}
	if step != "" {
		return inst.Realize(ctx, step)
	}
	u := inst.Compiled()
	if u == nil {
		return "", fmt.Errorf("%s: %w", inst, errNoOutput)
	}
	logger := ctxlog.FromContext(ctx)
	logger.Info("🚀 Realizing pipeline.", "instance", inst.String(), "step", u.Name())
	out, err := u.Realize(ctx)
	if err != nil {
		return "", err
	}
	logger.Info("🏁 Pipeline finished.", "output", out)
	return out, nil
}

// Replace routes a dependency notation through the replacement router. When
// realize is set the processed output and the extra units are realized and
// the result is marked as wired.
func (a *App) Replace(ctx context.Context, notation, scope string, realize bool) (*replacement.Result, bool, error) {
	ctx = a.Context(ctx)
	req, err := replacement.Declared(notation, scope, "implementation")
	if err != nil {
		return nil, false, err
	}
	res, ok, err := a.router.TryReplace(ctx, req)
	if err != nil || !ok {
		return nil, ok, err
	}
	if realize {
		if _, err := res.Processed.Realize(ctx); err != nil {
			return nil, true, err
		}
		for _, u := range res.Extra {
			if _, err := u.Realize(ctx); err != nil {
				return nil, true, err
			}
		}
	}
	res.Wired()
	return res, true, nil
}

// Provenance returns the instance wired for scope whose replaced dependency
// matches one of the declared notations.
func (a *App) Provenance(ctx context.Context, scope string, notations ...string) (*pipeline.Instance, error) {
	declared := make([]dependency.Dependency, 0, len(notations))
	for _, n := range notations {
		d, err := dependency.Parse(n)
		if err != nil {
			return nil, err
		}
		declared = append(declared, d)
	}
	node := &provenance.StaticNode{
		Label:        fmt.Sprintf("%s declarations %v", scope, notations),
		Kind:         provenance.KindDeclarations,
		Declarations: declared,
		Scope:        scope,
	}
	return a.provenance.Resolve(a.Context(ctx), node)
}

func (a *App) defaultVersion() string {
	if a.config.DefaultVersion != "" {
		return a.config.DefaultVersion
	}
	return game.LatestVersion
}

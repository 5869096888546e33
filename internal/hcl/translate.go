package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/gamepipe/internal/config"
)

// translate converts one decoded file into the agnostic model.
func (l *Loader) translate(ctx context.Context, file string, root *fileRoot, evalCtx *hcl.EvalContext) (*config.Model, error) {
	model := config.NewModel()
	if root.Settings != nil {
		model.Settings = translateSettings(root.Settings)
	}
	for _, p := range root.Pipelines {
		if _, dup := model.Pipelines[p.Name]; dup {
			return nil, fmt.Errorf("pipeline '%s' is declared more than once", p.Name)
		}
		translated, err := translatePipeline(ctx, p, evalCtx)
		if err != nil {
			return nil, fmt.Errorf("pipeline '%s': %w", p.Name, err)
		}
		translated.Source = file
		model.Pipelines[p.Name] = translated
	}
	return model, nil
}

func translateSettings(s *settingsBlock) config.Settings {
	str := func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	}
	out := config.Settings{
		CacheDir:          str(s.CacheDir),
		WorkDir:           str(s.WorkDir),
		ManifestURL:       str(s.ManifestURL),
		AssetRepository:   str(s.AssetRepository),
		MavenRepositories: s.MavenRepositories,
		DefaultVersion:    str(s.DefaultVersion),
	}
	if s.Offline != nil {
		out.Offline = *s.Offline
	}
	if s.AssetWorkers != nil {
		out.AssetWorkers = *s.AssetWorkers
	}
	return out
}

func translatePipeline(ctx context.Context, p *pipelineBlock, evalCtx *hcl.EvalContext) (*config.Pipeline, error) {
	extras, err := decodeStringMap(ctx, p.Extras, evalCtx)
	if err != nil {
		return nil, fmt.Errorf("extras: %w", err)
	}
	out := &config.Pipeline{
		Name:         p.Name,
		Version:      p.Version,
		Side:         p.Side,
		Distribution: p.Distribution,
		RawStep:      p.Raw,
		SourcesStep:  p.Sources,
		CompiledStep: p.Compiled,
		Extras:       extras,
	}
	for _, s := range p.Steps {
		values, err := decodeStringMap(ctx, s.Values, evalCtx)
		if err != nil {
			return nil, fmt.Errorf("step '%s' values: %w", s.Name, err)
		}
		out.Steps = append(out.Steps, &config.Step{
			Name:     s.Name,
			Type:     s.Type,
			Input:    s.Input,
			After:    s.After,
			Optional: s.Optional,
			Values:   values,
		})
	}
	return out, nil
}

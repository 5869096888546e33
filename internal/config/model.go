package config

import (
	"fmt"
	"maps"
	"slices"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/specialistvlad/gamepipe/internal/game"
	"github.com/specialistvlad/gamepipe/internal/pipeline"
)

// Model is the unified representation of every loaded configuration file.
type Model struct {
	Settings  Settings
	Pipelines map[string]*Pipeline
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{Pipelines: make(map[string]*Pipeline)}
}

// Settings are the global options. Zero values mean "not set".
type Settings struct {
	CacheDir          string
	WorkDir           string
	Offline           bool
	ManifestURL       string
	AssetRepository   string
	MavenRepositories []string
	AssetWorkers      int
	DefaultVersion    string
}

// Pipeline is a named pipeline definition. Version may be "+".
type Pipeline struct {
	Name         string
	Version      string
	Side         string
	Distribution string
	RawStep      string
	SourcesStep  string
	CompiledStep string
	Extras       map[string]string
	Steps        []*Step
	// Source is the file the pipeline was declared in.
	Source string
}

// Step is one step of a pipeline definition.
type Step struct {
	Name     string
	Type     string
	Input    string
	After    string
	Optional bool
	Values   map[string]string
}

// Merge folds other into m. Settings set in other win; a pipeline declared
// in both is an error.
func (m *Model) Merge(other *Model) error {
	if other == nil {
		return nil
	}
	m.Settings.merge(other.Settings)

	var errs *multierror.Error
	for _, name := range other.PipelineNames() {
		p := other.Pipelines[name]
		if existing, ok := m.Pipelines[name]; ok {
			errs = multierror.Append(errs, fmt.Errorf("pipeline '%s' declared in both %s and %s", name, existing.Source, p.Source))
			continue
		}
		m.Pipelines[name] = p
	}
	return errs.ErrorOrNil()
}

func (s *Settings) merge(o Settings) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&s.CacheDir, o.CacheDir)
	set(&s.WorkDir, o.WorkDir)
	set(&s.ManifestURL, o.ManifestURL)
	set(&s.AssetRepository, o.AssetRepository)
	set(&s.DefaultVersion, o.DefaultVersion)
	if len(o.MavenRepositories) > 0 {
		s.MavenRepositories = slices.Clone(o.MavenRepositories)
	}
	if o.AssetWorkers > 0 {
		s.AssetWorkers = o.AssetWorkers
	}
	s.Offline = s.Offline || o.Offline
}

// PipelineNames returns the declared pipeline names, sorted.
func (m *Model) PipelineNames() []string {
	names := make([]string, 0, len(m.Pipelines))
	for name := range m.Pipelines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Pipeline looks up a pipeline by name.
func (m *Model) Pipeline(name string) (*Pipeline, error) {
	p, ok := m.Pipelines[name]
	if !ok {
		return nil, fmt.Errorf("pipeline '%s' is not defined", name)
	}
	return p, nil
}

// Validate reports every structural problem of the model at once.
func (m *Model) Validate() error {
	var errs *multierror.Error
	if m.Settings.AssetWorkers < 0 {
		errs = multierror.Append(errs, fmt.Errorf("settings: asset_workers must not be negative"))
	}
	for _, name := range m.PipelineNames() {
		p := m.Pipelines[name]
		if _, err := game.ParseSide(p.Side); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("pipeline '%s': %w", name, err))
		}
		for i, s := range p.Steps {
			if s.Name == "" {
				errs = multierror.Append(errs, fmt.Errorf("pipeline '%s': step #%d has no name", name, i))
			}
			if s.Type == "" {
				errs = multierror.Append(errs, fmt.Errorf("pipeline '%s': step '%s' has no type", name, s.Name))
			}
		}
	}
	return errs.ErrorOrNil()
}

// Options converts the definition into specification options for a
// resolved version.
func (p *Pipeline) Options(version string) (pipeline.Options, error) {
	side, err := game.ParseSide(p.Side)
	if err != nil {
		return pipeline.Options{}, fmt.Errorf("pipeline '%s': %w", p.Name, err)
	}
	opts := pipeline.Options{
		Version:      version,
		Side:         side,
		Distribution: p.Distribution,
		Extras:       maps.Clone(p.Extras),
		RawStep:      p.RawStep,
		SourcesStep:  p.SourcesStep,
		CompiledStep: p.CompiledStep,
	}
	for _, s := range p.Steps {
		opts.Steps = append(opts.Steps, pipeline.StepDefinition{
			Name:     s.Name,
			Type:     s.Type,
			Input:    s.Input,
			After:    s.After,
			Optional: s.Optional,
			Values:   maps.Clone(s.Values),
		})
	}
	return opts, nil
}

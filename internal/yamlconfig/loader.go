// Package yamlconfig provides the YAML implementation of config.Loader.
package yamlconfig

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/specialistvlad/gamepipe/internal/config"
	"github.com/specialistvlad/gamepipe/internal/ctxlog"
	"gopkg.in/yaml.v3"
)

type fileRoot struct {
	Settings  *settingsDoc            `yaml:"settings"`
	Pipelines map[string]*pipelineDoc `yaml:"pipelines"`
}

type settingsDoc struct {
	CacheDir          string   `yaml:"cache_dir"`
	WorkDir           string   `yaml:"work_dir"`
	Offline           bool     `yaml:"offline"`
	ManifestURL       string   `yaml:"manifest_url"`
	AssetRepository   string   `yaml:"asset_repository"`
	MavenRepositories []string `yaml:"maven_repositories"`
	AssetWorkers      int      `yaml:"asset_workers"`
	DefaultVersion    string   `yaml:"default_version"`
}

type pipelineDoc struct {
	Version      string            `yaml:"version"`
	Side         string            `yaml:"side"`
	Distribution string            `yaml:"distribution"`
	Raw          string            `yaml:"raw"`
	Sources      string            `yaml:"sources"`
	Compiled     string            `yaml:"compiled"`
	Extras       map[string]string `yaml:"extras"`
	Steps        []*stepDoc        `yaml:"steps"`
}

type stepDoc struct {
	Name     string            `yaml:"name"`
	Type     string            `yaml:"type"`
	Input    string            `yaml:"input"`
	After    string            `yaml:"after"`
	Optional bool              `yaml:"optional"`
	Values   map[string]string `yaml:"values"`
}

// Loader reads .yaml and .yml files.
type Loader struct{}

// NewLoader creates a new YAML configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load implements config.Loader.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	files, err := config.FindFiles(paths, ".yaml", ".yml")
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered YAML files.", "count", len(files))

	model := config.NewModel()
	for _, file := range files {
		part, err := loadFile(file)
		if err != nil {
			return nil, err
		}
		if err := model.Merge(part); err != nil {
			return nil, err
		}
	}
	logger.Debug("YAML loading complete.", "files", len(files), "pipelines", len(model.Pipelines))
	return model, nil
}

func loadFile(file string) (*config.Model, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var root fileRoot
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&root); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode YAML file %s: %w", file, err)
	}

	model := config.NewModel()
	if s := root.Settings; s != nil {
		model.Settings = config.Settings{
			CacheDir:          s.CacheDir,
			WorkDir:           s.WorkDir,
			Offline:           s.Offline,
			ManifestURL:       s.ManifestURL,
			AssetRepository:   s.AssetRepository,
			MavenRepositories: s.MavenRepositories,
			AssetWorkers:      s.AssetWorkers,
			DefaultVersion:    s.DefaultVersion,
		}
	}
	for name, p := range root.Pipelines {
		if p == nil {
			return nil, fmt.Errorf("in YAML file %s: pipeline '%s' is empty", file, name)
		}
		out := &config.Pipeline{
			Name:         name,
			Version:      p.Version,
			Side:         p.Side,
			Distribution: p.Distribution,
			RawStep:      p.Raw,
			SourcesStep:  p.Sources,
			CompiledStep: p.Compiled,
			Extras:       p.Extras,
			Source:       file,
		}
		for _, s := range p.Steps {
			if s == nil {
				continue
			}
			out.Steps = append(out.Steps, &config.Step{
				Name:     s.Name,
				Type:     s.Type,
				Input:    s.Input,
				After:    s.After,
				Optional: s.Optional,
				Values:   s.Values,
			})
		}
		model.Pipelines[name] = out
	}
	return model, nil
}

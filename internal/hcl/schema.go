package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes every top-level block a configuration file may hold.
type fileRoot struct {
	Settings  *settingsBlock   `hcl:"settings,block"`
	Pipelines []*pipelineBlock `hcl:"pipeline,block"`
	Remain    hcl.Body         `hcl:",remain"`
}

type settingsBlock struct {
	CacheDir          *string  `hcl:"cache_dir,optional"`
	WorkDir           *string  `hcl:"work_dir,optional"`
	Offline           *bool    `hcl:"offline,optional"`
	ManifestURL       *string  `hcl:"manifest_url,optional"`
	AssetRepository   *string  `hcl:"asset_repository,optional"`
	MavenRepositories []string `hcl:"maven_repositories,optional"`
	AssetWorkers      *int     `hcl:"asset_workers,optional"`
	DefaultVersion    *string  `hcl:"default_version,optional"`
}

type pipelineBlock struct {
	Name         string       `hcl:"name,label"`
	Version      string       `hcl:"version"`
	Side         string       `hcl:"side"`
	Distribution string       `hcl:"distribution,optional"`
	Raw          string       `hcl:"raw,optional"`
	Sources      string       `hcl:"sources,optional"`
	Compiled     string       `hcl:"compiled,optional"`
	Extras       *mapBlock    `hcl:"extras,block"`
	Steps        []*stepBlock `hcl:"step,block"`
}

type stepBlock struct {
	Name     string    `hcl:"name,label"`
	Type     string    `hcl:"type"`
	Input    string    `hcl:"input,optional"`
	After    string    `hcl:"after,optional"`
	Optional bool      `hcl:"optional,optional"`
	Values   *mapBlock `hcl:"values,block"`
}

// mapBlock holds free-form attributes; each is converted to a string.
type mapBlock struct {
	Body hcl.Body `hcl:",remain"`
}

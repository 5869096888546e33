package cache

import (
	"path"
	"strings"

	"github.com/specialistvlad/gamepipe/internal/game"
)

// Kind tags the type of artifact a Selector points at.
type Kind string

const (
	KindLauncherMetadata Kind = "launcher_metadata"
	KindVersionJSON      Kind = "version_json"
	KindVersionJar       Kind = "version_jar"
	KindVersionMappings  Kind = "version_mappings"
	KindAssetIndex       Kind = "asset_index"
	KindAssetObject      Kind = "asset_object"
	KindMavenArtifact    Kind = "maven_artifact"
)

// Selector is the immutable key of a cached file. Two selectors with equal
// fields always refer to the same file.
type Selector struct {
	Kind    Kind   `json:"kind"`
	Version string `json:"version,omitempty"`
	Variant string `json:"variant,omitempty"`
}

// LauncherMetadata selects the launcher version manifest.
func LauncherMetadata() Selector {
	return Selector{Kind: KindLauncherMetadata}
}

// ForVersionJSON selects the per-version metadata document.
func ForVersionJSON(version string) Selector {
	return Selector{Kind: KindVersionJSON, Version: version}
}

// ForVersionJar selects the binary of one side of a version.
func ForVersionJar(version string, side game.Side) Selector {
	return Selector{Kind: KindVersionJar, Version: version, Variant: side.String()}
}

// ForVersionMappings selects the mappings of one side of a version.
func ForVersionMappings(version string, side game.Side) Selector {
	return Selector{Kind: KindVersionMappings, Version: version, Variant: side.String()}
}

// ForAssetIndex selects an asset index document by its id.
func ForAssetIndex(id string) Selector {
	return Selector{Kind: KindAssetIndex, Version: id}
}

// forAssetObject selects a single content-addressed asset object.
func forAssetObject(hash string) Selector {
	return Selector{Kind: KindAssetObject, Version: hash}
}

// FileName is the slash-separated path of the selector relative to the
// cache root.
func (s Selector) FileName() string {
	switch s.Kind {
	case KindLauncherMetadata:
		return "launcher_metadata.json"
	case KindVersionJSON:
		return path.Join(s.Version, "version.json")
	case KindVersionJar:
		return path.Join(s.Version, s.Variant+".jar")
	case KindVersionMappings:
		return path.Join(s.Version, s.Variant+"_mappings.txt")
	case KindAssetIndex:
		return path.Join("assets", "indexes", s.Version+".json")
	case KindAssetObject:
		return path.Join("assets", "objects", s.Version[:2], s.Version)
	case KindMavenArtifact:
		return path.Join("libraries", s.Variant)
	default:
		parts := []string{"misc", string(s.Kind)}
		if s.Version != "" {
			parts = append(parts, s.Version)
		}
		if s.Variant != "" {
			parts = append(parts, s.Variant)
		}
		return path.Join(parts...)
	}
}

// String renders the selector as "kind:version:variant".
func (s Selector) String() string {
	return strings.Join([]string{string(s.Kind), s.Version, s.Variant}, ":")
}

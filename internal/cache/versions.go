package cache

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/specialistvlad/gamepipe/internal/game"
	"github.com/tidwall/gjson"
)

// ManifestVersion is one entry of the launcher manifest.
type ManifestVersion struct {
	ID   string
	Type string
	URL  string
	SHA1 string
}

// DownloadInfo describes one entry of a version's "downloads" object.
type DownloadInfo struct {
	URL  string
	SHA1 string
	Size int64
}

// GameArtifacts lists the files cached for one side of a version.
type GameArtifacts struct {
	Version          string
	LauncherMetadata string
	VersionMetadata  string
	Binary           string
	Mappings         string
}

// LauncherMetadata ensures the launcher manifest is cached and returns its
// path. Online, the manifest is refreshed once per Store so "+" tracks the
// newest release; offline, the cached copy is used as is.
func (s *Store) LauncherMetadata(ctx context.Context) (string, error) {
	sel := LauncherMetadata()
	e, err := s.Cache(ctx, sel, func(ctx context.Context, path string) (string, error) {
		if s.offline {
			return "", s.verifyOffline(sel, path, "launcher metadata")
		}
		return "", s.download(ctx, sel, s.manifestURL, "", path, "launcher metadata", true)
	})
	if err != nil {
		return "", &ManifestUnavailableError{URL: s.manifestURL, Err: err}
	}
	return e.Path, nil
}

// Versions returns the manifest entries in manifest order.
func (s *Store) Versions(ctx context.Context) ([]ManifestVersion, error) {
	path, err := s.LauncherMetadata(ctx)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ManifestUnavailableError{URL: s.manifestURL, Err: err}
	}
	if !gjson.ValidBytes(data) {
		return nil, &ManifestUnavailableError{URL: s.manifestURL, Err: errors.New("document is not valid JSON")}
	}
	list := gjson.GetBytes(data, "versions")
	if !list.IsArray() {
		return nil, &ManifestUnavailableError{URL: s.manifestURL, Err: errors.New(`document has no "versions" array`)}
	}

	var out []ManifestVersion
	list.ForEach(func(_, v gjson.Result) bool {
		out = append(out, ManifestVersion{
			ID:   v.Get("id").String(),
			Type: v.Get("type").String(),
			URL:  v.Get("url").String(),
			SHA1: v.Get("sha1").String(),
		})
		return true
	})
	return out, nil
}

// ResolveVersion maps "+" to the first version listed in the manifest. Any
// other token is returned unchanged without touching the manifest.
func (s *Store) ResolveVersion(ctx context.Context, token string) (string, error) {
	if token != game.LatestVersion {
		return token, nil
	}
	versions, err := s.Versions(ctx)
	if err != nil {
		return "", err
	}
	if len(versions) == 0 || versions[0].ID == "" {
		return "", &ManifestUnavailableError{URL: s.manifestURL, Err: errors.New("manifest lists no versions")}
	}
	return versions[0].ID, nil
}

// RequireVersion resolves token and returns its manifest entry.
func (s *Store) RequireVersion(ctx context.Context, token string) (ManifestVersion, error) {
	versions, err := s.Versions(ctx)
	if err != nil {
		return ManifestVersion{}, err
	}
	id := token
	if token == game.LatestVersion {
		if len(versions) == 0 {
			return ManifestVersion{}, &ManifestUnavailableError{URL: s.manifestURL, Err: errors.New("manifest lists no versions")}
		}
		id = versions[0].ID
	}
	for _, v := range versions {
		if v.ID == id {
			return v, nil
		}
	}
	return ManifestVersion{}, &VersionNotFoundError{Version: id}
}

// VersionMetadata ensures the version document is cached and returns its path.
func (s *Store) VersionMetadata(ctx context.Context, version string) (string, error) {
	version, err := s.ResolveVersion(ctx, version)
	if err != nil {
		return "", err
	}
	sel := ForVersionJSON(version)
	purpose := "version metadata for " + version
	e, err := s.Cache(ctx, sel, func(ctx context.Context, path string) (string, error) {
		if s.offline {
			return "", s.verifyOffline(sel, path, purpose)
		}
		mv, err := s.RequireVersion(ctx, version)
		if err != nil {
			return "", err
		}
		return mv.SHA1, s.fetchVerified(ctx, sel, mv.URL, mv.SHA1, path, purpose, true)
	})
	if err != nil {
		return "", err
	}
	return e.Path, nil
}

// Download reads the downloads.<artifact> entry of a version document.
func (s *Store) Download(ctx context.Context, version, artifact string) (DownloadInfo, error) {
	path, err := s.VersionMetadata(ctx, version)
	if err != nil {
		return DownloadInfo{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return DownloadInfo{}, fmt.Errorf("reading version metadata for %s: %w", version, err)
	}
	if !gjson.ValidBytes(data) {
		return DownloadInfo{}, fmt.Errorf("version metadata for %s at %s is not valid JSON", version, path)
	}

	node := gjson.GetBytes(data, "downloads."+artifact)
	if !node.Exists() {
		return DownloadInfo{}, &MetadataKeyError{Version: version, Artifact: artifact, Key: "downloads." + artifact}
	}
	url := node.Get("url").String()
	if url == "" {
		return DownloadInfo{}, &MetadataKeyError{Version: version, Artifact: artifact, Key: "url"}
	}
	sum := node.Get("sha1").String()
	if sum == "" {
		return DownloadInfo{}, &MetadataKeyError{Version: version, Artifact: artifact, Key: "sha1"}
	}
	return DownloadInfo{URL: url, SHA1: sum, Size: node.Get("size").Int()}, nil
}

// VersionArtifact ensures the binary of one side is cached and returns its path.
func (s *Store) VersionArtifact(ctx context.Context, version string, side game.Side) (string, error) {
	return s.versionDownload(ctx, version, side.Artifact(), "game "+side.String(), func(v string) Selector {
		return ForVersionJar(v, side)
	})
}

// VersionMappings ensures the mappings of one side are cached and returns
// their path.
func (s *Store) VersionMappings(ctx context.Context, version string, side game.Side) (string, error) {
	return s.versionDownload(ctx, version, side.MappingsArtifact(), side.String()+" mappings", func(v string) Selector {
		return ForVersionMappings(v, side)
	})
}

func (s *Store) versionDownload(ctx context.Context, version, artifact, what string, selector func(string) Selector) (string, error) {
	version, err := s.ResolveVersion(ctx, version)
	if err != nil {
		return "", err
	}
	sel := selector(version)
	purpose := fmt.Sprintf("%s for %s", what, version)
	e, err := s.Cache(ctx, sel, func(ctx context.Context, path string) (string, error) {
		info, err := s.Download(ctx, version, artifact)
		if err != nil {
			return "", err
		}
		return info.SHA1, s.fetchVerified(ctx, sel, info.URL, info.SHA1, path, purpose, true)
	})
	if err != nil {
		return "", err
	}
	return e.Path, nil
}

// CacheGameVersion caches the manifest, the version document, the binary and
// the mappings of one side of a version.
func (s *Store) CacheGameVersion(ctx context.Context, version string, side game.Side) (GameArtifacts, error) {
	resolved, err := s.ResolveVersion(ctx, version)
	if err != nil {
		return GameArtifacts{}, err
	}
	out := GameArtifacts{Version: resolved}
	if out.LauncherMetadata, err = s.LauncherMetadata(ctx); err != nil {
		// An explicit version can be served offline without the manifest.
		var offline *OfflineUnavailableError
		if !errors.As(err, &offline) {
			return GameArtifacts{}, err
		}
	}
	if out.VersionMetadata, err = s.VersionMetadata(ctx, resolved); err != nil {
		return GameArtifacts{}, err
	}
	if out.Binary, err = s.VersionArtifact(ctx, resolved, side); err != nil {
		return GameArtifacts{}, err
	}
	if out.Mappings, err = s.VersionMappings(ctx, resolved, side); err != nil {
		return GameArtifacts{}, err
	}
	return out, nil
}

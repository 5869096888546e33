package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/specialistvlad/gamepipe/internal/ctxlog"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
)

// AssetIndex caches the asset index referenced by a version document and
// returns its path together with the index id.
func (s *Store) AssetIndex(ctx context.Context, version string) (string, string, error) {
	version, err := s.ResolveVersion(ctx, version)
	if err != nil {
		return "", "", err
	}
	metaPath, err := s.VersionMetadata(ctx, version)
	if err != nil {
		return "", "", err
	}
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return "", "", fmt.Errorf("reading version metadata for %s: %w", version, err)
	}

	node := gjson.GetBytes(data, "assetIndex")
	if !node.Exists() {
		return "", "", &MetadataKeyError{Version: version, Artifact: "assetIndex", Key: "assetIndex"}
	}
	id, url, sum := node.Get("id").String(), node.Get("url").String(), node.Get("sha1").String()
	for key, val := range map[string]string{"id": id, "url": url, "sha1": sum} {
		if val == "" {
			return "", "", &MetadataKeyError{Version: version, Artifact: "assetIndex", Key: key}
		}
	}

	sel := ForAssetIndex(id)
	e, err := s.Cache(ctx, sel, func(ctx context.Context, path string) (string, error) {
		return sum, s.fetchVerified(ctx, sel, url, sum, path, "asset index "+id, true)
	})
	if err != nil {
		return "", "", err
	}
	return e.Path, id, nil
}

// DownloadAssets caches the asset index of a version and every object it
// lists, with at most AssetWorkers downloads in flight. Every object is
// attempted; the first failure is returned. The result is the assets root.
func (s *Store) DownloadAssets(ctx context.Context, version string) (string, error) {
	indexPath, id, err := s.AssetIndex(ctx, version)
	if err != nil {
		return "", err
	}
	hashes, err := assetHashes(indexPath)
	if err != nil {
		return "", fmt.Errorf("asset index %s: %w", id, err)
	}

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Downloading assets.", "index", id, "objects", len(hashes), "workers", s.assetWorkers)

	var g errgroup.Group
	g.SetLimit(s.assetWorkers)
	for _, hash := range hashes {
		g.Go(func() error {
			sel := forAssetObject(hash)
			url := s.assetRepository + hash[:2] + "/" + hash
			return s.fetchVerified(ctx, sel, url, hash, s.Path(sel), "asset object "+hash, false)
		})
	}
	if err := g.Wait(); err != nil {
		return "", fmt.Errorf("downloading assets for index %s: %w", id, err)
	}
	return filepath.Join(s.root, "assets"), nil
}

// isSHA1Hex reports whether h is a 40 character lowercase hex digest. Object
// hashes become path components, so nothing else is accepted.
func isSHA1Hex(h string) bool {
	if len(h) != 40 {
		return false
	}
	for _, c := range h {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// assetHashes returns the distinct object hashes of an asset index, sorted.
func assetHashes(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%s is not valid JSON", path)
	}
	seen := make(map[string]struct{})
	var bad string
	gjson.GetBytes(data, "objects").ForEach(func(key, v gjson.Result) bool {
		h := v.Get("hash").String()
		if !isSHA1Hex(h) {
			bad = key.String()
			return false
		}
		seen[h] = struct{}{}
		return true
	})
	if bad != "" {
		return nil, fmt.Errorf("object %q has no valid hash", bad)
	}
	out := make([]string, 0, len(seen))
	for h := range seen {
		out = append(out, h)
	}
	sort.Strings(out)
	return out, nil
}

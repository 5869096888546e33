package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/specialistvlad/gamepipe/internal/ctxlog"
	"github.com/specialistvlad/gamepipe/internal/metrics"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultManifestURL     = "https://piston-meta.mojang.com/mc/game/version_manifest_v2.json"
	DefaultAssetRepository = "https://resources.download.minecraft.net/"
	DefaultAssetWorkers    = 8
	DefaultMaxRetries      = 3
	DefaultRetryInterval   = 500 * time.Millisecond
)

// Options configures a Store. Only Root is required.
type Options struct {
	Root            string
	ManifestURL     string
	AssetRepository string
	// MavenRepositories are searched in order by MavenArtifact.
	MavenRepositories []string
	Offline           bool
	Fetcher           Fetcher
	Index             *Index
	Metrics           *metrics.Collectors
	AssetWorkers      int
	MaxRetries        uint64
	RetryInterval     time.Duration
}

// Entry is the recorded result of a successful Cache call.
type Entry struct {
	Selector Selector
	Path     string
	// SHA1 is the upstream hash the file was verified against, if any.
	SHA1   string
	Digest digest.Digest
}

// Producer materializes the file for a selector at path and returns the
// upstream SHA-1 it verified, or "" when none is published.
type Producer func(ctx context.Context, path string) (string, error)

// Store is the artifact cache. It is safe for concurrent use.
type Store struct {
	root              string
	manifestURL       string
	assetRepository   string
	mavenRepositories []string
	offline           bool
	fetcher           Fetcher
	index             *Index
	metrics           *metrics.Collectors
	assetWorkers      int
	maxRetries        uint64
	retryInterval     time.Duration

	mu      sync.Mutex
	entries map[Selector]Entry
	flight  singleflight.Group
}

// New creates a Store rooted at opts.Root, creating the directory if needed.
func New(opts Options) (*Store, error) {
	if opts.Root == "" {
		return nil, errors.New("cache root directory is required")
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving cache root %q: %w", opts.Root, err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache root %q: %w", root, err)
	}

	s := &Store{
		root:            root,
		manifestURL:     opts.ManifestURL,
		assetRepository: opts.AssetRepository,
		offline:         opts.Offline,
		fetcher:         opts.Fetcher,
		index:           opts.Index,
		metrics:         opts.Metrics,
		assetWorkers:    opts.AssetWorkers,
		maxRetries:      opts.MaxRetries,
		retryInterval:   opts.RetryInterval,
		entries:         make(map[Selector]Entry),
	}
	if s.manifestURL == "" {
		s.manifestURL = DefaultManifestURL
	}
	if s.assetRepository == "" {
		s.assetRepository = DefaultAssetRepository
	}
	if !strings.HasSuffix(s.assetRepository, "/") {
		s.assetRepository += "/"
	}
	for _, repo := range opts.MavenRepositories {
		if !strings.HasSuffix(repo, "/") {
			repo += "/"
		}
		s.mavenRepositories = append(s.mavenRepositories, repo)
	}
	if len(s.mavenRepositories) == 0 {
		s.mavenRepositories = []string{DefaultMavenRepository}
	}
	if s.fetcher == nil {
		s.fetcher = NewHTTPFetcher()
	}
	if s.assetWorkers <= 0 {
		s.assetWorkers = DefaultAssetWorkers
	}
	if s.maxRetries == 0 {
		s.maxRetries = DefaultMaxRetries
	}
	if s.retryInterval <= 0 {
		s.retryInterval = DefaultRetryInterval
	}
	return s, nil
}

// Root returns the absolute cache root.
func (s *Store) Root() string { return s.root }

// Offline reports whether network access is disabled.
func (s *Store) Offline() bool { return s.offline }

// Path returns the deterministic location of sel below the cache root. The
// file does not need to exist.
func (s *Store) Path(sel Selector) string {
	return filepath.Join(s.root, filepath.FromSlash(sel.FileName()))
}

// Lookup returns the entry recorded for sel, if any.
func (s *Store) Lookup(sel Selector) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[sel]
	return e, ok
}

// Entries returns a snapshot of every recorded entry.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out
}

// Cache returns the entry for sel, running produce at most once per selector
// while it succeeds. Concurrent callers share the in-flight producer. A failed
// producer is not recorded, so a later call retries it.
//
// The producer runs detached from the caller's cancellation so one cancelled
// caller does not fail the others sharing the flight; a cancelled caller
// stops waiting and gets its own context error.
func (s *Store) Cache(ctx context.Context, sel Selector, produce Producer) (Entry, error) {
	if e, ok := s.Lookup(sel); ok {
		s.metrics.CacheLookup(string(sel.Kind), true)
		return e, nil
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(sel.String(), func() (any, error) {
		// A previous flight may have finished between Lookup and Do.
		if e, ok := s.Lookup(sel); ok {
			return e, nil
		}
		s.metrics.CacheLookup(string(sel.Kind), false)

		path := s.Path(sel)
		sum, err := produce(flightCtx, path)
		if err != nil {
			return nil, err
		}
		d, err := fileDigest(path)
		if err != nil {
			return nil, fmt.Errorf("cache entry %s produced no readable file at %s: %w", sel, path, err)
		}

		e := Entry{Selector: sel, Path: path, SHA1: sum, Digest: d}
		s.mu.Lock()
		s.entries[sel] = e
		s.mu.Unlock()

		if s.index != nil {
			if err := s.index.Put(e); err != nil {
				ctxlog.FromContext(flightCtx).Warn("Failed to record cache entry in index.", "selector", sel.String(), "error", err)
			}
		}
		return e, nil
	})
	select {
	case <-ctx.Done():
		return Entry{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Entry{}, res.Err
		}
		return res.Val.(Entry), nil
	}
}

// fetchVerified makes path hold the bytes published at url. A local file that
// already matches sha1Hex is reused without any network access.
func (s *Store) fetchVerified(ctx context.Context, sel Selector, url, sha1Hex, path, purpose string, lock bool) error {
	if sha1Hex != "" {
		if ok, err := fileMatchesSHA1(path, sha1Hex); err == nil && ok {
			s.metrics.HashShortCircuit(string(sel.Kind))
			ctxlog.FromContext(ctx).Debug("Local file matches expected hash, skipping download.", "selector", sel.String(), "path", path)
			return nil
		}
	}
	if s.offline {
		if sha1Hex == "" {
			return s.verifyOffline(sel, path, purpose)
		}
		return &OfflineUnavailableError{Selector: sel, Purpose: purpose, Path: path}
	}
	return s.download(ctx, sel, url, sha1Hex, path, purpose, lock)
}

// verifyOffline accepts an existing local file that has no upstream hash. When
// the index recorded a digest for it, the file must still match.
func (s *Store) verifyOffline(sel Selector, path, purpose string) error {
	if !exists(path) {
		return &OfflineUnavailableError{Selector: sel, Purpose: purpose, Path: path}
	}
	if s.index == nil {
		return nil
	}
	rec, ok, err := s.index.Get(sel)
	if err != nil {
		return fmt.Errorf("%s: reading cache index for %s: %w", purpose, sel, err)
	}
	if !ok || rec.Digest == "" {
		return nil
	}
	actual, err := fileDigest(path)
	if err != nil {
		return fmt.Errorf("%s: reading %s: %w", purpose, path, err)
	}
	if actual != rec.Digest {
		return &HashMismatchError{Selector: sel, Path: path, Expected: rec.Digest.String(), Actual: actual.String()}
	}
	return nil
}

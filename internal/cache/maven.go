package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"github.com/specialistvlad/gamepipe/internal/ctxlog"
	"github.com/specialistvlad/gamepipe/internal/dependency"
)

// DefaultMavenRepository is used when no repositories are configured.
const DefaultMavenRepository = "https://repo1.maven.org/maven2/"

// ArtifactNotFoundError reports a coordinate that none of the configured
// repositories publish.
type ArtifactNotFoundError struct {
	Dependency   string
	Repositories []string
}

func (e *ArtifactNotFoundError) Error() string {
	return fmt.Sprintf("artifact %s was not found in any repository (%s)", e.Dependency, strings.Join(e.Repositories, ", "))
}

// ForMavenArtifact selects a repository file by coordinate. relPath is the
// Maven layout path returned by dependency.Dependency.RepositoryPath.
func ForMavenArtifact(notation, relPath string) Selector {
	return Selector{Kind: KindMavenArtifact, Version: notation, Variant: relPath}
}

// MavenArtifact downloads the file of an explicit coordinate from the first
// repository publishing it, verified against the repository's .sha1 file,
// and returns its local path.
func (s *Store) MavenArtifact(ctx context.Context, d dependency.Dependency) (string, error) {
	relPath, err := d.RepositoryPath()
	if err != nil {
		return "", err
	}
	sel := ForMavenArtifact(d.String(), relPath)
	purpose := "artifact " + d.String()

	e, err := s.Cache(ctx, sel, func(ctx context.Context, path string) (string, error) {
		if s.offline {
			return "", s.verifyOffline(sel, path, purpose)
		}
		logger := ctxlog.FromContext(ctx)
		for _, repo := range s.mavenRepositories {
			url := repo + relPath
			sum, err := s.publishedSHA1(ctx, url+".sha1")
			if isNotFound(err) {
				logger.Debug("Artifact not published in repository.", "artifact", d.String(), "repository", repo)
				continue
			}
			if err != nil {
				return "", fmt.Errorf("%s: reading checksum from %s: %w", purpose, repo, err)
			}
			if err := s.fetchVerified(ctx, sel, url, sum, path, purpose, true); err != nil {
				return "", err
			}
			return sum, nil
		}
		return "", &ArtifactNotFoundError{Dependency: d.String(), Repositories: s.mavenRepositories}
	})
	if err != nil {
		return "", err
	}
	return e.Path, nil
}

// publishedSHA1 reads a Maven checksum file. Some repositories append the
// file name after the hash.
func (s *Store) publishedSHA1(ctx context.Context, url string) (string, error) {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(backoff.WithInitialInterval(s.retryInterval)), s.maxRetries),
		ctx,
	)
	return backoff.RetryWithData(func() (string, error) {
		body, err := s.fetcher.Open(ctx, url)
		if err != nil {
			return "", err
		}
		defer body.Close()
		data, err := io.ReadAll(io.LimitReader(body, 1024))
		if err != nil {
			return "", err
		}
		fields := strings.Fields(string(data))
		if len(fields) == 0 || !isSHA1Hex(strings.ToLower(fields[0])) {
			return "", backoff.Permanent(fmt.Errorf("%s does not hold a SHA-1 checksum", url))
		}
		return strings.ToLower(fields[0]), nil
	}, policy)
}

func isNotFound(err error) bool {
	var status *StatusError
	return errors.As(err, &status) && status.Code == http.StatusNotFound
}

package cache

import (
	"context"
	"crypto/sha1"
	_ "crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gofrs/flock"
	"github.com/opencontainers/go-digest"
	"github.com/specialistvlad/gamepipe/internal/ctxlog"
)

// download fetches url into path with retries. The file only appears at path
// after it has been fully written and, when sha1Hex is set, verified. With
// lock set, a file lock serializes writers across processes sharing the
// cache root.
func (s *Store) download(ctx context.Context, sel Selector, url, sha1Hex, path, purpose string, lock bool) error {
	logger := ctxlog.FromContext(ctx).With("selector", sel.String(), "url", url)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%s: creating directory for %s: %w", purpose, path, err)
	}

	if lock {
		fl := flock.New(path + ".lock")
		if err := fl.Lock(); err != nil {
			return fmt.Errorf("%s: locking %s: %w", purpose, path, err)
		}
		defer fl.Unlock()

		// Another process may have finished the same download while we waited.
		if sha1Hex != "" {
			if ok, _ := fileMatchesSHA1(path, sha1Hex); ok {
				s.metrics.HashShortCircuit(string(sel.Kind))
				return nil
			}
		}
	}

	var written int64
	op := func() error {
		n, err := s.fetchOnce(ctx, sel, url, sha1Hex, path)
		written = n
		return err
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(backoff.WithInitialInterval(s.retryInterval)), s.maxRetries),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		logger.Warn("Download failed, retrying.", "error", err, "backoff", wait)
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		var mismatch *HashMismatchError
		if errors.As(err, &mismatch) {
			return mismatch
		}
		return fmt.Errorf("%s: downloading %s: %w", purpose, url, err)
	}

	s.metrics.Download(string(sel.Kind), written)
	logger.Debug("Downloaded artifact.", "bytes", written, "path", path)
	return nil
}

// fetchOnce performs a single download attempt into a temporary file next to
// path and renames it into place on success.
func (s *Store) fetchOnce(ctx context.Context, sel Selector, url, want, path string) (int64, error) {
	body, err := s.fetcher.Open(ctx, url)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.part")
	if err != nil {
		return 0, backoff.Permanent(err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	h := sha1.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, err
	}

	actual := hex.EncodeToString(h.Sum(nil))
	if want != "" && !strings.EqualFold(actual, want) {
		return n, backoff.Permanent(&HashMismatchError{Selector: sel, URL: url, Path: path, Expected: want, Actual: actual})
	}
	if err := os.Rename(tmpName, path); err != nil {
		return n, backoff.Permanent(err)
	}
	return n, nil
}

func fileSHA1(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func fileMatchesSHA1(path, want string) (bool, error) {
	got, err := fileSHA1(path)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(got, want), nil
}

func fileDigest(path string) (digest.Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return digest.Canonical.FromReader(f)
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

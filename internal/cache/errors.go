package cache

import "fmt"

// ManifestUnavailableError reports that the launcher manifest could not be
// fetched or parsed.
type ManifestUnavailableError struct {
	URL string
	Err error
}

func (e *ManifestUnavailableError) Error() string {
	return fmt.Sprintf("launcher manifest %s is unavailable: %v", e.URL, e.Err)
}

func (e *ManifestUnavailableError) Unwrap() error {
	return e.Err
}

// VersionNotFoundError reports an explicit version missing from the manifest.
type VersionNotFoundError struct {
	Version string
}

func (e *VersionNotFoundError) Error() string {
	return fmt.Sprintf("version %q is not listed in the launcher manifest", e.Version)
}

// HashMismatchError is a fatal integrity failure: the bytes on disk do not
// match the hash published upstream (or recorded in the cache index).
type HashMismatchError struct {
	Selector Selector
	URL      string
	Path     string
	Expected string
	Actual   string
}

func (e *HashMismatchError) Error() string {
	src := e.URL
	if src == "" {
		src = e.Path
	}
	return fmt.Sprintf("integrity check failed for %s from %s: expected %s, got %s", e.Selector, src, e.Expected, e.Actual)
}

// OfflineUnavailableError reports a lookup that needs the network while the
// store is offline.
type OfflineUnavailableError struct {
	Selector Selector
	Purpose  string
	Path     string
}

func (e *OfflineUnavailableError) Error() string {
	return fmt.Sprintf("offline mode: %s (%s) is not available in the local cache at %s", e.Purpose, e.Selector, e.Path)
}

// MetadataKeyError reports a key missing from a version metadata document.
type MetadataKeyError struct {
	Version  string
	Artifact string
	Key      string
}

func (e *MetadataKeyError) Error() string {
	return fmt.Sprintf("version metadata for %s is missing %q for artifact %q", e.Version, e.Key, e.Artifact)
}

// StatusError reports a non-200 HTTP response.
type StatusError struct {
	URL    string
	Status string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %s", e.URL, e.Status)
}

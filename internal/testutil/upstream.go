package testutil

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// ManifestPath is the request path of the fake launcher manifest.
const ManifestPath = "/mc/game/version_manifest_v2.json"

// Version describes one game version served by an Upstream.
type Version struct {
	ID             string
	Client         []byte
	Server         []byte
	ClientMappings []byte
	ServerMappings []byte
	// Assets maps asset names to their contents.
	Assets map[string][]byte
}

// SampleVersion returns a version with small deterministic contents.
func SampleVersion(id string) Version {
	return Version{
		ID:             id,
		Client:         []byte("client jar " + id),
		Server:         []byte("server jar " + id),
		ClientMappings: []byte("client mappings " + id),
		ServerMappings: []byte("server mappings " + id),
		Assets: map[string][]byte{
			"minecraft/lang/en_us.json": []byte(`{"lang":"` + id + `"}`),
			"minecraft/sounds.json":     []byte(`{"sounds":"` + id + `"}`),
		},
	}
}

// Upstream is an httptest server that mimics the launcher metadata service,
// the artifact host and the asset repository. It counts requests per path.
type Upstream struct {
	Server *httptest.Server

	mu       sync.Mutex
	files    map[string][]byte
	hits     map[string]int
	failures map[string]int
}

// NewUpstream starts an Upstream serving versions. The first version is the
// newest one in the manifest.
func NewUpstream(t testing.TB, versions ...Version) *Upstream {
	t.Helper()
	u := &Upstream{
		files:    make(map[string][]byte),
		hits:     make(map[string]int),
		failures: make(map[string]int),
	}
	u.Server = httptest.NewServer(http.HandlerFunc(u.serve))
	t.Cleanup(u.Server.Close)

	type manifestEntry struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		URL  string `json:"url"`
		SHA1 string `json:"sha1"`
	}
	var manifest struct {
		Latest   map[string]string `json:"latest"`
		Versions []manifestEntry   `json:"versions"`
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	for i, v := range versions {
		doc := u.versionDocument(v)
		path := VersionPath(v.ID)
		u.files[path] = doc
		manifest.Versions = append(manifest.Versions, manifestEntry{
			ID: v.ID, Type: "release", URL: u.URL(path), SHA1: SHA1(doc),
		})
		if i == 0 {
			manifest.Latest = map[string]string{"release": v.ID}
		}
	}
	u.files[ManifestPath] = mustJSON(manifest)
	return u
}

func (u *Upstream) versionDocument(v Version) []byte {
	type download struct {
		URL  string `json:"url"`
		SHA1 string `json:"sha1"`
		Size int    `json:"size"`
	}
	downloads := map[string]download{}
	for name, body := range map[string][]byte{
		"client":          v.Client,
		"server":          v.Server,
		"client_mappings": v.ClientMappings,
		"server_mappings": v.ServerMappings,
	} {
		if body == nil {
			continue
		}
		path := ArtifactPath(v.ID, name)
		u.files[path] = body
		downloads[name] = download{URL: u.URL(path), SHA1: SHA1(body), Size: len(body)}
	}

	type object struct {
		Hash string `json:"hash"`
		Size int    `json:"size"`
	}
	objects := map[string]object{}
	for name, body := range v.Assets {
		hash := SHA1(body)
		u.files[ObjectPath(hash)] = body
		objects[name] = object{Hash: hash, Size: len(body)}
	}
	index := mustJSON(map[string]any{"objects": objects})
	indexPath := "/indexes/" + v.ID + ".json"
	u.files[indexPath] = index

	return mustJSON(map[string]any{
		"id":        v.ID,
		"downloads": downloads,
		"assetIndex": map[string]any{
			"id":   v.ID,
			"url":  u.URL(indexPath),
			"sha1": SHA1(index),
		},
	})
}

func (u *Upstream) serve(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	u.hits[r.URL.Path]++
	body, ok := u.files[r.URL.Path]
	fail := u.failures[r.URL.Path] > 0
	if fail {
		u.failures[r.URL.Path]--
	}
	u.mu.Unlock()

	switch {
	case fail:
		http.Error(w, "injected failure", http.StatusInternalServerError)
	case !ok:
		http.NotFound(w, r)
	default:
		_, _ = w.Write(body)
	}
}

// URL returns the absolute URL of path on the server.
func (u *Upstream) URL(path string) string { return u.Server.URL + path }

// ManifestURL is the launcher manifest location.
func (u *Upstream) ManifestURL() string { return u.URL(ManifestPath) }

// AssetRepository is the base URL of the asset object store.
func (u *Upstream) AssetRepository() string { return u.URL("/objects/") }

// MavenRepository is the base URL of the fake Maven repository.
func (u *Upstream) MavenRepository() string { return u.URL("/maven/") }

// PublishMaven serves body at relPath in the Maven repository together with
// its .sha1 checksum file.
func (u *Upstream) PublishMaven(relPath string, body []byte) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.files[MavenPath(relPath)] = body
	u.files[MavenPath(relPath)+".sha1"] = []byte(SHA1(body) + "  " + relPath + "\n")
}

// Hits returns how many requests were made for path.
func (u *Upstream) Hits(path string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.hits[path]
}

// TotalHits returns the number of requests served.
func (u *Upstream) TotalHits() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	n := 0
	for _, c := range u.hits {
		n += c
	}
	return n
}

// FailNext makes the next n requests for path answer 500.
func (u *Upstream) FailNext(path string, n int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.failures[path] = n
}

// Replace serves body for path without updating any published hash.
func (u *Upstream) Replace(path string, body []byte) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.files[path] = body
}

// VersionPath is the request path of a version document.
func VersionPath(id string) string { return "/v1/packages/" + id + "/" + id + ".json" }

// ArtifactPath is the request path of a named download of a version.
func ArtifactPath(id, name string) string { return "/v1/objects/" + id + "/" + name }

// ObjectPath is the request path of an asset object.
func ObjectPath(hash string) string { return "/objects/" + hash[:2] + "/" + hash }

// MavenPath is the request path of a Maven repository file.
func MavenPath(relPath string) string { return "/maven/" + relPath }

// SHA1 returns the lowercase hex SHA-1 of b.
func SHA1(b []byte) string {
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:])
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

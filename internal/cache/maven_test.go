package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/specialistvlad/gamepipe/internal/dependency"
	"github.com/specialistvlad/gamepipe/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const toolPath = "net/neoforged/installertools/2.1.2/installertools-2.1.2-fatjar.jar"

func newMavenStore(t *testing.T, root string, offline bool, repos ...string) *Store {
	t.Helper()
	s, err := New(Options{Root: root, MavenRepositories: repos, Offline: offline, RetryInterval: time.Millisecond})
	require.NoError(t, err)
	return s
}

func toolDependency(t *testing.T) dependency.Dependency {
	t.Helper()
	d, err := dependency.Parse("net.neoforged:installertools:2.1.2:fatjar")
	require.NoError(t, err)
	return d
}

func TestStore_MavenArtifact_SearchesRepositoriesInOrder(t *testing.T) {
	t.Parallel()

	// Arrange
	empty := testutil.NewUpstream(t)
	u := testutil.NewUpstream(t)
	u.PublishMaven(toolPath, []byte("installer tools"))
	s := newMavenStore(t, t.TempDir(), false, empty.MavenRepository(), u.MavenRepository())
	ctx := context.Background()

	// Act
	path, err := s.MavenArtifact(ctx, toolDependency(t))
	require.NoError(t, err)
	again, err := s.MavenArtifact(ctx, toolDependency(t))
	require.NoError(t, err)

	// Assert
	assert.Equal(t, path, again)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "installer tools", string(data))
	assert.Contains(t, path, "libraries")
	assert.Equal(t, 1, empty.Hits(testutil.MavenPath(toolPath)+".sha1"))
	assert.Equal(t, 1, u.Hits(testutil.MavenPath(toolPath)))
}

func TestStore_MavenArtifact_ChecksumMismatch(t *testing.T) {
	t.Parallel()

	u := testutil.NewUpstream(t)
	u.PublishMaven(toolPath, []byte("installer tools"))
	u.Replace(testutil.MavenPath(toolPath), []byte("tampered"))
	s := newMavenStore(t, t.TempDir(), false, u.MavenRepository())

	_, err := s.MavenArtifact(context.Background(), toolDependency(t))

	var mismatch *HashMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, testutil.SHA1([]byte("installer tools")), mismatch.Expected)
}

func TestStore_MavenArtifact_NotFound(t *testing.T) {
	t.Parallel()

	u := testutil.NewUpstream(t)
	s := newMavenStore(t, t.TempDir(), false, u.MavenRepository())

	_, err := s.MavenArtifact(context.Background(), toolDependency(t))

	var notFound *ArtifactNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "net.neoforged:installertools:2.1.2:fatjar", notFound.Dependency)
}

func TestStore_MavenArtifact_Offline(t *testing.T) {
	t.Parallel()

	// Arrange
	root := t.TempDir()
	u := testutil.NewUpstream(t)
	u.PublishMaven(toolPath, []byte("installer tools"))
	online := newMavenStore(t, root, false, u.MavenRepository())
	want, err := online.MavenArtifact(context.Background(), toolDependency(t))
	require.NoError(t, err)

	// Act
	got, err := newMavenStore(t, root, true, u.MavenRepository()).MavenArtifact(context.Background(), toolDependency(t))
	_, missingErr := newMavenStore(t, t.TempDir(), true).MavenArtifact(context.Background(), toolDependency(t))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, want, got)
	var offline *OfflineUnavailableError
	assert.ErrorAs(t, missingErr, &offline)
}

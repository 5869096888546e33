package replacement

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/specialistvlad/gamepipe/internal/cache"
	"github.com/specialistvlad/gamepipe/internal/dependency"
	"github.com/specialistvlad/gamepipe/internal/game"
	"github.com/specialistvlad/gamepipe/internal/handlers"
	"github.com/specialistvlad/gamepipe/internal/pipeline"
	"github.com/specialistvlad/gamepipe/internal/provenance"
	"github.com/specialistvlad/gamepipe/internal/registry"
	"github.com/specialistvlad/gamepipe/internal/testutil"
	"github.com/specialistvlad/gamepipe/modules/filecopy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedVersions struct {
	latest string
	tokens []string
}

func (f *fixedVersions) ResolveVersion(_ context.Context, token string) (string, error) {
	f.tokens = append(f.tokens, token)
	if token == game.LatestVersion {
		return f.latest, nil
	}
	return token, nil
}

type recordingInstances struct {
	mu    sync.Mutex
	specs []*pipeline.Specification
}

func (r *recordingInstances) GetOrCreate(ctx context.Context, _ string, spec *pipeline.Specification) (*pipeline.Instance, error) {
	r.mu.Lock()
	r.specs = append(r.specs, spec)
	r.mu.Unlock()
	return pipeline.NewMaterializer(nullCache{}, handlers.New(), os.TempDir(), nil).Materialize(ctx, spec)
}

type nullCache struct{ pipeline.ArtifactCache }

func (nullCache) Root() string { return os.TempDir() }

func (nullCache) Path(sel cache.Selector) string {
	return filepath.Join(os.TempDir(), filepath.FromSlash(sel.FileName()))
}

// stack wires a real store, materializer, registry and router against a
// fake upstream.
type stack struct {
	upstream *testutil.Upstream
	store    *cache.Store
	registry *registry.Registry
	router   *Router
}

func newStack(t *testing.T) *stack {
	t.Helper()
	u := testutil.NewUpstream(t, testutil.SampleVersion("1.20.4"), testutil.SampleVersion("1.20.2"))
	store, err := cache.New(cache.Options{
		Root:            t.TempDir(),
		ManifestURL:     u.ManifestURL(),
		AssetRepository: u.AssetRepository(),
		RetryInterval:   time.Millisecond,
	})
	require.NoError(t, err)

	m := pipeline.NewMaterializer(store, handlers.New(&filecopy.Module{}), t.TempDir(), nil)
	reg := registry.New(m, nil)
	router := NewRouter(nil)
	router.Register(GameHandler(GameConfig{
		Versions:  store,
		Instances: reg,
		Template: func(game.Side) pipeline.Options {
			return pipeline.Options{
				Steps: []pipeline.StepDefinition{
					{Name: "remap", Type: "copy"},
					{Name: "decompile", Type: "copy", Values: map[string]string{"outputExtension": "zip"}},
				},
				SourcesStep:  "decompile",
				CompiledStep: "remap",
			}
		},
	}))
	return &stack{upstream: u, store: store, registry: reg, router: router}
}

func TestGameHandler_ReplacesWithPipelineOutput(t *testing.T) {
	t.Parallel()

	// Arrange
	s := newStack(t)
	ctx := context.Background()
	req, err := Declared("net.minecraft:client:+", "project", "implementation")
	require.NoError(t, err)

	// Act
	res, ok, err := s.router.TryReplace(ctx, req)
	require.NoError(t, err)
	require.True(t, ok)
	out, err := res.Processed.Realize(ctx)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "1.20.4", res.Dependency.Version)
	assert.Equal(t, "remap", res.Processed.Name())
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, testutil.SampleVersion("1.20.4").Client, data)
	require.Len(t, res.Extra, 1)
	assert.Equal(t, pipeline.BuiltinAssets, res.Extra[0].Name())
}

func TestGameHandler_SourcesRequestUsesSourcesTerminal(t *testing.T) {
	t.Parallel()

	s := newStack(t)
	req, err := Declared("net.minecraft:client:1.20.2:sources", "project", "implementation")
	require.NoError(t, err)

	res, ok, err := s.router.TryReplace(context.Background(), req)

	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "decompile", res.Processed.Name())
	assert.Equal(t, ".zip", filepath.Ext(res.Processed.Output()))
}

func TestGameHandler_SameScopeSharesInstance(t *testing.T) {
	t.Parallel()

	s := newStack(t)
	ctx := context.Background()
	plain, err := Declared("net.minecraft:client:1.20.4", "project", "implementation")
	require.NoError(t, err)
	sources, err := Declared("net.minecraft:client:1.20.4:sources", "project", "implementation")
	require.NoError(t, err)
	other, err := Declared("net.minecraft:client:1.20.4", "other", "implementation")
	require.NoError(t, err)

	a, _, err := s.router.TryReplace(ctx, plain)
	require.NoError(t, err)
	b, _, err := s.router.TryReplace(ctx, sources)
	require.NoError(t, err)
	c, _, err := s.router.TryReplace(ctx, other)
	require.NoError(t, err)

	assert.Same(t, a.Instance, b.Instance)
	assert.NotSame(t, a.Instance, c.Instance)
}

func TestGameHandler_UnknownVersionFails(t *testing.T) {
	t.Parallel()

	s := newStack(t)
	req, err := Declared("net.minecraft:client:1.20.3", "project", "implementation")
	require.NoError(t, err)

	res, ok, err := s.router.TryReplace(context.Background(), req)
	require.True(t, ok)
	require.NoError(t, err)

	// Version existence is only checked once the artifact is needed.
	_, err = res.Raw.Realize(context.Background())
	var notFound *cache.VersionNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestGameHandler_WiredInstanceIsFoundByProvenance(t *testing.T) {
	t.Parallel()

	// Arrange
	s := newStack(t)
	ctx := context.Background()
	req, err := Declared("net.minecraft:client:1.20.4", "project", "implementation")
	require.NoError(t, err)
	res, _, err := s.router.TryReplace(ctx, req)
	require.NoError(t, err)

	decls := &provenance.StaticNode{
		Label:        "implementation",
		Kind:         provenance.KindDeclarations,
		Declarations: []dependency.Dependency{req.Dependency},
		Scope:        req.Scope,
	}
	resolver := provenance.New(provenance.StaticGraph{}, s.registry)

	// Act
	_, before := resolver.Resolve(ctx, decls)
	res.Wired()
	got, after := resolver.Resolve(ctx, decls)

	// Assert
	var notFound *provenance.ProvenanceNotFoundError
	assert.ErrorAs(t, before, &notFound)
	require.NoError(t, after)
	assert.Same(t, res.Instance, got)
}

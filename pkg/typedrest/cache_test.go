package typedrest_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelpascari/typedrest/pkg/typedrest"
)

func TestArtifactCache_GetOrBuildIsIdempotent(t *testing.T) {
	cache := typedrest.NewArtifactCache(8)
	key := typedrest.ArtifactKey{Endpoint: "GET /widgets", Schema: "widgetRequest"}

	builds := 0
	build := func() (*typedrest.Artifact, error) {
		builds++
		return &typedrest.Artifact{}, nil
	}

	first, err := cache.GetOrBuild(key, build)
	require.NoError(t, err)
	second, err := cache.GetOrBuild(key, build)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, builds)
}

func TestArtifactCache_BuildErrorsAreNotCached(t *testing.T) {
	cache := typedrest.NewArtifactCache(8)
	key := typedrest.ArtifactKey{Endpoint: "GET /widgets", Schema: "widgetRequest"}

	_, err := cache.GetOrBuild(key, func() (*typedrest.Artifact, error) {
		return nil, errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, 0, cache.Len())

	artifact, err := cache.GetOrBuild(key, func() (*typedrest.Artifact, error) {
		return &typedrest.Artifact{}, nil
	})
	require.NoError(t, err)
	assert.NotNil(t, artifact)
}

func TestArtifactCache_EvictionForcesRebuild(t *testing.T) {
	cache := typedrest.NewArtifactCache(1)

	keyA := typedrest.ArtifactKey{Endpoint: "GET /a", Schema: "a"}
	keyB := typedrest.ArtifactKey{Endpoint: "GET /b", Schema: "b"}

	builds := 0
	build := func() (*typedrest.Artifact, error) {
		builds++
		return &typedrest.Artifact{}, nil
	}

	_, err := cache.GetOrBuild(keyA, build)
	require.NoError(t, err)
	_, err = cache.GetOrBuild(keyB, build)
	require.NoError(t, err)
	assert.LessOrEqual(t, cache.Len(), 1)

	// The evicted entry rebuilds transparently.
	_, err = cache.GetOrBuild(keyA, build)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, builds, 3)
}

func TestArtifactCache_Invalidate(t *testing.T) {
	cache := typedrest.NewArtifactCache(8)
	key := typedrest.ArtifactKey{Endpoint: "GET /widgets", Schema: "widgetRequest"}

	builds := 0
	build := func() (*typedrest.Artifact, error) {
		builds++
		return &typedrest.Artifact{}, nil
	}

	_, err := cache.GetOrBuild(key, build)
	require.NoError(t, err)
	cache.Invalidate(key)

	_, err = cache.GetOrBuild(key, build)
	require.NoError(t, err)
	assert.Equal(t, 2, builds)
}

func TestArtifactCache_Purge(t *testing.T) {
	cache := typedrest.NewArtifactCache(8)
	for _, ep := range []string{"GET /a", "GET /b", "GET /c"} {
		_, err := cache.GetOrBuild(
			typedrest.ArtifactKey{Endpoint: ep, Schema: "s"},
			func() (*typedrest.Artifact, error) { return &typedrest.Artifact{}, nil })
		require.NoError(t, err)
	}

	cache.Purge()
	assert.Equal(t, 0, cache.Len())
}

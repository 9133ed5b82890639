package typedrest

import (
	"github.com/jellydator/ttlcache/v3"

	"github.com/pavelpascari/typedrest/pkg/backend"
)

// DefaultCacheCapacity bounds the artifact cache when settings do not say
// otherwise.
const DefaultCacheCapacity = 512

// ArtifactKey identifies one compiled artifact. Keys derive from endpoint
// and schema identity, never from request content: schemas are static per
// endpoint.
type ArtifactKey struct {
	Endpoint string
	Schema   string
}

// Artifact is an import-time compiled validation closure for one
// (endpoint, schema) pair. Artifacts are pure functions of their key and
// idempotent to rebuild, so duplicate compilation on a cache-miss race is
// acceptable.
type Artifact struct {
	Model     *CompiledModel
	Validator backend.Validator
}

// ArtifactCache is a bounded cache of compiled artifacts. It is the only
// mutable structure shared by concurrent requests: reads are concurrent and
// population on miss is safe.
type ArtifactCache struct {
	cache *ttlcache.Cache[ArtifactKey, *Artifact]
}

// NewArtifactCache creates a cache bounded to capacity entries. Eviction
// under size pressure forces recompilation on next access: correctness is
// preserved, only latency is affected.
func NewArtifactCache(capacity uint64) *ArtifactCache {
	if capacity == 0 {
		capacity = DefaultCacheCapacity
	}
	return &ArtifactCache{
		cache: ttlcache.New(
			ttlcache.WithCapacity[ArtifactKey, *Artifact](capacity),
			ttlcache.WithTTL[ArtifactKey, *Artifact](ttlcache.NoTTL),
		),
	}
}

// GetOrBuild returns the cached artifact for key, building and storing it
// on a miss.
func (c *ArtifactCache) GetOrBuild(key ArtifactKey, build func() (*Artifact, error)) (*Artifact, error) {
	if item := c.cache.Get(key); item != nil {
		return item.Value(), nil
	}
	artifact, err := build()
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, artifact, ttlcache.NoTTL)
	return artifact, nil
}

// Invalidate drops the artifact for key, for dynamic-settings scenarios.
func (c *ArtifactCache) Invalidate(key ArtifactKey) {
	c.cache.Delete(key)
}

// Purge drops every cached artifact.
func (c *ArtifactCache) Purge() {
	c.cache.DeleteAll()
}

// Len returns the number of cached artifacts.
func (c *ArtifactCache) Len() int {
	return c.cache.Len()
}

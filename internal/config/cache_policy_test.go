package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCachePolicy(t *testing.T) {
	policy := DefaultCachePolicy()

	assert.Equal(t, 168, policy.MetadataLookupHours)
	assert.Equal(t, 24, policy.FreeTextSearchHours)
	assert.Equal(t, 72, policy.AIFallbackHours)
	assert.Equal(t, 168, policy.RepertoireHours)
	assert.Equal(t, 72, policy.NotationHours)
	assert.Equal(t, 168, policy.SweepMaxAgeHours)

	assert.Equal(t, 8*time.Second, policy.GenerativeFastTimeout())
	assert.Equal(t, 12*time.Second, policy.GenerativeThoroughTimeout())
	assert.Equal(t, 4*time.Second, policy.ParallelFetchTimeout())
}

func TestMergeCachePolicy(t *testing.T) {
	dst := DefaultCachePolicy()
	mergeCachePolicy(dst, &CachePolicy{
		FreeTextSearchHours:   6,
		GenerativeFastSeconds: 5,
	})

	assert.Equal(t, 6, dst.FreeTextSearchHours)
	assert.Equal(t, 5, dst.GenerativeFastSeconds)
	// Zero values in the overlay leave defaults alone
	assert.Equal(t, 168, dst.MetadataLookupHours)
	assert.Equal(t, 12, dst.GenerativeThoroughSeconds)
}

func TestGetCachePolicy_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache_policy.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
metadata_lookup_hours = 48
parallel_fetch_seconds = 2
`), 0o644))

	t.Setenv("CACHE_POLICY_PATH", path)
	ResetCachePolicyForTest()
	t.Cleanup(ResetCachePolicyForTest)

	policy := GetCachePolicy()
	assert.Equal(t, 48, policy.MetadataLookupHours)
	assert.Equal(t, 2*time.Second, policy.ParallelFetchTimeout())
	// Unlisted values keep their defaults
	assert.Equal(t, 24, policy.FreeTextSearchHours)
}

func TestGetCachePolicy_MalformedFileFallsBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache_policy.toml")
	require.NoError(t, os.WriteFile(path, []byte("not [valid toml"), 0o644))

	t.Setenv("CACHE_POLICY_PATH", path)
	ResetCachePolicyForTest()
	t.Cleanup(ResetCachePolicyForTest)

	policy := GetCachePolicy()
	assert.Equal(t, DefaultCachePolicy(), policy)
}

func TestGetCachePolicy_MissingFileFallsBack(t *testing.T) {
	t.Setenv("CACHE_POLICY_PATH", filepath.Join(t.TempDir(), "nope.toml"))
	ResetCachePolicyForTest()
	t.Cleanup(ResetCachePolicyForTest)

	policy := GetCachePolicy()
	assert.Equal(t, DefaultCachePolicy(), policy)
}

package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// CachePolicy holds the per-kind freshness windows and generative timeouts.
// The cache itself is TTL-agnostic; callers pass these values per get.
type CachePolicy struct {
	// Freshness windows in hours, keyed by the kind of lookup
	MetadataLookupHours int `toml:"metadata_lookup_hours"`
	FreeTextSearchHours int `toml:"free_text_search_hours"`
	AIFallbackHours     int `toml:"ai_fallback_hours"`
	RepertoireHours     int `toml:"repertoire_hours"`
	NotationHours       int `toml:"notation_hours"`

	// Global retention window used by the periodic expiry sweep
	SweepMaxAgeHours int `toml:"sweep_max_age_hours"`

	// Timeouts in seconds for the generative source variants
	GenerativeFastSeconds     int `toml:"generative_fast_seconds"`
	GenerativeThoroughSeconds int `toml:"generative_thorough_seconds"`

	// Bounded wait for the slower of the two parallel source fetches
	ParallelFetchSeconds int `toml:"parallel_fetch_seconds"`
}

// DefaultCachePolicy returns hard-coded safe defaults
func DefaultCachePolicy() *CachePolicy {
	return &CachePolicy{
		MetadataLookupHours:       168, // 7 days
		FreeTextSearchHours:       24,
		AIFallbackHours:           72,
		RepertoireHours:           168,
		NotationHours:             72,
		SweepMaxAgeHours:          168,
		GenerativeFastSeconds:     8,
		GenerativeThoroughSeconds: 12,
		ParallelFetchSeconds:      4,
	}
}

// GenerativeFastTimeout returns the fast-path generative timeout.
func (p *CachePolicy) GenerativeFastTimeout() time.Duration {
	return time.Duration(p.GenerativeFastSeconds) * time.Second
}

// GenerativeThoroughTimeout returns the thorough-path generative timeout.
func (p *CachePolicy) GenerativeThoroughTimeout() time.Duration {
	return time.Duration(p.GenerativeThoroughSeconds) * time.Second
}

// ParallelFetchTimeout returns the bounded wait applied to the metadata and
// lyrics fetches launched in parallel.
func (p *CachePolicy) ParallelFetchTimeout() time.Duration {
	return time.Duration(p.ParallelFetchSeconds) * time.Second
}

var (
	cachePolicy     *CachePolicy
	cachePolicyOnce sync.Once
	cachePolicyMu   sync.RWMutex
)

// GetCachePolicy loads the cache policy from TOML if CACHE_POLICY_PATH is
// set, falling back to well-known locations and then to defaults. Unset or
// unreadable files fall back silently; a malformed file logs and falls back.
func GetCachePolicy() *CachePolicy {
	cachePolicyOnce.Do(func() {
		policy := DefaultCachePolicy()
		if path := os.Getenv("CACHE_POLICY_PATH"); path != "" {
			if filePolicy, err := loadCachePolicyFromPath(path); err == nil && filePolicy != nil {
				mergeCachePolicy(policy, filePolicy)
			}
		} else {
			for _, p := range candidateCachePolicyPaths() {
				if filePolicy, err := loadCachePolicyFromPath(p); err == nil && filePolicy != nil {
					mergeCachePolicy(policy, filePolicy)
					break
				}
			}
		}
		cachePolicyMu.Lock()
		cachePolicy = policy
		cachePolicyMu.Unlock()
	})
	cachePolicyMu.RLock()
	policy := cachePolicy
	cachePolicyMu.RUnlock()
	return policy
}

func loadCachePolicyFromPath(path string) (*CachePolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var policy CachePolicy
	if err := toml.Unmarshal(data, &policy); err != nil {
		slog.Warn("Malformed cache policy file, using defaults", "path", path, "error", err)
		return nil, err
	}
	return &policy, nil
}

func candidateCachePolicyPaths() []string {
	paths := []string{
		"cache_policy.toml",
		filepath.Join("config", "cache_policy.toml"),
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "bandroom", "cache_policy.toml"))
	}
	return paths
}

// mergeCachePolicy overlays non-zero values from src onto dst
func mergeCachePolicy(dst, src *CachePolicy) {
	if src.MetadataLookupHours > 0 {
		dst.MetadataLookupHours = src.MetadataLookupHours
	}
	if src.FreeTextSearchHours > 0 {
		dst.FreeTextSearchHours = src.FreeTextSearchHours
	}
	if src.AIFallbackHours > 0 {
		dst.AIFallbackHours = src.AIFallbackHours
	}
	if src.RepertoireHours > 0 {
		dst.RepertoireHours = src.RepertoireHours
	}
	if src.NotationHours > 0 {
		dst.NotationHours = src.NotationHours
	}
	if src.SweepMaxAgeHours > 0 {
		dst.SweepMaxAgeHours = src.SweepMaxAgeHours
	}
	if src.GenerativeFastSeconds > 0 {
		dst.GenerativeFastSeconds = src.GenerativeFastSeconds
	}
	if src.GenerativeThoroughSeconds > 0 {
		dst.GenerativeThoroughSeconds = src.GenerativeThoroughSeconds
	}
	if src.ParallelFetchSeconds > 0 {
		dst.ParallelFetchSeconds = src.ParallelFetchSeconds
	}
}

// ResetCachePolicyForTest clears the cached policy so tests can reload it.
func ResetCachePolicyForTest() {
	cachePolicyMu.Lock()
	defer cachePolicyMu.Unlock()
	cachePolicy = nil
	cachePolicyOnce = sync.Once{}
}

// Package cachemanager provides a typed TTL cache. It wraps
// patrickmn/go-cache with generics so callers get their value type back
// without assertions scattered around.
package cachemanager

import "time"

// CacheManager is a typed key/value cache with per-entry TTL.
type CacheManager[K ~string, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V, ttl time.Duration)
	Delete(keys ...K)
	Flush()
}

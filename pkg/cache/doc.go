// Package cache keeps whole-collection fetches in Redis.
//
// Paging through a large collection re-reads every record on each request.
// When a Redis address is configured, the viewer stores the raw fetch
// (ids, documents, metadata) under a key derived from the store path, the
// collection name and the store version, so that successive page requests
// are served without touching SQLite:
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient, cache.DefaultTTL)
//
//	key := cache.Key{Store: "/data/chroma", Collection: "notes", Version: version}
//	entry, err := manager.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// fetch from the store, then
//		_ = manager.Set(ctx, key, result)
//	}
//
// The version is the modification time of chroma.sqlite3, so any write to
// the store produces a new key and stale entries simply age out.
//
// Collection listings and computed pages are never cached.
//
// # Metrics
//
//   - chroma_viewer_cache_hits_total - Cache hits
//   - chroma_viewer_cache_misses_total - Cache misses
//   - chroma_viewer_cache_errors_total{operation} - Cache operation errors
package cache

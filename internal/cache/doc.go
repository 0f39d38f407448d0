// Package cache provides a generic LRU cache with a soft limit.
//
//	images := cache.New[imageKey, *Image](256)
//	images.OnEvict(func(_ imageKey, img *Image) { img.Destroy() })
//	images.Set(key, img)
//	img, ok := images.Get(key)
//
// When the soft limit is exceeded, the least recently used quarter of the
// entries is evicted in one pass.
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache

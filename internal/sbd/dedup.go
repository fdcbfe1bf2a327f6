package sbd

import "github.com/VictoriaMetrics/fastcache"

// Dedup is the front-end's concurrent-load-request de-duplication cache:
// the first request for a path claims it, later concurrent requests join
// the in-flight read instead of triggering another. Keyed by path, it
// remembers only that a read is in flight or done, not the bytes
// themselves -- those are owned by the caller once read.
type Dedup struct {
	cache *fastcache.Cache
}

// NewDedup constructs a Dedup cache sized maxBytes.
func NewDedup(maxBytes int) *Dedup {
	return &Dedup{cache: fastcache.New(maxBytes)}
}

// ClaimOrJoin reports whether the caller is the first to request path
// (claimed == true, caller must read and broadcast it) or whether another
// request for the same path is already in flight or satisfied
// (claimed == false, caller should await the broadcast instead).
func (d *Dedup) ClaimOrJoin(path string) (claimed bool) {
	key := []byte(path)
	if d.cache.Has(key) {
		return false
	}
	d.cache.Set(key, []byte{1})
	return true
}

// Forget removes path from the cache, e.g. after its broadcast completes,
// so a later re-request (GDB asking again after a failure) is treated as
// fresh.
func (d *Dedup) Forget(path string) {
	d.cache.Del([]byte(path))
}

// Package resource implements the host's loaded-resource cache (§5
// "The host's loaded-resource cache is keyed by path and may be shared
// across compiles"): decoded image/audio/text payloads keyed by the
// path a `texture`/`load`/`sample`/`text` builtin referenced, reused
// across recompiles of the same or a different program.
package resource

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Kind distinguishes the payload shapes a resource builtin can load.
type Kind uint8

const (
	KindImage Kind = iota
	KindAudio
	KindText
)

// Entry is one decoded resource, ready for the render/audio loop to
// sample from.
type Entry struct {
	Path string
	Kind Kind
	Data []byte
}

// Loader fetches and decodes a resource the first time its path is
// seen; the host supplies a concrete implementation (filesystem,
// embedded asset bundle, network fetch).
type Loader func(path string, kind Kind) (*Entry, error)

// Cache is a bounded, path-keyed cache of decoded resources, shared
// across compiles of the same session (§5).
type Cache struct {
	entries *lru.Cache[string, *Entry]
	load    Loader
}

// DefaultCapacity bounds the number of distinct resources kept
// resident; a live-coded session typically touches a handful of
// textures and samples, so this comfortably covers normal use without
// unbounded growth across many edit-recompile cycles.
const DefaultCapacity = 256

// New creates a Cache backed by an LRU of capacity entries (0 uses
// DefaultCapacity), using load to materialize a miss.
func New(capacity int, load Loader) (*Cache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c, err := lru.New[string, *Entry](capacity)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: c, load: load}, nil
}

// Get returns the cached entry for (path, kind), loading and caching
// it on a miss.
func (c *Cache) Get(path string, kind Kind) (*Entry, error) {
	key := cacheKey(path, kind)
	if e, ok := c.entries.Get(key); ok {
		return e, nil
	}
	e, err := c.load(path, kind)
	if err != nil {
		return nil, err
	}
	c.entries.Add(key, e)
	return e, nil
}

// Purge evicts every cached entry, for a "reload all assets" host
// command.
func (c *Cache) Purge() {
	c.entries.Purge()
}

// Len reports the number of resources currently resident.
func (c *Cache) Len() int { return c.entries.Len() }

func cacheKey(path string, kind Kind) string {
	switch kind {
	case KindImage:
		return "img:" + path
	case KindAudio:
		return "aud:" + path
	default:
		return "txt:" + path
	}
}

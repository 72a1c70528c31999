// Package cache keeps decoded frames keyed by their index in the clip.
//
// The cache is not synchronized. It belongs to the goroutine that drives playback;
// background decoders hand frames back to that goroutine instead of inserting here.
package cache

import (
	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/rs/zerolog"

	"github.com/svanichkin/asciiplay/codec"
	"github.com/svanichkin/asciiplay/logs"
)

// DefaultMaxSize matches the number of frames the player keeps around by default.
const DefaultMaxSize = 50

type entry struct {
	frame  codec.Frame
	packed []byte
}

// Stats counts cache traffic since the last Clear.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Cache is a bounded frame store with least-recently-used eviction.
type Cache struct {
	lru      *simplelru.LRU[int, entry]
	maxSize  int
	compress bool
	stats    Stats
	log      zerolog.Logger
}

// Option tweaks a Cache at construction time.
type Option func(*Cache)

// WithCompression stores frames zstd-packed, trading CPU for memory.
func WithCompression(enabled bool) Option {
	return func(c *Cache) { c.compress = enabled }
}

// New builds a cache holding at most maxSize frames. Sizes below one are raised to one.
func New(maxSize int, opts ...Option) *Cache {
	if maxSize < 1 {
		maxSize = 1
	}
	c := &Cache{maxSize: maxSize, log: logs.For("cache")}
	for _, opt := range opts {
		opt(c)
	}
	lru, err := simplelru.NewLRU[int, entry](maxSize, c.onEvict)
	if err != nil {
		// only returned for non-positive sizes, excluded above
		panic(err)
	}
	c.lru = lru
	return c
}

func (c *Cache) onEvict(index int, _ entry) {
	c.stats.Evictions++
	c.log.Debug().Int("index", index).Int("size", c.maxSize).Msg("evicted frame")
}

// Get returns a private copy of the frame at index and marks it most recently used.
func (c *Cache) Get(index int) (codec.Frame, bool) {
	e, ok := c.lru.Get(index)
	if !ok {
		c.stats.Misses++
		return codec.Frame{}, false
	}
	if e.packed != nil {
		f, err := codec.Unpack(e.packed)
		if err != nil {
			c.log.Warn().Err(err).Int("index", index).Msg("dropping unreadable packed frame")
			c.lru.Remove(index)
			c.stats.Misses++
			return codec.Frame{}, false
		}
		c.stats.Hits++
		return f, true
	}
	c.stats.Hits++
	return e.frame.Clone(), true
}

// Contains reports presence without touching recency.
func (c *Cache) Contains(index int) bool {
	return c.lru.Contains(index)
}

// Insert stores a copy of frame under index, evicting the least recently used entry
// when the cache is full. The new entry becomes the most recently used.
func (c *Cache) Insert(index int, frame codec.Frame) {
	var e entry
	if c.compress {
		if packed, err := codec.Pack(frame); err == nil {
			e.packed = packed
		} else {
			c.log.Debug().Err(err).Int("index", index).Msg("storing frame unpacked")
		}
	}
	if e.packed == nil {
		e.frame = frame.Clone()
	}
	c.lru.Add(index, e)
}

// Clear drops every entry and resets the statistics.
func (c *Cache) Clear() {
	c.lru.Purge()
	c.stats = Stats{}
}

// Len returns the number of cached frames.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// MaxSize returns the configured capacity.
func (c *Cache) MaxSize() int {
	return c.maxSize
}

// Indices lists cached indices from least to most recently used.
func (c *Cache) Indices() []int {
	return c.lru.Keys()
}

// Stats returns the traffic counters.
func (c *Cache) Stats() Stats {
	return c.stats
}

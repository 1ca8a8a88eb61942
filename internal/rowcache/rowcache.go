// Package rowcache implements a compressed LRU cache for evicted row
// blocks, so scrolling back into a previously loaded region can be served
// without a refetch.
//
// Blocks are keyed by (generation, offset). A sort or filter change bumps
// the store generation, which implicitly invalidates every cached block.
package rowcache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/karthikbadam/any-table/codec"
	"github.com/karthikbadam/any-table/resource"
	"github.com/karthikbadam/any-table/rowstore"
)

// BlockKey identifies one cached row block.
type BlockKey struct {
	Gen    uint64
	Offset int
}

// Options configures a Cache.
type Options struct {
	// CapacityBytes bounds the compressed size held. Defaults to 8 MiB.
	CapacityBytes int64

	// Codec encodes row blocks before compression. Defaults to codec.Default.
	Codec codec.Codec

	// ZstdThresholdBytes is the encoded size at which blocks switch from
	// lz4 to zstd framing. Defaults to 64 KiB.
	ZstdThresholdBytes int
}

// DefaultOptions are the options used for zero values.
var DefaultOptions = Options{
	CapacityBytes:      8 << 20,
	ZstdThresholdBytes: 64 << 10,
}

// Cache is an LRU over compressed row blocks. It implements
// rowstore.BlockCache.
type Cache struct {
	mu        sync.Mutex
	capacity  int64
	size      int64
	items     map[BlockKey]*list.Element
	evictList *list.List
	codec     codec.Codec
	threshold int
	rc        *resource.Controller

	hits   atomic.Int64
	misses atomic.Int64
}

type entry struct {
	key   BlockKey
	value []byte
	count int // rows in the block
}

var _ rowstore.BlockCache = (*Cache)(nil)

// New creates a cache. rc, if non-nil, co-tracks memory usage against the
// table's global budget.
func New(opts Options, rc *resource.Controller) *Cache {
	if opts.CapacityBytes <= 0 {
		opts.CapacityBytes = DefaultOptions.CapacityBytes
	}
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}
	if opts.ZstdThresholdBytes <= 0 {
		opts.ZstdThresholdBytes = DefaultOptions.ZstdThresholdBytes
	}
	return &Cache{
		capacity:  opts.CapacityBytes,
		items:     make(map[BlockKey]*list.Element),
		evictList: list.New(),
		codec:     opts.Codec,
		threshold: opts.ZstdThresholdBytes,
		rc:        rc,
	}
}

// Put stores an evicted block. Encode or admission failures drop the block
// silently; the cache is an optimization, not a durability layer.
func (c *Cache) Put(gen uint64, offset int, rows []rowstore.Row) {
	if len(rows) == 0 {
		return
	}
	encoded, err := c.codec.Marshal(rows)
	if err != nil {
		return
	}
	block := compressBlock(encoded, c.threshold)
	key := BlockKey{Gen: gen, Offset: offset}

	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.removeElement(ent)
	}

	itemSize := int64(len(block))
	if itemSize > c.capacity {
		return
	}

	for c.size+itemSize > c.capacity {
		back := c.evictList.Back()
		if back == nil {
			break
		}
		c.removeElement(back)
	}

	if c.rc != nil && !c.rc.TryAcquireMemory(itemSize) {
		return
	}

	element := c.evictList.PushFront(&entry{key: key, value: block, count: len(rows)})
	c.items[key] = element
	c.size += itemSize
}

// Get returns the rows of a cached block covering [offset, offset+limit).
// Only exact-offset blocks holding at least limit rows are served.
func (c *Cache) Get(gen uint64, offset, limit int) ([]rowstore.Row, bool) {
	key := BlockKey{Gen: gen, Offset: offset}

	c.mu.Lock()
	element, ok := c.items[key]
	if !ok || element.Value.(*entry).count < limit {
		c.mu.Unlock()
		c.misses.Add(1)
		return nil, false
	}
	c.evictList.MoveToFront(element)
	block := element.Value.(*entry).value
	c.mu.Unlock()

	raw, err := decompressBlock(block)
	if err != nil {
		c.misses.Add(1)
		return nil, false
	}
	var rows []rowstore.Row
	if err := c.codec.Unmarshal(raw, &rows); err != nil || len(rows) < limit {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return rows[:limit], true
}

// InvalidateBefore drops every block older than gen.
func (c *Cache) InvalidateBefore(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var toRemove []*list.Element
	for key, element := range c.items {
		if key.Gen < gen {
			toRemove = append(toRemove, element)
		}
	}
	for _, e := range toRemove {
		c.removeElement(e)
	}
}

// Stats returns hit and miss counts.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Size returns the current compressed size in bytes.
func (c *Cache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

func (c *Cache) removeElement(e *list.Element) {
	c.evictList.Remove(e)
	ent := e.Value.(*entry)
	delete(c.items, ent.key)
	itemSize := int64(len(ent.value))
	c.size -= itemSize
	if c.rc != nil {
		c.rc.ReleaseMemory(itemSize)
	}
}

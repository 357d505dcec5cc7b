package knowledge

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Cache holds the process-wide tree. Reads are lock-free; loads are
// serialized.
type Cache struct {
	path string
	log  *slog.Logger

	mu      sync.Mutex
	current atomic.Pointer[Tree]
	version atomic.Uint64
}

func NewCache(path string, log *slog.Logger) *Cache {
	if log == nil {
		log = slog.Default()
	}
	return &Cache{path: path, log: log}
}

// Get returns the current tree, loading it on first use.
func (c *Cache) Get() *Tree {
	if t := c.current.Load(); t != nil {
		return t
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if t := c.current.Load(); t != nil {
		return t
	}
	return c.loadLocked()
}

// Reload reads the source again and swaps the new tree in.
func (c *Cache) Reload() *Tree {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked()
}

// Invalidate drops the current tree; the next Get reloads it.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.current.Store(nil)
	c.mu.Unlock()
}

// Version increases every time a tree is loaded.
func (c *Cache) Version() uint64 {
	return c.version.Load()
}

func (c *Cache) loadLocked() *Tree {
	t := Load(c.path, c.log)
	c.current.Store(t)
	v := c.version.Add(1)
	c.log.Debug("knowledge tree swapped in", "version", v, "leaves", t.Leaves())
	return t
}

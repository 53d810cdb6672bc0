package geometry

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of relative frames kept by Cached when no
// size is configured. A station has 12 layers and 3 superlayers, so this
// covers a full detector slice.
const DefaultCacheSize = 1024

type framePair struct {
	from, to LayerID
}

// Cached wraps a Provider with a read-through LRU of relative frames.
// Geometry is immutable during reconstruction so entries are never
// invalidated.
type Cached struct {
	Provider
	frames *lru.Cache[framePair, Frame]
}

// NewCached wraps p. size <= 0 selects DefaultCacheSize.
func NewCached(p Provider, size int) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[framePair, Frame](size)
	if err != nil {
		return nil, fmt.Errorf("create frame cache: %w", err)
	}
	return &Cached{Provider: p, frames: c}, nil
}

// RelativeFrame implements RelativeFramer.
func (c *Cached) RelativeFrame(from, to LayerID) (Frame, error) {
	key := framePair{from: from, to: to}
	if f, ok := c.frames.Get(key); ok {
		return f, nil
	}
	f, err := relative(c.Provider, from, to)
	if err != nil {
		return Frame{}, err
	}
	c.frames.Add(key, f)
	return f, nil
}

// Len returns the number of cached frames.
func (c *Cached) Len() int { return c.frames.Len() }

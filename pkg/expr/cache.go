package expr

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache memoizes decoded expressions by notation. Expressions are immutable,
// so one decoded value is shared by every caller. A nil *Cache decodes
// without caching.
type Cache struct {
	decoder Decoder
	lru     *lru.Cache[string, *Expression]
}

// NewCache creates a cache holding up to size expressions.
func NewCache(size int, d Decoder) (*Cache, error) {
	c, err := lru.New[string, *Expression](size)
	if err != nil {
		return nil, fmt.Errorf("create decode cache: %w", err)
	}
	return &Cache{decoder: d, lru: c}, nil
}

// Decode returns the cached expression for notation, decoding it on a miss.
// Failed decodes are not cached.
func (c *Cache) Decode(notation string) (*Expression, error) {
	if c == nil {
		return Decode(notation)
	}
	if e, ok := c.lru.Get(notation); ok {
		return e, nil
	}
	e, err := c.decoder.Decode(notation)
	if err != nil {
		return nil, err
	}
	c.lru.Add(notation, e)
	return e, nil
}

// Len returns the number of cached expressions.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

package fog

import "bytes"

// frontierEntry records, for a single unexplored prefix, enough information
// to resume traversal in one hop: the parent node's raw encoded body and the
// suffix nibbles from the parent down to this prefix, so a walker doesn't
// need to re-traverse from the root.
type frontierEntry struct {
	prefix       []byte
	parentBody   []byte
	suffix       []byte
}

// TrieFrontierCache maps each unexplored prefix the fog is currently
// tracking to the single hop needed to resolve it, so a resumed walk can
// jump directly to the frontier instead of re-descending from the root.
type TrieFrontierCache struct {
	entries []frontierEntry
}

// NewFrontierCache returns an empty cache.
func NewFrontierCache() *TrieFrontierCache {
	return &TrieFrontierCache{}
}

func (c *TrieFrontierCache) indexOf(prefix []byte) int {
	for i, e := range c.entries {
		if bytes.Equal(e.prefix, prefix) {
			return i
		}
	}
	return -1
}

// Get returns the cached parent body and suffix for prefix, if present.
func (c *TrieFrontierCache) Get(prefix []byte) (parentBody, suffix []byte, ok bool) {
	i := c.indexOf(prefix)
	if i < 0 {
		return nil, nil, false
	}
	e := c.entries[i]
	return e.parentBody, e.suffix, true
}

// Add records (or replaces) the single-hop resolution for prefix.
func (c *TrieFrontierCache) Add(prefix, parentBody, suffix []byte) {
	if i := c.indexOf(prefix); i >= 0 {
		c.entries[i].parentBody = parentBody
		c.entries[i].suffix = suffix
		return
	}
	c.entries = append(c.entries, frontierEntry{
		prefix:     append([]byte(nil), prefix...),
		parentBody: append([]byte(nil), parentBody...),
		suffix:     append([]byte(nil), suffix...),
	})
}

// Delete removes prefix's cached entry, if any; called once a prefix has
// been explored and no longer needs single-hop resolution.
func (c *TrieFrontierCache) Delete(prefix []byte) {
	i := c.indexOf(prefix)
	if i < 0 {
		return
	}
	c.entries = append(c.entries[:i], c.entries[i+1:]...)
}

// Len reports how many prefixes currently have a cached resolution.
func (c *TrieFrontierCache) Len() int { return len(c.entries) }

// Package memorydb provides an in-memory trie.KeyValueStore, used in tests
// and by callers that don't need persistence across process restarts.
package memorydb

import (
	"sync"

	"github.com/trieup/hexatrie/trie"
)

// Database is a concurrency-safe, map-backed trie.KeyValueStore.
type Database struct {
	lock sync.RWMutex
	db   map[string][]byte
}

// New returns an empty Database.
func New() *Database {
	return &Database{db: make(map[string][]byte)}
}

func (d *Database) Get(key []byte) ([]byte, error) {
	d.lock.RLock()
	defer d.lock.RUnlock()
	v, ok := d.db[string(key)]
	if !ok {
		return nil, trie.ErrNotFound
	}
	buf := make([]byte, len(v))
	copy(buf, v)
	return buf, nil
}

func (d *Database) Put(key, value []byte) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	buf := make([]byte, len(value))
	copy(buf, value)
	d.db[string(key)] = buf
	return nil
}

func (d *Database) Delete(key []byte) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	delete(d.db, string(key))
	return nil
}

func (d *Database) Has(key []byte) (bool, error) {
	d.lock.RLock()
	defer d.lock.RUnlock()
	_, ok := d.db[string(key)]
	return ok, nil
}

// Len reports the number of keys currently stored, mostly useful in tests
// asserting that pruning actually reclaimed space.
func (d *Database) Len() int {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return len(d.db)
}

// NewBatch returns a write batch that stages puts/deletes until Write.
func (d *Database) NewBatch() trie.Batch {
	return &batch{db: d}
}

type keyValue struct {
	key    string
	value  []byte
	delete bool
}

type batch struct {
	db   *Database
	ops  []keyValue
	size int
}

func (b *batch) Put(key, value []byte) error {
	buf := make([]byte, len(value))
	copy(buf, value)
	b.ops = append(b.ops, keyValue{string(key), buf, false})
	b.size += len(key) + len(value)
	return nil
}

func (b *batch) Delete(key []byte) error {
	b.ops = append(b.ops, keyValue{string(key), nil, true})
	b.size += len(key)
	return nil
}

func (b *batch) Len() int { return b.size }

func (b *batch) Write() error {
	b.db.lock.Lock()
	defer b.db.lock.Unlock()
	for _, op := range b.ops {
		if op.delete {
			delete(b.db.db, op.key)
		} else {
			b.db.db[op.key] = op.value
		}
	}
	return nil
}

func (b *batch) Reset() {
	b.ops = b.ops[:0]
	b.size = 0
}

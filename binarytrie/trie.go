package binarytrie

import (
	"bytes"
	"fmt"

	"github.com/trieup/hexatrie/trie"
)

// NodeOverrideError is raised when a write would silently discard a node
// that is still reachable from elsewhere in the trie (most notably, writing
// through a leaf using a key that treats it as an interior node). Unlike the
// hexary trie's branch/extension restructuring, the binary trie never
// infers which of two conflicting shapes the caller intended.
type NodeOverrideError struct {
	Msg string
}

func (e *NodeOverrideError) Error() string { return "node override: " + e.Msg }

// BinaryTrie is a fixed-arity (2-way) Merkle Patricia Trie over bitstring
// keys, each byte expanding to 8 bits MSB-first.
type BinaryTrie struct {
	db       trie.KeyValueStore
	rootHash []byte
}

// New constructs a trie over db rooted at rootHash. A nil or blank rootHash
// starts an empty trie.
func New(db trie.KeyValueStore, rootHash []byte) *BinaryTrie {
	if len(rootHash) == 0 {
		rootHash = append([]byte(nil), BlankHash...)
	}
	return &BinaryTrie{db: db, rootHash: rootHash}
}

// RootHash returns the current root hash.
func (t *BinaryTrie) RootHash() []byte { return append([]byte(nil), t.rootHash...) }

func (t *BinaryTrie) load(hash []byte) (node, error) {
	if bytes.Equal(hash, BlankHash) {
		return nil, nil
	}
	blob, err := t.db.Get(hash)
	if err != nil {
		return nil, err
	}
	return decodeNode(blob)
}

func (t *BinaryTrie) persist(n node) ([]byte, error) {
	if n == nil {
		return append([]byte(nil), BlankHash...), nil
	}
	h := hashOf(n)
	if err := t.db.Put(h, n.encode()); err != nil {
		return nil, err
	}
	return h, nil
}

// Get returns the value at key, or nil if absent.
func (t *BinaryTrie) Get(key []byte) ([]byte, error) {
	return t.get(t.rootHash, bytesToBits(key))
}

func (t *BinaryTrie) get(nodeHash []byte, path []bool) ([]byte, error) {
	n, err := t.load(nodeHash)
	if err != nil {
		return nil, err
	}
	switch n := n.(type) {
	case nil:
		return nil, nil
	case *leafNode:
		if len(path) != 0 {
			return nil, nil
		}
		return n.value, nil
	case *kvNode:
		if !bitsHavePrefix(path, n.keyPath) {
			return nil, nil
		}
		return t.get(n.child, path[len(n.keyPath):])
	case *branchNode:
		if len(path) == 0 {
			return nil, nil
		}
		if path[0] {
			return t.get(n.right, path[1:])
		}
		return t.get(n.left, path[1:])
	default:
		return nil, fmt.Errorf("binarytrie: unexpected node %T", n)
	}
}

// Exists reports whether key has an associated value.
func (t *BinaryTrie) Exists(key []byte) (bool, error) {
	v, err := t.Get(key)
	return v != nil, err
}

// Set associates key with value. An empty value deletes key, matching the
// hexary trie's convention.
func (t *BinaryTrie) Set(key, value []byte) error {
	if len(value) == 0 {
		return t.Delete(key)
	}
	newHash, err := t.set(t.rootHash, bytesToBits(key), value, false)
	if err != nil {
		return err
	}
	t.rootHash = newHash
	return nil
}

// set mirrors py-trie's BinaryTrie._set_kv_node / _set_branch_node case
// analysis: depending on the shape found at nodeHash and how far path's
// bits agree with it, either descend further, split a kv run at the
// divergence point, replace a leaf outright, or create a fresh kv+leaf pair
// under a blank slot.
func (t *BinaryTrie) set(nodeHash []byte, path []bool, value []byte, deleteSubtrie bool) ([]byte, error) {
	n, err := t.load(nodeHash)
	if err != nil {
		return nil, err
	}
	switch cur := n.(type) {
	case nil:
		if deleteSubtrie {
			return append([]byte(nil), BlankHash...), nil
		}
		leafHash, err := t.persist(&leafNode{value: value})
		if err != nil {
			return nil, err
		}
		if len(path) == 0 {
			return leafHash, nil
		}
		return t.persist(&kvNode{keyPath: path, child: leafHash})

	case *leafNode:
		if len(path) != 0 {
			return nil, &NodeOverrideError{Msg: "key continues past an existing leaf"}
		}
		if deleteSubtrie {
			return append([]byte(nil), BlankHash...), nil
		}
		return t.persist(&leafNode{value: value})

	case *kvNode:
		return t.setKV(cur, path, value, deleteSubtrie)

	case *branchNode:
		if len(path) == 0 {
			if deleteSubtrie {
				return append([]byte(nil), BlankHash...), nil
			}
			return nil, &NodeOverrideError{Msg: "key too short to reach below a branch"}
		}
		var err error
		b := &branchNode{left: cur.left, right: cur.right}
		if path[0] {
			b.right, err = t.set(cur.right, path[1:], value, deleteSubtrie)
		} else {
			b.left, err = t.set(cur.left, path[1:], value, deleteSubtrie)
		}
		if err != nil {
			return nil, err
		}
		if bytes.Equal(b.left, BlankHash) && bytes.Equal(b.right, BlankHash) {
			return append([]byte(nil), BlankHash...), nil
		}
		return t.persist(b)

	default:
		return nil, fmt.Errorf("binarytrie: unexpected node %T", n)
	}
}

func (t *BinaryTrie) setKV(cur *kvNode, path []bool, value []byte, deleteSubtrie bool) ([]byte, error) {
	common := commonBitPrefixLen(path, cur.keyPath)
	switch {
	case common == len(cur.keyPath):
		// path runs at least as far as this kv node's compressed run: descend.
		childHash, err := t.set(cur.child, path[common:], value, deleteSubtrie)
		if err != nil {
			return nil, err
		}
		if bytes.Equal(childHash, BlankHash) {
			return append([]byte(nil), BlankHash...), nil
		}
		if len(cur.keyPath) == 0 {
			return childHash, nil
		}
		return t.persist(&kvNode{keyPath: cur.keyPath, child: childHash})

	case deleteSubtrie && common == len(path):
		// path ends inside this run, so the whole run lies under the prefix.
		return append([]byte(nil), BlankHash...), nil

	case deleteSubtrie:
		// path diverges before consuming this run; nothing under it to delete.
		return t.persist(cur)

	case common == len(path):
		return nil, &NodeOverrideError{Msg: "key ends inside an existing key path"}

	default:
		// path diverges partway through the run: split into a branch at the
		// divergence bit, keeping the remainder of the run on each side.
		branch := &branchNode{left: append([]byte(nil), BlankHash...), right: append([]byte(nil), BlankHash...)}
		remAfterCommon := cur.keyPath[common+1:]
		oldSideHash := cur.child
		if len(remAfterCommon) > 0 {
			var err error
			oldSideHash, err = t.persist(&kvNode{keyPath: remAfterCommon, child: cur.child})
			if err != nil {
				return nil, err
			}
		}
		if cur.keyPath[common] {
			branch.right = oldSideHash
		} else {
			branch.left = oldSideHash
		}

		newRemaining := path[common+1:]
		newLeafHash, err := t.persist(&leafNode{value: value})
		if err != nil {
			return nil, err
		}
		newSideHash := newLeafHash
		if len(newRemaining) > 0 {
			newSideHash, err = t.persist(&kvNode{keyPath: newRemaining, child: newLeafHash})
			if err != nil {
				return nil, err
			}
		}
		if path[common] {
			branch.right = newSideHash
		} else {
			branch.left = newSideHash
		}

		branchHash, err := t.persist(branch)
		if err != nil {
			return nil, err
		}
		if common == 0 {
			return branchHash, nil
		}
		return t.persist(&kvNode{keyPath: path[:common], child: branchHash})
	}
}

// Delete removes key's value, a no-op if it is already absent.
func (t *BinaryTrie) Delete(key []byte) error {
	if v, err := t.Get(key); err != nil || v == nil {
		return err
	}
	newHash, err := t.set(t.rootHash, bytesToBits(key), nil, true)
	if err != nil {
		return err
	}
	t.rootHash = newHash
	return nil
}

// DeleteSubtrie removes every key sharing keyPrefix as a bit-prefix in one
// operation, without visiting each key individually.
func (t *BinaryTrie) DeleteSubtrie(keyPrefix []byte) error {
	newHash, err := t.set(t.rootHash, bytesToBits(keyPrefix), nil, true)
	if err != nil {
		return err
	}
	t.rootHash = newHash
	return nil
}

func bitsHavePrefix(path, prefix []bool) bool {
	if len(path) < len(prefix) {
		return false
	}
	for i, b := range prefix {
		if path[i] != b {
			return false
		}
	}
	return true
}

func commonBitPrefixLen(a, b []bool) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for ; i < n; i++ {
		if a[i] != b[i] {
			break
		}
	}
	return i
}

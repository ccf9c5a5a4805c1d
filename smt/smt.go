// Package smt implements a fixed-depth Sparse Merkle Tree: an authenticated
// map over the full 2^(8*keySize) key space, where absent keys are defined
// to hold a fixed empty value rather than simply not existing. Every leaf is
// at the same depth, so proofs are a fixed-length sibling list and root
// computation is well-defined even for a tree holding zero entries.
package smt

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/trieup/hexatrie/trie"
)

// SparseMerkleTree is a fixed-depth (8*KeySize bits) sparse Merkle tree over
// a KeyValueStore, with a precomputed chain of empty-subtree hashes so that
// any never-written path's sibling hash is O(1) to produce.
type SparseMerkleTree struct {
	db       trie.KeyValueStore
	keySize  int // bytes
	depth    int // bits == 8*keySize
	rootHash []byte

	// emptyHash[d] is the root hash of an empty subtree of depth d, with
	// emptyHash[0] the hash of the empty value at a leaf and
	// emptyHash[depth] the root hash of a wholly empty tree.
	emptyHash [][]byte
}

// New constructs an empty tree whose keys are keySize bytes wide.
func New(db trie.KeyValueStore, keySize int) *SparseMerkleTree {
	t := &SparseMerkleTree{db: db, keySize: keySize, depth: keySize * 8}
	t.emptyHash = computeEmptyHashChain(t.depth)
	t.rootHash = append([]byte(nil), t.emptyHash[t.depth]...)
	return t
}

// FromRoot resumes a tree at a previously computed root hash.
func FromRoot(db trie.KeyValueStore, keySize int, rootHash []byte) *SparseMerkleTree {
	t := New(db, keySize)
	t.rootHash = append([]byte(nil), rootHash...)
	return t
}

func computeEmptyHashChain(depth int) [][]byte {
	chain := make([][]byte, depth+1)
	chain[0] = crypto.Keccak256(nil)
	for d := 1; d <= depth; d++ {
		chain[d] = hashPair(chain[d-1], chain[d-1])
	}
	return chain
}

func hashPair(left, right []byte) []byte {
	buf := make([]byte, 0, len(left)+len(right))
	buf = append(buf, left...)
	buf = append(buf, right...)
	return crypto.Keccak256(buf)
}

// RootHash returns the tree's current root hash.
func (t *SparseMerkleTree) RootHash() []byte { return append([]byte(nil), t.rootHash...) }

func storeKey(nodeHash []byte) []byte { return nodeHash }

func keyBit(key []byte, i int) bool {
	return key[i/8]&(1<<(7-uint(i%8))) != 0
}

// Get returns the value stored at key, or the tree's canonical empty value
// (nil) if key has never been set.
func (t *SparseMerkleTree) Get(key []byte) ([]byte, error) {
	if len(key) != t.keySize {
		return nil, fmt.Errorf("smt: key must be %d bytes, got %d", t.keySize, len(key))
	}
	return t.get(t.rootHash, key, 0)
}

func (t *SparseMerkleTree) get(nodeHash, key []byte, depthFromRoot int) ([]byte, error) {
	if bytes.Equal(nodeHash, t.emptyHash[t.depth-depthFromRoot]) {
		return nil, nil
	}
	if depthFromRoot == t.depth {
		blob, err := t.db.Get(storeKey(nodeHash))
		if err != nil {
			return nil, err
		}
		return blob, nil
	}
	blob, err := t.db.Get(storeKey(nodeHash))
	if err != nil {
		return nil, err
	}
	left, right := blob[:32], blob[32:]
	if keyBit(key, depthFromRoot) {
		return t.get(right, key, depthFromRoot+1)
	}
	return t.get(left, key, depthFromRoot+1)
}

// Exists reports whether key has an explicitly set value.
func (t *SparseMerkleTree) Exists(key []byte) (bool, error) {
	v, err := t.Get(key)
	return v != nil, err
}

// Set writes value at key (an empty value deletes it back to the canonical
// empty leaf), updating the root hash and persisting every newly created
// internal node along the path.
func (t *SparseMerkleTree) Set(key, value []byte) error {
	if len(key) != t.keySize {
		return fmt.Errorf("smt: key must be %d bytes, got %d", t.keySize, len(key))
	}
	newRoot, err := t.set(t.rootHash, key, value, 0)
	if err != nil {
		return err
	}
	t.rootHash = newRoot
	return nil
}

func (t *SparseMerkleTree) set(nodeHash, key, value []byte, depthFromRoot int) ([]byte, error) {
	if depthFromRoot == t.depth {
		if len(value) == 0 {
			return append([]byte(nil), t.emptyHash[0]...), nil
		}
		h := crypto.Keccak256(value)
		if err := t.db.Put(storeKey(h), value); err != nil {
			return nil, err
		}
		return h, nil
	}

	var left, right []byte
	if bytes.Equal(nodeHash, t.emptyHash[t.depth-depthFromRoot]) {
		left = append([]byte(nil), t.emptyHash[t.depth-depthFromRoot-1]...)
		right = append([]byte(nil), t.emptyHash[t.depth-depthFromRoot-1]...)
	} else {
		blob, err := t.db.Get(storeKey(nodeHash))
		if err != nil {
			return nil, err
		}
		left, right = append([]byte(nil), blob[:32]...), append([]byte(nil), blob[32:]...)
	}

	var err error
	if keyBit(key, depthFromRoot) {
		right, err = t.set(right, key, value, depthFromRoot+1)
	} else {
		left, err = t.set(left, key, value, depthFromRoot+1)
	}
	if err != nil {
		return nil, err
	}

	newHash := hashPair(left, right)
	if bytes.Equal(newHash, t.emptyHash[t.depth-depthFromRoot]) {
		return newHash, nil
	}
	body := make([]byte, 0, 64)
	body = append(body, left...)
	body = append(body, right...)
	if err := t.db.Put(storeKey(newHash), body); err != nil {
		return nil, err
	}
	return newHash, nil
}

// Delete removes key's value, equivalent to Set(key, nil).
func (t *SparseMerkleTree) Delete(key []byte) error {
	return t.Set(key, nil)
}

// Branch returns the sibling hash at each of the depth levels, in root-to-leaf
// order (index 0 is the sibling just below the root), the authentication path
// used by SparseMerkleProof.
func (t *SparseMerkleTree) Branch(key []byte) ([][]byte, error) {
	if len(key) != t.keySize {
		return nil, fmt.Errorf("smt: key must be %d bytes, got %d", t.keySize, len(key))
	}
	siblings := make([][]byte, t.depth)
	node := t.rootHash
	for depthFromRoot := 0; depthFromRoot < t.depth; depthFromRoot++ {
		if bytes.Equal(node, t.emptyHash[t.depth-depthFromRoot]) {
			for d := depthFromRoot; d < t.depth; d++ {
				siblings[d] = append([]byte(nil), t.emptyHash[t.depth-d-1]...)
			}
			return siblings, nil
		}
		blob, err := t.db.Get(storeKey(node))
		if err != nil {
			return nil, err
		}
		left, right := blob[:32], blob[32:]
		if keyBit(key, depthFromRoot) {
			siblings[depthFromRoot] = append([]byte(nil), left...)
			node = right
		} else {
			siblings[depthFromRoot] = append([]byte(nil), right...)
			node = left
		}
	}
	return siblings, nil
}

// Package trie implements a persistent, content-addressed hexary Merkle
// Patricia Trie: a radix-16 prefix tree whose node hashes are keccak256 of
// their RLP encoding, mirroring go-ethereum's trie package but generalized
// with explicit structural traversal, reference-counted pruning, and ordered
// iteration over a possibly-partial local copy of the tree.
package trie

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// ErrReadOnly is returned by a mutating operation on a trie constructed via
// AtRoot: a snapshot exists to let a reader inspect a prior root concurrently
// with a different handle mutating the same store, and allowing writes
// through it would defeat that isolation.
var ErrReadOnly = errors.New("trie: snapshot opened with AtRoot is read-only")

// BlankNodeHash is the hash of the empty trie: keccak256(rlp.encode(b"")).
var BlankNodeHash = crypto.Keccak256(nodeToBytes(nil))

// HexaryTrie is a radix-16 Merkle Patricia Trie over an arbitrary
// KeyValueStore. The zero value is not usable; construct with New.
type HexaryTrie struct {
	db   KeyValueStore
	root node

	// rootHash is kept in sync with root; BlankNodeHash means the blank trie.
	rootHash []byte

	prune *pruner

	// superseded collects the hash of every stored node that the in-flight
	// Set or Delete call has replaced with a new version, so persist's
	// pending-prune scope can dereference exactly the nodes this mutation
	// actually made unreachable. Cleared at the end of each persist call.
	superseded [][]byte

	// readOnly is set on snapshots returned by AtRoot: Set/Delete/Commit all
	// reject on a read-only handle rather than silently let a second writer
	// race the trie that actually owns the store's mutation.
	readOnly bool

	// changes accumulates every node inserted or pruned by Set/Delete since
	// construction or the last CommitWithChangeSet call.
	changes *changeSet
}

// New constructs a trie over db, rooted at rootHash. A nil or blank rootHash
// starts an empty trie. Construction never touches db: rootHash is kept as an
// unresolved hashNode until something actually reads or writes through it, so
// a missing root surfaces through whichever API first resolves it — Get/Set
// return *MissingTrieNode, Traverse returns *MissingTraversalNode — rather
// than a third, construction-only error shape. This also means the first
// mutation that touches the root goes through insert/delete's hashNode case
// like any other resolved reference, correctly recording the root's hash as
// superseded if it changes, the same bookkeeping every non-root node gets.
func New(db KeyValueStore, rootHash []byte) (*HexaryTrie, error) {
	t := &HexaryTrie{db: db, changes: newChangeSet()}
	t.prune = newPruner(db)
	if len(rootHash) == 0 || bytes.Equal(rootHash, BlankNodeHash) {
		t.rootHash = BlankNodeHash
		return t, nil
	}
	t.root = hashNode(append([]byte(nil), rootHash...))
	t.rootHash = append([]byte(nil), rootHash...)
	return t, nil
}

// AtRoot returns a read-only snapshot of t's backing store at rootHash,
// letting a caller inspect a prior root (e.g. one returned by an earlier
// Set/Delete) without disturbing t's own in-progress mutation. It is
// rejected while t holds an open pending-prune scope, since a concurrent
// persist could delete a node the snapshot still needs before the snapshot
// ever reads it.
func (t *HexaryTrie) AtRoot(rootHash []byte) (*HexaryTrie, error) {
	if t.prune.InScope() {
		return nil, errors.New("trie: at_root is rejected while the parent trie is pruning")
	}
	snap, err := New(t.db, rootHash)
	if err != nil {
		return nil, err
	}
	snap.readOnly = true
	return snap, nil
}

// SetPruning toggles whether persist actually deletes nodes that drop to a
// zero reference count. It is enabled by default; a squash_changes scope
// wanting every previously committed root to stay reachable (the
// "without pruning" half of that operation's contract) disables it on the
// inner trie before its Set/Delete calls run.
func (t *HexaryTrie) SetPruning(enabled bool) { t.prune.SetPruning(enabled) }

// RootHash returns the current root hash, computing and caching it if any
// mutation has happened since it was last read.
func (t *HexaryTrie) RootHash() []byte {
	t.hashRoot()
	return append([]byte(nil), t.rootHash...)
}

func (t *HexaryTrie) hashRoot() {
	if t.root == nil {
		t.rootHash = BlankNodeHash
		return
	}
	h := newHasher(false)
	defer returnHasherToPool(h)
	hashed, cached := h.hash(t.root, true)
	t.root = cached
	t.rootHash = append([]byte(nil), hashed.(hashNode)...)
}

// Get returns the value stored at key, or nil if key is absent. Nodes it
// resolves from the store are not kept in t.root.
func (t *HexaryTrie) Get(key []byte) ([]byte, error) {
	v, _, _, err := t.get(t.root, keybytesToHex(key), 0)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Exists reports whether key has an associated value.
func (t *HexaryTrie) Exists(key []byte) (bool, error) {
	v, err := t.Get(key)
	if err != nil {
		return false, err
	}
	return v != nil, nil
}

func (t *HexaryTrie) get(origNode node, key []byte, pos int) (value []byte, newnode node, didResolve bool, err error) {
	switch n := origNode.(type) {
	case nil:
		return nil, nil, false, nil
	case valueNode:
		return n, n, false, nil
	case *shortNode:
		if len(key)-pos < len(n.Key) || !bytes.Equal(n.Key, key[pos:pos+len(n.Key)]) {
			return nil, n, false, nil
		}
		value, newnode, didResolve, err = t.get(n.Val, key, pos+len(n.Key))
		if err == nil && didResolve {
			n = n.copy()
			n.Val = newnode
		}
		return value, n, didResolve, err
	case *fullNode:
		value, newnode, didResolve, err = t.get(n.Children[key[pos]], key, pos+1)
		if err == nil && didResolve {
			n = n.copy()
			n.Children[key[pos]] = newnode
		}
		return value, n, didResolve, err
	case hashNode:
		child, err := t.resolveHash(n, key[:pos])
		if err != nil {
			return nil, n, true, err
		}
		value, newnode, _, err := t.get(child, key, pos)
		return value, newnode, true, err
	default:
		panic(fmt.Sprintf("get: unreachable node kind %s (%v)", nodeTypeName(origNode), origNode))
	}
}

func (t *HexaryTrie) resolveHash(n hashNode, prefix []byte) (node, error) {
	blob, err := t.db.Get(n)
	if err != nil || blob == nil {
		return nil, &MissingTrieNode{NodeHash: n, RootHash: t.rootHash, Prefix: prefix}
	}
	dec, err := decodeNode(n, blob)
	if err != nil {
		return nil, err
	}
	return dec, nil
}

// Set associates key with value, creating or rewriting nodes as required. All
// store writes this produces, and the pruning of whatever value previously
// occupied key, happen before Set returns: there is no separate flush step.
func (t *HexaryTrie) Set(key, value []byte) error {
	if t.readOnly {
		return ErrReadOnly
	}
	k := keybytesToHex(key)
	if len(value) != 0 {
		_, n, err := t.insert(t.root, nil, k, valueNode(value))
		if err != nil {
			t.superseded = nil
			return err
		}
		t.root = n
	} else {
		_, n, err := t.delete(t.root, nil, k)
		if err != nil {
			t.superseded = nil
			return err
		}
		t.root = n
	}
	return t.persist()
}

func (t *HexaryTrie) insert(n node, prefix, key []byte, value node) (bool, node, error) {
	if len(key) == 0 {
		if v, ok := n.(valueNode); ok {
			return !bytes.Equal(v, value.(valueNode)), value, nil
		}
		return true, value, nil
	}
	switch n := n.(type) {
	case *shortNode:
		matchlen := prefixLen(key, n.Key)
		if matchlen == len(n.Key) {
			dirty, nn, err := t.insert(n.Val, append(prefix, key[:matchlen]...), key[matchlen:], value)
			if !dirty || err != nil {
				return false, n, err
			}
			return true, &shortNode{n.Key, nn, nodeFlag{dirty: true}}, nil
		}
		branch := &fullNode{flags: nodeFlag{dirty: true}}
		var err error
		_, branch.Children[n.Key[matchlen]], err = t.insert(nil, append(prefix, n.Key[:matchlen+1]...), n.Key[matchlen+1:], n.Val)
		if err != nil {
			return false, nil, err
		}
		_, branch.Children[key[matchlen]], err = t.insert(nil, append(prefix, key[:matchlen+1]...), key[matchlen+1:], value)
		if err != nil {
			return false, nil, err
		}
		if matchlen == 0 {
			return true, branch, nil
		}
		return true, &shortNode{key[:matchlen], branch, nodeFlag{dirty: true}}, nil

	case *fullNode:
		dirty, nn, err := t.insert(n.Children[key[0]], append(prefix, key[0]), key[1:], value)
		if !dirty || err != nil {
			return false, n, err
		}
		n = n.copy()
		n.flags = nodeFlag{dirty: true}
		n.Children[key[0]] = nn
		return true, n, nil

	case nil:
		return true, &shortNode{key, value, nodeFlag{dirty: true}}, nil

	case hashNode:
		rn, err := t.resolveHash(n, prefix)
		if err != nil {
			return false, nil, err
		}
		dirty, nn, err := t.insert(rn, prefix, key, value)
		if !dirty || err != nil {
			return false, n, err
		}
		t.superseded = append(t.superseded, append([]byte(nil), n...))
		return true, nn, nil

	default:
		panic(fmt.Sprintf("insert: unreachable node kind %s (%v)", nodeTypeName(n), n))
	}
}

// Delete removes key's value, a no-op if it is already absent. As with Set,
// every store write and prune this produces completes before Delete returns.
func (t *HexaryTrie) Delete(key []byte) error {
	if t.readOnly {
		return ErrReadOnly
	}
	k := keybytesToHex(key)
	_, n, err := t.delete(t.root, nil, k)
	if err != nil {
		t.superseded = nil
		return err
	}
	t.root = n
	return t.persist()
}

func (t *HexaryTrie) delete(n node, prefix, key []byte) (bool, node, error) {
	switch n := n.(type) {
	case *shortNode:
		matchlen := prefixLen(key, n.Key)
		if matchlen < len(n.Key) {
			return false, n, nil
		}
		if matchlen == len(key) {
			return true, nil, nil
		}
		dirty, child, err := t.delete(n.Val, append(prefix, key[:len(n.Key)]...), key[len(n.Key):])
		if !dirty || err != nil {
			return false, n, err
		}
		switch child := child.(type) {
		case *shortNode:
			return true, &shortNode{concat(n.Key, child.Key...), child.Val, nodeFlag{dirty: true}}, nil
		default:
			return true, &shortNode{n.Key, child, nodeFlag{dirty: true}}, nil
		}

	case *fullNode:
		dirty, nn, err := t.delete(n.Children[key[0]], append(prefix, key[0]), key[1:])
		if !dirty || err != nil {
			return false, n, err
		}
		n = n.copy()
		n.flags = nodeFlag{dirty: true}
		n.Children[key[0]] = nn

		pos := -1
		for i, cld := range &n.Children {
			if cld != nil {
				if pos == -1 {
					pos = i
				} else {
					pos = -2
					break
				}
			}
		}
		if pos >= 0 {
			if pos != 16 {
				cnode, err := t.resolve(n.Children[pos], append(prefix, byte(pos)))
				if err != nil {
					return false, nil, err
				}
				if cnode, ok := cnode.(*shortNode); ok {
					// the stored child is merged into its parent and so replaced.
					if hn, ok := n.Children[pos].(hashNode); ok {
						t.superseded = append(t.superseded, append([]byte(nil), hn...))
					}
					k := append([]byte{byte(pos)}, cnode.Key...)
					return true, &shortNode{k, cnode.Val, nodeFlag{dirty: true}}, nil
				}
			}
			return true, &shortNode{[]byte{byte(pos)}, n.Children[pos], nodeFlag{dirty: true}}, nil
		}
		return true, n, nil

	case valueNode:
		return true, nil, nil

	case nil:
		return false, nil, nil

	case hashNode:
		rn, err := t.resolveHash(n, prefix)
		if err != nil {
			return false, nil, err
		}
		dirty, nn, err := t.delete(rn, prefix, key)
		if !dirty || err != nil {
			return false, n, err
		}
		t.superseded = append(t.superseded, append([]byte(nil), n...))
		return true, nn, nil

	default:
		panic(fmt.Sprintf("delete: unreachable node kind %s (%v) at key %x", nodeTypeName(n), n, key))
	}
}

func (t *HexaryTrie) resolve(n node, prefix []byte) (node, error) {
	if hn, ok := n.(hashNode); ok {
		return t.resolveHash(hn, prefix)
	}
	return n, nil
}

func concat(s1 []byte, s2 ...byte) []byte {
	r := make([]byte, len(s1)+len(s2))
	copy(r, s1)
	copy(r[len(s1):], s2)
	return r
}

package trie

import (
	"github.com/trieup/hexatrie/fog"
)

// NodeIterator walks a trie's keys in ascending order, tracking progress
// with a HexaryTrieFog so that a partially-synced trie (one missing some
// subtrees locally) can be resumed later from exactly where it left off.
type NodeIterator struct {
	t     *HexaryTrie
	fog   fog.HexaryTrieFog
	cache *fog.TrieFrontierCache

	key   []byte
	value []byte
	err   error
}

// NewNodeIterator returns an iterator over t starting from an empty fog
// (nothing yet explored).
func NewNodeIterator(t *HexaryTrie) *NodeIterator {
	return &NodeIterator{t: t, fog: fog.New(), cache: fog.NewFrontierCache()}
}

// ResumeNodeIterator returns an iterator that continues from state: only the
// prefixes state still lists as unexplored are walked, so a prior walk's
// progress isn't repeated.
func ResumeNodeIterator(t *HexaryTrie, state fog.HexaryTrieFog) *NodeIterator {
	return &NodeIterator{t: t, fog: state, cache: fog.NewFrontierCache()}
}

// Key returns the key nibbles were last advanced to.
func (it *NodeIterator) Key() []byte { return hexToKeybytesSafe(it.key) }

// Value returns the value at the current key.
func (it *NodeIterator) Value() []byte { return it.value }

// Err returns the error, if any, that stopped iteration.
func (it *NodeIterator) Err() error { return it.err }

// Fog returns the iterator's current exploration state, suitable for
// persisting and resuming later via ResumeNodeIterator.
func (it *NodeIterator) Fog() fog.HexaryTrieFog { return it.fog }

func hexToKeybytesSafe(hex []byte) []byte {
	if len(hex) == 0 {
		return nil
	}
	return hexToKeybytes(append(append([]byte(nil), hex...), terminator))
}

// Next advances to the next key in ascending order, exploring nodes from the
// trie as needed and folding the discovered sub-segments into the fog. It
// returns false once the trie is exhausted or an error occurs (check Err).
func (it *NodeIterator) Next() bool {
	for {
		prefix, ok := it.nextCandidate()
		if !ok {
			return false
		}
		desc, err := it.t.Traverse(prefix)
		if err != nil {
			if _, ok := err.(*TraversedPartialPath); ok {
				it.fog = it.fog.Explore(prefix, nil)
				continue
			}
			it.err = err
			return false
		}
		it.fog = it.fog.Explore(prefix, desc.SubSegments)
		if desc.Kind == KindLeaf || (desc.Kind == KindBranch && desc.Value != nil) {
			key := append(append([]byte(nil), prefix...), desc.Suffix...)
			it.key = key
			it.value = desc.Value
			return true
		}
	}
}

// nextCandidate returns the next unexplored prefix at or after the current
// key, the driving loop of ascending iteration.
func (it *NodeIterator) nextCandidate() ([]byte, bool) {
	if it.fog.IsComplete() {
		return nil, false
	}
	after := append(append([]byte(nil), it.key...), 0)
	if len(it.key) == 0 {
		return it.fog.Unexplored()[0], true
	}
	return it.fog.NearestRight(after)
}

// All drains the iterator, returning every (key, value) pair in ascending
// order.
func (it *NodeIterator) All() (keys, values [][]byte, err error) {
	for it.Next() {
		keys = append(keys, append([]byte(nil), it.Key()...))
		values = append(values, append([]byte(nil), it.Value()...))
	}
	return keys, values, it.Err()
}

// Package fog tracks which prefixes of a hexary trie have and haven't been
// explored yet, letting a sync or iteration process resume a partial walk
// without rescanning completed subtrees. A HexaryTrieFog is immutable: every
// mutating-looking method returns a new value, the same persistent-structure
// discipline the trie package itself follows.
package fog

import (
	"bytes"
	"fmt"
	"sort"
)

// HexaryTrieFog tracks the set of nibble prefixes whose subtree has not yet
// been fully explored. It starts out covering the whole key space (the
// single prefix []) and shrinks, prefix by prefix, as Explore is called with
// the sub-segments discovered under each visited node.
type HexaryTrieFog struct {
	unexplored [][]byte // kept sorted, lexicographically by nibble
}

// New returns a fog covering the entire trie: nothing has been explored yet.
func New() HexaryTrieFog {
	return HexaryTrieFog{unexplored: [][]byte{{}}}
}

// IsComplete reports whether every prefix has been explored.
func (f HexaryTrieFog) IsComplete() bool {
	return len(f.unexplored) == 0
}

// Unexplored returns the current set of unexplored prefixes, in ascending
// order. The returned slices must not be mutated by the caller.
func (f HexaryTrieFog) Unexplored() [][]byte {
	return f.unexplored
}

func (f HexaryTrieFog) indexOf(prefix []byte) int {
	return sort.Search(len(f.unexplored), func(i int) bool {
		return bytes.Compare(f.unexplored[i], prefix) >= 0
	})
}

// Explore consumes the prefix that led to a node and replaces it with that
// node's still-unexplored sub-segments (children not yet visited), each
// expressed as a full prefix from the root (parentPrefix + sub-segment). It
// panics if prefix is not currently tracked as unexplored, the same
// precondition violation py-trie's fog.py raises on.
func (f HexaryTrieFog) Explore(prefix []byte, subSegments [][]byte) HexaryTrieFog {
	i := f.indexOf(prefix)
	if i >= len(f.unexplored) || !bytes.Equal(f.unexplored[i], prefix) {
		panic(fmt.Sprintf("fog: %x is not a tracked unexplored prefix", prefix))
	}
	next := make([][]byte, 0, len(f.unexplored)-1+len(subSegments))
	next = append(next, f.unexplored[:i]...)
	for _, seg := range subSegments {
		child := make([]byte, 0, len(prefix)+len(seg))
		child = append(child, prefix...)
		child = append(child, seg...)
		next = append(next, child)
	}
	next = append(next, f.unexplored[i+1:]...)
	sort.Slice(next, func(a, b int) bool { return bytes.Compare(next[a], next[b]) < 0 })
	return HexaryTrieFog{unexplored: next}
}

// MarkAllComplete removes prefix (and, since every prefix under it is by
// definition a more-specific unexplored entry or doesn't exist, this call
// alone suffices) from the unexplored set, used when a whole subtree is
// known complete without being walked node by node (e.g. it hashes to an
// already-known root).
func (f HexaryTrieFog) MarkAllComplete(prefix []byte) HexaryTrieFog {
	next := make([][]byte, 0, len(f.unexplored))
	for _, u := range f.unexplored {
		if !bytes.HasPrefix(u, prefix) {
			next = append(next, u)
		}
	}
	return HexaryTrieFog{unexplored: next}
}

// NearestUnknown returns the unexplored prefix with the minimum directional
// distance to key: the bisect neighbors of key among the unexplored prefixes
// are compared by prefixDistance, and the closer one wins, ties going to the
// right-hand neighbor. Returns false if the fog is complete.
func (f HexaryTrieFog) NearestUnknown(key []byte) ([]byte, bool) {
	if len(f.unexplored) == 0 {
		return nil, false
	}
	index := f.indexOf(key)
	if index == 0 {
		return f.unexplored[0], true
	}
	if index == len(f.unexplored) {
		return f.unexplored[len(f.unexplored)-1], true
	}
	nearestLeft := f.unexplored[index-1]
	nearestRight := f.unexplored[index]
	leftDistance := prefixDistance(nearestLeft, key)
	rightDistance := prefixDistance(key, nearestRight)
	if lessDistance(leftDistance, rightDistance) {
		return nearestLeft, true
	}
	return nearestRight, true
}

// NearestRight returns the leftmost unexplored prefix that is >= key in
// nibble order, used to resume a left-to-right walk after key.
func (f HexaryTrieFog) NearestRight(key []byte) ([]byte, bool) {
	i := f.indexOf(key)
	if i < len(f.unexplored) {
		return f.unexplored[i], true
	}
	return nil, false
}

// prefixDistance measures how far low is from high, as a sequence of signed
// per-position differences: low is implicitly padded with trailing nibble
// 0xF and high with trailing nibble 0x0 past its own length, mirroring the
// (fillvalue=None -> 15/0) padding in py-trie's _prefix_distance. high is
// expected to sort at or above low; the result is only meaningful compared
// against another prefixDistance via lessDistance, not read as a magnitude.
func prefixDistance(low, high []byte) []int {
	n := len(low)
	if len(high) > n {
		n = len(high)
	}
	dist := make([]int, n)
	for i := 0; i < n; i++ {
		lo, hi := 15, 0
		if i < len(low) {
			lo = int(low[i])
		}
		if i < len(high) {
			hi = int(high[i])
		}
		dist[i] = hi - lo
	}
	return dist
}

// lessDistance compares two prefixDistance results component-wise,
// left-to-right: the first differing position decides, and if one is a
// prefix of the other the shorter (fewer trailing comparisons) counts as
// closer.
func lessDistance(a, b []int) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// Serialize renders the unexplored set as a flat, sorted list of
// hex-nibble-encoded strings (one character per nibble), suitable for
// persisting sync-resume state.
func (f HexaryTrieFog) Serialize() []string {
	out := make([]string, len(f.unexplored))
	for i, u := range f.unexplored {
		s := make([]byte, len(u))
		for j, nib := range u {
			s[j] = "0123456789abcdef"[nib&0xf]
		}
		out[i] = string(s)
	}
	return out
}

// Deserialize rebuilds a HexaryTrieFog from the output of Serialize.
func Deserialize(entries []string) (HexaryTrieFog, error) {
	out := make([][]byte, 0, len(entries))
	for _, e := range entries {
		nibs, err := hexStringToNibbles(e)
		if err != nil {
			return HexaryTrieFog{}, err
		}
		out = append(out, nibs)
	}
	sort.Slice(out, func(a, b int) bool { return bytes.Compare(out[a], out[b]) < 0 })
	return HexaryTrieFog{unexplored: out}, nil
}

func hexStringToNibbles(s string) ([]byte, error) {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			out[i] = c - '0'
		case c >= 'a' && c <= 'f':
			out[i] = c - 'a' + 10
		default:
			return nil, fmt.Errorf("fog: invalid nibble character %q", c)
		}
	}
	return out, nil
}

package trie

import "fmt"

// MissingTrieNode is returned by a key-based operation (Get/Set/Delete) when a
// referenced child hash cannot be resolved from the backing store. The
// mutation that triggered it is rolled back; the caller is expected to supply
// the missing node and retry. Key is left empty: Get, Set and Delete do not
// record the requested key on this error.
type MissingTrieNode struct {
	NodeHash []byte
	RootHash []byte
	Key      []byte
	Prefix   []byte
}

func (e *MissingTrieNode) Error() string {
	return fmt.Sprintf(
		"missing trie node %x needed to look up key %x at prefix %x under root %x",
		e.NodeHash, e.Key, e.Prefix, e.RootHash,
	)
}

// MissingTraversalNode is the traversal-API analogue of MissingTrieNode. It
// carries less context because traverse_from may start anywhere in the trie,
// so neither the root hash nor the originally requested key are known.
type MissingTraversalNode struct {
	NodeHash        []byte
	NibblesTraversed []byte
}

func (e *MissingTraversalNode) Error() string {
	return fmt.Sprintf(
		"missing trie node %x, found when traversing down %x",
		e.NodeHash, e.NibblesTraversed,
	)
}

// TraversedPartialPath is raised by traverse/traverse_from when the requested
// prefix ends in the middle of an extension or leaf node's internal key.
// SimulatedNode reflects the logical HexaryTrieNode that would exist at the
// requested prefix, so fog-driven walkers can keep making progress.
type TraversedPartialPath struct {
	NibblesTraversed []byte
	Node             HexaryTrieNode
	UntraversedTail  []byte
	SimulatedNode    HexaryTrieNode
}

func (e *TraversedPartialPath) Error() string {
	return fmt.Sprintf("could not traverse through %v at %x", e.Node, e.NibblesTraversed)
}

// BadTrieProof is raised by GetFromProof when the supplied proof nodes are
// insufficient to resolve the requested key.
type BadTrieProof struct {
	Msg string
}

func (e *BadTrieProof) Error() string { return "bad trie proof: " + e.Msg }

// InvalidNibbles is raised when a nibble sequence cannot be converted to
// bytes (e.g. it has odd length).
type InvalidNibbles struct {
	Msg string
}

func (e *InvalidNibbles) Error() string { return "invalid nibbles: " + e.Msg }

// InvalidNode is raised when a raw node's serialized shape does not match any
// of blank/leaf/extension/branch.
type InvalidNode struct {
	Msg string
}

func (e *InvalidNode) Error() string { return "invalid node: " + e.Msg }

// ValidationError wraps input-validation failures (wrong-length hash,
// non-byte key/value) that must be raised before any state changes.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return "validation error: " + e.Msg }

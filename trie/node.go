package trie

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

var indices = []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9", "a", "b", "c", "d", "e", "f", "[17]"}

// node is the common interface of the four raw trie node shapes: blank (the
// nil node interface value), hashNode, valueNode, and the two composite
// kinds, shortNode (leaf/extension) and fullNode (branch).
type node interface {
	cache() (hashNode, bool)
	encode(w rlp.EncoderBuffer)
	fstring(string) string
}

type (
	fullNode struct {
		Children [17]node // 16 nibble slots plus a value slot at index 16
		flags    nodeFlag
	}
	shortNode struct {
		Key   []byte // compact-encodable hex nibbles, with terminator iff this is a leaf
		Val   node
		flags nodeFlag
	}

	// hashNode is a 32-byte reference to a node persisted in the backing store.
	hashNode []byte

	// valueNode is a terminal value carried by a leaf or a branch's value slot.
	valueNode []byte
)

func (n *fullNode) copy() *fullNode   { c := *n; return &c }
func (n *shortNode) copy() *shortNode { c := *n; return &c }

// nodeFlag carries caching metadata: the node's hash once computed, and
// whether it still needs to be rehashed because it or a descendant changed.
type nodeFlag struct {
	hash  hashNode
	dirty bool
}

func (n *fullNode) cache() (hashNode, bool)  { return n.flags.hash, n.flags.dirty }
func (n *shortNode) cache() (hashNode, bool) { return n.flags.hash, n.flags.dirty }
func (n hashNode) cache() (hashNode, bool)   { return nil, true }
func (n valueNode) cache() (hashNode, bool)  { return nil, true }

func (n *fullNode) String() string  { return n.fstring("") }
func (n *shortNode) String() string { return n.fstring("") }
func (n hashNode) String() string   { return n.fstring("") }
func (n valueNode) String() string  { return n.fstring("") }

func (n *fullNode) fstring(ind string) string {
	resp := fmt.Sprintf("[\n%s  ", ind)
	for i, child := range &n.Children {
		if child == nil {
			resp += fmt.Sprintf("%s: <nil> ", indices[i])
		} else {
			resp += fmt.Sprintf("%s: %v", indices[i], child.fstring(ind+"  "))
		}
	}
	return resp + fmt.Sprintf("\n%s] ", ind)
}

func (n *shortNode) fstring(ind string) string {
	return fmt.Sprintf("{%x: %v} ", n.Key, n.Val.fstring(ind+"  "))
}

func (n hashNode) fstring(string) string  { return fmt.Sprintf("<%x> ", []byte(n)) }
func (n valueNode) fstring(string) string { return fmt.Sprintf("%x ", []byte(n)) }

// nodeTypeName names a raw node's kind for panic messages raised when a
// recursive walk (get/insert/delete) hits a node shape it doesn't expect at
// that position, e.g. a bare valueNode reached where only short/full/hash
// nodes are valid.
func nodeTypeName(n node) string {
	switch n.(type) {
	case nil:
		return "blank"
	case *shortNode:
		return "short"
	case *fullNode:
		return "full"
	case hashNode:
		return "hash"
	case valueNode:
		return "value"
	default:
		return fmt.Sprintf("%T", n)
	}
}

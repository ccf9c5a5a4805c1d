// Package binarytrie implements a radix-2 Merkle Patricia Trie: the same
// content-addressed, hash-linked design as the hexary trie package, but
// split on individual bits rather than nibbles. Keys are bitstrings; KV
// nodes compress a run of same-direction bits the way shortNode compresses a
// run of nibbles in the hexary trie.
package binarytrie

import (
	"errors"

	"github.com/ethereum/go-ethereum/crypto"
)

// node kind tags, prepended to a node's encoding so a raw blob can be
// classified without external context.
const (
	kvType     = 0x00
	branchType = 0x01
	leafType   = 0x02
)

// node is the common interface of the three binary trie node shapes.
type node interface {
	encode() []byte
}

// kvNode compresses a run of bits (keyPath) between two branch points (or a
// branch and a leaf); child is either another kvNode/branchNode's hash or,
// if child is itself a leaf, that leaf's hash.
type kvNode struct {
	keyPath []bool
	child   []byte
}

// branchNode is a 2-way fork: left for bit 0, right for bit 1. Either side
// may be empty (BlankHash).
type branchNode struct {
	left, right []byte
}

// leafNode stores a terminal value.
type leafNode struct {
	value []byte
}

// BlankHash is the content hash of the empty subtree.
var BlankHash = crypto.Keccak256(nil)

func (n *kvNode) encode() []byte {
	out := make([]byte, 0, 1+len(n.keyPath)/8+1+len(n.child))
	out = append(out, kvType)
	packed, bitlen := packBits(n.keyPath)
	out = append(out, byte(bitlen))
	out = append(out, packed...)
	out = append(out, n.child...)
	return out
}

func (n *branchNode) encode() []byte {
	out := make([]byte, 0, 1+len(n.left)+len(n.right))
	out = append(out, branchType)
	out = append(out, n.left...)
	out = append(out, n.right...)
	return out
}

func (n *leafNode) encode() []byte {
	out := make([]byte, 0, 1+len(n.value))
	out = append(out, leafType)
	out = append(out, n.value...)
	return out
}

// hashOf returns the persisted/lookup hash for n: the keccak of its
// encoding. Unlike the hexary trie, the binary trie never embeds small
// nodes inline — every node is content-addressed.
func hashOf(n node) []byte {
	return crypto.Keccak256(n.encode())
}

// decodeNode parses a raw stored blob back into its typed node, failing if
// the leading type tag is unrecognized or the body is malformed for that
// tag.
func decodeNode(blob []byte) (node, error) {
	if len(blob) == 0 {
		return nil, errors.New("binarytrie: empty node blob")
	}
	switch blob[0] {
	case kvType:
		if len(blob) < 2 {
			return nil, errors.New("binarytrie: truncated kv node")
		}
		bitlen := int(blob[1])
		nbytes := (bitlen + 7) / 8
		if len(blob) < 2+nbytes {
			return nil, errors.New("binarytrie: truncated kv node path")
		}
		path := unpackBits(blob[2:2+nbytes], bitlen)
		child := append([]byte(nil), blob[2+nbytes:]...)
		return &kvNode{keyPath: path, child: child}, nil
	case branchType:
		if len(blob) != 1+2*32 {
			return nil, errors.New("binarytrie: malformed branch node")
		}
		return &branchNode{
			left:  append([]byte(nil), blob[1:33]...),
			right: append([]byte(nil), blob[33:65]...),
		}, nil
	case leafType:
		return &leafNode{value: append([]byte(nil), blob[1:]...)}, nil
	default:
		return nil, errors.New("binarytrie: unrecognized node type tag")
	}
}

// packBits packs a bit sequence MSB-first into bytes, padding the final
// byte's low bits with zero, and returns the bit count alongside so the
// padding can be stripped on unpack.
func packBits(bits []bool) ([]byte, int) {
	out := make([]byte, (len(bits)+7)/8)
	for i, b := range bits {
		if b {
			out[i/8] |= 1 << (7 - uint(i%8))
		}
	}
	return out, len(bits)
}

func unpackBits(b []byte, n int) []bool {
	out := make([]bool, n)
	for i := 0; i < n; i++ {
		out[i] = b[i/8]&(1<<(7-uint(i%8))) != 0
	}
	return out
}

// bytesToBits expands a byte string into its individual bits, MSB first.
func bytesToBits(b []byte) []bool {
	bits, _ := packBitsRoundTrip(b)
	return bits
}

func packBitsRoundTrip(b []byte) ([]bool, int) {
	bits := make([]bool, len(b)*8)
	for i := range bits {
		bits[i] = b[i/8]&(1<<(7-uint(i%8))) != 0
	}
	return bits, len(bits)
}

// bitsToBytes packs a full (multiple-of-8) bit sequence back into bytes. It
// panics if the bit count isn't byte-aligned, since a complete trie key
// path always is.
func bitsToBytes(bits []bool) []byte {
	if len(bits)%8 != 0 {
		panic("binarytrie: bit sequence is not byte-aligned")
	}
	out, _ := packBits(bits)
	return out
}

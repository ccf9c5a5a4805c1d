package trie

import (
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// hasher computes the content hash of a node tree, replacing any node whose
// encoded form is 32 bytes or longer with its hash and leaving everything
// smaller inline in its parent; writing to the store is left to store(). A hasher is not safe for concurrent use; one is pulled from
// hasherPool per call site and returned when done.
type hasher struct {
	sha      keccakState
	tmp      []byte
	encbuf   rlp.EncoderBuffer
	parallel bool
}

// keccakState is the subset of hash.Hash the go-ethereum keccak
// implementation exposes, letting Read reuse internal state without an
// allocation on every call.
type keccakState interface {
	Write(p []byte) (n int, err error)
	Read(p []byte) (n int, err error)
	Sum(b []byte) []byte
	Reset()
}

var hasherPool = sync.Pool{
	New: func() interface{} {
		return &hasher{
			tmp:    make([]byte, 0, 550),
			sha:    crypto.NewKeccakState(),
			encbuf: rlp.NewEncoderBuffer(nil),
		}
	},
}

func newHasher(parallel bool) *hasher {
	h := hasherPool.Get().(*hasher)
	h.parallel = parallel
	return h
}

func returnHasherToPool(h *hasher) {
	hasherPool.Put(h)
}

// hash collapses n into its (possibly cached) hash and returns the
// replacement node to store in the parent: a cached/updated copy if dirty
// tracking is in play, or n itself for leaves that carry no cache.
func (h *hasher) hash(n node, force bool) (hashed node, cached node) {
	if hn, dirty := n.cache(); hn != nil {
		if !dirty {
			return hn, n
		}
	}
	switch n := n.(type) {
	case *shortNode:
		collapsed, cached := h.hashShortNodeChildren(n)
		hashed := h.shortnodeToHash(collapsed, force)
		if hn, ok := hashed.(hashNode); ok {
			cached.flags.hash = hn
		} else {
			cached.flags.hash = nil
		}
		return hashed, cached
	case *fullNode:
		collapsed, cached := h.hashFullNodeChildren(n)
		hashed = h.fullnodeToHash(collapsed, force)
		if hn, ok := hashed.(hashNode); ok {
			cached.flags.hash = hn
		} else {
			cached.flags.hash = nil
		}
		return hashed, cached
	default:
		return n, n
	}
}

func (h *hasher) hashShortNodeChildren(n *shortNode) (collapsed, cached *shortNode) {
	collapsed, cached = n.copy(), n.copy()
	switch n.Val.(type) {
	case *fullNode, *shortNode:
		collapsed.Val, cached.Val = h.hash(n.Val, false)
	}
	return collapsed, cached
}

func (h *hasher) hashFullNodeChildren(n *fullNode) (collapsed, cached *fullNode) {
	cached = n.copy()
	collapsed = n.copy()
	for i := 0; i < 16; i++ {
		if child := n.Children[i]; child != nil {
			collapsed.Children[i], cached.Children[i] = h.hash(child, false)
		}
	}
	return collapsed, cached
}

// shortnodeToHash and fullnodeToHash encode n and return the encoding if it's
// smaller than the size of a hash, or its hash otherwise. Small nodes are
// kept embedded in their parent rather than being given their own entry in
// the backing store, the same inline-vs-reference rule the encoder's
// 32-byte threshold enforces.
func (h *hasher) shortnodeToHash(n *shortNode, force bool) node {
	h.encbuf.Reset(nil)
	n.encode(h.encbuf)
	enc := h.encodedBytes()
	if len(enc) < 32 && !force {
		return n // the node is small; don't hash it, embed it as a literal
	}
	return h.hashData(enc)
}

func (h *hasher) fullnodeToHash(n *fullNode, force bool) node {
	h.encbuf.Reset(nil)
	n.encode(h.encbuf)
	enc := h.encodedBytes()
	if len(enc) < 32 && !force {
		return n
	}
	return h.hashData(enc)
}

func (h *hasher) encodedBytes() []byte {
	h.tmp = h.encbuf.AppendToBytes(h.tmp[:0])
	return h.tmp
}

func (h *hasher) hashData(data []byte) hashNode {
	n := make(hashNode, 32)
	h.sha.Reset()
	h.sha.Write(data)
	h.sha.Read(n)
	return n
}

// proofHash returns both the collapsed literal form of a node (children
// hashed or embedded) regardless of its size, and its hash-or-embedded form
// under the usual 32-byte rule.
func (h *hasher) proofHash(original node) (collapsed, hashed node) {
	switch n := original.(type) {
	case *shortNode:
		sn, _ := h.hashShortNodeChildren(n)
		return sn, h.shortnodeToHash(sn, false)
	case *fullNode:
		fn, _ := h.hashFullNodeChildren(n)
		return fn, h.fullnodeToHash(fn, false)
	default:
		return n, n
	}
}

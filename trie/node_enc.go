package trie

import "github.com/ethereum/go-ethereum/rlp"

// nodeToBytes serializes a raw node using the external recursive-list codec.
// Blank nodes encode as the empty string, matching BLANK_NODE_HASH's
// derivation of keccak(rlp.encode(b"")).
func nodeToBytes(n node) []byte {
	w := rlp.NewEncoderBuffer(nil)
	if n == nil {
		w.WriteBytes(nil)
	} else {
		n.encode(w)
	}
	out := w.ToBytes()
	w.Flush()
	return out
}

func (n *fullNode) encode(w rlp.EncoderBuffer) {
	offset := w.List()
	for _, c := range n.Children {
		if c != nil {
			c.encode(w)
		} else {
			w.Write(rlp.EmptyString)
		}
	}
	w.ListEnd(offset)
}

// encode writes n.Key (hex nibbles in memory) in its compact form.
func (n *shortNode) encode(w rlp.EncoderBuffer) {
	offset := w.List()
	w.WriteBytes(hexToCompact(n.Key))
	if n.Val != nil {
		n.Val.encode(w)
	} else {
		w.Write(rlp.EmptyString)
	}
	w.ListEnd(offset)
}

func (n hashNode) encode(w rlp.EncoderBuffer) {
	w.WriteBytes(n)
}

func (n valueNode) encode(w rlp.EncoderBuffer) {
	w.WriteBytes(n)
}

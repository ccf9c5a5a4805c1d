package trie

import (
	"bytes"

	"github.com/ethereum/go-ethereum/crypto"
)

func cryptoKeccak(b []byte) []byte { return crypto.Keccak256(b) }

// Proof is an ordered list of RLP-encoded nodes, root first, sufficient to
// verify (or refute) the value bound to a single key without access to the
// rest of the trie.
type Proof [][]byte

// GetProof returns the nodes along the path to key, regardless of whether
// key is actually present: a caller receiving the proof for an absent key
// can use it to confirm the absence.
func (t *HexaryTrie) GetProof(key []byte) (Proof, error) {
	var proof Proof
	k := keybytesToHex(key)
	n := t.root
	for len(k) > 0 && n != nil {
		switch cur := n.(type) {
		case *shortNode:
			if prefixLen(k, cur.Key) < len(cur.Key) {
				// the diverging node is what proves the key absent.
				proof = append(proof, nodeToBytes(cur))
				n = nil
			} else {
				proof = append(proof, nodeToBytes(cur))
				k = k[len(cur.Key):]
				n = cur.Val
			}
		case *fullNode:
			proof = append(proof, nodeToBytes(cur))
			n = cur.Children[k[0]]
			k = k[1:]
		case hashNode:
			resolved, err := t.resolveHash(cur, nil)
			if err != nil {
				return nil, err
			}
			n = resolved
		case valueNode:
			n = nil
		default:
			n = nil
		}
	}
	// a value reached here is already carried inside the last node appended.
	if _, isValue := n.(valueNode); n != nil && !isValue {
		proof = append(proof, nodeToBytes(n))
	}
	return proof, nil
}

// GetFromProof verifies key's value against proof rooted at rootHash,
// without consulting any backing store. It fails with BadTrieProof if the
// supplied nodes don't chain from rootHash down to a definitive answer for
// key (present with a value, or provably absent).
func GetFromProof(rootHash, key []byte, proof Proof) ([]byte, error) {
	nodes := make(map[string]node, len(proof))
	for _, enc := range proof {
		h := cryptoKeccak(enc)
		n, err := decodeNode(h, enc)
		if err != nil {
			return nil, &BadTrieProof{Msg: err.Error()}
		}
		nodes[string(h)] = n
	}
	want := string(rootHash)
	root, ok := nodes[want]
	if !ok {
		if bytes.Equal(rootHash, BlankNodeHash) {
			return nil, nil
		}
		return nil, &BadTrieProof{Msg: "proof does not contain root node"}
	}
	k := keybytesToHex(key)
	return getFromProofNode(root, k, nodes)
}

func getFromProofNode(n node, key []byte, nodes map[string]node) ([]byte, error) {
	switch cur := n.(type) {
	case nil:
		return nil, nil
	case valueNode:
		return cur, nil
	case *shortNode:
		if len(key) < len(cur.Key) || !bytes.Equal(cur.Key, key[:len(cur.Key)]) {
			return nil, nil // divergence proves absence
		}
		return getFromProofNode(cur.Val, key[len(cur.Key):], nodes)
	case *fullNode:
		if len(key) == 0 {
			if v, ok := cur.Children[16].(valueNode); ok {
				return v, nil
			}
			return nil, nil
		}
		return getFromProofNode(cur.Children[key[0]], key[1:], nodes)
	case hashNode:
		child, ok := nodes[string(cur)]
		if !ok {
			return nil, &BadTrieProof{Msg: "proof missing node needed to resolve key"}
		}
		return getFromProofNode(child, key, nodes)
	default:
		return nil, &BadTrieProof{Msg: "unexpected node type in proof"}
	}
}

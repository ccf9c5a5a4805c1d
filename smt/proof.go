package smt

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// SparseMerkleProof authenticates a single (key, value) pair against a root
// hash: value (the empty value if proving absence) plus the sibling hash at
// each depth, in root-to-leaf order.
type SparseMerkleProof struct {
	Key      []byte
	Value    []byte
	Branch   [][]byte
	RootHash []byte
}

// Prove builds a SparseMerkleProof for key against t's current root.
func (t *SparseMerkleTree) Prove(key []byte) (*SparseMerkleProof, error) {
	value, err := t.Get(key)
	if err != nil {
		return nil, err
	}
	branch, err := t.Branch(key)
	if err != nil {
		return nil, err
	}
	return &SparseMerkleProof{
		Key:      append([]byte(nil), key...),
		Value:    append([]byte(nil), value...),
		Branch:   branch,
		RootHash: t.RootHash(),
	}, nil
}

// CalcRoot recomputes the root hash implied by the proof's key, value and
// sibling branch, independent of any stored proof.RootHash. Verify should
// compare this against the root the caller actually trusts.
func (p *SparseMerkleProof) CalcRoot() []byte {
	depth := len(p.Branch)
	var node []byte
	if len(p.Value) == 0 {
		node = crypto.Keccak256(nil)
	} else {
		node = crypto.Keccak256(p.Value)
	}
	for d := depth - 1; d >= 0; d-- {
		if keyBit(p.Key, d) {
			node = hashPair(p.Branch[d], node)
		} else {
			node = hashPair(node, p.Branch[d])
		}
	}
	return node
}

// Verify reports whether the proof's own RootHash is consistent with its
// key/value/branch.
func (p *SparseMerkleProof) Verify() bool {
	return bytes.Equal(p.CalcRoot(), p.RootHash)
}

// Merge folds other into p, producing a proof for p's key against the root
// that results after other's (key, value) write is applied. Writing a
// different key can only change the hash of nodes on that key's own path,
// so only p's sibling at the depth where p.Key and other.Key diverge is
// recomputed; every sibling above it is shared ancestry untouched by the
// write, and every sibling below it belongs to a subtree the write never
// entered. This lets a light client update a held proof after observing a
// single new write without re-fetching a fresh proof from a full node.
func (p *SparseMerkleProof) Merge(other *SparseMerkleProof) (*SparseMerkleProof, error) {
	if len(p.Branch) != len(other.Branch) {
		return nil, fmt.Errorf("smt: cannot merge proofs of different depth (%d vs %d)", len(p.Branch), len(other.Branch))
	}
	depth := len(p.Branch)
	divergence := depth
	for d := 0; d < depth; d++ {
		if keyBit(p.Key, d) != keyBit(other.Key, d) {
			divergence = d
			break
		}
	}
	if bytes.Equal(p.Key, other.Key) {
		merged := &SparseMerkleProof{
			Key:      append([]byte(nil), p.Key...),
			Value:    append([]byte(nil), other.Value...),
			Branch:   append([][]byte(nil), other.Branch...),
			RootHash: other.CalcRoot(),
		}
		return merged, nil
	}

	// Below divergence, p and other occupy entirely different subtrees and
	// writing other.Key cannot have touched any node on p's path there, so
	// p's own siblings at those depths carry over unchanged. Only the
	// sibling at `divergence` itself needs recomputing, since that's the
	// subtree that now contains other's write.
	newBranch := make([][]byte, depth)
	copy(newBranch, p.Branch)

	sideHash := leafHashFrom(other)
	for d := depth - 1; d > divergence; d-- {
		if keyBit(other.Key, d) {
			sideHash = hashPair(other.Branch[d], sideHash)
		} else {
			sideHash = hashPair(sideHash, other.Branch[d])
		}
	}
	newBranch[divergence] = sideHash

	merged := &SparseMerkleProof{
		Key:    append([]byte(nil), p.Key...),
		Value:  append([]byte(nil), p.Value...),
		Branch: newBranch,
	}
	merged.RootHash = merged.CalcRoot()
	return merged, nil
}

func leafHashFrom(p *SparseMerkleProof) []byte {
	if len(p.Value) == 0 {
		return crypto.Keccak256(nil)
	}
	return crypto.Keccak256(p.Value)
}

package trie

import "fmt"

// NodeKind identifies which of the four logical node shapes a HexaryTrieNode
// describes.
type NodeKind int

const (
	KindBlank NodeKind = iota
	KindLeaf
	KindExtension
	KindBranch
)

func (k NodeKind) String() string {
	switch k {
	case KindBlank:
		return "blank"
	case KindLeaf:
		return "leaf"
	case KindExtension:
		return "extension"
	case KindBranch:
		return "branch"
	default:
		return "unknown"
	}
}

// HexaryTrieNode is the annotated view of a raw node that traverse/traverse_from
// return: the nibbles leading to each live child (sub_segments), this node's
// own value if it carries one, the suffix nibbles still consumed internally
// (a leaf or extension's key), and the raw RLP-decoded node for callers that
// need to re-derive its hash or re-encode it.
type HexaryTrieNode struct {
	SubSegments [][]byte
	Value       []byte
	Suffix      []byte
	Raw         node
	Kind        NodeKind
}

func (n HexaryTrieNode) String() string {
	return fmt.Sprintf("HexaryTrieNode{kind=%v suffix=%x value=%x segments=%v}", n.Kind, n.Suffix, n.Value, n.SubSegments)
}

// describeNode classifies a resolved raw node into its HexaryTrieNode view
// without consuming any more of a requested prefix; used once traversal has
// landed exactly on a node boundary.
func describeNode(n node) HexaryTrieNode {
	switch n := n.(type) {
	case nil:
		return HexaryTrieNode{Kind: KindBlank, Raw: n}
	case *shortNode:
		if hasTerm(n.Key) {
			return HexaryTrieNode{
				Kind:   KindLeaf,
				Suffix: n.Key[:len(n.Key)-1],
				Value:  []byte(n.Val.(valueNode)),
				Raw:    n,
			}
		}
		return HexaryTrieNode{
			Kind:        KindExtension,
			Suffix:      n.Key,
			SubSegments: [][]byte{n.Key},
			Raw:         n,
		}
	case *fullNode:
		segs := make([][]byte, 0, 16)
		for i, c := range n.Children[:16] {
			if c != nil {
				segs = append(segs, []byte{byte(i)})
			}
		}
		var val []byte
		if v, ok := n.Children[16].(valueNode); ok {
			val = []byte(v)
		}
		return HexaryTrieNode{Kind: KindBranch, SubSegments: segs, Value: val, Raw: n}
	default:
		panic(fmt.Sprintf("describeNode: unexpected raw node %T", n))
	}
}

// Traverse walks from the root along prefix (a nibble path with no
// terminator) and returns the annotated node found exactly at that prefix.
// If prefix ends partway through an extension or leaf node's internal key,
// TraversedPartialPath is returned, carrying both the node actually reached
// and a SimulatedNode describing what continuing the walk would look like.
// A prefix that diverges from a node's key, or runs on past a blank slot,
// yields the blank node.
func (t *HexaryTrie) Traverse(prefix []byte) (HexaryTrieNode, error) {
	return t.TraverseFrom(t.root, nil, prefix)
}

// TraverseFrom resumes a walk from an already-resolved node, reached after
// consuming basePath nibbles from the root, continuing along subPrefix.
// Passing t.root/nil/prefix is equivalent to Traverse(prefix).
func (t *HexaryTrie) TraverseFrom(parent node, basePath, subPrefix []byte) (HexaryTrieNode, error) {
	n, _, err := t.resolveAlong(parent, basePath, subPrefix)
	if err != nil {
		return HexaryTrieNode{}, err
	}
	return describeNode(n), nil
}

// resolveAlong walks node-to-node following subPrefix nibble-by-nibble,
// resolving hash references from the store as needed, and returns the raw
// node found once the walk lands exactly on a node boundary.
func (t *HexaryTrie) resolveAlong(n node, basePath, subPrefix []byte) (node, []byte, error) {
	path := append([]byte(nil), basePath...)
	cur := n
	remaining := subPrefix
	for {
		if hn, ok := cur.(hashNode); ok {
			resolved, err := t.resolveHash(hn, path)
			if err != nil {
				if _, ok := err.(*MissingTrieNode); ok {
					return nil, nil, &MissingTraversalNode{NodeHash: hn, NibblesTraversed: path}
				}
				return nil, nil, err
			}
			cur = resolved
			continue
		}
		if len(remaining) == 0 {
			return cur, path, nil
		}
		switch tn := cur.(type) {
		case nil:
			// nothing lives below a blank slot.
			return nil, path, nil
		case valueNode:
			return nil, nil, &MissingTraversalNode{NibblesTraversed: path}
		case *shortNode:
			m := prefixLen(tn.Key, remaining)
			if m < len(tn.Key) && m < len(remaining) {
				// prefix leaves this node's key before either ends.
				return nil, path, nil
			}
			if m < len(tn.Key) {
				// The simulated node is what cur would look like if the m
				// nibbles already matched were chopped off the front of its
				// key: same value, but reached one node "deeper" than where
				// the walk actually stopped.
				simulated := &shortNode{Key: append([]byte(nil), tn.Key[m:]...), Val: tn.Val}
				return nil, nil, &TraversedPartialPath{
					NibblesTraversed: path,
					Node:             describeNode(cur),
					UntraversedTail:  remaining[m:],
					SimulatedNode:    describeNode(simulated),
				}
			}
			path = append(path, tn.Key...)
			remaining = remaining[m:]
			cur = tn.Val
		case *fullNode:
			idx := remaining[0]
			path = append(path, idx)
			remaining = remaining[1:]
			cur = tn.Children[idx]
		default:
			return nil, nil, fmt.Errorf("resolveAlong: unexpected node %T", cur)
		}
	}
}

// RootNode returns the annotated view of the trie's root, resolving it from
// the store first if necessary.
func (t *HexaryTrie) RootNode() (HexaryTrieNode, error) {
	return t.Traverse(nil)
}

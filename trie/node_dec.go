package trie

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/rlp"
)

// decodeNode parses the serialized form of a trie node: a blank payload
// (decoded as the nil node), a 2-element list (leaf or extension, disambiguated by the terminator flag in
// the encoded key) or a 17-element list (branch). Any other shape fails with
// InvalidNode.
func decodeNode(hash, buf []byte) (node, error) {
	if len(buf) == 0 {
		return nil, nil
	}
	elems, _, err := rlp.SplitList(buf)
	if err != nil {
		return nil, &InvalidNode{Msg: fmt.Sprintf("decode error: %v", err)}
	}
	switch c, _ := rlp.CountValues(elems); c {
	case 2:
		n, err := decodeShort(hash, elems)
		return n, wrapError(err, "short")
	case 17:
		n, err := decodeFull(hash, elems)
		return n, wrapError(err, "full")
	default:
		return nil, &InvalidNode{Msg: fmt.Sprintf("invalid number of list elements: %v", c)}
	}
}

func decodeShort(hash, elems []byte) (node, error) {
	kbuf, rest, err := rlp.SplitString(elems)
	if err != nil {
		return nil, err
	}
	flag := nodeFlag{hash: hash}
	key := compactToHex(kbuf)
	if hasTerm(key) {
		val, _, err := rlp.SplitString(rest)
		if err != nil {
			return nil, &InvalidNode{Msg: fmt.Sprintf("invalid value node: %v", err)}
		}
		return &shortNode{key, valueNode(val), flag}, nil
	}
	r, _, err := decodeRef(rest)
	if err != nil {
		return nil, wrapError(err, "val")
	}
	return &shortNode{key, r, flag}, nil
}

func decodeFull(hash, elems []byte) (*fullNode, error) {
	n := &fullNode{flags: nodeFlag{hash: hash}}
	for i := 0; i < 16; i++ {
		cld, rest, err := decodeRef(elems)
		if err != nil {
			return n, wrapError(err, fmt.Sprintf("[%d]", i))
		}
		n.Children[i], elems = cld, rest
	}
	val, _, err := rlp.SplitString(elems)
	if err != nil {
		return n, err
	}
	if len(val) > 0 {
		n.Children[16] = valueNode(val)
	}
	return n, nil
}

const hashLen = 32

func decodeRef(buf []byte) (node, []byte, error) {
	kind, val, rest, err := rlp.Split(buf)
	if err != nil {
		return nil, buf, err
	}
	switch {
	case kind == rlp.List:
		if size := len(buf) - len(rest); size > hashLen {
			return nil, buf, &InvalidNode{
				Msg: fmt.Sprintf("oversized embedded node (size is %d bytes, want size < %d)", size, hashLen),
			}
		}
		n, err := decodeNode(nil, buf)
		return n, rest, err
	case kind == rlp.String && len(val) == 0:
		return nil, rest, nil
	case kind == rlp.String && len(val) == 32:
		return hashNode(val), rest, nil
	default:
		return nil, nil, &InvalidNode{Msg: fmt.Sprintf("invalid RLP string size %d (want 0 or 32)", len(val))}
	}
}

type decodeError struct {
	what  error
	stack []string
}

func wrapError(err error, ctx string) error {
	if err == nil {
		return nil
	}
	if decErr, ok := err.(*decodeError); ok {
		decErr.stack = append(decErr.stack, ctx)
		return decErr
	}
	return &decodeError{err, []string{ctx}}
}

func (err *decodeError) Error() string {
	return fmt.Sprintf("%v (decode path: %s)", err.what, strings.Join(err.stack, "<-"))
}

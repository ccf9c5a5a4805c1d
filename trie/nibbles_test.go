package trie

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeybytesHexRoundTrip(t *testing.T) {
	cases := [][]byte{
		nil,
		{0x00},
		{0xff},
		[]byte("what floats on water?"),
		{0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef},
	}
	for _, c := range cases {
		hex := keybytesToHex(c)
		require.True(t, hasTerm(hex))
		got := hexToKeybytes(hex)
		require.True(t, bytes.Equal(got, c), "roundtrip mismatch for %x", c)
	}
}

func TestCompactHexRoundTrip(t *testing.T) {
	cases := [][]byte{
		keybytesToHex([]byte("a")),
		keybytesToHex([]byte("ab")),
		keybytesToHex([]byte("abc")),
		{0x1, 0x2, 0x3, 0x4, terminator}, // even, with terminator
		{0x1, 0x2, 0x3, 0x4},             // even, no terminator
		{0x1, 0x2, 0x3},                  // odd, no terminator
	}
	for _, hex := range cases {
		compact := hexToCompact(hex)
		back := compactToHex(compact)
		require.Equal(t, hex, back)
	}
}

func TestPrefixLen(t *testing.T) {
	require.Equal(t, 3, prefixLen([]byte{1, 2, 3, 4}, []byte{1, 2, 3, 9}))
	require.Equal(t, 0, prefixLen([]byte{1}, []byte{2}))
	require.Equal(t, 2, prefixLen([]byte{1, 2}, []byte{1, 2, 3}))
}

func TestConsumeCommonPrefix(t *testing.T) {
	common, ar, br := consumeCommonPrefix([]byte{1, 2, 3, 4}, []byte{1, 2, 9})
	require.Equal(t, []byte{1, 2}, common)
	require.Equal(t, []byte{3, 4}, ar)
	require.Equal(t, []byte{9}, br)
}

package trie

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trieup/hexatrie/fog"
	"github.com/trieup/hexatrie/store/memorydb"
)

func newIterTrie(t *testing.T, kvs map[string]string) *HexaryTrie {
	t.Helper()
	db := memorydb.New()
	tr, err := New(db, nil)
	require.NoError(t, err)
	for k, v := range kvs {
		require.NoError(t, tr.Set([]byte(k), []byte(v)))
	}
	return tr
}

func TestNodeIteratorEmptyTrie(t *testing.T) {
	tr := newIterTrie(t, nil)
	it := NewNodeIterator(tr)
	require.False(t, it.Next())
	require.NoError(t, it.Err())
}

func TestNodeIteratorSingleKey(t *testing.T) {
	tr := newIterTrie(t, map[string]string{"x": "1"})
	it := NewNodeIterator(tr)
	require.True(t, it.Next())
	require.Equal(t, []byte("x"), it.Key())
	require.Equal(t, []byte("1"), it.Value())
	require.False(t, it.Next())
}

func TestNodeIteratorAscendingSiblings(t *testing.T) {
	tr := newIterTrie(t, map[string]string{"ab": "B", "ac": "C", "ad": "D"})
	it := NewNodeIterator(tr)
	keys, values, err := it.All()
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("ab"), []byte("ac"), []byte("ad")}, keys)
	require.Equal(t, [][]byte{[]byte("B"), []byte("C"), []byte("D")}, values)
}

func TestNodeIteratorKeyThatIsPrefixOfAnother(t *testing.T) {
	tr := newIterTrie(t, map[string]string{"a": "V1", "ab": "V2"})
	it := NewNodeIterator(tr)
	keys, values, err := it.All()
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("a"), []byte("ab")}, keys)
	require.Equal(t, [][]byte{[]byte("V1"), []byte("V2")}, values)
}

func TestNodeIteratorManyKeysMatchesDirectGet(t *testing.T) {
	kvs := map[string]string{}
	for i := 0; i < 30; i++ {
		kvs[string([]byte{byte('a' + i%26), byte(i)})] = string([]byte{byte(i), byte(i + 1)})
	}
	tr := newIterTrie(t, kvs)
	it := NewNodeIterator(tr)
	keys, values, err := it.All()
	require.NoError(t, err)
	require.Len(t, keys, len(kvs))

	seen := make(map[string]bool, len(keys))
	for i, k := range keys {
		want, ok := kvs[string(k)]
		require.True(t, ok, "unexpected key %x in iteration", k)
		require.Equal(t, []byte(want), values[i])
		seen[string(k)] = true
	}
	require.Len(t, seen, len(kvs))

	for i := 1; i < len(keys); i++ {
		require.LessOrEqual(t, string(keys[i-1]), string(keys[i]))
	}
}

func TestNodeIteratorResumeFromFog(t *testing.T) {
	tr := newIterTrie(t, map[string]string{"ab": "B", "ac": "C", "ad": "D"})

	first := NewNodeIterator(tr)
	require.True(t, first.Next())
	require.Equal(t, []byte("ab"), first.Key())
	mid := first.Fog()
	require.False(t, mid.IsComplete())

	resumed := ResumeNodeIterator(tr, mid)
	var gotKeys [][]byte
	for resumed.Next() {
		gotKeys = append(gotKeys, append([]byte(nil), resumed.Key()...))
	}
	require.NoError(t, resumed.Err())
	require.Equal(t, [][]byte{[]byte("ac"), []byte("ad")}, gotKeys)
	require.True(t, resumed.Fog().IsComplete())
	require.IsType(t, fog.HexaryTrieFog{}, mid)
}

package trie

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trieup/hexatrie/store/memorydb"
)

func TestCommitWithChangeSetReportsInsertsAndPrunes(t *testing.T) {
	db := memorydb.New()
	tr, err := New(db, nil)
	require.NoError(t, err)

	long := func(tag string) []byte { return append([]byte(tag), make([]byte, 32)...) }
	require.NoError(t, tr.Set([]byte("key-one"), long("v1")))
	require.NoError(t, tr.Set([]byte("key-two"), long("v2")))

	root, cs, err := tr.CommitWithChangeSet()
	require.NoError(t, err)
	require.Equal(t, tr.RootHash(), root)
	require.NotEmpty(t, cs.Inserted())
	// Setting key-two splits the single-leaf root left by key-one, so that
	// old root is pruned inside this first drain.
	require.Len(t, cs.Deleted(), 1)
	for h := range cs.Inserted() {
		blob, err := db.Get([]byte(h))
		require.NoError(t, err)
		require.NotNil(t, blob)
	}

	// Overwriting key-one's value supersedes its old leaf; the next drained
	// changeset should report that node pruned without repeating key-two's
	// still-live nodes from the first drain.
	require.NoError(t, tr.Set([]byte("key-one"), long("v1-updated")))
	_, cs2, err := tr.CommitWithChangeSet()
	require.NoError(t, err)
	require.NotEmpty(t, cs2.Deleted())
	for h := range cs.Inserted() {
		_, stillThere := cs2.Inserted()[h]
		require.False(t, stillThere, "first drain's inserts must not reappear in the second")
	}
}

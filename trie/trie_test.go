package trie

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trieup/hexatrie/store/memorydb"
)

func newTestTrie(t *testing.T) (*HexaryTrie, *memorydb.Database) {
	t.Helper()
	db := memorydb.New()
	tr, err := New(db, nil)
	require.NoError(t, err)
	return tr, db
}

func TestEmptyTrieRootIsBlankHash(t *testing.T) {
	tr, _ := newTestTrie(t)
	require.Equal(t, BlankNodeHash, tr.RootHash())
}

func TestGetSetBasic(t *testing.T) {
	tr, _ := newTestTrie(t)
	require.NoError(t, tr.Set([]byte("key"), []byte("value")))
	v, err := tr.Get([]byte("key"))
	require.NoError(t, err)
	require.Equal(t, []byte("value"), v)

	v, err = tr.Get([]byte("missing"))
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestSetThenDeleteYieldsBlankRoot(t *testing.T) {
	tr, _ := newTestTrie(t)
	keys := [][]byte{[]byte("alpha"), []byte("beta"), []byte("gamma"), []byte("delta-is-long-enough-to-hash")}
	for _, k := range keys {
		require.NoError(t, tr.Set(k, append([]byte("value-for-"), k...)))
	}
	for _, k := range keys {
		require.NoError(t, tr.Delete(k))
	}
	require.Equal(t, BlankNodeHash, tr.RootHash())
}

func TestInsertionOrderIndependence(t *testing.T) {
	kv := map[string]string{
		"aaaa": "111111111111111111111111111111111",
		"aabb": "222222222222222222222222222222222",
		"abcd": "333333333333333333333333333333333",
		"zzzz": "444444444444444444444444444444444",
	}
	orderA := []string{"aaaa", "aabb", "abcd", "zzzz"}
	orderB := []string{"zzzz", "abcd", "aabb", "aaaa"}

	build := func(order []string) []byte {
		tr, _ := newTestTrie(t)
		for _, k := range order {
			require.NoError(t, tr.Set([]byte(k), []byte(kv[k])))
		}
		return tr.RootHash()
	}
	require.Equal(t, build(orderA), build(orderB))
}

func TestCrossBranchMissingTrieNode(t *testing.T) {
	tr, db := newTestTrie(t)
	long := bytes.Repeat([]byte("A"), 70)
	require.NoError(t, tr.Set([]byte{0x01, 0x23}, long))
	require.NoError(t, tr.Set([]byte{0x12, 0x34}, []byte("val2")))
	_, err := tr.Commit()
	require.NoError(t, err)

	root, err := tr.RootNode()
	require.NoError(t, err)
	require.Equal(t, KindBranch, root.Kind)

	// Resolve, then delete the child under nibble 0 from the backing store
	// to simulate a missing remote node.
	child0, ok := root.Raw.(*fullNode).Children[0].(hashNode)
	require.True(t, ok, "child 0 should be stored under its own hash given the long value")
	require.NoError(t, db.Delete(child0))

	fresh, err := New(db, tr.RootHash())
	require.NoError(t, err)

	_, err = fresh.Get([]byte{0x01, 0x23})
	var mtn *MissingTrieNode
	require.ErrorAs(t, err, &mtn)
	require.Equal(t, []byte(child0), mtn.NodeHash)

	v, err := fresh.Get([]byte{0x12, 0x34})
	require.NoError(t, err)
	require.Equal(t, []byte("val2"), v)
}

func TestBranchNormalizationEquivalence(t *testing.T) {
	tr, _ := newTestTrie(t)
	require.NoError(t, tr.Set([]byte("ab"), bytes.Repeat([]byte("B"), 32)))
	require.NoError(t, tr.Set([]byte("ac"), bytes.Repeat([]byte("C"), 32)))
	require.NoError(t, tr.Set([]byte("ad"), bytes.Repeat([]byte("D"), 32)))
	require.NoError(t, tr.Delete([]byte("ac")))

	fresh, _ := newTestTrie(t)
	require.NoError(t, fresh.Set([]byte("ab"), bytes.Repeat([]byte("B"), 32)))
	require.NoError(t, fresh.Set([]byte("ad"), bytes.Repeat([]byte("D"), 32)))

	require.Equal(t, fresh.RootHash(), tr.RootHash())
}

func TestAtRootSnapshotIsReadOnly(t *testing.T) {
	db := memorydb.New()
	tr, err := New(db, nil)
	require.NoError(t, err)
	require.NoError(t, tr.Set([]byte("k"), []byte("v1")))
	root, err := tr.Commit()
	require.NoError(t, err)

	snap, err := tr.AtRoot(root)
	require.NoError(t, err)
	v, err := snap.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), v)

	require.ErrorIs(t, snap.Set([]byte("k"), []byte("v2")), ErrReadOnly)
	require.ErrorIs(t, snap.Delete([]byte("k")), ErrReadOnly)
	_, err = snap.Commit()
	require.ErrorIs(t, err, ErrReadOnly)

	// the snapshot rejecting writes must not have touched tr's own state.
	v, err = tr.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), v)
}

func TestAtRootRejectedWhilePruning(t *testing.T) {
	db := memorydb.New()
	tr, err := New(db, nil)
	require.NoError(t, err)
	require.NoError(t, tr.Set([]byte("k"), []byte("v")))
	root, err := tr.Commit()
	require.NoError(t, err)

	tr.prune.BeginPrune()
	defer tr.prune.AbortPrune()

	_, err = tr.AtRoot(root)
	require.Error(t, err)
}

// TestSquashChangesWithoutPruningBothRootsReachable is spec seed scenario 1
// (the non-pruning half): overwriting the single value in a squash scope
// with pruning disabled must leave both the pre- and post-squash roots
// readable afterwards.
func TestSquashChangesWithoutPruningBothRootsReachable(t *testing.T) {
	db := memorydb.New()
	tr, err := New(db, nil)
	require.NoError(t, err)
	require.NoError(t, tr.Set([]byte("what floats on water?"), []byte("very small rocks")))
	oldRoot, err := tr.Commit()
	require.NoError(t, err)

	overlay := NewScratchOverlay(db)
	inner, err := New(overlay, oldRoot)
	require.NoError(t, err)
	inner.SetPruning(false)
	require.NoError(t, inner.Set([]byte("what floats on water?"), []byte("a duck")))
	newRoot, err := inner.Commit()
	require.NoError(t, err)
	require.NoError(t, overlay.Squash())

	atOld, err := tr.AtRoot(oldRoot)
	require.NoError(t, err)
	v, err := atOld.Get([]byte("what floats on water?"))
	require.NoError(t, err)
	require.Equal(t, []byte("very small rocks"), v)

	atNew, err := New(db, newRoot)
	require.NoError(t, err)
	v, err = atNew.Get([]byte("what floats on water?"))
	require.NoError(t, err)
	require.Equal(t, []byte("a duck"), v)
}

// TestSquashChangesWithPruningOldRootAbsent is the pruning half of the same
// scenario: with pruning left at its default (enabled), the squash must
// reclaim the superseded root, leaving it unreadable afterwards.
func TestSquashChangesWithPruningOldRootAbsent(t *testing.T) {
	db := memorydb.New()
	tr, err := New(db, nil)
	require.NoError(t, err)
	require.NoError(t, tr.Set([]byte("what floats on water?"), []byte("very small rocks")))
	oldRoot, err := tr.Commit()
	require.NoError(t, err)

	overlay := NewScratchOverlay(db)
	inner, err := New(overlay, oldRoot)
	require.NoError(t, err)
	require.NoError(t, inner.Set([]byte("what floats on water?"), []byte("a duck")))
	newRoot, err := inner.Commit()
	require.NoError(t, err)
	require.NoError(t, overlay.Squash())

	atOld, err := tr.AtRoot(oldRoot)
	require.NoError(t, err)
	_, err = atOld.Traverse(nil)
	var mtn *MissingTraversalNode
	require.ErrorAs(t, err, &mtn)

	atNew, err := New(db, newRoot)
	require.NoError(t, err)
	v, err := atNew.Get([]byte("what floats on water?"))
	require.NoError(t, err)
	require.Equal(t, []byte("a duck"), v)
}

func TestSquashChangesDiscard(t *testing.T) {
	db := memorydb.New()
	tr, err := New(db, nil)
	require.NoError(t, err)
	require.NoError(t, tr.Set([]byte("key"), []byte("value")))
	root, err := tr.Commit()
	require.NoError(t, err)
	before := db.Len()

	overlay := NewScratchOverlay(db)
	inner, err := New(overlay, root)
	require.NoError(t, err)
	require.NoError(t, inner.Set([]byte("key"), []byte("overwritten")))
	_, err = inner.Commit()
	require.NoError(t, err)
	overlay.Discard()

	require.Equal(t, before, db.Len())
	fresh, err := New(db, root)
	require.NoError(t, err)
	v, err := fresh.Get([]byte("key"))
	require.NoError(t, err)
	require.Equal(t, []byte("value"), v)
}

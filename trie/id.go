package trie

// ID identifies a trie for logging and store-namespacing purposes: which
// root it was opened at, and an optional owner key distinguishing multiple
// independent tries sharing one KeyValueStore (e.g. one per account in a
// multi-tenant store). Construct one with TrieID or StateTrieID and open it
// with NewWithID.
type ID struct {
	Root  []byte
	Owner []byte
}

// TrieID builds an ID for a trie rooted at root with no owner namespace.
func TrieID(root []byte) *ID {
	return &ID{Root: append([]byte(nil), root...)}
}

// StateTrieID builds an ID for a trie namespaced under owner: every node
// hash it stores or looks up is prefixed with owner first, so several
// owners' tries can share one KeyValueStore without their node hashes
// colliding even when two owners happen to store byte-identical subtrees.
func StateTrieID(owner, root []byte) *ID {
	return &ID{Root: append([]byte(nil), root...), Owner: append([]byte(nil), owner...)}
}

// NewWithID opens a trie identified by id, namespacing every store key under
// id.Owner when one is set. A bare TrieID (no owner) behaves exactly like
// New(db, id.Root).
func NewWithID(db KeyValueStore, id *ID) (*HexaryTrie, error) {
	store := db
	if len(id.Owner) != 0 {
		store = &ownerStore{parent: db, owner: append([]byte(nil), id.Owner...)}
	}
	return New(store, id.Root)
}

// ownerStore prefixes every key passed through it with a fixed owner tag,
// letting StateTrieID-identified tries share one underlying KeyValueStore
// (e.g. one LevelDB/Pebble instance shared across accounts) without their
// node hashes colliding.
type ownerStore struct {
	parent KeyValueStore
	owner  []byte
}

func (s *ownerStore) namespaced(key []byte) []byte {
	out := make([]byte, 0, len(s.owner)+len(key))
	out = append(out, s.owner...)
	out = append(out, key...)
	return out
}

func (s *ownerStore) Get(key []byte) ([]byte, error) { return s.parent.Get(s.namespaced(key)) }
func (s *ownerStore) Put(key, value []byte) error    { return s.parent.Put(s.namespaced(key), value) }
func (s *ownerStore) Delete(key []byte) error        { return s.parent.Delete(s.namespaced(key)) }
func (s *ownerStore) Has(key []byte) (bool, error)    { return s.parent.Has(s.namespaced(key)) }

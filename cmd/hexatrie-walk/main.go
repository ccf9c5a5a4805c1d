// Command hexatrie-walk demonstrates a fog-driven trie sync: it builds a
// trie from randomly generated key/value pairs, simulates a remote peer
// that only ever hands over one node body at a time, and drives a local
// walk to completeness using HexaryTrieFog, logging progress as it goes.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"

	"github.com/trieup/hexatrie/fog"
	"github.com/trieup/hexatrie/store/memorydb"
	"github.com/trieup/hexatrie/trie"
)

func main() {
	numKeys := flag.Int("keys", 64, "number of random key/value pairs to seed the trie with")
	seed := flag.Int64("seed", 1, "deterministic seed for generated keys/values")
	flag.Parse()

	if err := run(*numKeys, *seed); err != nil {
		log.Error("walk failed", "err", err)
		os.Exit(1)
	}
}

func run(numKeys int, seed int64) error {
	full := memorydb.New()
	source, err := trie.New(full, nil)
	if err != nil {
		return err
	}

	keys := make([][]byte, numKeys)
	values := make([][]byte, numKeys)
	rng := newLCG(seed)
	for i := range keys {
		keys[i] = randomBytes(rng, 4+int(rng.next()%28))
		values[i] = randomBytes(rng, 1+int(rng.next()%64))
		if err := source.Set(keys[i], values[i]); err != nil {
			return fmt.Errorf("seeding key %x: %w", keys[i], err)
		}
	}
	rootHash, err := source.Commit()
	if err != nil {
		return err
	}
	log.Info("built source trie", "keys", numKeys, "root", fmt.Sprintf("%x", rootHash))

	// The local copy starts out knowing only the root's hash, simulating a
	// client that must fetch every node body from the remote peer.
	local := memorydb.New()
	remoteBody := func(hash []byte) ([]byte, error) { return full.Get(hash) }

	rootBlob, err := remoteBody(rootHash)
	if err != nil {
		return err
	}
	if err := local.Put(rootHash, rootBlob); err != nil {
		return err
	}

	localTrie, err := trie.New(local, rootHash)
	if err != nil {
		return err
	}

	f := fog.New()
	fetches := 0
	for !f.IsComplete() {
		prefix, ok := f.NearestUnknown(nil)
		if !ok {
			break
		}
		desc, err := localTrie.Traverse(prefix)
		if err != nil {
			if missing, ok := err.(*trie.MissingTraversalNode); ok {
				blob, ferr := remoteBody(missing.NodeHash)
				if ferr != nil {
					return fmt.Errorf("remote has no body for %x: %w", missing.NodeHash, ferr)
				}
				if perr := local.Put(missing.NodeHash, blob); perr != nil {
					return perr
				}
				fetches++
				continue
			}
			return err
		}
		f = f.Explore(prefix, desc.SubSegments)
	}
	log.Info("walk complete", "fetches", fetches)

	it := trie.NewNodeIterator(localTrie)
	found := 0
	for it.Next() {
		found++
	}
	if err := it.Err(); err != nil {
		return err
	}
	log.Info("iteration after sync", "keys_visited", found, "keys_seeded", numKeys)
	return nil
}

// lcg is a tiny deterministic PRNG so the demo doesn't depend on the
// disallowed math/rand global seeding idioms across runs.
type lcg struct{ state uint64 }

func newLCG(seed int64) *lcg { return &lcg{state: uint64(seed) + 1} }

func (g *lcg) next() uint64 {
	g.state = g.state*6364136223846793005 + 1442695040888963407
	return g.state >> 16
}

func randomBytes(g *lcg, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(g.next())
	}
	return out
}

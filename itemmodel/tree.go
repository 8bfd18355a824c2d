package itemmodel

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/tidwall/buntdb"
)

// Tree is the ItemTree of §3: an ordered collection of Items keyed by first physical LCN, ties
// broken by long path. It is backed by an in-memory buntdb database whose default key order
// (lexicographic) gives the balanced-tree index the spec calls for; the Items themselves live in
// a side map so movers can mutate fragments in place without round-tripping through JSON on
// every access (buntdb holds only the ordering key -> item-id mapping).
type Tree struct {
	mu    sync.RWMutex
	db    *buntdb.DB
	items map[string]*Item
}

// NewTree opens a fresh, empty in-memory ItemTree.
func NewTree() (*Tree, error) {
	db, err := buntdb.Open(":memory:")
	if err != nil {
		return nil, errors.Wrap(err, "opening item-tree index")
	}
	return &Tree{db: db, items: make(map[string]*Item)}, nil
}

// Close releases the tree's backing store. Safe to call once at session end.
func (t *Tree) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = nil
	return t.db.Close()
}

// sortKey produces a lexicographically-ordered key: zero-padded LCN (so negative VIRTUAL sorts
// first), then long path as the tie-break, then the item id for absolute uniqueness.
func sortKey(lcn LCN, longPath string, id ID) string {
	// Shift LCN into an unsigned range so VIRTUAL (-1) sorts before every real LCN, then
	// zero-pad to a fixed width so string order matches numeric order.
	shifted := uint64(lcn) + 1<<63
	return fmt.Sprintf("%020d|%s|%s", shifted, longPath, id)
}

// Insert adds an item to the tree at its current FirstLCN(). The item must not already be in
// this tree (use Detach first if it is).
func (t *Tree) Insert(it *Item) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := sortKey(it.FirstLCN(), it.LongPath, it.ID)
	err := t.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(key, it.ID.String(), nil)
		return err
	})
	if err != nil {
		return errors.Wrap(err, "inserting item")
	}
	it.treeKey = key
	t.items[it.ID.String()] = it
	return nil
}

// Detach removes an item from the tree. It is a no-op if the item is not present.
func (t *Tree) Detach(it *Item) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if it.treeKey == "" {
		return nil
	}
	err := t.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(it.treeKey)
		if err == buntdb.ErrNotFound {
			return nil
		}
		return err
	})
	if err != nil {
		return errors.Wrap(err, "detaching item")
	}
	delete(t.items, it.ID.String())
	it.treeKey = ""
	return nil
}

// Reinsert detaches and re-inserts an item under its (possibly new) FirstLCN(). Any component
// that changes an item's first-LCN (principally the mover, after a move) must call this to
// preserve the tree's ordering invariant (§3 invariant 2).
func (t *Tree) Reinsert(it *Item) error {
	if err := t.Detach(it); err != nil {
		return err
	}
	return t.Insert(it)
}

// Len returns the number of items currently in the tree.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

func (t *Tree) resolve(id string) *Item {
	return t.items[id]
}

// Smallest returns the item with the lowest (first-LCN, long-path) ordering key, or nil if the
// tree is empty.
func (t *Tree) Smallest() *Item {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var found *Item
	_ = t.db.View(func(tx *buntdb.Tx) error {
		return tx.Ascend("", func(key, value string) bool {
			found = t.resolve(value)
			return false
		})
	})
	return found
}

// Biggest returns the item with the highest ordering key, or nil if the tree is empty.
func (t *Tree) Biggest() *Item {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var found *Item
	_ = t.db.View(func(tx *buntdb.Tx) error {
		return tx.Descend("", func(key, value string) bool {
			found = t.resolve(value)
			return false
		})
	})
	return found
}

// Next returns the item immediately after it in tree order, or nil if it is the last item (or
// not in the tree).
func (t *Tree) Next(it *Item) *Item {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if it.treeKey == "" {
		return nil
	}
	var found *Item
	_ = t.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendGreaterOrEqual("", it.treeKey, func(key, value string) bool {
			if key == it.treeKey {
				return true // skip self, keep scanning
			}
			found = t.resolve(value)
			return false
		})
	})
	return found
}

// Prev returns the item immediately before it in tree order, or nil if it is the first item (or
// not in the tree).
func (t *Tree) Prev(it *Item) *Item {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if it.treeKey == "" {
		return nil
	}
	var found *Item
	_ = t.db.View(func(tx *buntdb.Tx) error {
		return tx.DescendLessOrEqual("", it.treeKey, func(key, value string) bool {
			if key == it.treeKey {
				return true
			}
			found = t.resolve(value)
			return false
		})
	})
	return found
}

// Walk visits a snapshot of the tree's items, taken under the read lock at the moment of the
// call, in ascending tree order, stopping early if fn returns false. The lock is released before
// fn is ever invoked, so fn is free to mutate the tree - Insert, Detach, Reinsert, including via
// the mover - without deadlocking on t.mu or nesting a buntdb write transaction inside this
// call's read transaction. A mutation made by fn is not reflected in the rest of this same Walk,
// since the visiting order was already fixed when the snapshot was taken.
func (t *Tree) Walk(fn func(*Item) bool) {
	for _, it := range t.snapshot(false) {
		if !fn(it) {
			return
		}
	}
}

// WalkDescending is Walk in descending tree order.
func (t *Tree) WalkDescending(fn func(*Item) bool) {
	for _, it := range t.snapshot(true) {
		if !fn(it) {
			return
		}
	}
}

// snapshot copies out every item currently in the tree, in ascending (or descending) tree order,
// under a single read lock.
func (t *Tree) snapshot(descending bool) []*Item {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Item, 0, len(t.items))
	iter := func(key, value string) bool {
		if it := t.resolve(value); it != nil {
			out = append(out, it)
		}
		return true
	}
	_ = t.db.View(func(tx *buntdb.Tx) error {
		if descending {
			return tx.Descend("", iter)
		}
		return tx.Ascend("", iter)
	})
	return out
}

// All returns every item currently in the tree, in ascending tree order.
func (t *Tree) All() []*Item {
	return t.snapshot(false)
}

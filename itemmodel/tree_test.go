package itemmodel_test

import (
	"testing"
	"time"

	"github.com/kvakvs/jkdefrag-go/itemmodel"
)

func TestTreeOrdering(t *testing.T) {
	tree, err := itemmodel.NewTree()
	if err != nil {
		t.Fatal(err)
	}
	defer tree.Close()

	a := itemmodel.NewItem(itemmodel.ID{Inode: 1}, "a")
	a.Fragments = []itemmodel.Fragment{{NextVCN: 2, LCN: 50}}
	b := itemmodel.NewItem(itemmodel.ID{Inode: 2}, "b")
	b.Fragments = []itemmodel.Fragment{{NextVCN: 3, LCN: 10}}
	c := itemmodel.NewItem(itemmodel.ID{Inode: 3}, "c")
	c.Fragments = []itemmodel.Fragment{{NextVCN: 1, LCN: 10}}

	for _, it := range []*itemmodel.Item{a, b, c} {
		if err := tree.Insert(it); err != nil {
			t.Fatal(err)
		}
	}

	got := tree.All()
	if len(got) != 3 {
		t.Fatalf("expected 3 items, got %d", len(got))
	}
	// b and c share LCN 10; tie-break is long path ("b" < "c").
	if got[0].LongPath != "b" || got[1].LongPath != "c" || got[2].LongPath != "a" {
		t.Fatalf("unexpected order: %v %v %v", got[0].LongPath, got[1].LongPath, got[2].LongPath)
	}

	if tree.Smallest().LongPath != "b" {
		t.Errorf("Smallest = %s, want b", tree.Smallest().LongPath)
	}
	if tree.Biggest().LongPath != "a" {
		t.Errorf("Biggest = %s, want a", tree.Biggest().LongPath)
	}
	if n := tree.Next(b); n == nil || n.LongPath != "c" {
		t.Errorf("Next(b) wrong")
	}
	if p := tree.Prev(a); p == nil || p.LongPath != "c" {
		t.Errorf("Prev(a) wrong")
	}

	// Move `c` to LCN 100 and reinsert: ordering invariant must still hold.
	c.Fragments = []itemmodel.Fragment{{NextVCN: 1, LCN: 100}}
	if err := tree.Reinsert(c); err != nil {
		t.Fatal(err)
	}
	if tree.Biggest().LongPath != "c" {
		t.Errorf("after reinsert, Biggest = %s, want c", tree.Biggest().LongPath)
	}
}

// TestWalkCallbackMayMutateTree guards against the Walk/Reinsert deadlock a live read lock held
// across the callback would cause: a callback that reinserts the very item it's visiting must
// return normally, not hang.
func TestWalkCallbackMayMutateTree(t *testing.T) {
	tree, err := itemmodel.NewTree()
	if err != nil {
		t.Fatal(err)
	}
	defer tree.Close()

	a := itemmodel.NewItem(itemmodel.ID{Inode: 1}, "a")
	a.Fragments = []itemmodel.Fragment{{NextVCN: 2, LCN: 50}}
	b := itemmodel.NewItem(itemmodel.ID{Inode: 2}, "b")
	b.Fragments = []itemmodel.Fragment{{NextVCN: 3, LCN: 10}}
	for _, it := range []*itemmodel.Item{a, b} {
		if err := tree.Insert(it); err != nil {
			t.Fatal(err)
		}
	}

	visited := 0
	done := make(chan struct{})
	go func() {
		tree.Walk(func(it *itemmodel.Item) bool {
			visited++
			it.Fragments = []itemmodel.Fragment{{NextVCN: 1, LCN: it.FirstLCN() + 1000}}
			if err := tree.Reinsert(it); err != nil {
				t.Error(err)
			}
			return true
		})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Walk with a mutating callback did not return - deadlocked")
	}
	if visited != 2 {
		t.Errorf("visited %d items, want 2", visited)
	}
	if tree.Len() != 2 {
		t.Errorf("Len() = %d after mutating walk, want 2", tree.Len())
	}
}

func TestItemFragmentedAndFirstLCN(t *testing.T) {
	it := itemmodel.NewItem(itemmodel.ID{Inode: 1}, "f")
	it.Fragments = []itemmodel.Fragment{
		{NextVCN: 2, LCN: itemmodel.VIRTUAL},
		{NextVCN: 5, LCN: 10},
		{NextVCN: 7, LCN: 50},
	}
	if it.FirstLCN() != 10 {
		t.Errorf("FirstLCN = %d, want 10", it.FirstLCN())
	}
	if !it.IsFragmented() {
		t.Error("expected fragmented (two physical fragments)")
	}
	if it.HighestLCN() != 52 {
		t.Errorf("HighestLCN = %d, want 52", it.HighestLCN())
	}
}

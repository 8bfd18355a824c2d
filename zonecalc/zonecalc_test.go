package zonecalc_test

import (
	"testing"

	"github.com/kvakvs/jkdefrag-go/itemmodel"
	"github.com/kvakvs/jkdefrag-go/units"
	"github.com/kvakvs/jkdefrag-go/zonecalc"
)

type fakeHost struct {
	tree        *itemmodel.Tree
	excludes    []itemmodel.MftExclude
	total       itemmodel.LCN
	freePct     float64
	dirsLatched bool
}

func (h *fakeHost) Tree() *itemmodel.Tree               { return h.tree }
func (h *fakeHost) MftExcludes() []itemmodel.MftExclude { return h.excludes }
func (h *fakeHost) TotalClusters() itemmodel.LCN         { return h.total }
func (h *fakeHost) FreeSpacePercent() float64            { return h.freePct }
func (h *fakeHost) AllDirsUnmovable() bool               { return h.dirsLatched }

var nextInode units.Inode64

func mustItem(t *testing.T, tree *itemmodel.Tree, path string, clusters units.Clusters64, isDir, isHog bool, lcn int64) *itemmodel.Item {
	t.Helper()
	nextInode++
	it := itemmodel.NewItem(itemmodel.ID{Inode: nextInode}, path)
	it.ClustersCount = clusters
	it.IsDir = isDir
	it.IsHog = isHog
	it.Fragments = []itemmodel.Fragment{{NextVCN: clusters, LCN: itemmodel.LCN(lcn)}}
	if err := tree.Insert(it); err != nil {
		t.Fatal(err)
	}
	return it
}

// TestComputeConvergesWithUnmovableShift exercises a volume with one item per preferred zone plus
// a single MFT-excluded range, verifying the fixed point settles once the exclude's zone
// classification stabilizes (it lands in zone 1 from the first real boundary onward).
func TestComputeConvergesWithUnmovableShift(t *testing.T) {
	tree, err := itemmodel.NewTree()
	if err != nil {
		t.Fatal(err)
	}
	defer tree.Close()

	mustItem(t, tree, "dir", 5, true, false, 0)
	mustItem(t, tree, "file", 20, false, false, 0)
	mustItem(t, tree, "hog", 10, false, true, 0)

	host := &fakeHost{
		tree:     tree,
		excludes: []itemmodel.MftExclude{{Start: 20, End: 25}},
		total:    100,
		freePct:  10,
	}

	zones := zonecalc.Compute(host)
	want := itemmodel.Zones{0, 15, 50, 60}
	if zones != want {
		t.Fatalf("Compute() = %v, want %v", zones, want)
	}
}

// TestComputeNoUnmovable checks the degenerate case (no unmovable fragments at all): the fixed
// point should settle on its very first real boundary computation.
func TestComputeNoUnmovable(t *testing.T) {
	tree, err := itemmodel.NewTree()
	if err != nil {
		t.Fatal(err)
	}
	defer tree.Close()

	mustItem(t, tree, "dir", 5, true, false, 0)
	mustItem(t, tree, "file", 20, false, false, 0)
	mustItem(t, tree, "hog", 10, false, true, 0)

	host := &fakeHost{tree: tree, total: 100, freePct: 10}

	zones := zonecalc.Compute(host)
	want := itemmodel.Zones{0, 15, 45, 55}
	if zones != want {
		t.Fatalf("Compute() = %v, want %v", zones, want)
	}
}

// TestComputeLatchedDirsCountAsUnmovable checks that once AllDirsUnmovable latches, directories
// drop out of sum_movable[0] entirely (zone 0's width collapses to just the free-space reserve)
// and their clusters are instead counted as unmovable wherever their LCN classifies once real
// boundaries exist (§4.4) - here that lands in zone 1, widening it by the directory's size.
func TestComputeLatchedDirsCountAsUnmovable(t *testing.T) {
	tree, err := itemmodel.NewTree()
	if err != nil {
		t.Fatal(err)
	}
	defer tree.Close()

	mustItem(t, tree, "dir", 5, true, false, 0)
	mustItem(t, tree, "file", 20, false, false, 0)

	host := &fakeHost{tree: tree, total: 100, freePct: 0, dirsLatched: true}

	zones := zonecalc.Compute(host)
	want := itemmodel.Zones{0, 0, 25, 25}
	if zones != want {
		t.Fatalf("Compute() = %v, want %v", zones, want)
	}
}

package scanner_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kvakvs/jkdefrag-go/itemmodel"
	"github.com/kvakvs/jkdefrag-go/observer"
	"github.com/kvakvs/jkdefrag-go/scanner"
	"github.com/kvakvs/jkdefrag-go/units"
	"github.com/kvakvs/jkdefrag-go/voldriver"
)

// fakeDriver hands out a single fixed fragment for every item, regardless of id - enough to
// exercise WalkFallback's item-building without a real volume behind it.
type fakeDriver struct {
	voldriver.Driver
	nextLCN itemmodel.LCN
}

func (d *fakeDriver) GetExtents(itemmodel.ID) ([]itemmodel.Fragment, error) {
	d.nextLCN += 10
	return []itemmodel.Fragment{{NextVCN: 1, LCN: d.nextLCN}}, nil
}

type fakeHost struct {
	tree *itemmodel.Tree
	drv  *fakeDriver
	obs  observer.Observer
	n    int
}

func (h *fakeHost) Driver() voldriver.Driver            { return h.drv }
func (h *fakeHost) Tree() *itemmodel.Tree                { return h.tree }
func (h *fakeHost) Observer() observer.Observer          { return h.obs }
func (h *fakeHost) BytesPerCluster() units.Bytes64        { return 4096 }
func (h *fakeHost) RegisterScannedItem(*itemmodel.Item) { h.n++ }

func TestWalkFallbackRegistersFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sub", "b.txt"), []byte("world!!"), 0o644); err != nil {
		t.Fatal(err)
	}

	tree, err := itemmodel.NewTree()
	if err != nil {
		t.Fatal(err)
	}
	defer tree.Close()

	host := &fakeHost{tree: tree, drv: &fakeDriver{}, obs: observer.NullObserver{}}

	if err := scanner.WalkFallback(host, dir); err != nil {
		t.Fatal(err)
	}

	// root dir itself + a.txt + sub dir + sub/b.txt = 4 entries.
	if host.n != 4 {
		t.Fatalf("RegisterScannedItem called %d times, want 4", host.n)
	}
	if tree.Len() != 4 {
		t.Fatalf("tree.Len() = %d, want 4", tree.Len())
	}

	found := false
	for _, it := range tree.All() {
		if it.LongName == "a.txt" {
			found = true
			if it.ByteSize != 5 {
				t.Errorf("a.txt ByteSize = %d, want 5", it.ByteSize)
			}
			if it.ClustersCount != 1 {
				t.Errorf("a.txt ClustersCount = %d, want 1", it.ClustersCount)
			}
		}
	}
	if !found {
		t.Fatal("a.txt not found in tree")
	}
}

func TestNTFSAndFATAnalyzerAlwaysDecline(t *testing.T) {
	ok, err := scanner.NTFSAnalyzer{}.AnalyzeVolume(nil)
	if ok || err != nil {
		t.Fatalf("NTFSAnalyzer.AnalyzeVolume = (%v, %v), want (false, nil)", ok, err)
	}
	ok, err = scanner.FATAnalyzer{}.AnalyzeVolume(nil)
	if ok || err != nil {
		t.Fatalf("FATAnalyzer.AnalyzeVolume = (%v, %v), want (false, nil)", ok, err)
	}
}

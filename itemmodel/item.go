package itemmodel

import (
	"fmt"

	"github.com/OneOfOne/xxhash"
	"github.com/kvakvs/jkdefrag-go/units"
)

// ID uniquely identifies an item within a session: an (inode, stream) pair (§3 "Items are unique
// by (inode, stream)").
type ID struct {
	Inode  units.Inode64
	Stream string
}

func (id ID) String() string {
	if id.Stream == "" {
		return fmt.Sprintf("%d", id.Inode)
	}
	return fmt.Sprintf("%d:%s", id.Inode, id.Stream)
}

// Item is one file or directory stream: a long/short path pair, size/cluster counts, timestamps,
// state flags, and its ordered fragment list.
type Item struct {
	ID ID

	LongPath  string
	ShortPath string
	LongName  string
	ShortName string

	ParentInode units.Inode64

	ByteSize      units.Bytes64
	ClustersCount units.Clusters64

	CreationTime   units.FileTime64
	LastAccessTime units.FileTime64
	MftChangeTime  units.FileTime64
	LastWriteTime  units.FileTime64

	IsDir       bool
	IsUnmovable bool
	IsExcluded  bool
	IsHog       bool

	// Fragments is VCN-ordered and non-overlapping (invariant 1); never empty for an item that
	// occupies at least one cluster. Owned exclusively by this item; only the mover replaces it
	// wholesale after a move.
	Fragments []Fragment

	// PathDigest is an xxhash of LongPath, computed by NewItem. The ItemTree breaks ties on
	// LongPath itself and mask matching works on the path strings, so neither reads this field.
	PathDigest uint64

	// treeKey is the sort key this item was last inserted into the ItemTree under; Detach needs
	// it to remove the right index entry. Maintained exclusively by Tree.
	treeKey string
}

// NewItem builds an Item and computes its PathDigest from LongPath.
func NewItem(id ID, longPath string) *Item {
	it := &Item{ID: id, LongPath: longPath}
	it.PathDigest = xxhash.ChecksumString64(longPath)
	return it
}

// FirstLCN returns the LCN of the item's first non-virtual fragment, or VIRTUAL if the item has
// no physical presence on disk (fully sparse) or no fragments at all. The ItemTree is keyed by
// this value.
func (it *Item) FirstLCN() LCN {
	for i, f := range it.Fragments {
		if !f.IsVirtual() {
			return f.LCN
		}
		_ = i
	}
	return VIRTUAL
}

// HighestFragment returns the index of the fragment with the greatest LastLCN, or -1 if the
// item has no physical (non-virtual) fragments. Used by forced-fill/optimize phases which need
// "the highest item on disk".
func (it *Item) HighestFragment() int {
	best := -1
	var bestLast LCN
	prev := VCN(0)
	for i, f := range it.Fragments {
		last := f.LastLCN(prev)
		if !f.IsVirtual() && (best == -1 || last > bestLast) {
			best, bestLast = i, last
		}
		prev = f.NextVCN
	}
	return best
}

// HighestLCN returns one-past the last physical cluster this item occupies, or VIRTUAL if the
// item has no physical fragments.
func (it *Item) HighestLCN() LCN {
	idx := it.HighestFragment()
	if idx == -1 {
		return VIRTUAL
	}
	prev := VCN(0)
	if idx > 0 {
		prev = it.Fragments[idx-1].NextVCN
	}
	return it.Fragments[idx].LastLCN(prev)
}

// IsFragmented reports whether the item's physical clusters span more than one fragment.
func (it *Item) IsFragmented() bool {
	physical := 0
	for _, f := range it.Fragments {
		if !f.IsVirtual() {
			physical++
			if physical > 1 {
				return true
			}
		}
	}
	return false
}

// IsMovable reports whether the mover is permitted to move any part of this item.
func (it *Item) IsMovable() bool {
	return !it.IsUnmovable && !it.IsExcluded && it.ClustersCount > 0
}

// PreferredZone returns the zone index (0=directories, 1=regular files, 2=space-hogs) this item
// should be placed in, per §4.4.
func (it *Item) PreferredZone() int {
	switch {
	case it.IsDir:
		return 0
	case it.IsHog:
		return 2
	default:
		return 1
	}
}

// CloneFragments returns a shallow copy of the item's fragment list. The session uses it to keep
// the pre-move layout so it can resync its bitmap once the mover has replaced the fragments.
func (it *Item) CloneFragments() []Fragment {
	out := make([]Fragment, len(it.Fragments))
	copy(out, it.Fragments)
	return out
}

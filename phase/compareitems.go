package phase

import (
	"strings"

	"github.com/kvakvs/jkdefrag-go/itemmodel"
)

// SortField selects the primary key optimize-sort orders items by (§4.6 "Optimize-sort").
type SortField int

const (
	SortByName SortField = iota
	SortBySize
	SortByLastAccess
	SortByMftChange
	SortByCreation
)

// compareItems orders a before b under field, returning true iff a sorts strictly before b.
// Field 2 (last-access) sorts descending, matching the original's asymmetry; every other field
// sorts ascending. Ties fall through a fixed chain (long path, byte size, last-access,
// mft-change time, creation time, current LCN) so the ordering is total and deterministic.
func compareItems(a, b *itemmodel.Item, field SortField) bool {
	if less, decided := primaryLess(a, b, field); decided {
		return less
	}
	return tieBreakLess(a, b)
}

func primaryLess(a, b *itemmodel.Item, field SortField) (less, decided bool) {
	switch field {
	case SortByName:
		if al, bl := strings.ToLower(a.LongName), strings.ToLower(b.LongName); al != bl {
			return al < bl, true
		}
	case SortBySize:
		if a.ByteSize != b.ByteSize {
			return a.ByteSize < b.ByteSize, true
		}
	case SortByLastAccess:
		if a.LastAccessTime != b.LastAccessTime {
			return a.LastAccessTime > b.LastAccessTime, true // descending
		}
	case SortByMftChange:
		if a.MftChangeTime != b.MftChangeTime {
			return a.MftChangeTime < b.MftChangeTime, true
		}
	case SortByCreation:
		if a.CreationTime != b.CreationTime {
			return a.CreationTime < b.CreationTime, true
		}
	}
	return false, false
}

func tieBreakLess(a, b *itemmodel.Item) bool {
	if a.LongPath != b.LongPath {
		return a.LongPath < b.LongPath
	}
	if a.ByteSize != b.ByteSize {
		return a.ByteSize < b.ByteSize
	}
	if a.LastAccessTime != b.LastAccessTime {
		return a.LastAccessTime < b.LastAccessTime
	}
	if a.MftChangeTime != b.MftChangeTime {
		return a.MftChangeTime < b.MftChangeTime
	}
	if a.CreationTime != b.CreationTime {
		return a.CreationTime < b.CreationTime
	}
	return a.FirstLCN() < b.FirstLCN()
}

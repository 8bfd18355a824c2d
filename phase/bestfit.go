package phase

import (
	"github.com/kvakvs/jkdefrag-go/gapengine"
	"github.com/kvakvs/jkdefrag-go/itemmodel"
)

// eligible reports whether it is a movable, real candidate for gap-filling moves, and whether it
// additionally passes a phase-specific predicate (zone/position constraints).
func eligible(it *itemmodel.Item, pred func(*itemmodel.Item) bool) bool {
	if it.IsUnmovable || it.IsExcluded || it.ClustersCount == 0 {
		return false
	}
	return pred == nil || pred(it)
}

// anyZone accepts every eligible item regardless of its preferred zone or its position on disk.
func anyZone(*itemmodel.Item) bool { return true }

// findBestFit returns the largest single eligible item whose cluster count still fits entirely
// within gap, minimizing leftover space with one item at a time. It does not search combinations
// of several items that would sum to an exact fit (see DESIGN.md, "phase: optimize-up /
// optimize-volume best-fit" for why); the caller's repeated-call loop is what approximates a
// combination by placing one best-fitting item per iteration until the gap is gone or nothing
// else fits. Returns nil if nothing fits.
func findBestFit(host Host, gap gapengine.GapRange, pred func(*itemmodel.Item) bool) *itemmodel.Item {
	var best *itemmodel.Item
	host.Tree().Walk(func(it *itemmodel.Item) bool {
		if !eligible(it, pred) || it.ClustersCount > gap.Len() {
			return true
		}
		if best == nil || it.ClustersCount > best.ClustersCount {
			best = it
		}
		return true
	})
	return best
}

// findHighest returns the eligible item positioned at the highest LCN on disk, regardless of
// whether it fits the gap - the fallback once no combination of items perfectly fills it.
func findHighest(host Host, pred func(*itemmodel.Item) bool) *itemmodel.Item {
	var found *itemmodel.Item
	highest := itemmodel.LCN(-1)
	host.Tree().Walk(func(it *itemmodel.Item) bool {
		if !eligible(it, pred) {
			return true
		}
		lcn := it.FirstLCN()
		if lcn == itemmodel.VIRTUAL || lcn <= highest {
			return true
		}
		found, highest = it, lcn
		return true
	})
	return found
}

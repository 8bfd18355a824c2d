package phase

import (
	"github.com/kvakvs/jkdefrag-go/gapengine"
	"github.com/kvakvs/jkdefrag-go/itemmodel"
	"github.com/kvakvs/jkdefrag-go/observer"
	"github.com/kvakvs/jkdefrag-go/units"
)

// OptimizeSort runs phase 3e (§4.6 "Optimize-sort", modes AnalyzeSortBy*): for each zone, place
// every item whose preferred zone matches in field order starting at the zone's first LCN,
// vacating room ahead of the placement cursor as needed and fragmenting an item across whatever
// gaps are available when a single contiguous one can't be found.
func OptimizeSort(host Host, field SortField) error {
	if host.Tree().Len() == 0 {
		return nil
	}
	minimumVacate := units.Clusters64(host.TotalClusters()) / 200

	for zone := 0; zone < 3; zone++ {
		host.SetCurrentZone(zone)
		host.Observer().ShowStatus(observer.PhaseOptimizeSort, zone)
		sortZone(host, zone, field, minimumVacate)
	}
	return nil
}

func sortZone(host Host, zone int, field SortField, minimumVacate units.Clusters64) {
	var previous *itemmodel.Item
	lcn := host.Zones().Start(zone)
	var gap gapengine.GapRange

	for host.Running() {
		item := nextToPlace(host, zone, field, previous)
		if item == nil {
			break
		}
		previous = item

		if item.FirstLCN() == lcn {
			lcn += itemmodel.LCN(item.ClustersCount)
			continue
		}

		if !placeItem(host, item, lcn, &gap, minimumVacate) {
			return
		}
		lcn = gap.Begin
	}
}

// nextToPlace finds the smallest not-yet-placed item (per field) in zone that sorts after
// previous, mirroring the original's O(n) re-scan per placement (simple, and the scale this
// core targets per §1 tolerates it).
func nextToPlace(host Host, zone int, field SortField, previous *itemmodel.Item) *itemmodel.Item {
	var best *itemmodel.Item
	host.Tree().Walk(func(it *itemmodel.Item) bool {
		if it.IsUnmovable || it.IsExcluded || it.ClustersCount == 0 {
			return true
		}
		if it.PreferredZone() != zone {
			return true
		}
		if previous != nil && !compareItems(previous, it, field) {
			return true
		}
		if best != nil && !compareItems(it, best, field) {
			return true
		}
		best = it
		return true
	})
	return best
}

// placeItem moves item to lcn, vacating and re-finding gaps as needed. When a single gap can't
// hold the rest of the item, it moves the largest multiple of 8 clusters the gap holds and goes on
// with the remainder. gap is updated to
// reflect the caller's placement cursor. Returns false if no gap exists anywhere (nothing left to
// do for this or any later item).
func placeItem(host Host, item *itemmodel.Item, lcn itemmodel.LCN, gap *gapengine.GapRange, minimumVacate units.Clusters64) bool {
	clustersDone := units.Clusters64(0)

	for host.Running() && clustersDone < item.ClustersCount {
		remaining := item.ClustersCount - clustersDone
		if gap.Begin+itemmodel.LCN(remaining+16) > gap.End {
			gapengine.Vacate(host, gapengine.GapRange{Begin: lcn, End: lcn + itemmodel.LCN(remaining+minimumVacate)}, false)
			found, ok := gapengine.FindGap(host, lcn, 0, 0, true, false, false)
			if !ok {
				return false
			}
			*gap = found
		}

		clusters := remaining
		if clusters > gap.Len() {
			clusters = gap.Len()
			clusters -= clusters % 8
			if clusters == 0 {
				lcn = gap.End
				continue
			}
		}

		if _, err := host.MoveItem(item, clustersDone, clusters, gap.Begin, itemmodel.Up); err == nil {
			gap.Begin += itemmodel.LCN(clusters)
		} else {
			found, ok := gapengine.FindGap(host, gap.Begin, 0, 0, true, false, false)
			if !ok {
				return false
			}
			*gap = found
		}

		lcn = gap.Begin
		clustersDone += clusters
	}
	return true
}

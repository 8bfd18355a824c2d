package phase

import (
	"github.com/kvakvs/jkdefrag-go/gapengine"
	"github.com/kvakvs/jkdefrag-go/itemmodel"
	"github.com/kvakvs/jkdefrag-go/observer"
	"github.com/kvakvs/jkdefrag-go/units"
)

// OptimizeUp runs phase 3c (§4.6 "Optimize up", mode AnalyzeMoveToEnd): walk gaps from the end
// of the disk downward (above Zones[1]) and fill each one with items drawn from below it, one
// best-fitting item per placement, falling back to repeatedly grabbing the highest-positioned
// item once the remaining items below the gap can no longer add up to fill it exactly. Bounded to
// 5 consecutive failed placement attempts per gap before giving up on it. See DESIGN.md,
// "phase: optimize-up / optimize-volume best-fit", for how this approximates §4.6's
// exact-combination wording with repeated single-item best-fit instead of a combinatorial search.
func OptimizeUp(host Host) error {
	host.SetCurrentZone(-1)
	host.Observer().ShowStatus(observer.PhaseOptimizeUp, -1)

	if host.Tree().Len() == 0 {
		return nil
	}

	gap := gapengine.GapRange{End: host.TotalClusters()}
	retry := 0

	for host.Running() {
		found, ok := gapengine.FindGap(host, host.Zones().Start(1), gap.End, 0, true, true, false)
		if !ok {
			break
		}
		gap = found

		belowTotal := clustersBelow(host, gap.End)
		if belowTotal == 0 {
			break
		}
		perfectFit := gap.Len() <= belowTotal

		belowGap := func(it *itemmodel.Item) bool {
			lcn := it.FirstLCN()
			return lcn != itemmodel.VIRTUAL && lcn < gap.Begin
		}
		for gap.Len() > 0 && retry < 5 && host.Running() {
			var item *itemmodel.Item
			if perfectFit {
				item = findBestFit(host, gap, belowGap)
				if item == nil {
					perfectFit = false
					item = findHighest(host, belowGap)
				}
			} else {
				item = findHighest(host, belowGap)
			}
			if item == nil {
				break
			}

			target := gap.End - itemmodel.LCN(item.ClustersCount)
			if _, err := host.MoveItem(item, 0, item.ClustersCount, target, itemmodel.Down); err == nil {
				gap.End -= itemmodel.LCN(item.ClustersCount)
				retry = 0
			} else {
				gap.Begin = gap.End
				retry++
			}
		}

		if gap.Begin < gap.End {
			host.Observer().ShowDebug(observer.DetailedGapFilling, nil, "optimize-up: skipping gap, cannot fill")
			gap.End = gap.Begin
			retry = 0
		}
	}
	return nil
}

// clustersBelow sums the cluster counts of eligible items positioned strictly below end. The
// tree is ordered by first LCN, so the walk stops as soon as it reaches an item at or past end.
func clustersBelow(host Host, end itemmodel.LCN) (sum units.Clusters64) {
	host.Tree().Walk(func(it *itemmodel.Item) bool {
		if it.IsUnmovable || it.IsExcluded {
			return true
		}
		lcn := it.FirstLCN()
		if lcn == itemmodel.VIRTUAL {
			return true
		}
		if lcn >= end {
			return false
		}
		sum += it.ClustersCount
		return true
	})
	return sum
}

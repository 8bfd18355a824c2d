package phase

import (
	"github.com/kvakvs/jkdefrag-go/gapengine"
	"github.com/kvakvs/jkdefrag-go/itemmodel"
	"github.com/kvakvs/jkdefrag-go/observer"
	"github.com/kvakvs/jkdefrag-go/units"
)

// ForcedFill runs phase 3b (§4.6 "Forced fill", mode AnalyzeGroup): repeatedly find the next gap
// from the start of the disk and fill it with clusters taken off the end of the highest movable
// fragment still above that gap, until either no gap remains or the highest fragment has sunk to
// or below the gap (nothing left worth moving).
func ForcedFill(host Host) error {
	host.SetCurrentZone(-1)
	host.Observer().ShowStatus(observer.PhaseForcedFill, -1)

	gapBegin := itemmodel.LCN(0)
	maxLCN := host.TotalClusters()

	for host.Running() {
		gap, ok := gapengine.FindGap(host, gapBegin, 0, 0, true, false, false)
		if !ok {
			break
		}

		item, fromVCN, highestLCN, size := highestFragmentBelow(host, maxLCN)
		if item == nil || highestLCN <= gap.Begin {
			break
		}

		clusters := gap.Len()
		if clusters > size {
			clusters = size
		}

		if _, err := host.MoveItem(item, fromVCN+units.Clusters64(size-clusters), clusters, gap.Begin, itemmodel.Up); err != nil {
			break
		}

		gapBegin = gap.Begin + itemmodel.LCN(clusters)
		maxLCN = highestLCN + itemmodel.LCN(size-clusters)
	}
	return nil
}

// highestFragmentBelow scans the whole tree for the movable, non-virtual fragment with the
// highest LCN strictly below maxLCN, returning its owning item, its starting offset within the
// item's physical clusters (VIRTUAL fragments not counted), its LCN, and its cluster length.
func highestFragmentBelow(host Host, maxLCN itemmodel.LCN) (item *itemmodel.Item, fromVCN units.Clusters64, lcn itemmodel.LCN, size units.Clusters64) {
	lcn = 0
	host.Tree().Walk(func(it *itemmodel.Item) bool {
		if it.IsUnmovable || it.IsExcluded || it.ClustersCount == 0 {
			return true
		}
		vcn := itemmodel.VCN(0)
		realVCN := units.Clusters64(0)
		for _, f := range it.Fragments {
			length := units.Clusters64(f.NextVCN - vcn)
			if !f.IsVirtual() {
				if f.LCN > lcn && f.LCN < maxLCN {
					item, fromVCN, lcn, size = it, realVCN, f.LCN, length
				}
				realVCN += length
			}
			vcn = f.NextVCN
		}
		return true
	})
	return item, fromVCN, lcn, size
}

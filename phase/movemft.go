package phase

import (
	"github.com/kvakvs/jkdefrag-go/gapengine"
	"github.com/kvakvs/jkdefrag-go/itemmodel"
	"github.com/kvakvs/jkdefrag-go/observer"
	"github.com/kvakvs/jkdefrag-go/zonecalc"
)

// MoveMft runs the best-effort "move MFT to the beginning of the volume" step (§4.6 "Move MFT").
// It is a no-op unless the host has already identified its $MFT item (the scanner/analyzer's
// job, not this phase's). The first MftLockedClusters clusters are never touched, matching the
// original's choice to wrap the MFT around whatever unmovable data already occupies the very
// start of the disk rather than fight it. Once moved (or left in place because it can't be), the
// item is marked permanently unmovable and the zone boundaries are recomputed - MftExcludes don't
// change, since they describe ranges reserved for the MFT's data, not its current location.
func MoveMft(host Host) error {
	host.Observer().ShowStatus(observer.PhaseMoveMft, -1)

	item := host.MftItem()
	if item == nil {
		host.Observer().ShowDebug(observer.DetailedGapFilling, nil, "move-mft: no $MFT item identified, skipping")
		return nil
	}

	clustersDone := host.MftLockedClusters()
	var lcn itemmodel.LCN
	var gap gapengine.GapRange

	for host.Running() && clustersDone < item.ClustersCount {
		if clustersDone > host.MftLockedClusters() {
			host.Observer().ShowDebug(observer.DetailedGapFilling, item, "move-mft: partially placed, more clusters to do")
		}

		remaining := item.ClustersCount - clustersDone
		if gap.Begin+itemmodel.LCN(remaining+16) > gap.End {
			gapengine.Vacate(host, gapengine.GapRange{Begin: lcn, End: lcn + itemmodel.LCN(remaining)}, true)
			found, ok := gapengine.FindGap(host, lcn, 0, 0, true, false, true)
			if !ok {
				break
			}
			gap = found
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
			found, ok := gapengine.FindGap(host, gap.Begin, 0, 0, true, false, true)
			if !ok {
				break
			}
			gap = found
		}

		lcn = gap.Begin
		clustersDone += clusters
	}

	item.IsUnmovable = true
	host.SetZones(zonecalc.Compute(host))
	return nil
}

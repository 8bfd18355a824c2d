package phase

import (
	"github.com/kvakvs/jkdefrag-go/gapengine"
	"github.com/kvakvs/jkdefrag-go/itemmodel"
	"github.com/kvakvs/jkdefrag-go/observer"
	"github.com/kvakvs/jkdefrag-go/units"
)

// OptimizeVolume runs phase 3d (§4.6 "Optimize volume", the fast per-zone optimize pass): for
// each zone in turn, walk its gaps from the zone's start upward and fill each with items whose
// preferred zone matches and that currently sit above the gap, one best-fitting item per
// placement, falling back to the highest-positioned matching item once the remaining eligible
// items can no longer add up to an exact fill. See DESIGN.md, "phase: optimize-up /
// optimize-volume best-fit", for how this approximates §4.6's exact-combination wording.
func OptimizeVolume(host Host) error {
	if host.Tree().Len() == 0 {
		return nil
	}

	for zone := 0; zone < 3; zone++ {
		host.SetCurrentZone(zone)
		host.Observer().ShowStatus(observer.PhaseOptimizeVolume, zone)

		gapBegin := host.Zones().Start(zone)
		retry := 0

		for host.Running() {
			gap, ok := gapengine.FindGap(host, gapBegin, 0, 0, true, false, false)
			if !ok {
				break
			}

			pred := func(it *itemmodel.Item) bool {
				lcn := it.FirstLCN()
				return lcn != itemmodel.VIRTUAL && lcn >= gap.End && it.PreferredZone() == zone
			}

			phaseTemp := clustersMatching(host, pred)
			if phaseTemp == 0 {
				break
			}
			perfectFit := gap.Len() <= phaseTemp

			for gap.Begin < gap.End && retry < 5 && host.Running() {
				var item *itemmodel.Item
				if perfectFit {
					item = findBestFit(host, gap, pred)
					if item == nil {
						perfectFit = false
						item = findHighest(host, pred)
					}
				} else {
					item = findHighest(host, pred)
				}
				if item == nil {
					break
				}

				if _, err := host.MoveItem(item, 0, item.ClustersCount, gap.Begin, itemmodel.Up); err == nil {
					gap.Begin += itemmodel.LCN(item.ClustersCount)
					retry = 0
				} else {
					gap.End = gap.Begin
					retry++
				}
			}

			if gap.Begin < gap.End {
				host.Observer().ShowDebug(observer.DetailedGapFilling, nil, "optimize-volume: skipping gap, cannot fill")
				gapBegin = gap.End
				retry = 0
			} else {
				gapBegin = gap.Begin
			}
		}
	}
	return nil
}

// clustersMatching sums the cluster counts of every item satisfying pred.
func clustersMatching(host Host, pred func(*itemmodel.Item) bool) (sum units.Clusters64) {
	host.Tree().Walk(func(it *itemmodel.Item) bool {
		if eligible(it, pred) {
			sum += it.ClustersCount
		}
		return true
	})
	return sum
}

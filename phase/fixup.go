package phase

import (
	"github.com/kvakvs/jkdefrag-go/gapengine"
	"github.com/kvakvs/jkdefrag-go/itemmodel"
	"github.com/kvakvs/jkdefrag-go/observer"
)

// Fixup runs phase 3a (§4.6 "Fixup"): move items that are fragmented, sitting in an MFT-excluded
// range (unless the item is the MFT itself), or are a regular file/space-hog that hasn't yet
// reached its proper zone. Items written in the last 15 minutes are skipped to avoid fighting
// foreground writes.
func Fixup(host Host) error {
	host.SetCurrentZone(-1)
	host.Observer().ShowStatus(observer.PhaseFixup, -1)

	now := host.Now()
	mft := host.MftItem()

	// Snapshot candidates before moving anything: fixupOne (via gapengine.Vacate and
	// host.MoveItem) reinserts items under their new LCN, and doing that from inside a live Walk
	// over the same tree would deadlock.
	for _, it := range host.Tree().All() {
		if !host.Running() {
			break
		}
		if !it.IsMovable() || recentlyWritten(it, now) {
			continue
		}
		if needsFixup(host, it, mft) {
			_ = fixupOne(host, it) // §7: per-item failure logged by the mover, phase continues
		}
	}
	return nil
}

func needsFixup(host Host, it *itemmodel.Item, mft *itemmodel.Item) bool {
	if it.IsFragmented() {
		return true
	}
	if it != mft && inAnyMftExclude(host, it) {
		return true
	}
	lcn := it.FirstLCN()
	if lcn == itemmodel.VIRTUAL {
		return false
	}
	zones := host.Zones()
	switch it.PreferredZone() {
	case 1:
		return lcn < zones[1]
	case 2:
		return lcn < zones[2]
	default:
		return false
	}
}

func inAnyMftExclude(host Host, it *itemmodel.Item) bool {
	lcn := it.FirstLCN()
	if lcn == itemmodel.VIRTUAL {
		return false
	}
	for _, ex := range host.MftExcludes() {
		if ex.Contains(lcn) {
			return true
		}
	}
	return false
}

// fixupOne places it at the start of its preferred zone, vacating room there first if a direct
// gap isn't already big enough.
func fixupOne(host Host, it *itemmodel.Item) error {
	zone := it.PreferredZone()
	zoneStart, zoneEnd := host.Zones().Start(zone), host.Zones().End(zone)
	host.SetCurrentZone(zone)

	gap, ok := gapengine.FindGap(host, zoneStart, zoneEnd, it.ClustersCount, true, false, false)
	if !ok {
		gapengine.Vacate(host, gapengine.GapRange{Begin: zoneStart, End: zoneStart + itemmodel.LCN(it.ClustersCount)}, false)
		gap, ok = gapengine.FindGap(host, zoneStart, zoneEnd, it.ClustersCount, true, false, false)
		if !ok {
			gap, ok = gapengine.FindGap(host, 0, host.TotalClusters(), it.ClustersCount, true, false, false)
			if !ok {
				return nil // no gap anywhere: leave the item where it is, try again next phase run
			}
		}
	}
	host.RegisterGap(gap.Len())
	_, err := host.MoveItem(it, 0, it.ClustersCount, gap.Begin, itemmodel.Up)
	return err
}

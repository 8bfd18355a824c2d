package phase

import (
	"github.com/kvakvs/jkdefrag-go/corerr"
	"github.com/kvakvs/jkdefrag-go/gapengine"
	"github.com/kvakvs/jkdefrag-go/itemmodel"
	"github.com/kvakvs/jkdefrag-go/observer"
	"github.com/kvakvs/jkdefrag-go/units"
)

// Defragment runs phase 2 (§4.6 "Defragment"): for each movable, fragmented item, find a gap big
// enough for it in its preferred zone (falling back to any gap on disk); if one exists, move the
// item there whole. Otherwise move it in segments, each time picking the current largest gap and
// never starting a segment whose leading source fragment would overflow that gap (which would
// just trade one fragmentation for another). Fail-open: an item that cannot make any progress at
// all (disk full) aborts the whole phase.
func Defragment(host Host) error {
	host.SetCurrentZone(-1)
	host.Observer().ShowStatus(observer.PhaseDefragment, -1)

	// Snapshot candidates before moving anything: host.MoveItem reinserts the moved item under
	// its new LCN, and a reinsert from inside a live Walk over the same tree would deadlock.
	for _, it := range host.Tree().All() {
		if !host.Running() {
			break
		}
		if !it.IsMovable() || !it.IsFragmented() {
			continue
		}
		if err := defragmentOne(host, it); err != nil {
			if corerr.KindOf(err) == corerr.KindNoGap {
				return err
			}
			// Any other per-item failure (VolumeIO, PartialMove) is logged by the mover and the
			// item is left as-is; the phase continues with the next item (§7 propagation policy).
		}
	}
	return nil
}

func defragmentOne(host Host, it *itemmodel.Item) error {
	zone := it.PreferredZone()
	zoneStart, zoneEnd := host.Zones().Start(zone), host.Zones().End(zone)

	if gap, ok := gapengine.FindGap(host, zoneStart, zoneEnd, it.ClustersCount, true, false, false); ok {
		host.RegisterGap(gap.Len())
		_, err := host.MoveItem(it, 0, it.ClustersCount, gap.Begin, itemmodel.Up)
		return err
	}
	if gap, ok := gapengine.FindGap(host, 0, host.TotalClusters(), it.ClustersCount, true, false, false); ok {
		host.RegisterGap(gap.Len())
		_, err := host.MoveItem(it, 0, it.ClustersCount, gap.Begin, itemmodel.Up)
		return err
	}

	return defragmentInSegments(host, it)
}

// defragmentInSegments moves a leading run of it's physical fragments into the current largest
// gap on disk, repeating until the item is contiguous or no gap can hold even its first fragment
// (disk full, per the phase's fail-open contract).
func defragmentInSegments(host Host, it *itemmodel.Item) error {
	for iterations := 0; it.IsFragmented() && host.Running() && iterations < len(it.Fragments); iterations++ {
		gap, ok := gapengine.FindGap(host, 0, host.TotalClusters(), 1, false, false, false)
		if !ok {
			return corerr.New(corerr.KindNoGap, nil, "defragment: no free space left for %s", it.LongPath)
		}
		host.RegisterGap(gap.Len())

		prefix := leadingPhysicalRun(it, gap.Len())
		if prefix == 0 {
			// Even the item's first physical fragment is bigger than the largest gap on disk;
			// further progress is impossible this round.
			return corerr.New(corerr.KindNoGap, nil, "defragment: no gap fits %s's leading fragment", it.LongPath)
		}

		if _, err := host.MoveItem(it, 0, prefix, gap.Begin, itemmodel.Up); err != nil {
			return err
		}
	}
	return nil
}

// leadingPhysicalRun returns how many of the item's leading physical (non-virtual) clusters fit
// within maxLen without splitting a fragment mid-way - i.e. the largest whole-fragment prefix
// count that still fits the gap.
func leadingPhysicalRun(it *itemmodel.Item, maxLen units.Clusters64) units.Clusters64 {
	var sum units.Clusters64
	vcn := itemmodel.VCN(0)
	for _, f := range it.Fragments {
		length := units.Clusters64(f.NextVCN - vcn)
		vcn = f.NextVCN
		if f.IsVirtual() {
			continue
		}
		if sum+length > maxLen {
			break
		}
		sum += length
	}
	return sum
}

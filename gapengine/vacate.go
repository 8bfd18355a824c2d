package gapengine

import (
	"github.com/golang/glog"
	"github.com/kvakvs/jkdefrag-go/itemmodel"
	"github.com/kvakvs/jkdefrag-go/units"
	cuckoo "github.com/seiflotfy/cuckoofilter"
)

// maxWormGuardEntries bounds the "have we been here before" seen-set; the outer vacate loop
// cannot legitimately visit more LCNs than the volume has clusters, so the filter never needs to
// hold more entries than that, but we cap it to keep the guard itself lightweight.
const maxWormGuardEntries = 1 << 16

// Vacate implements §4.2's vacate: grow the free space at gap by moving movable data upward
// until the gap is clear, an unmovable fragment blocks further progress, or moving further
// wouldn't help. Faithful to the original algorithm: each outer iteration performs a full tree
// scan for "the first movable fragment at or above done_until", which is what makes this O(n)
// per call and why it is never invoked more than the phase actually needs.
func Vacate(host Host, gap GapRange, ignoreMftExcludes bool) {
	if gap.Begin >= host.TotalClusters() {
		glog.Warningf("vacate: gap begin %d beyond end of disk", gap.Begin)
		return
	}

	moveTo := computeMoveTo(host, gap)

	// Defensive worm guard: the real loop-termination logic is the moveTo/done_until
	// bookkeeping below, but a second, independent seen-set catches any case where that
	// bookkeeping fails to terminate on a pathological input.
	seen := cuckoo.NewFilter(maxWormGuardEntries)

	doneUntil := gap.Begin
	moveGapLen := units.Clusters64(0)
	moveGapBegin := itemmodel.LCN(0)

	for host.Running() {
		key := []byte{byte(doneUntil), byte(doneUntil >> 8), byte(doneUntil >> 16), byte(doneUntil >> 24)}
		if !seen.InsertUnique(key) && seen.Count() > maxWormGuardEntries/2 {
			glog.Warningf("vacate: possible worm detected at LCN=%d, aborting", doneUntil)
			return
		}

		item, fragBegin, fragEnd, fragVCN := findBiggerFragment(host, doneUntil, gap.Begin)
		if item == nil {
			glog.V(4).Infof("vacate: no movable data found at or above LCN=%d", doneUntil)
			return
		}

		testGap, ok := FindGap(host, gap.Begin, 0, 0, true, false, ignoreMftExcludes)
		if !ok {
			glog.V(4).Infof("vacate: no gaps found above LCN=%d", gap.Begin)
			return
		}
		if testGap.End < fragBegin {
			glog.V(4).Infof("vacate: cannot expand gap [%d,%d) any further", testGap.Begin, testGap.End)
			return
		}
		if testGap.End == fragBegin && testGap.Len() >= gap.Len() {
			glog.V(4).Infof("vacate: gap [%d,%d) is now big enough", testGap.Begin, testGap.End)
			return
		}
		if gap.Begin >= moveTo {
			glog.Warningf("vacate: stopping, possible worm (gap.Begin=%d >= moveTo=%d)", gap.Begin, moveTo)
			return
		}

		fragLen := units.Clusters64(fragEnd - fragBegin)
		if fragLen >= moveGapLen {
			found := false
			if moveTo < host.TotalClusters() && moveTo >= fragEnd {
				if g, ok := FindGap(host, moveTo, 0, fragLen, true, false, false); ok {
					moveGapBegin, moveGapLen, found = g.Begin, fragLen, true
				}
			}
			if !found {
				if g, ok := FindGap(host, fragEnd, 0, fragLen, true, true, false); ok {
					moveGapBegin, moveGapLen, found = g.Begin, fragLen, true
				}
			}
			if !found {
				glog.V(4).Infof("vacate: no gap found to relocate fragment at LCN=%d", fragBegin)
				return
			}
		}

		ok2, _ := host.MoveItem(item, fragVCN, fragLen, moveGapBegin, itemmodel.Up)
		if ok2 {
			if moveGapBegin < moveTo {
				moveTo = moveGapBegin
			}
			moveGapBegin += itemmodel.LCN(fragLen)
			moveGapLen -= fragLen
		} else {
			moveGapLen = 0 // force a re-scan of the gap next iteration
		}
		doneUntil = fragEnd
	}
}

// computeMoveTo derives the heuristic upper bound past which vacate refuses to move data again
// (§4.2: "allowed to move data past the requested extent's end up to a heuristic move_to LCN
// that depends on the current zone").
func computeMoveTo(host Host, gap GapRange) itemmodel.LCN {
	zones := host.Zones()
	moveTo := gap.End
	switch host.CurrentZone() {
	case 0:
		moveTo = zones[1]
	case 1:
		moveTo = zones[2]
	case 2:
		free := host.FreeClusters()
		pct := host.FreeSpacePercent()
		total := units.Clusters64(host.TotalClusters())
		extra := units.Clusters64(float64(total) * 2.0 * pct / 100.0)
		moveTo = itemmodel.LCN(total-free+extra)
	}
	if moveTo < gap.End {
		moveTo = gap.End
	}
	return moveTo
}

// findBiggerFragment scans the whole item tree (as the original does) for the first movable,
// non-virtual fragment whose LCN is >= doneUntil, preferring one starting exactly at
// preferBegin when present.
func findBiggerFragment(host Host, doneUntil, preferBegin itemmodel.LCN) (item *itemmodel.Item, fragBegin, fragEnd itemmodel.LCN, fragVCN itemmodel.VCN) {
	found := false
	host.Tree().Walk(func(it *itemmodel.Item) bool {
		if it.IsUnmovable || it.IsExcluded || it.ClustersCount == 0 {
			return true
		}
		vcn := itemmodel.VCN(0)
		realVCN := itemmodel.VCN(0)
		for _, f := range it.Fragments {
			length := f.NextVCN - vcn
			if !f.IsVirtual() {
				if f.LCN >= doneUntil && (!found || fragBegin > f.LCN) {
					item, fragBegin, fragEnd, fragVCN = it, f.LCN, f.LCN+itemmodel.LCN(length), realVCN
					found = true
					if fragBegin == preferBegin {
						vcn = f.NextVCN
						break
					}
				}
				realVCN += length
			}
			vcn = f.NextVCN
		}
		if found && fragBegin == preferBegin {
			return false // stop the whole tree walk, we found the best possible candidate
		}
		return true
	})
	return item, fragBegin, fragEnd, fragVCN
}

package gapengine

import (
	"github.com/kvakvs/jkdefrag-go/itemmodel"
	"github.com/kvakvs/jkdefrag-go/units"
)

// FindGap implements §4.2's find_gap. It scans [minLCN, maxLCN) forward or backward (per
// scanFromEnd) for a run of free clusters:
//
//   - minSize == 0: returns the full extent of the first/last gap encountered.
//   - minSize > 0, mustFit == true: returns the first gap of length >= minSize (an exact
//     minSize-sized window into that gap — the engine is run millions of times on large
//     volumes, per §1, and does not need the gap's full extent to place one item).
//   - minSize > 0, mustFit == false: scans the whole range and returns the single largest gap.
//
// ok is false when no qualifying gap exists in the scanned range.
func FindGap(host Host, minLCN, maxLCN itemmodel.LCN, minSize units.Clusters64, mustFit, scanFromEnd, ignoreMftExcludes bool) (gap GapRange, ok bool) {
	if maxLCN <= 0 || maxLCN > host.TotalClusters() {
		maxLCN = host.TotalClusters()
	}
	if minLCN < 0 {
		minLCN = 0
	}
	if minLCN >= maxLCN {
		return GapRange{}, false
	}

	if scanFromEnd {
		return findGapReverse(host, minLCN, maxLCN, minSize, mustFit, ignoreMftExcludes)
	}
	return findGapForward(host, minLCN, maxLCN, minSize, mustFit, ignoreMftExcludes)
}

func findGapForward(host Host, minLCN, maxLCN itemmodel.LCN, minSize units.Clusters64, mustFit, ignoreMftExcludes bool) (GapRange, bool) {
	var (
		runStart  itemmodel.LCN = -1
		haveRun   bool
		bestStart itemmodel.LCN
		bestLen   units.Clusters64
		haveBest  bool
	)
	for lcn := minLCN; lcn < maxLCN; lcn++ {
		if isBusy(host, lcn, ignoreMftExcludes) {
			if haveRun && minSize == 0 {
				return GapRange{Begin: runStart, End: lcn}, true
			}
			if haveRun && !mustFit {
				if l := units.Clusters64(lcn - runStart); l > bestLen {
					bestStart, bestLen, haveBest = runStart, l, true
				}
			}
			haveRun = false
			continue
		}
		if !haveRun {
			runStart = lcn
			haveRun = true
		}
		runLen := units.Clusters64(lcn + 1 - runStart)
		if minSize > 0 && mustFit && runLen >= minSize {
			return GapRange{Begin: runStart, End: runStart + itemmodel.LCN(minSize)}, true
		}
	}
	if haveRun {
		if minSize == 0 {
			return GapRange{Begin: runStart, End: maxLCN}, true
		}
		if !mustFit {
			if l := units.Clusters64(maxLCN - runStart); l > bestLen {
				bestStart, bestLen, haveBest = runStart, l, true
			}
		}
	}
	if !mustFit && haveBest {
		return GapRange{Begin: bestStart, End: bestStart + itemmodel.LCN(bestLen)}, true
	}
	return GapRange{}, false
}

func findGapReverse(host Host, minLCN, maxLCN itemmodel.LCN, minSize units.Clusters64, mustFit, ignoreMftExcludes bool) (GapRange, bool) {
	var (
		runEnd    itemmodel.LCN = -1
		haveRun   bool
		bestStart itemmodel.LCN
		bestLen   units.Clusters64
		haveBest  bool
	)
	for lcn := maxLCN - 1; lcn >= minLCN; lcn-- {
		if isBusy(host, lcn, ignoreMftExcludes) {
			if haveRun && minSize == 0 {
				return GapRange{Begin: lcn + 1, End: runEnd}, true
			}
			if haveRun && !mustFit {
				if l := units.Clusters64(runEnd - (lcn + 1)); l > bestLen {
					bestStart, bestLen, haveBest = lcn+1, l, true
				}
			}
			haveRun = false
		} else {
			if !haveRun {
				runEnd = lcn + 1
				haveRun = true
			}
			runLen := units.Clusters64(runEnd - lcn)
			if minSize > 0 && mustFit && runLen >= minSize {
				return GapRange{Begin: runEnd - itemmodel.LCN(minSize), End: runEnd}, true
			}
		}
	}
	if haveRun {
		if minSize == 0 {
			return GapRange{Begin: minLCN, End: runEnd}, true
		}
		if !mustFit {
			if l := units.Clusters64(runEnd - minLCN); l > bestLen {
				bestStart, bestLen, haveBest = minLCN, l, true
			}
		}
	}
	if !mustFit && haveBest {
		return GapRange{Begin: bestStart, End: bestStart + itemmodel.LCN(bestLen)}, true
	}
	return GapRange{}, false
}

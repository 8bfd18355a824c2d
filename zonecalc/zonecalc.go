// Package zonecalc computes the volume's zone boundaries (§4.4): a fixed-point iteration over
// the movable/unmovable cluster totals that partitions the LCN space into three regions —
// directories, regular files, space-hogs.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package zonecalc

import (
	"github.com/kvakvs/jkdefrag-go/itemmodel"
	"github.com/kvakvs/jkdefrag-go/units"
)

// maxIterations bounds the fixed-point loop (§4.4, §8 invariant 10).
const maxIterations = 10

// Host is the slice of session state the zone calculator needs: every item (for its preferred
// zone and movability), the MFT excludes (unmovable, never in the tree), the volume's total
// cluster count and the per-zone free-space reserve, and the directory-unmovable latch.
type Host interface {
	Tree() *itemmodel.Tree
	MftExcludes() []itemmodel.MftExclude
	TotalClusters() itemmodel.LCN
	FreeSpacePercent() float64
	AllDirsUnmovable() bool
}

// Compute runs the §4.4 fixed-point iteration and returns the resulting Zones. It always
// converges in at most maxIterations rounds (each round can only grow zone boundaries, per the
// spec's rationale) and running it again on its own output is a no-op (§8 invariant 10).
func Compute(host Host) itemmodel.Zones {
	total := host.TotalClusters()
	reserve := units.Clusters64(float64(total) * host.FreeSpacePercent() / 100.0)

	sumMovable := sumMovableByZone(host)

	var prev itemmodel.Zones
	var zones itemmodel.Zones
	for i := 0; i < maxIterations; i++ {
		// Round 0 has no previous boundaries to classify unmovable fragments against: per the
		// fixed point's own definition (zone_end[-1]=0), every [zone_end[z-1], zone_end[z]) range
		// is empty until zone_end itself exists, so the first round's unmovable sums are zero.
		var sumUnmovable [3]uint64
		if i > 0 {
			sumUnmovable = sumUnmovableByZone(host, prev, total)
		}

		zoneEnd0 := itemmodel.LCN(units.Clusters64(sumMovable[0]) + units.Clusters64(sumUnmovable[0]) + reserve)
		zoneEnd1 := zoneEnd0 + itemmodel.LCN(units.Clusters64(sumMovable[1])+units.Clusters64(sumUnmovable[1])+reserve)
		zoneEnd2 := zoneEnd1 + itemmodel.LCN(units.Clusters64(sumMovable[2])+units.Clusters64(sumUnmovable[2]))

		zones = itemmodel.Zones{0, zoneEnd0, zoneEnd1, zoneEnd2}
		if zones == prev {
			break
		}
		prev = zones
	}
	if zones[3] > total {
		zones[3] = total
	}
	return zones
}

// sumMovableByZone totals the cluster counts of every non-excluded, non-unmovable item by its
// preferred zone. Once the directory-move-failure latch trips, directories are excluded here and
// counted as unmovable instead, by sumUnmovableByZone (§4.4).
func sumMovableByZone(host Host) [3]uint64 {
	var sum [3]uint64
	host.Tree().Walk(func(it *itemmodel.Item) bool {
		if it.IsExcluded || it.IsUnmovable {
			return true
		}
		if it.IsDir && host.AllDirsUnmovable() {
			return true
		}
		sum[it.PreferredZone()] += uint64(it.ClustersCount)
		return true
	})
	return sum
}

// sumUnmovableByZone totals the clusters of unmovable fragments (including MFT excludes and, once
// the directory-move-failure latch trips, every directory) whose LCN falls within the previous
// iteration's zone boundaries (prev.ZoneOf), only called from round 1 onward.
func sumUnmovableByZone(host Host, prev itemmodel.Zones, total itemmodel.LCN) [3]uint64 {
	var sum [3]uint64
	classify := func(lcn itemmodel.LCN, clusters uint64) {
		sum[prev.ZoneOf(lcn)] += clusters
	}

	for _, ex := range host.MftExcludes() {
		if ex.Start >= 0 && ex.Start < total {
			classify(ex.Start, ex.Clusters())
		}
	}

	allDirsLatched := host.AllDirsUnmovable()
	host.Tree().Walk(func(it *itemmodel.Item) bool {
		unmovable := it.IsUnmovable || it.IsExcluded || (it.IsDir && allDirsLatched)
		if !unmovable {
			return true
		}
		vcn := itemmodel.VCN(0)
		for _, f := range it.Fragments {
			if !f.IsVirtual() {
				classify(f.LCN, uint64(f.NextVCN-vcn))
			}
			vcn = f.NextVCN
		}
		return true
	})
	return sum
}

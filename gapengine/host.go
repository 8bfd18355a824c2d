// Package gapengine locates free cluster runs (find_gap) and evacuates occupied ranges upward
// (vacate), per §4.2. Both functions run against a Host rather than a concrete session so that
// they stay independent of the session/phase machinery that owns them.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package gapengine

import (
	"github.com/kvakvs/jkdefrag-go/itemmodel"
	"github.com/kvakvs/jkdefrag-go/units"
)

// Host is the slice of session state the gap engine needs: bitmap occupancy, the item tree (for
// vacate's search for movable data), zone geometry, and a way to actually move an item's clusters.
type Host interface {
	// IsFree reports whether lcn is currently unoccupied on disk.
	IsFree(lcn itemmodel.LCN) bool
	// IsMftExcluded reports whether lcn falls within a reserved MFT-exclude range.
	IsMftExcluded(lcn itemmodel.LCN) bool
	TotalClusters() itemmodel.LCN
	FreeClusters() units.Clusters64
	FreeSpacePercent() float64
	Tree() *itemmodel.Tree
	Zones() itemmodel.Zones
	CurrentZone() int
	// MoveItem relocates count clusters of it to toLCN. fromVCN is an offset in the item's
	// physical clusters (VIRTUAL fragments are not counted); the mover translates it to a VCN.
	MoveItem(it *itemmodel.Item, fromVCN itemmodel.VCN, count units.Clusters64, toLCN itemmodel.LCN, dir itemmodel.Direction) (bool, error)
	// Running reports whether the session's running-state flag is still RUNNING (§5); every
	// loop here checks it so a STOPPING session unwinds promptly.
	Running() bool
}

// GapRange is a half-open LCN range [Begin, End) of free clusters.
type GapRange struct {
	Begin, End itemmodel.LCN
}

// Len returns the number of clusters the gap spans.
func (g GapRange) Len() units.Clusters64 {
	if g.End <= g.Begin {
		return 0
	}
	return units.Clusters64(g.End - g.Begin)
}

func isBusy(host Host, lcn itemmodel.LCN, ignoreMftExcludes bool) bool {
	if !host.IsFree(lcn) {
		return true
	}
	if !ignoreMftExcludes && host.IsMftExcluded(lcn) {
		return true
	}
	return false
}

// Package mover implements move_item (§4.3): the only component allowed to mutate an item's
// fragment list once it has been built by the scanner. It translates the absolute-cluster
// offsets every other component thinks in into the VCNs the volume driver requires, drives the
// post-move refresh/reinsert protocol, and falls back to a per-fragment strategy when the
// volume silently does a partial move.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package mover

import (
	"github.com/golang/glog"
	"github.com/kvakvs/jkdefrag-go/corerr"
	"github.com/kvakvs/jkdefrag-go/gapengine"
	"github.com/kvakvs/jkdefrag-go/itemmodel"
	"github.com/kvakvs/jkdefrag-go/observer"
	"github.com/kvakvs/jkdefrag-go/units"
	"github.com/kvakvs/jkdefrag-go/voldriver"
	"github.com/pkg/errors"
)

// MaxDirMoveFailures is the cumulative-failure latch (§4.3, §9): once more than this many
// directory moves have failed in one session, every directory becomes unmovable for the rest of it, because the
// file system genuinely cannot move them (true on FAT).
const MaxDirMoveFailures = 20

// maxCallClusters caps a single volume call at a 1 GiB request window (§4.3); larger moves are
// split across several calls.
func maxCallClusters(bytesPerCluster units.Bytes64) units.Clusters64 {
	if bytesPerCluster == 0 {
		return 1
	}
	n := units.Clusters64(0x40000000 / uint64(bytesPerCluster))
	if n == 0 {
		n = 1
	}
	return n
}

// Host is the session state the mover needs: everything gapengine.Host needs (so the mover can
// call FindGap itself during the partial-move retry), plus the driver, observer, volume geometry
// and the shared directory-move-failure latch.
type Host interface {
	gapengine.Host
	Driver() voldriver.Driver
	Observer() observer.Observer
	BytesPerCluster() units.Bytes64
	RegisterDirMoveFailure() int
	AllDirsUnmovable() bool
	LatchAllDirsUnmovable()
}

// MoveItem relocates count absolute (non-virtual) clusters of it, starting at the
// offsetInItem-th one, to targetLCN. It returns true iff the item ends up with exactly one
// physical fragment covering that window (§8 invariant 6).
func MoveItem(host Host, it *itemmodel.Item, targetLCN itemmodel.LCN, offsetInItem, count units.Clusters64, dir itemmodel.Direction) (bool, error) {
	if count == 0 {
		return true, nil // §8 boundary behavior 12
	}
	if !it.IsMovable() {
		return false, corerr.New(corerr.KindVolumeIO, nil, "item %s is not movable", it.LongPath)
	}
	if it.IsDir && host.AllDirsUnmovable() {
		it.IsUnmovable = true
		return false, corerr.New(corerr.KindVolumeIO, nil, "directories are latched unmovable this session")
	}
	if offsetInItem+count > it.ClustersCount {
		return false, errors.Errorf("move_item: offset+count (%d+%d) exceeds item cluster count %d", offsetInItem, count, it.ClustersCount)
	}

	startVCN, err := translateOffset(it, offsetInItem)
	if err != nil {
		return false, err
	}

	host.Observer().ShowMove(it, count, it.FirstLCN(), targetLCN, startVCN)

	ok, err := moveWhole(host, it, startVCN, targetLCN, count)
	if err != nil && !isItemRecoverable(host, it) {
		return false, err
	}

	if err := refreshAndReinsert(host, it); err != nil {
		return false, err
	}

	if ok && rangeIsContiguous(it, offsetInItem, count, targetLCN, startVCN) {
		return true, nil
	}

	// The volume silently fragmented the file (§4.1.3). Retry per the post-move protocol: find
	// another gap, move there fragment-by-fragment, then move back.
	glog.V(3).Infof("move_item: %s came back fragmented after move to LCN=%d, retrying", it.LongPath, targetLCN)
	recovered, rerr := retryFragmented(host, it, offsetInItem, count, targetLCN, dir)
	if !recovered {
		it.IsUnmovable = true
		if it.IsDir {
			if host.RegisterDirMoveFailure() > MaxDirMoveFailures {
				host.LatchAllDirsUnmovable()
			}
		}
		return false, corerr.New(corerr.KindPartialMove, rerr, "move_item: %s could not be made contiguous", it.LongPath)
	}
	return true, nil
}

// translateOffset walks the item's fragments to find the VCN of the offsetInItem-th non-virtual
// (absolute) cluster. This is the sole place in the core that crosses the VCN/absolute-cluster
// boundary (§9 design note).
func translateOffset(it *itemmodel.Item, offsetInItem units.Clusters64) (itemmodel.VCN, error) {
	var physIdx units.Clusters64
	vcn := itemmodel.VCN(0)
	for _, f := range it.Fragments {
		length := f.NextVCN - vcn
		if !f.IsVirtual() {
			if physIdx+length > offsetInItem {
				return vcn + (offsetInItem - physIdx), nil
			}
			physIdx += length
		}
		vcn = f.NextVCN
	}
	return 0, errors.Errorf("translateOffset: offset %d beyond item's %d physical clusters", offsetInItem, physIdx)
}

// moveWhole issues strategy *Whole*: one driver call per maxCallClusters-sized window.
func moveWhole(host Host, it *itemmodel.Item, startVCN itemmodel.VCN, targetLCN itemmodel.LCN, count units.Clusters64) (bool, error) {
	h, err := host.Driver().OpenItem(it.ID)
	if err != nil {
		return false, corerr.New(corerr.KindVolumeIO, err, "open %s", it.LongPath)
	}
	defer host.Driver().Close(h)

	windowCap := maxCallClusters(host.BytesPerCluster())
	moved := units.Clusters64(0)
	for moved < count {
		n := count - moved
		if n > windowCap {
			n = windowCap
		}
		res, err := host.Driver().MoveClusters(h, startVCN+moved, targetLCN+itemmodel.LCN(moved), n)
		moved += res.ClustersMoved
		if err != nil {
			return moved == count, corerr.New(corerr.KindVolumeIO, err, "move_clusters %s", it.LongPath)
		}
		if res.ClustersMoved < n {
			return false, nil // partial: let the caller's contiguity check drive the retry
		}
	}
	return true, nil
}

// moveInFragments issues strategy *InFragments*: one driver call per source fragment, so the
// file lines up at the destination without internal holes provided each call succeeds.
func moveInFragments(host Host, it *itemmodel.Item, startVCN itemmodel.VCN, count units.Clusters64, targetLCN itemmodel.LCN) (bool, error) {
	h, err := host.Driver().OpenItem(it.ID)
	if err != nil {
		return false, corerr.New(corerr.KindVolumeIO, err, "open %s", it.LongPath)
	}
	defer host.Driver().Close(h)

	windowCap := maxCallClusters(host.BytesPerCluster())
	vcn := itemmodel.VCN(0)
	dst := targetLCN
	remaining := count
	started := false
	for _, f := range it.Fragments {
		length := f.NextVCN - vcn
		segStart, segEnd := vcn, f.NextVCN
		if segEnd <= startVCN || remaining == 0 {
			vcn = f.NextVCN
			continue
		}
		if !started {
			if segStart < startVCN {
				segStart = startVCN
			}
			started = true
		}
		_ = length
		if f.IsVirtual() {
			vcn = f.NextVCN
			continue
		}
		segLen := units.Clusters64(segEnd - segStart)
		if segLen > remaining {
			segLen = remaining
		}
		moved := units.Clusters64(0)
		for moved < segLen {
			n := segLen - moved
			if n > windowCap {
				n = windowCap
			}
			res, err := host.Driver().MoveClusters(h, segStart+moved, dst+itemmodel.LCN(moved), n)
			moved += res.ClustersMoved
			dst += itemmodel.LCN(res.ClustersMoved)
			if err != nil || res.ClustersMoved < n {
				return false, corerr.New(corerr.KindVolumeIO, err, "move_clusters(in-fragments) %s", it.LongPath)
			}
		}
		remaining -= segLen
		vcn = f.NextVCN
		if remaining == 0 {
			break
		}
	}
	return remaining == 0, nil
}

func refreshAndReinsert(host Host, it *itemmodel.Item) error {
	frags, err := host.Driver().GetExtents(it.ID)
	if err != nil {
		return corerr.New(corerr.KindVolumeIO, err, "get_extents %s", it.LongPath)
	}
	it.Fragments = frags
	if err := host.Tree().Reinsert(it); err != nil {
		return errors.Wrap(err, "reinserting item after move")
	}
	return nil
}

// rangeIsContiguous checks whether the item's window [offset, offset+count) is now backed by
// exactly one physical fragment (§8 invariant 6), located where it was asked to be.
func rangeIsContiguous(it *itemmodel.Item, offset, count units.Clusters64, targetLCN itemmodel.LCN, _ itemmodel.VCN) bool {
	startVCN, err := translateOffset(it, offset)
	if err != nil {
		return false
	}
	vcn := itemmodel.VCN(0)
	for _, f := range it.Fragments {
		if vcn <= startVCN && startVCN < f.NextVCN {
			length := f.NextVCN - vcn
			covers := units.Clusters64(f.NextVCN-startVCN) >= count
			inPlace := f.LCN != itemmodel.VIRTUAL && f.LCN+itemmodel.LCN(startVCN-vcn) == targetLCN
			_ = length
			return covers && inPlace
		}
		vcn = f.NextVCN
	}
	return false
}

func isItemRecoverable(host Host, it *itemmodel.Item) bool {
	// A driver error mid-move still leaves the item in a valid (if fragmented) state as long as
	// get_extents succeeds; only treat it as unrecoverable when the driver itself is gone.
	_, err := host.Driver().GetExtents(it.ID)
	return err == nil
}

func retryFragmented(host Host, it *itemmodel.Item, offset, count units.Clusters64, originalTarget itemmodel.LCN, dir itemmodel.Direction) (bool, error) {
	startVCN, err := translateOffset(it, offset)
	if err != nil {
		return false, err
	}

	altGap, ok := gapengine.FindGap(host, 0, 0, count, true, false, false)
	if !ok {
		return false, errors.New("no alternate gap large enough for fragmented retry")
	}

	host.Observer().ShowMove(it, count, it.FirstLCN(), altGap.Begin, startVCN)
	ok1, err := moveInFragments(host, it, startVCN, count, altGap.Begin)
	if err := refreshAndReinsert(host, it); err != nil {
		return false, err
	}
	if !ok1 || err != nil {
		return false, err
	}

	startVCN2, err := translateOffset(it, offset)
	if err != nil {
		return false, err
	}
	host.Observer().ShowMove(it, count, it.FirstLCN(), originalTarget, startVCN2)
	ok2, err := moveInFragments(host, it, startVCN2, count, originalTarget)
	if rerr := refreshAndReinsert(host, it); rerr != nil {
		return false, rerr
	}
	if err != nil {
		return false, err
	}
	_ = dir
	return ok2 && rangeIsContiguous(it, offset, count, originalTarget, startVCN2), nil
}

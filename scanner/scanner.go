// Package scanner builds the ItemTree from a mounted volume (§4.5). The two filesystem-specific
// analyzers (NTFS, FAT) are external collaborators per §1/§4.5 and are represented here only as
// the Analyzer contract plus a stub that always reports "not this filesystem", so the session can
// try NTFS, then FAT, then fall back to WalkFallback - the one scanner this package actually
// implements, a plain directory walk used when neither volume-native parser applies.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package scanner

import (
	"os"
	"path/filepath"
	"syscall"

	"github.com/golang/glog"
	"github.com/karrick/godirwalk"
	"github.com/kvakvs/jkdefrag-go/itemmodel"
	"github.com/kvakvs/jkdefrag-go/observer"
	"github.com/kvakvs/jkdefrag-go/units"
	"github.com/kvakvs/jkdefrag-go/voldriver"
	"github.com/pkg/errors"
)

// Host is the session state a scan needs: the driver to resolve extents, the tree to populate,
// the observer to colorize each item exactly once (§4.5 contract (b)), and the counters every
// scanner must update (contract (c)).
type Host interface {
	Driver() voldriver.Driver
	Tree() *itemmodel.Tree
	Observer() observer.Observer
	BytesPerCluster() units.Bytes64
	RegisterScannedItem(it *itemmodel.Item)
}

// Analyzer is the §4.5 contract a concrete filesystem-specific scanner implements:
// `analyze_ntfs_volume`/`analyze_fat_volume` both reduce to "try to recognize and populate, report
// whether this was in fact a volume of my kind".
type Analyzer interface {
	AnalyzeVolume(host Host) (bool, error)
}

// NTFSAnalyzer is the §4.5 NTFS contract. No boot-sector/MFT/run-list decoder ships with this
// core (§1: the concrete scanners are external collaborators); AnalyzeVolume always reports "not
// an NTFS volume" so the session falls through to the next analyzer in its chain.
type NTFSAnalyzer struct{}

var _ Analyzer = NTFSAnalyzer{}

func (NTFSAnalyzer) AnalyzeVolume(Host) (bool, error) { return false, nil }

// FATAnalyzer is the §4.5 FAT12/16/32 contract, same posture as NTFSAnalyzer.
type FATAnalyzer struct{}

var _ Analyzer = FATAnalyzer{}

func (FATAnalyzer) AnalyzeVolume(Host) (bool, error) { return false, nil }

// WalkFallback implements §4.5's "fallback slow scan by directory walk when neither matches": it
// walks root, builds one Item per entry using the driver's GetExtents for its fragment list,
// colorizes and registers each item via the observer/host counters, and tolerates per-item I/O
// errors without aborting the session (contract (d)).
func WalkFallback(host Host, root string) error {
	return godirwalk.Walk(root, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			it, err := buildItem(host, path, de)
			if err != nil {
				glog.Warningf("scanner: skipping %s: %v", path, err)
				return nil
			}
			if err := host.Tree().Insert(it); err != nil {
				return errors.Wrapf(err, "inserting %s into item tree", path)
			}
			host.Observer().ShowAnalyze(it)
			host.RegisterScannedItem(it)
			return nil
		},
		ErrorCallback: func(path string, err error) godirwalk.ErrorAction {
			glog.Warningf("scanner: walk error at %s: %v", path, err)
			return godirwalk.SkipNode
		},
	})
}

func buildItem(host Host, path string, de *godirwalk.Dirent) (*itemmodel.Item, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		return nil, errors.Wrap(err, "lstat")
	}

	it := itemmodel.NewItem(itemmodel.ID{Inode: inodeOf(fi)}, path)
	it.LongName = filepath.Base(path)
	it.ShortPath = path
	it.ShortName = it.LongName
	it.IsDir = de.IsDir()
	it.ByteSize = units.Bytes64(fi.Size())
	it.ClustersCount = it.ByteSize.ToClusters(host.BytesPerCluster())
	it.LastWriteTime = units.FromTime(fi.ModTime())

	if it.ClustersCount > 0 {
		frags, err := host.Driver().GetExtents(it.ID)
		if err != nil {
			return nil, errors.Wrap(err, "get_extents")
		}
		it.Fragments = frags
	}
	return it, nil
}

// inodeOf extracts the inode number a Unix os.FileInfo carries in its platform-specific Sys()
// value; returns 0 (never a real inode on a live volume) if the platform doesn't expose one.
func inodeOf(fi os.FileInfo) units.Inode64 {
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		return units.Inode64(st.Ino)
	}
	return 0
}

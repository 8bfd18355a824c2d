// Package phase implements the eight §4.6 phase drivers (analyze, defragment, fixup, forced-fill,
// optimize-up, optimize-volume, optimize-sort, move-mft). Every driver runs a single running-state
// check loop (§5) and is a best-effort pass: per-item errors never unwind the phase (§7).
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package phase

import (
	"path"
	"strings"
	"time"

	"github.com/kvakvs/jkdefrag-go/itemmodel"
	"github.com/kvakvs/jkdefrag-go/mover"
	"github.com/kvakvs/jkdefrag-go/units"
)

// Masks bundles the analyze-phase classification inputs (§4.6 "Analyze"): wildcard masks applied
// against an item's long/short path.
type Masks struct {
	Include             []string
	Excludes            []string
	SpaceHogs           []string
	UseDefaultSpaceHogs bool
	UseLastAccessTime   bool
}

// Host is everything a phase driver needs beyond what the mover/gap engine already require: the
// analyze-time classification inputs, the zone-calculator result setter, MFT bookkeeping for
// move-mft and fixup's MFT exception, and the fragmented-item and gap counters.
type Host interface {
	mover.Host

	MftExcludes() []itemmodel.MftExclude
	Masks() Masks
	Now() units.FileTime64

	// SetZones installs the zone-calculator's result (called by the analyze phase, and again by
	// move-mft after it has moved the MFT).
	SetZones(z itemmodel.Zones)
	// SetCurrentZone records which zone a phase is currently working, for Observer.ShowStatus and
	// gapengine.Host.CurrentZone.
	SetCurrentZone(zone int)

	// MftItem returns the item recognized as the volume's own MFT (by scanner or move-mft's own
	// search), or nil if none has been identified yet.
	MftItem() *itemmodel.Item
	SetMftItem(it *itemmodel.Item)
	// MftLockedClusters is the count of leading MFT clusters move-mft must never touch (the first
	// 16 inodes, per §4.6).
	MftLockedClusters() units.Clusters64

	// LogFileNames returns the defragmenter's own log file name(s), excluded from moves per the
	// analyze phase's well-known-unmovable-paths list.
	LogFileNames() []string

	// RegisterFragmented updates the fragmented_items/bytes/clusters counters for it (§3
	// DefragState counters).
	RegisterFragmented(it *itemmodel.Item)

	// RegisterGap updates the gaps_found/gaps_clusters counters (§3) whenever a phase's call to
	// find_gap succeeds, independent of whether the gap ends up used for a whole or partial move.
	RegisterGap(clusters units.Clusters64)
}

// wellKnownUnmovable is the §4.6 analyze-phase list of paths the original always marks
// is_unmovable, independent of any user-supplied mask.
var wellKnownUnmovable = []string{
	"*\\safeboot.fs",
	"?:\\bootwiz.sys",
	"*\\BOOTWIZ\\*",
	"?:\\BootAuth?.sys",
	"*\\Gobackio.bin",
	"*$BadClus",
	"*$BadClus:$Bad:$DATA",
}

// matchMask reports whether p matches a single `*`/`?` wildcard mask, case-insensitively (NTFS
// paths are case-insensitive per §9's naming conventions). path.Match treats a bare `\` as an
// escape character, which the spec's Windows-style masks use as a literal separator instead, so
// both sides are normalized to `/` before matching.
func matchMask(mask, p string) bool {
	norm := func(s string) string { return strings.ReplaceAll(strings.ToLower(s), `\`, "/") }
	ok, err := path.Match(norm(mask), norm(p))
	return err == nil && ok
}

func matchAny(masks []string, paths ...string) bool {
	for _, m := range masks {
		for _, p := range paths {
			if matchMask(m, p) {
				return true
			}
		}
	}
	return false
}

// recentlyWritten reports whether it was written within the last 15 minutes of now, per fixup's
// "ignore items whose last-write time is within 15 minutes of now" rule.
func recentlyWritten(it *itemmodel.Item, now units.FileTime64) bool {
	const fifteenMinutes = 15 * time.Minute
	return now.ToTime().Sub(it.LastWriteTime.ToTime()) < fifteenMinutes
}

const fiftyMegabytes = units.Bytes64(50 * 1024 * 1024)
const oneMonth = 30 * 24 * time.Hour

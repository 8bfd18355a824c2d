package phase

import (
	"github.com/kvakvs/jkdefrag-go/itemmodel"
	"github.com/kvakvs/jkdefrag-go/observer"
	"github.com/kvakvs/jkdefrag-go/units"
	"github.com/kvakvs/jkdefrag-go/zonecalc"
)

// Analyze runs phase 1 (§4.6 "Analyze"): classify every item already placed in the tree by the
// scanner, then compute zone boundaries. Long/short path construction from parent-directory chains
// is the NTFS/FAT scanner's responsibility (§4.5 contract (a)); items this core's WalkFallback
// scanner produces already carry a resolved LongPath, so this phase only applies masks and the
// well-known-unmovable-path list.
func Analyze(host Host) error {
	host.SetCurrentZone(0)
	host.Observer().ShowStatus(observer.PhaseAnalyze, 0)

	masks := host.Masks()
	now := host.Now()
	unmovablePaths := append(append([]string{}, wellKnownUnmovable...), host.LogFileNames()...)

	host.Tree().Walk(func(it *itemmodel.Item) bool {
		if !host.Running() {
			return false
		}
		classifyItem(it, masks, now, unmovablePaths)
		if it.IsFragmented() {
			host.RegisterFragmented(it)
		}
		host.Observer().ShowAnalyze(it)
		return true
	})
	if !host.Running() {
		return nil
	}

	zones := zonecalc.Compute(host)
	host.SetZones(zones)
	return nil
}

func classifyItem(it *itemmodel.Item, masks Masks, now units.FileTime64, unmovablePaths []string) {
	paths := []string{it.LongPath, it.ShortPath}

	if len(masks.Include) > 0 && !matchAny(masks.Include, paths...) {
		it.IsExcluded = true
	}
	if matchAny(masks.Excludes, paths...) {
		it.IsExcluded = true
	}

	if matchAny(masks.SpaceHogs, paths...) {
		it.IsHog = true
	} else if masks.UseDefaultSpaceHogs {
		if it.ByteSize > fiftyMegabytes {
			it.IsHog = true
		} else if masks.UseLastAccessTime {
			cutoff := it.LastAccessTime.ToTime().Add(oneMonth)
			if cutoff.Before(now.ToTime()) {
				it.IsHog = true
			}
		}
	}

	if matchAny(unmovablePaths, paths...) {
		it.IsUnmovable = true
	}
}

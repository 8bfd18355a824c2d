package session

import (
	"github.com/kvakvs/jkdefrag-go/itemmodel"
	"github.com/kvakvs/jkdefrag-go/observer"
	"github.com/kvakvs/jkdefrag-go/phase"
	"github.com/kvakvs/jkdefrag-go/units"
)

var _ phase.Host = (*DefragState)(nil)

func (s *DefragState) Masks() phase.Masks { return s.masks }

// Now returns the current time as a FileTime64, used by fixup's "ignore recent foreground
// writes" rule and the analyze phase's space-hog last-access check.
func (s *DefragState) Now() units.FileTime64 { return units.Now() }

func (s *DefragState) MftItem() *itemmodel.Item { return s.mftItem }

func (s *DefragState) SetMftItem(it *itemmodel.Item) { s.mftItem = it }

func (s *DefragState) MftLockedClusters() units.Clusters64 { return s.mftLockedClusters }

func (s *DefragState) LogFileNames() []string { return s.logFileNames }

// RegisterFragmented updates the fragmented_items/bytes/clusters counters (§3).
func (s *DefragState) RegisterFragmented(it *itemmodel.Item) {
	s.counters.registerFragmented(it.ByteSize, it.ClustersCount)
}

// RegisterGap updates the gaps_found/gaps_clusters counters (§3).
func (s *DefragState) RegisterGap(clusters units.Clusters64) {
	s.counters.registerGap(clusters)
}

// SetCurrentPhase records which phase driver is currently running, completing the "current
// phase" half of the §3 DefragState bag (SetCurrentZone, in host_gapengine.go, covers the other
// half). Not part of any Host interface; RunStages calls it directly before each phase.
func (s *DefragState) SetCurrentPhase(p observer.Phase) { s.currentPhase.Store(int32(p)) }

// CurrentPhase returns the phase SetCurrentPhase last recorded.
func (s *DefragState) CurrentPhase() observer.Phase { return observer.Phase(s.currentPhase.Load()) }

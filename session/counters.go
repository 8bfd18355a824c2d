package session

import (
	"go.uber.org/atomic"

	"github.com/kvakvs/jkdefrag-go/units"
)

// counters holds the §3 DefragState counter bag (all_files, all_bytes, all_clusters,
// fragmented_items/bytes/clusters, gaps stats) plus the phase_todo/clusters_done progress pair,
// all as go.uber.org/atomic values so a phase driver and an observer goroutine can read/update
// them without a mutex (§5: the core is single-threaded, but Observer implementations are free to
// poll these from their own thread).
type counters struct {
	allFiles    atomic.Int64
	allBytes    atomic.Int64
	allClusters atomic.Int64

	fragmentedItems    atomic.Int64
	fragmentedBytes    atomic.Int64
	fragmentedClusters atomic.Int64

	gapsFound    atomic.Int64
	gapsClusters atomic.Int64

	cannotMoveDirs atomic.Int64

	phaseTodo    atomic.Int64
	clustersDone atomic.Int64
}

func (c *counters) registerScanned(bytes units.Bytes64, clusters units.Clusters64) {
	c.allFiles.Inc()
	c.allBytes.Add(int64(bytes))
	c.allClusters.Add(int64(clusters))
}

func (c *counters) registerFragmented(bytes units.Bytes64, clusters units.Clusters64) {
	c.fragmentedItems.Inc()
	c.fragmentedBytes.Add(int64(bytes))
	c.fragmentedClusters.Add(int64(clusters))
}

func (c *counters) registerGap(clusters units.Clusters64) {
	c.gapsFound.Inc()
	c.gapsClusters.Add(int64(clusters))
}

// registerDirMoveFailure increments the shared FAT directory-move-failure latch counter and
// returns its new value (§4.3, §9: "once it exceeds 20, all directories become unmovable").
func (c *counters) registerDirMoveFailure() int {
	return int(c.cannotMoveDirs.Inc())
}

func (c *counters) advance(clusters units.Clusters64) {
	c.clustersDone.Add(int64(clusters))
}

package session_test

import (
	"sync"

	"github.com/kvakvs/jkdefrag-go/itemmodel"
	"github.com/kvakvs/jkdefrag-go/observer"
	"github.com/kvakvs/jkdefrag-go/units"
)

// moveCall records one ShowMove callback, for scenarios that assert on what the mover actually
// told the observer (S3, S6).
type moveCall struct {
	count          units.Clusters64
	fromLCN, toLCN itemmodel.LCN
	fromVCN        itemmodel.VCN
}

// recordingObserver is a minimal observer.Observer that only records ShowMove calls; every other
// callback is a no-op, same posture as observer.NullObserver.
type recordingObserver struct {
	mu    sync.Mutex
	moves []moveCall
}

var _ observer.Observer = (*recordingObserver)(nil)

func (r *recordingObserver) ClearScreen()                                      {}
func (r *recordingObserver) ShowStatus(observer.Phase, int)                    {}
func (r *recordingObserver) ShowAnalyze(*itemmodel.Item)                       {}
func (r *recordingObserver) DrawCluster(itemmodel.LCN, itemmodel.LCN, itemmodel.Color) {}
func (r *recordingObserver) ShowDebug(observer.DebugLevel, *itemmodel.Item, string)    {}
func (r *recordingObserver) MessageBoxError(string, string, int)               {}

func (r *recordingObserver) ShowMove(it *itemmodel.Item, count units.Clusters64, fromLCN, toLCN itemmodel.LCN, fromVCN itemmodel.VCN) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.moves = append(r.moves, moveCall{count: count, fromLCN: fromLCN, toLCN: toLCN, fromVCN: fromVCN})
}

func (r *recordingObserver) moveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.moves)
}

package observer

import (
	"github.com/kvakvs/jkdefrag-go/itemmodel"
	"github.com/kvakvs/jkdefrag-go/units"
)

// NullObserver discards every callback. Useful for tests and for a session driven purely for its
// side effects on the volume (no UI attached).
type NullObserver struct{}

var _ Observer = NullObserver{}

func (NullObserver) ClearScreen()                {}
func (NullObserver) ShowStatus(Phase, int)        {}
func (NullObserver) ShowAnalyze(*itemmodel.Item)  {}
func (NullObserver) ShowMove(*itemmodel.Item, units.Clusters64, itemmodel.LCN, itemmodel.LCN, itemmodel.VCN) {
}
func (NullObserver) DrawCluster(itemmodel.LCN, itemmodel.LCN, itemmodel.Color) {}
func (NullObserver) ShowDebug(DebugLevel, *itemmodel.Item, string)             {}
func (NullObserver) MessageBoxError(string, string, int)                      {}

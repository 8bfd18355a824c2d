package session

import (
	"github.com/kvakvs/jkdefrag-go/itemmodel"
	"github.com/kvakvs/jkdefrag-go/mover"
	"github.com/kvakvs/jkdefrag-go/units"
)

var _ mover.Host = (*DefragState)(nil) // mover.Host embeds gapengine.Host

// IsFree reports whether lcn is unoccupied in the session's cached bitmap.
func (s *DefragState) IsFree(lcn itemmodel.LCN) bool { return !s.bmp.get(lcn) }

// IsMftExcluded reports whether lcn falls in one of the session's reserved MFT ranges.
func (s *DefragState) IsMftExcluded(lcn itemmodel.LCN) bool {
	for _, ex := range s.mftExcludes {
		if ex.Contains(lcn) {
			return true
		}
	}
	return false
}

func (s *DefragState) TotalClusters() itemmodel.LCN { return s.totalClusters }

func (s *DefragState) FreeClusters() units.Clusters64 { return s.bmp.freeClusters() }

// FreeSpacePercent returns the configured per-zone free-space reserve (§6 `-f`), the input to the
// zone calculator's formula - not the volume's actual current free-space ratio.
func (s *DefragState) FreeSpacePercent() float64 { return s.freeSpacePercentReserve }

func (s *DefragState) Tree() *itemmodel.Tree { return s.tree }

func (s *DefragState) Zones() itemmodel.Zones { return s.zones }

func (s *DefragState) CurrentZone() int { return int(s.currentZone.Load()) }

func (s *DefragState) SetCurrentZone(zone int) { s.currentZone.Store(int32(zone)) }

func (s *DefragState) SetZones(z itemmodel.Zones) { s.zones = z }

// Running reports whether the session's running-state flag is still RUNNING (§5).
func (s *DefragState) Running() bool { return s.running.Load() }

// MoveItem is the gapengine.Host/mover.Host entry point every phase drives moves through. It
// delegates to mover.MoveItem (note the argument reorder: that free function takes targetLCN
// before offset/count), then keeps the session's cached bitmap in sync with whatever the item's
// fragments actually ended up as, regardless of which internal retry strategy fired.
func (s *DefragState) MoveItem(it *itemmodel.Item, fromVCN itemmodel.VCN, count units.Clusters64, toLCN itemmodel.LCN, dir itemmodel.Direction) (bool, error) {
	before := it.CloneFragments()
	ok, err := mover.MoveItem(s, it, toLCN, fromVCN, count, dir)
	s.resyncBitmap(before, it.Fragments)
	if ok {
		s.counters.advance(count)
	}
	return ok, err
}

// resyncBitmap frees every physical cluster the item held before a move and marks every physical
// cluster it holds after, so the cached bitmap reflects reality even when a move partially failed
// or took the InFragments retry path internally.
func (s *DefragState) resyncBitmap(before, after []itemmodel.Fragment) {
	walk := func(frags []itemmodel.Fragment, used bool) {
		vcn := itemmodel.VCN(0)
		for _, f := range frags {
			if !f.IsVirtual() {
				length := units.Clusters64(f.NextVCN - vcn)
				s.bmp.markRange(f.LCN, length, used)
			}
			vcn = f.NextVCN
		}
	}
	walk(before, false)
	walk(after, true)
}

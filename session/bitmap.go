package session

import (
	"github.com/kvakvs/jkdefrag-go/itemmodel"
	"github.com/kvakvs/jkdefrag-go/units"
	"github.com/kvakvs/jkdefrag-go/voldriver"
	"github.com/pkg/errors"
)

// bitmap is the session's in-memory copy of the volume's cluster allocation bitmap (§4.1.1): a
// bit set means that LCN is occupied. It is loaded once at session open by paging through
// read_volume_bitmap until the driver reports no more windows, and kept in sync afterward by
// DefragState.MoveItem, which calls markRange for the old and new layout after every move.
type bitmap struct {
	bits  []byte
	total itemmodel.LCN
}

func newBitmap(total itemmodel.LCN) *bitmap {
	if total < 0 {
		total = 0
	}
	return &bitmap{bits: make([]byte, (total+7)/8), total: total}
}

// load pages through the driver's bitmap windows (§4.1.1: "the core iterates calls until
// coverage is complete") and copies every window's bits into place.
func (b *bitmap) load(driver voldriver.Driver) error {
	lcn := itemmodel.LCN(0)
	for lcn < b.total {
		win, err := driver.ReadVolumeBitmap(lcn)
		if err != nil {
			return errors.Wrap(err, "read_volume_bitmap")
		}
		b.applyWindow(win)
		covered := itemmodel.LCN(len(win.Bits) * 8)
		if covered == 0 {
			break
		}
		next := win.StartingLCN + covered
		if !win.More || next <= lcn {
			break
		}
		lcn = next
	}
	return nil
}

func (b *bitmap) applyWindow(win voldriver.BitmapWindow) {
	for i, byt := range win.Bits {
		lcn := win.StartingLCN + itemmodel.LCN(i*8)
		for bit := 0; bit < 8; bit++ {
			l := lcn + itemmodel.LCN(bit)
			if l < 0 || l >= b.total {
				continue
			}
			b.set(l, byt&(1<<uint(bit)) != 0)
		}
	}
}

func (b *bitmap) get(lcn itemmodel.LCN) bool {
	if lcn < 0 || lcn >= b.total {
		return true // out of range is never "free"
	}
	return b.bits[lcn/8]&(1<<uint(lcn%8)) != 0
}

func (b *bitmap) set(lcn itemmodel.LCN, used bool) {
	if lcn < 0 || lcn >= b.total {
		return
	}
	idx, bit := lcn/8, uint(lcn%8)
	if used {
		b.bits[idx] |= 1 << bit
	} else {
		b.bits[idx] &^= 1 << bit
	}
}

// markRange sets every LCN in [start, start+count) to used or free, as the used argument says.
// DefragState.MoveItem's resync calls it after every move, whether or not the move succeeded.
func (b *bitmap) markRange(start itemmodel.LCN, count units.Clusters64, used bool) {
	for i := units.Clusters64(0); i < count; i++ {
		b.set(start+itemmodel.LCN(i), used)
	}
}

// freeClusters counts the unset bits, i.e. the clusters currently unoccupied.
func (b *bitmap) freeClusters() units.Clusters64 {
	var free units.Clusters64
	for l := itemmodel.LCN(0); l < b.total; l++ {
		if !b.get(l) {
			free++
		}
	}
	return free
}

package voldriver

import "github.com/kvakvs/jkdefrag-go/itemmodel"

// windowSize is a window size in clusters for bitmap paging. ReadVolumeBitmap takes no size
// argument, so each driver chooses its own window; nothing in this package reads this constant.
const windowSize = 1 << 20 // clusters per window (implementation policy, §4.2)

// Bit reports whether lcn is set (in use) within window. lcn must fall within
// [window.StartingLCN, window.StartingLCN+8*len(window.Bits)).
func (w BitmapWindow) Bit(lcn itemmodel.LCN) bool {
	idx := int64(lcn - w.StartingLCN)
	if idx < 0 || idx/8 >= int64(len(w.Bits)) {
		return false
	}
	return w.Bits[idx/8]&(1<<uint(idx%8)) != 0
}

// BitReader exposes a single logical bit-test function over the whole volume bitmap, built by
// paging through a Driver's ReadVolumeBitmap until coverage is complete. Concrete Drivers may
// return the whole bitmap in one window (as SimDriver does) or require several calls (as a real
// NTFS/FAT driver reporting MORE_DATA would); either way Bit answers for the whole volume. The
// session keeps its own bitmap copy (session/bitmap.go) and does not use BitReader.
type BitReader struct {
	drv           Driver
	totalClusters itemmodel.LCN
	windows       []BitmapWindow
}

// NewBitReader pages in the entire cluster bitmap from drv.
func NewBitReader(drv Driver, totalClusters itemmodel.LCN) (*BitReader, error) {
	br := &BitReader{drv: drv, totalClusters: totalClusters}
	lcn := itemmodel.LCN(0)
	for lcn < totalClusters {
		w, err := drv.ReadVolumeBitmap(lcn)
		if err != nil {
			return nil, err
		}
		br.windows = append(br.windows, w)
		covered := int64(len(w.Bits)) * 8
		if covered <= 0 {
			break
		}
		lcn = w.StartingLCN + itemmodel.LCN(covered)
		if !w.More {
			break
		}
	}
	return br, nil
}

// Bit reports whether lcn is in use, per the paged-in bitmap.
func (br *BitReader) Bit(lcn itemmodel.LCN) bool {
	for _, w := range br.windows {
		start := w.StartingLCN
		end := start + itemmodel.LCN(len(w.Bits))*8
		if lcn >= start && lcn < end {
			return w.Bit(lcn)
		}
	}
	return true // out of any known window: treat as in-use/unavailable, never offer it as free
}

package voldriver

import (
	"sync"

	"github.com/kvakvs/jkdefrag-go/itemmodel"
	"github.com/kvakvs/jkdefrag-go/units"
)

// SimDriver is an in-memory Driver used by tests and the synthetic end-to-end scenarios in §8:
// "each uses a synthetic bitmap + item table". It is not a real file-system implementation; it
// exists so the gap engine, mover and phases can be exercised deterministically, including fault
// injection for the partial-move retry path (S6).
type SimDriver struct {
	mu sync.Mutex

	data VolumeData

	// used[lcn] is true when that cluster is occupied by some item's physical data.
	used []bool

	// physMap[id] is a per-VCN slot array; physMap[id][vcn] is the LCN that VCN currently maps
	// to, or itemmodel.VIRTUAL if that VCN is a sparse/compressed hole.
	physMap map[itemmodel.ID][]itemmodel.LCN

	// faultOnce, if set for an id, makes the next MoveClusters for that id move only half the
	// requested run (simulating the volume's silent partial move) and then clears itself.
	faultOnce map[itemmodel.ID]bool
}

// NewSimDriver creates a simulated volume of totalClusters clusters, bytesPerCluster each.
func NewSimDriver(totalClusters units.Clusters64, bytesPerCluster units.Bytes64) *SimDriver {
	bps := units.BytesPerSector(512)
	spc := units.SectorsPerCluster(uint64(bytesPerCluster) / uint64(bps))
	if spc == 0 {
		spc = 1
	}
	return &SimDriver{
		data: VolumeData{
			TotalSectors:      units.Sectors64(uint64(totalClusters) * uint64(spc)),
			BytesPerSector:    bps,
			SectorsPerCluster: spc,
			BytesPerMftRecord: 1024,
		},
		used:      make([]bool, totalClusters),
		physMap:   make(map[itemmodel.ID][]itemmodel.LCN),
		faultOnce: make(map[itemmodel.ID]bool),
	}
}

// SetMftGeometry configures the simulated MFT placement fields of VolumeData.
func (s *SimDriver) SetMftGeometry(start, zoneStart, zoneEnd, mft2 itemmodel.LCN) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.MftStartLCN = start
	s.data.MftZoneStart = zoneStart
	s.data.MftZoneEnd = zoneEnd
	s.data.Mft2StartLCN = mft2
}

// SetItem registers an item's fragment list, marking the bitmap occupied for its physical
// clusters. It overwrites any previous registration for id.
func (s *SimDriver) SetItem(id itemmodel.ID, fragments []itemmodel.Fragment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unmarkLocked(id)
	pm := expandFragments(fragments)
	for _, lcn := range pm {
		if lcn != itemmodel.VIRTUAL {
			s.used[lcn] = true
		}
	}
	s.physMap[id] = pm
}

// MarkUsed marks an LCN range occupied without attaching it to any item (used to model
// MFT-exclude ranges or other reserved space in tests).
func (s *SimDriver) MarkUsed(start, end itemmodel.LCN) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for l := start; l < end; l++ {
		s.used[l] = true
	}
}

// FaultNextMove arranges for the next MoveClusters call against id to only relocate half of the
// requested run, simulating the volume's silent partial-move behavior (§4.1.3, scenario S6).
func (s *SimDriver) FaultNextMove(id itemmodel.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faultOnce[id] = true
}

func (s *SimDriver) unmarkLocked(id itemmodel.ID) {
	for _, lcn := range s.physMap[id] {
		if lcn != itemmodel.VIRTUAL {
			s.used[lcn] = false
		}
	}
	delete(s.physMap, id)
}

func expandFragments(fragments []itemmodel.Fragment) []itemmodel.LCN {
	var out []itemmodel.LCN
	prev := itemmodel.VCN(0)
	for _, f := range fragments {
		n := f.NextVCN - prev
		for i := units.Clusters64(0); i < n; i++ {
			if f.IsVirtual() {
				out = append(out, itemmodel.VIRTUAL)
			} else {
				out = append(out, f.LCN+itemmodel.LCN(i))
			}
		}
		prev = f.NextVCN
	}
	return out
}

func compactToFragments(pm []itemmodel.LCN) []itemmodel.Fragment {
	var frags []itemmodel.Fragment
	var vcn units.Clusters64
	for i := 0; i < len(pm); {
		start := pm[i]
		j := i + 1
		if start == itemmodel.VIRTUAL {
			for j < len(pm) && pm[j] == itemmodel.VIRTUAL {
				j++
			}
		} else {
			for j < len(pm) && pm[j] != itemmodel.VIRTUAL && pm[j] == pm[j-1]+1 {
				j++
			}
		}
		vcn += units.Clusters64(j - i)
		frags = append(frags, itemmodel.Fragment{NextVCN: vcn, LCN: start})
		i = j
	}
	return frags
}

// FreeClusters returns the number of clusters currently unused.
func (s *SimDriver) FreeClusters() units.Clusters64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n units.Clusters64
	for _, u := range s.used {
		if !u {
			n++
		}
	}
	return n
}

func (s *SimDriver) ReadVolumeBitmap(startingLCN itemmodel.LCN) (BitmapWindow, error) {
	_ = startingLCN // the simulated driver always returns the full bitmap in one window
	s.mu.Lock()
	defer s.mu.Unlock()
	bits := make([]byte, (len(s.used)+7)/8)
	for i, u := range s.used {
		if u {
			bits[i/8] |= 1 << uint(i%8)
		}
	}
	return BitmapWindow{StartingLCN: 0, Bits: bits, More: false}, nil
}

func (s *SimDriver) GetExtents(id itemmodel.ID) ([]itemmodel.Fragment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pm, ok := s.physMap[id]
	if !ok {
		return nil, &DriverError{Kind: ErrNotFound, Op: "GetExtents"}
	}
	return compactToFragments(pm), nil
}

func (s *SimDriver) MoveClusters(h ItemHandle, startingVCN itemmodel.VCN, targetLCN itemmodel.LCN, count units.Clusters64) (MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, _ := h.(itemmodel.ID)
	pm, ok := s.physMap[id]
	if !ok {
		return MoveResult{}, &DriverError{Kind: ErrNotFound, Op: "MoveClusters"}
	}

	want := count
	if s.faultOnce[id] {
		want = count / 2
		if want == 0 && count > 0 {
			want = 1
		}
		delete(s.faultOnce, id)
	}

	var moved units.Clusters64
	dst := targetLCN
	for vcn := startingVCN; vcn < units.Clusters64(len(pm)) && moved < want; vcn++ {
		if pm[vcn] == itemmodel.VIRTUAL {
			continue
		}
		if int(dst) >= len(s.used) {
			return MoveResult{ClustersMoved: moved}, &DriverError{Kind: ErrIOError, Op: "MoveClusters", Err: errFull}
		}
		if s.used[dst] && pm[vcn] != dst {
			return MoveResult{ClustersMoved: moved}, &DriverError{Kind: ErrIOError, Op: "MoveClusters", Err: errTargetBusy}
		}
		old := pm[vcn]
		s.used[old] = false
		s.used[dst] = true
		pm[vcn] = dst
		dst++
		moved++
	}
	return MoveResult{ClustersMoved: moved}, nil
}

func (s *SimDriver) GetVolumeData() (VolumeData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data, nil
}

func (s *SimDriver) OpenItem(id itemmodel.ID) (ItemHandle, error) { return id, nil }
func (s *SimDriver) Close(ItemHandle) error                       { return nil }
func (s *SimDriver) Flush(ItemHandle) error                       { return nil }

var (
	errFull       = simErr("volume full")
	errTargetBusy = simErr("target cluster busy")
)

type simErr string

func (e simErr) Error() string { return string(e) }

var _ Driver = (*SimDriver)(nil)

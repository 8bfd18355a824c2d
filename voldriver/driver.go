// Package voldriver is the thin seam (§4.1) the core consumes to talk to a mounted volume: read
// the cluster bitmap, query a file's extent map, move clusters, and read boot-record-derived
// volume data. Concrete NTFS/FAT implementations are external collaborators (§1); this package
// only defines the interface and an in-memory SimDriver used by tests and the synthetic
// end-to-end scenarios in §8.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package voldriver

import (
	"github.com/kvakvs/jkdefrag-go/itemmodel"
	"github.com/kvakvs/jkdefrag-go/units"
)

// ErrorKind is the narrow error taxonomy a driver call can report (§4.1).
type ErrorKind int

const (
	ErrNone ErrorKind = iota
	ErrNotFound
	ErrAccessDenied
	ErrIOError
	ErrMoreData
	ErrLocked
	ErrUnsupported
	// ErrCancelled is synthesized by a throttling decorator (not the real driver) when the
	// session's running-state flag has left RUNNING before a call was issued (§5 suspension
	// points); the underlying volume is never actually touched for a call that reports this.
	ErrCancelled
)

// DriverError wraps an ErrorKind with the call that produced it.
type DriverError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *DriverError) Error() string {
	if e.Err != nil {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op
}
func (e *DriverError) Unwrap() error { return e.Err }

// ItemHandle is an opaque handle to an open item, returned by OpenItem.
type ItemHandle interface{}

// VolumeData is the boot-record-and-beyond information §4.1.4 requires.
type VolumeData struct {
	TotalSectors       units.Sectors64
	BytesPerSector     units.BytesPerSector
	SectorsPerCluster  units.SectorsPerCluster
	MftStartLCN        itemmodel.LCN
	MftZoneStart       itemmodel.LCN
	MftZoneEnd         itemmodel.LCN
	Mft2StartLCN       itemmodel.LCN
	MftValidDataLength units.Bytes64
	BytesPerMftRecord  uint32
}

// TotalClusters derives the volume's total cluster count from TotalSectors/SectorsPerCluster.
func (v VolumeData) TotalClusters() units.Clusters64 {
	if v.SectorsPerCluster == 0 {
		return 0
	}
	return units.Clusters64(uint64(v.TotalSectors) / uint64(v.SectorsPerCluster))
}

// BitmapWindow is one page of the cluster allocation bitmap: bit n set means LCN StartingLCN+n
// is in use.
type BitmapWindow struct {
	StartingLCN itemmodel.LCN
	Bits        []byte // little-endian bit order within each byte, bit 0 = StartingLCN
	More        bool   // true if the driver truncated and more windows follow
}

// MoveResult reports how many clusters a MoveClusters call actually relocated; the call may
// partially succeed (§4.1.3) without returning an error.
type MoveResult struct {
	ClustersMoved units.Clusters64
}

// Driver is the volume driver interface (§4.1). Every call is a blocking synchronous point; the
// core is responsible for checking its running-state flag immediately before and after each one
// (§5).
type Driver interface {
	// ReadVolumeBitmap yields a window of the cluster allocation bitmap starting at or after
	// startingLCN. The core iterates calls until coverage is complete (More == false).
	ReadVolumeBitmap(startingLCN itemmodel.LCN) (BitmapWindow, error)

	// GetExtents re-reads the current on-disk extent map for an item.
	GetExtents(id itemmodel.ID) ([]itemmodel.Fragment, error)

	// MoveClusters asks the volume to relocate count clusters of the file beginning at
	// startingVCN to targetLCN. May partially succeed without an error.
	MoveClusters(h ItemHandle, startingVCN itemmodel.VCN, targetLCN itemmodel.LCN, count units.Clusters64) (MoveResult, error)

	// GetVolumeData returns the boot-record-derived volume geometry.
	GetVolumeData() (VolumeData, error)

	// OpenItem/Close/Flush bracket a move; one handle per item under move, released immediately
	// after (§5 resource policy).
	OpenItem(id itemmodel.ID) (ItemHandle, error)
	Close(h ItemHandle) error
	Flush(h ItemHandle) error
}

// Package units provides typed numeric quantities for the sizes a defragmenter juggles
// (bytes, sectors, clusters, inodes, filetimes), so that a stray `sectors * bytesPerCluster`
// is a compile error rather than a 100x bug on someone's volume.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package units

import "time"

type (
	// Bytes64 is a count of bytes.
	Bytes64 uint64
	// Sectors64 is a count of disk sectors.
	Sectors64 uint64
	// Clusters64 is a count of clusters (allocation units).
	Clusters64 uint64
	// Inode64 identifies a file-system record (NTFS MFT record number, FAT directory entry index).
	Inode64 uint64

	// FileTime64 is a 100-nanosecond-tick timestamp since the fixed epoch used by the
	// volume's native metadata (1601-01-01 for NTFS). It is never compared to time.Time
	// without an explicit conversion.
	FileTime64 uint64

	// BytesPerSector and SectorsPerCluster come from the volume's boot record; both must be
	// positive for any conversion below to be meaningful.
	BytesPerSector    uint32
	SectorsPerCluster uint32
)

// filetimeEpochOffset is the number of 100ns ticks between the filetime epoch (1601-01-01)
// and the Unix epoch (1970-01-01).
const filetimeEpochOffset FileTime64 = 116444736000000000

// ToBytes converts a cluster count to bytes given the volume's cluster size in bytes.
func (c Clusters64) ToBytes(bytesPerCluster Bytes64) Bytes64 {
	return Bytes64(c) * bytesPerCluster
}

// ToClusters converts a byte count to a cluster count, rounding up to the next whole cluster.
func (b Bytes64) ToClusters(bytesPerCluster Bytes64) Clusters64 {
	if bytesPerCluster == 0 {
		return 0
	}
	return Clusters64((b + bytesPerCluster - 1) / bytesPerCluster)
}

// ToSectors converts a byte count to a sector count, rounding up.
func (b Bytes64) ToSectors(bytesPerSector BytesPerSector) Sectors64 {
	if bytesPerSector == 0 {
		return 0
	}
	return Sectors64((b + Bytes64(bytesPerSector) - 1) / Bytes64(bytesPerSector))
}

// ToBytes converts a sector count to bytes.
func (s Sectors64) ToBytes(bytesPerSector BytesPerSector) Bytes64 {
	return Bytes64(s) * Bytes64(bytesPerSector)
}

// BytesPerCluster derives the volume's cluster size from its boot-record fields.
func BytesPerCluster(bps BytesPerSector, spc SectorsPerCluster) Bytes64 {
	return Bytes64(bps) * Bytes64(spc)
}

// ToTime converts a filetime64 tick count to a wall-clock time.Time (UTC).
func (ft FileTime64) ToTime() time.Time {
	if ft < filetimeEpochOffset {
		return time.Unix(0, 0).UTC()
	}
	unixNanos := int64((ft - filetimeEpochOffset) * 100)
	return time.Unix(0, unixNanos).UTC()
}

// FromTime converts a wall-clock time to a filetime64 tick count.
func FromTime(t time.Time) FileTime64 {
	nanos := t.UnixNano()
	if nanos < 0 {
		return 0
	}
	return FileTime64(nanos/100) + filetimeEpochOffset
}

// Now returns the current time as a FileTime64, the unit every Item timestamp is stored in.
func Now() FileTime64 {
	return FromTime(time.Now())
}

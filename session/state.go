// Package session owns the §3 DefragState bag: the open volume handle, the item tree, zone
// geometry, MFT bookkeeping, masks and every counter, and assembles them behind the narrow Host
// interfaces gapengine/mover/zonecalc/scanner/phase each declare. A *DefragState is the single
// concrete type threaded through every phase driver for one volume (§9: "Replaced by a
// DefragSession that owns handles to the observer and the volume driver... no process-wide
// mutable state").
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package session

import (
	"github.com/teris-io/shortid"
	"go.uber.org/atomic"

	"github.com/kvakvs/jkdefrag-go/corerr"
	"github.com/kvakvs/jkdefrag-go/itemmodel"
	"github.com/kvakvs/jkdefrag-go/observer"
	"github.com/kvakvs/jkdefrag-go/phase"
	"github.com/kvakvs/jkdefrag-go/units"
	"github.com/kvakvs/jkdefrag-go/voldriver"
)

// DefragState is the session-scoped bag described in spec.md §3. It implements
// gapengine.Host, mover.Host, zonecalc.Host, scanner.Host and phase.Host; see host_*.go for the
// method sets each of those contributes.
type DefragState struct {
	id string

	driver     voldriver.Driver
	dispatcher *observer.Dispatcher
	tree       *itemmodel.Tree
	bmp        *bitmap

	totalClusters   itemmodel.LCN
	bytesPerCluster units.Bytes64

	zones       itemmodel.Zones
	mftExcludes []itemmodel.MftExclude

	masks                   phase.Masks
	freeSpacePercentReserve float64

	mftItem           *itemmodel.Item
	mftLockedClusters units.Clusters64
	logFileNames      []string

	running          atomic.Bool
	allDirsUnmovable atomic.Bool
	currentPhase     atomic.Int32
	currentZone      atomic.Int32

	counters counters
}

// Options configures a new session; everything here corresponds to a §6 CLI flag or a §3
// DefragState field the scanner/analyzer does not derive on its own.
type Options struct {
	Masks                   phase.Masks
	FreeSpacePercentReserve float64 // §6 `-f`
	SlowdownPercent         int     // §6 `-s`
	LogFileNames            []string
	MftLockedClusters       units.Clusters64

	// MftExcludes overrides the excludes this session starts with. Nil means derive a single
	// range from the driver's reported MFT zone (VolumeData.MftZoneStart/End); the real NTFS/FAT
	// analyzer (an external collaborator per §4.5) is expected to call SetMftExcludes itself once
	// it has actually parsed the boot record and run list.
	MftExcludes []itemmodel.MftExclude

	// Device optionally names the OS device the driver rides on (e.g. "sda", `C:`), enabling
	// lufia/iostat busy sampling for the slow_down hook (§5). Left empty, slow_down falls back to
	// SlowdownPercent alone.
	Device string
}

// Open reads the volume's geometry, loads its cluster bitmap, and returns a ready session. The
// returned session uses driver and obs for its lifetime; call Close when done with it. Close does
// not close driver.
func Open(driver voldriver.Driver, obs observer.Observer, opts Options) (*DefragState, error) {
	vd, err := driver.GetVolumeData()
	if err != nil {
		return nil, corerr.New(corerr.KindNotAVolume, err, "get_volume_data")
	}

	id, err := shortid.Generate()
	if err != nil {
		id = "session" // degrade to a fixed id rather than fail the whole session over log correlation
	}

	s := &DefragState{
		id:                      id,
		totalClusters:           itemmodel.LCN(vd.TotalClusters()),
		bytesPerCluster:         units.BytesPerCluster(vd.BytesPerSector, vd.SectorsPerCluster),
		masks:                   opts.Masks,
		freeSpacePercentReserve: opts.FreeSpacePercentReserve,
		logFileNames:            opts.LogFileNames,
		mftLockedClusters:       opts.MftLockedClusters,
	}
	s.running.Store(true)
	s.dispatcher = observer.NewDispatcher(obs)

	var sampler *ioSampler
	if opts.Device != "" {
		sampler = newIOSampler(opts.Device)
	}
	s.driver = &throttledDriver{Driver: driver, running: s.Running, slowdownPct: opts.SlowdownPercent, sampler: sampler}

	tree, err := itemmodel.NewTree()
	if err != nil {
		return nil, err
	}
	s.tree = tree

	s.bmp = newBitmap(s.totalClusters)
	if err := s.bmp.load(s.driver); err != nil {
		return nil, corerr.New(corerr.KindVolumeIO, err, "loading cluster bitmap")
	}

	switch {
	case opts.MftExcludes != nil:
		s.mftExcludes = opts.MftExcludes
	case vd.MftZoneEnd > vd.MftZoneStart:
		s.mftExcludes = []itemmodel.MftExclude{{Start: vd.MftZoneStart, End: vd.MftZoneEnd}}
	}

	return s, nil
}

// ID returns the session's short correlation id, for log lines that span multiple volumes.
func (s *DefragState) ID() string { return s.id }

// Stop requests every phase to return at its next running-state check (§5 cancellation).
func (s *DefragState) Stop() { s.running.Store(false) }

// Close releases the session's resources: the observer dispatcher and the item tree's backing
// store (§5 resource policy: "all heap allocations tied to the ItemTree are freed on session
// end"). The volume driver itself is the caller's to close, since Open never took ownership of
// opening it.
func (s *DefragState) Close() error {
	treeErr := s.tree.Close()
	dispatchErr := s.dispatcher.Close()
	if treeErr != nil {
		return treeErr
	}
	return dispatchErr
}

// SetMftExcludes lets the (external, per §4.5) NTFS/FAT analyzer replace the default
// single-range guess Open made from VolumeData once it has actually parsed the volume's MFT
// layout.
func (s *DefragState) SetMftExcludes(excludes []itemmodel.MftExclude) { s.mftExcludes = excludes }

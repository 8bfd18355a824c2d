package session

import (
	"fmt"

	"github.com/kvakvs/jkdefrag-go/observer"
	"github.com/kvakvs/jkdefrag-go/phase"
)

// Mode is the §6 `-a` optimize mode.
type Mode int

const (
	AnalyzeFixup Mode = iota
	AnalyzeFixupFastopt
	AnalyzeGroup
	AnalyzeMoveToEnd
	AnalyzeSortByName
	AnalyzeSortBySize
	AnalyzeSortByAccess
	AnalyzeSortByChanged
	AnalyzeSortByCreated
)

func (m Mode) String() string {
	switch m {
	case AnalyzeFixup:
		return "AnalyzeFixup"
	case AnalyzeFixupFastopt:
		return "AnalyzeFixupFastopt"
	case AnalyzeGroup:
		return "AnalyzeGroup"
	case AnalyzeMoveToEnd:
		return "AnalyzeMoveToEnd"
	case AnalyzeSortByName:
		return "AnalyzeSortByName"
	case AnalyzeSortBySize:
		return "AnalyzeSortBySize"
	case AnalyzeSortByAccess:
		return "AnalyzeSortByAccess"
	case AnalyzeSortByChanged:
		return "AnalyzeSortByChanged"
	case AnalyzeSortByCreated:
		return "AnalyzeSortByCreated"
	default:
		return "unknown"
	}
}

// ParseMode resolves a `-a` flag value by its exact §6 name.
func ParseMode(name string) (Mode, error) {
	for m := AnalyzeFixup; m <= AnalyzeSortByCreated; m++ {
		if m.String() == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown optimize mode %q", name)
}

// RunStages drives the phase sequence a mode selects, mirroring the original's
// defrag_one_path_stages: analyze always runs first, then the mode-specific phase(s).
// AnalyzeFixupFastopt runs defragment, fixup, optimize-volume, fixup again (a second fixup pass
// picks up whatever optimize-volume left outside its zone, same as the original). move_mft is
// deliberately not part of any mode's sequence - the original itself only ever called it from a
// commented-out mode 11 - but is exposed as MoveMft for a caller that wants it.
func RunStages(host *DefragState, mode Mode) error {
	host.SetCurrentPhase(observer.PhaseAnalyze)
	if err := phase.Analyze(host); err != nil {
		return err
	}
	if !host.Running() {
		return nil
	}

	switch mode {
	case AnalyzeFixup:
		return runPhase(host, observer.PhaseDefragment, phase.Defragment)

	case AnalyzeFixupFastopt:
		if err := runPhase(host, observer.PhaseDefragment, phase.Defragment); err != nil || !host.Running() {
			return err
		}
		if err := runPhase(host, observer.PhaseFixup, phase.Fixup); err != nil || !host.Running() {
			return err
		}
		if err := runPhase(host, observer.PhaseOptimizeVolume, phase.OptimizeVolume); err != nil || !host.Running() {
			return err
		}
		return runPhase(host, observer.PhaseFixup, phase.Fixup)

	case AnalyzeGroup:
		return runPhase(host, observer.PhaseForcedFill, phase.ForcedFill)

	case AnalyzeMoveToEnd:
		return runPhase(host, observer.PhaseOptimizeUp, phase.OptimizeUp)

	case AnalyzeSortByName:
		return runSort(host, phase.SortByName)
	case AnalyzeSortBySize:
		return runSort(host, phase.SortBySize)
	case AnalyzeSortByAccess:
		return runSort(host, phase.SortByLastAccess)
	case AnalyzeSortByChanged:
		return runSort(host, phase.SortByMftChange)
	case AnalyzeSortByCreated:
		return runSort(host, phase.SortByCreation)

	default:
		return fmt.Errorf("session: unknown mode %v", mode)
	}
}

func runPhase(host *DefragState, p observer.Phase, fn func(phase.Host) error) error {
	host.SetCurrentPhase(p)
	return fn(host)
}

func runSort(host *DefragState, field phase.SortField) error {
	host.SetCurrentPhase(observer.PhaseOptimizeSort)
	return phase.OptimizeSort(host, field)
}

// MoveMft runs the best-effort "move $MFT to the start of the volume" step. It is not part of
// any RunStages sequence (see the comment there); a caller invokes it explicitly when it wants
// it, same as the original's commented-out mode 11.
func MoveMft(host *DefragState) error {
	host.SetCurrentPhase(observer.PhaseMoveMft)
	return phase.MoveMft(host)
}

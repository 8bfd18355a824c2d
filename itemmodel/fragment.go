// Package itemmodel is the in-memory model the volume scanner builds and every later phase
// consumes: items decomposed into fragments, ordered by first physical LCN in a balanced-tree
// index, plus the MFT-exclude ranges and zone boundaries that placement decisions are made
// against.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package itemmodel

import "github.com/kvakvs/jkdefrag-go/units"

// LCN is a logical cluster number: an absolute cluster index on the volume.
type LCN int64

// VIRTUAL marks a Fragment that represents sparse/compressed VCN space occupying no physical
// clusters. It is never a valid address into [0, total_clusters).
const VIRTUAL LCN = -1

// VCN is a virtual cluster number: a cluster index within one item's stream, dense (it includes
// holes represented by VIRTUAL fragments).
type VCN = units.Clusters64

// Fragment is one maximal run of VCNs backed by a contiguous LCN range, or VIRTUAL for a
// sparse/compressed hole. The range it covers is [prev.NextVCN, NextVCN) within the owning
// item; fragments are kept in VCN order and never overlap.
type Fragment struct {
	NextVCN VCN
	LCN     LCN
}

// IsVirtual reports whether this fragment occupies no physical clusters.
func (f Fragment) IsVirtual() bool { return f.LCN == VIRTUAL }

// fragmentLength returns the number of VCNs this fragment spans given the VCN the previous
// fragment ended at (0 for the first fragment in an item).
func fragmentLength(prevNextVCN, nextVCN VCN) units.Clusters64 {
	if nextVCN < prevNextVCN {
		return 0
	}
	return nextVCN - prevNextVCN
}

// LastLCN returns the LCN one past the last cluster this fragment occupies, or VIRTUAL if the
// fragment is virtual.
func (f Fragment) LastLCN(prevNextVCN VCN) LCN {
	if f.IsVirtual() {
		return VIRTUAL
	}
	return f.LCN + LCN(fragmentLength(prevNextVCN, f.NextVCN))
}

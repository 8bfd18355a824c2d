package session

import (
	"github.com/kvakvs/jkdefrag-go/itemmodel"
	"github.com/kvakvs/jkdefrag-go/zonecalc"
)

var _ zonecalc.Host = (*DefragState)(nil)

// MftExcludes returns the session's current reserved-MFT-range list, shared by the gap engine
// (IsMftExcluded), the zone calculator, and phase.Host.
func (s *DefragState) MftExcludes() []itemmodel.MftExclude { return s.mftExcludes }

package session

import (
	"github.com/kvakvs/jkdefrag-go/itemmodel"
	"github.com/kvakvs/jkdefrag-go/scanner"
)

var _ scanner.Host = (*DefragState)(nil)

// RegisterScannedItem updates the all_files/all_bytes/all_clusters running totals for a freshly
// scanned item. It does not count fragmented items; the analyze phase does that through
// RegisterFragmented.
func (s *DefragState) RegisterScannedItem(it *itemmodel.Item) {
	s.counters.registerScanned(it.ByteSize, it.ClustersCount)
}

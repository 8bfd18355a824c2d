package units_test

import (
	"testing"
	"time"

	"github.com/kvakvs/jkdefrag-go/units"
)

func TestClusterByteRoundTrip(t *testing.T) {
	const bpc = units.Bytes64(4096)
	cases := []struct {
		bytes units.Bytes64
		want  units.Clusters64
	}{
		{0, 0},
		{1, 1},
		{4096, 1},
		{4097, 2},
		{8192, 2},
	}
	for _, c := range cases {
		if got := c.bytes.ToClusters(bpc); got != c.want {
			t.Errorf("%d.ToClusters(%d) = %d, want %d", c.bytes, bpc, got, c.want)
		}
	}
}

func TestBytesPerCluster(t *testing.T) {
	got := units.BytesPerCluster(512, 8)
	if got != 4096 {
		t.Errorf("BytesPerCluster(512, 8) = %d, want 4096", got)
	}
}

func TestFileTimeRoundTrip(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ft := units.FromTime(now)
	got := ft.ToTime()
	if !got.Equal(now) {
		t.Errorf("round trip mismatch: got %v, want %v", got, now)
	}
}

func TestSectorsConversion(t *testing.T) {
	const bps = units.BytesPerSector(512)
	if got := units.Bytes64(1025).ToSectors(bps); got != 3 {
		t.Errorf("ToSectors = %d, want 3", got)
	}
	if got := units.Sectors64(3).ToBytes(bps); got != 1536 {
		t.Errorf("ToBytes = %d, want 1536", got)
	}
}

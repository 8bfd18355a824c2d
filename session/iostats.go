package session

import (
	"time"

	"github.com/lufia/iostat"
)

// ioSampler sources optional disk-busy samples for slow_down (§5) via lufia/iostat's per-drive
// read/write-time counters, keyed by an OS device name the caller supplies. Best-effort: a device
// iostat cannot read (wrong name, unsupported platform, insufficient privilege) simply reports
// ok=false and slow_down falls back to the configured percentage alone.
type ioSampler struct {
	device string
	last   map[string]driveSample
}

type driveSample struct {
	at   time.Time
	busy time.Duration
}

func newIOSampler(device string) *ioSampler {
	return &ioSampler{device: device, last: make(map[string]driveSample)}
}

// busyPercent returns the percentage (0-100) of wall-clock time since the previous sample that the device
// spent servicing reads/writes, or ok=false on the first sample (no baseline yet) or any error.
func (s *ioSampler) busyPercent() (percent float64, ok bool) {
	if s.device == "" {
		return 0, false
	}
	drives, err := iostat.ReadDriveStats()
	if err != nil {
		return 0, false
	}
	for _, d := range drives {
		if d.Name != s.device {
			continue
		}
		now := time.Now()
		busy := d.ReadTime + d.WriteTime
		prev, seen := s.last[d.Name]
		s.last[d.Name] = driveSample{at: now, busy: busy}
		if !seen {
			return 0, false
		}
		wall := now.Sub(prev.at)
		if wall <= 0 || busy < prev.busy {
			return 0, false
		}
		return float64(busy-prev.busy) / float64(wall) * 100, true
	}
	return 0, false
}

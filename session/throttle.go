package session

import (
	"time"

	"github.com/kvakvs/jkdefrag-go/itemmodel"
	"github.com/kvakvs/jkdefrag-go/units"
	"github.com/kvakvs/jkdefrag-go/voldriver"
)

// throttledDriver wraps the real voldriver.Driver with the §5 concurrency model's two duties at
// every volume-driver suspension point: checking the running-state flag immediately before the
// call (cancellation - "in-flight volume calls are not interrupted", so the check happens only
// before, never by aborting a call already issued), and invoking slow_down, which may sleep to
// honor the user's configured slowdown percentage. Close/Flush are deliberately left to the
// embedded Driver's own methods, unthrottled: resource-release calls must never be blocked by a
// STOPPING session (§5 resource policy: "all handles... released in any exit path").
type throttledDriver struct {
	voldriver.Driver
	running     func() bool
	slowdownPct int
	sampler     *ioSampler
}

func (t *throttledDriver) suspend() error {
	if !t.running() {
		return &voldriver.DriverError{Kind: voldriver.ErrCancelled, Op: "suspend"}
	}
	t.slowDown()
	return nil
}

// slowDown sleeps a duration proportional to the configured percentage (0-100 -> 0-100ms per
// call), halved when an ioSampler reports the underlying device is not presently busy - there is
// no reason to throttle further work the disk has headroom for.
func (t *throttledDriver) slowDown() {
	if t.slowdownPct <= 0 {
		return
	}
	sleep := time.Duration(t.slowdownPct) * time.Millisecond
	if t.sampler != nil {
		if busy, ok := t.sampler.busyPercent(); ok && busy < 25 {
			sleep /= 2
		}
	}
	time.Sleep(sleep)
}

func (t *throttledDriver) ReadVolumeBitmap(startingLCN itemmodel.LCN) (voldriver.BitmapWindow, error) {
	if err := t.suspend(); err != nil {
		return voldriver.BitmapWindow{}, err
	}
	return t.Driver.ReadVolumeBitmap(startingLCN)
}

func (t *throttledDriver) GetExtents(id itemmodel.ID) ([]itemmodel.Fragment, error) {
	if err := t.suspend(); err != nil {
		return nil, err
	}
	return t.Driver.GetExtents(id)
}

func (t *throttledDriver) MoveClusters(h voldriver.ItemHandle, startingVCN itemmodel.VCN, targetLCN itemmodel.LCN, count units.Clusters64) (voldriver.MoveResult, error) {
	if err := t.suspend(); err != nil {
		return voldriver.MoveResult{}, err
	}
	return t.Driver.MoveClusters(h, startingVCN, targetLCN, count)
}

func (t *throttledDriver) GetVolumeData() (voldriver.VolumeData, error) {
	if err := t.suspend(); err != nil {
		return voldriver.VolumeData{}, err
	}
	return t.Driver.GetVolumeData()
}

func (t *throttledDriver) OpenItem(id itemmodel.ID) (voldriver.ItemHandle, error) {
	if err := t.suspend(); err != nil {
		return nil, err
	}
	return t.Driver.OpenItem(id)
}

var _ voldriver.Driver = (*throttledDriver)(nil)

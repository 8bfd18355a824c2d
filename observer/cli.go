package observer

import (
	"fmt"
	"sync"

	"github.com/golang/glog"
	"github.com/kvakvs/jkdefrag-go/itemmodel"
	"github.com/kvakvs/jkdefrag-go/units"
	"github.com/vbauerster/mpb/v4"
	"github.com/vbauerster/mpb/v4/decor"
)

const progressBarWidth = 60

// CLIObserver renders ShowStatus as an mpb progress bar (one per phase, since each phase has its
// own natural "done" point) and everything else through glog, gated by MinDebugLevel. It is the
// `cmd/jkdefrag` default Observer.
type CLIObserver struct {
	MinDebugLevel DebugLevel

	mu      sync.Mutex
	p       *mpb.Progress
	bars    map[Phase]*mpb.Bar
	current Phase
}

var _ Observer = (*CLIObserver)(nil)

// NewCLIObserver starts an mpb progress renderer; messages above minLevel are not logged.
func NewCLIObserver(minLevel DebugLevel) *CLIObserver {
	return &CLIObserver{
		MinDebugLevel: minLevel,
		p:             mpb.New(mpb.WithWidth(progressBarWidth)),
		bars:          make(map[Phase]*mpb.Bar),
	}
}

func (o *CLIObserver) ClearScreen() {
	fmt.Print("\033[H\033[2J")
}

// ShowStatus reports which phase/zone is running. A new bar is added the first time a phase is
// seen, with a fixed total of 100; ShowMove advances the current phase's bar by one per move, so
// the percentage shown counts moves, not clusters.
func (o *CLIObserver) ShowStatus(phase Phase, zone int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.current = phase
	if _, ok := o.bars[phase]; !ok {
		name := phase.String()
		o.bars[phase] = o.p.AddBar(100,
			mpb.PrependDecorators(decor.Name(name, decor.WC{W: len(name) + 2, C: decor.DSyncWidthR})),
			mpb.AppendDecorators(decor.Percentage(decor.WCSyncWidth)),
		)
	}
	glog.V(int32(Progress)).Infof("phase=%s zone=%d", phase, zone)
}

func (o *CLIObserver) ShowAnalyze(it *itemmodel.Item) {
	if o.MinDebugLevel < DetailedFileInfo {
		return
	}
	glog.V(int32(DetailedFileInfo)).Infof("analyze: %s (%d clusters)", it.LongPath, it.ClustersCount)
}

func (o *CLIObserver) ShowMove(it *itemmodel.Item, count units.Clusters64, fromLCN, toLCN itemmodel.LCN, fromVCN itemmodel.VCN) {
	glog.V(int32(DetailedProgress)).Infof("move: %s count=%d from_lcn=%d to_lcn=%d from_vcn=%d", it.LongPath, count, fromLCN, toLCN, fromVCN)
	o.mu.Lock()
	defer o.mu.Unlock()
	if bar, ok := o.bars[o.current]; ok {
		bar.IncrBy(1)
	}
}

func (o *CLIObserver) DrawCluster(lcnBegin, lcnEnd itemmodel.LCN, color itemmodel.Color) {
	// No pixel surface on a terminal; this is a no-op hook for a future curses-style renderer.
}

func (o *CLIObserver) ShowDebug(level DebugLevel, it *itemmodel.Item, text string) {
	if level > o.MinDebugLevel {
		return
	}
	if it != nil {
		glog.V(int32(level)).Infof("%s: %s", it.LongPath, text)
		return
	}
	glog.V(int32(level)).Info(text)
}

func (o *CLIObserver) MessageBoxError(text, caption string, exitCode int) {
	glog.Errorf("%s: %s", caption, text)
}

// Wait blocks until every bar has reached its target; cmd/jkdefrag calls this before exiting so
// the terminal isn't left mid-render.
func (o *CLIObserver) Wait() {
	o.p.Wait()
}

package observer

import (
	"context"

	"github.com/golang/glog"
	"github.com/kvakvs/jkdefrag-go/itemmodel"
	"github.com/kvakvs/jkdefrag-go/units"
	"golang.org/x/sync/errgroup"
)

// dispatcherQueueSize bounds the mailbox; a renderer that falls behind drops callbacks rather
// than ever blocking the phase/mover goroutine that emits them (§5: observers run on a separate
// thread, one-way).
const dispatcherQueueSize = 1024

type call func(Observer)

// Dispatcher forwards every Observer call to a target implementation from its own goroutine, so a
// slow GUI/CLI renderer can never stall a volume call. It satisfies Observer itself.
type Dispatcher struct {
	target Observer
	ch     chan call
	group  *errgroup.Group
	cancel context.CancelFunc
}

// NewDispatcher starts the dispatcher goroutine. Callers must call Close when the session ends.
func NewDispatcher(target Observer) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)
	d := &Dispatcher{target: target, ch: make(chan call, dispatcherQueueSize), group: group, cancel: cancel}
	group.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case c, ok := <-d.ch:
				if !ok {
					return nil
				}
				c(d.target)
			}
		}
	})
	return d
}

func (d *Dispatcher) enqueue(c call) {
	select {
	case d.ch <- c:
	default:
		glog.Warningf("observer: dispatcher queue full (%d), dropping a callback", dispatcherQueueSize)
	}
}

func (d *Dispatcher) ClearScreen() { d.enqueue(func(o Observer) { o.ClearScreen() }) }

func (d *Dispatcher) ShowStatus(phase Phase, zone int) {
	d.enqueue(func(o Observer) { o.ShowStatus(phase, zone) })
}

func (d *Dispatcher) ShowAnalyze(it *itemmodel.Item) {
	d.enqueue(func(o Observer) { o.ShowAnalyze(it) })
}

func (d *Dispatcher) ShowMove(it *itemmodel.Item, count units.Clusters64, fromLCN, toLCN itemmodel.LCN, fromVCN itemmodel.VCN) {
	d.enqueue(func(o Observer) { o.ShowMove(it, count, fromLCN, toLCN, fromVCN) })
}

func (d *Dispatcher) DrawCluster(lcnBegin, lcnEnd itemmodel.LCN, color itemmodel.Color) {
	d.enqueue(func(o Observer) { o.DrawCluster(lcnBegin, lcnEnd, color) })
}

func (d *Dispatcher) ShowDebug(level DebugLevel, it *itemmodel.Item, text string) {
	d.enqueue(func(o Observer) { o.ShowDebug(level, it, text) })
}

func (d *Dispatcher) MessageBoxError(text, caption string, exitCode int) {
	d.enqueue(func(o Observer) { o.MessageBoxError(text, caption, exitCode) })
}

// Close stops accepting new calls, drains the queue and waits for the dispatcher goroutine to
// exit. Safe to call once at session end (§5 resource policy).
func (d *Dispatcher) Close() error {
	close(d.ch)
	err := d.group.Wait()
	d.cancel()
	return err
}

package light

import (
	"context"
	"time"
)

// DefaultBlinkInterval is the period between two alert commands
const DefaultBlinkInterval = time.Second

// blinker re-sends an alert to one light at a fixed interval until stopped.
// A blinker is owned by exactly one Controller and never restarted.
type blinker struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newBlinker() *blinker {
	ctx, cancel := context.WithCancel(context.Background())
	return &blinker{
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// run ticks until stopped or until tick fails. failed is called at most
// once, from the blinker goroutine, and the loop exits right after it.
func (b *blinker) run(interval time.Duration, tick func() error, failed func(error)) {
	defer close(b.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.ctx.Done():
			return
		case <-ticker.C:
		}

		// select picks at random when both are ready
		if b.ctx.Err() != nil {
			return
		}
		if err := tick(); err != nil {
			failed(err)
			return
		}
	}
}

// stop cancels the blinker and waits for its goroutine to exit. A tick
// already talking to the device completes first.
func (b *blinker) stop() {
	b.cancel()
	<-b.done
}

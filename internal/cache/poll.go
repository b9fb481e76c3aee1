package cache

import (
	"context"
	"sync"
	"time"

	"github.com/julianstephens/fleetboard/internal/logger"
)

// Poller refreshes one key on a fixed interval while a view retains it.
type Poller struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Poll starts refreshing key every interval. Each tick invalidates the key and
// reads it again, handing the result to onResult. Polling ends when ctx ends,
// when Stop is called, or once no view retains the key any more.
func Poll[T any](ctx context.Context, c *Coordinator, key Key, every time.Duration, fetch func(context.Context) (T, error), onResult func(T, error)) *Poller {
	ctx, cancel := context.WithCancel(ctx)
	p := &Poller{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(p.done)
		ticker := time.NewTicker(every)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			if !c.Retained(key) {
				logger.Debug("poller stopped: key released", "key", key)
				return
			}
			c.Invalidate(key)
			v, err := Read(ctx, c, key, fetch)
			if ctx.Err() != nil {
				return
			}
			if onResult != nil {
				onResult(v, err)
			}
		}
	}()
	return p
}

// Stop ends polling and waits for the loop to exit. Safe to call more than once.
func (p *Poller) Stop() {
	p.once.Do(p.cancel)
	<-p.done
}

// Done is closed once the poller has exited
func (p *Poller) Done() <-chan struct{} { return p.done }

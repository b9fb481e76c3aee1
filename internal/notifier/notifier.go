// Package notifier delivers mutation outcomes to the user: the desktop tray
// app, the log, and optionally an AMQP exchange.
package notifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/julianstephens/fleetboard/internal/cache"
	"github.com/julianstephens/fleetboard/internal/logger"
)

// Text renders an outcome as one line of user-facing text
func Text(o cache.Outcome) string {
	if o.Success() {
		return o.Message
	}
	if o.Message != "" {
		return fmt.Sprintf("%s failed: %s", o.Operation, o.Message)
	}
	return o.Operation + " failed"
}

// Log writes outcomes to the application log.
type Log struct{}

func (Log) Notify(_ context.Context, o cache.Outcome) error {
	if o.Success() {
		logger.Info("mutation succeeded", "op", o.Operation, "message", o.Message)
	} else {
		logger.Warn("mutation failed", "op", o.Operation, "error", o.Err)
	}
	return nil
}

// Multi fans an outcome out to every notifier. All are tried; their errors
// are joined.
type Multi []cache.Notifier

func (m Multi) Notify(ctx context.Context, o cache.Outcome) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, o); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps every outcome it receives. The TUI uses it as its status
// line source.
type Recorder struct {
	ch chan cache.Outcome
}

// NewRecorder buffers up to size outcomes; older ones are dropped when full.
func NewRecorder(size int) *Recorder {
	return &Recorder{ch: make(chan cache.Outcome, max(size, 1))}
}

func (r *Recorder) Notify(_ context.Context, o cache.Outcome) error {
	for {
		select {
		case r.ch <- o:
			return nil
		default:
		}
		select {
		case <-r.ch:
		default:
		}
	}
}

// Outcomes yields recorded outcomes as they arrive
func (r *Recorder) Outcomes() <-chan cache.Outcome { return r.ch }

package cache

import (
	"context"
	"time"

	"github.com/julianstephens/fleetboard/internal/errors"
	"github.com/julianstephens/fleetboard/internal/logger"
)

// Outcome is the result of one mutation as reported to the user
type Outcome struct {
	Operation string
	Message   string
	Err       error
	At        time.Time
}

// Success reports whether the mutation went through
func (o Outcome) Success() bool { return o.Err == nil }

// Notifier delivers mutation outcomes. A failing notifier never fails the mutation.
type Notifier interface {
	Notify(ctx context.Context, o Outcome) error
}

// NotifierFunc adapts a plain function to Notifier
type NotifierFunc func(ctx context.Context, o Outcome) error

func (f NotifierFunc) Notify(ctx context.Context, o Outcome) error { return f(ctx, o) }

type discard struct{}

func (discard) Notify(context.Context, Outcome) error { return nil }

// Mutation describes one write against the Schedule Service.
//
// Check runs before any remote call; an error from it is reported like a
// failed write and Write is skipped. Invalidates lists the key prefixes the
// write affects; InvalidatesFor can add prefixes that depend on the result.
// InvalidatesFor gets the zero T when the write committed but its response
// could not be read.
type Mutation[T any] struct {
	Name           string
	Check          func() error
	Write          func(ctx context.Context) (T, error)
	Invalidates    []Key
	InvalidatesFor func(T) []Key
	Describe       func(T) string
}

// Mutate runs m once. The write is never retried and is not cancelled when
// ctx ends. On success the declared prefixes are invalidated before the
// outcome is emitted. On failure the cache is left alone unless the error says
// the write committed anyway. Exactly one outcome is emitted either way.
func Mutate[T any](ctx context.Context, c *Coordinator, m Mutation[T]) (T, error) {
	var zero T
	done := logger.Time(m.Name)

	if m.Check != nil {
		if err := m.Check(); err != nil {
			c.emit(ctx, Outcome{Operation: m.Name, Err: err, Message: err.Error()})
			done(&err)
			return zero, err
		}
	}

	res, err := m.Write(context.WithoutCancel(ctx))
	if err != nil {
		if errors.IsCommitted(err) {
			invalidateFor(c, m, zero)
		}
		c.emit(ctx, Outcome{Operation: m.Name, Err: err, Message: err.Error()})
		done(&err)
		return zero, err
	}

	invalidateFor(c, m, res)

	msg := m.Name + " succeeded"
	if m.Describe != nil {
		msg = m.Describe(res)
	}
	c.emit(ctx, Outcome{Operation: m.Name, Message: msg})
	done(nil)
	return res, nil
}

func invalidateFor[T any](c *Coordinator, m Mutation[T], res T) {
	prefixes := m.Invalidates
	if m.InvalidatesFor != nil {
		prefixes = append(append([]Key{}, prefixes...), m.InvalidatesFor(res)...)
	}
	if len(prefixes) > 0 {
		c.Invalidate(prefixes...)
	}
}

func (c *Coordinator) emit(ctx context.Context, o Outcome) {
	if o.At.IsZero() {
		o.At = c.now()
	}
	if err := c.notifier.Notify(context.WithoutCancel(ctx), o); err != nil {
		logger.Warn("outcome notification failed", "op", o.Operation, "error", err)
	}
}

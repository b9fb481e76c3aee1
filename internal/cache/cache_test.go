package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/julianstephens/fleetboard/internal/errors"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func counting(v string, n *int32) func(context.Context) (string, error) {
	return func(context.Context) (string, error) {
		atomic.AddInt32(n, 1)
		return v, nil
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestKeyPrefix(t *testing.T) {
	tests := []struct {
		key, prefix Key
		want        bool
	}{
		{NewKey(RootSchedule, "2025-06-10"), NewKey(RootSchedule), true},
		{NewKey(RootSchedule, "2025-06-10"), NewKey(RootSchedule, "2025-06-10"), true},
		{NewKey(RootSchedule, "2025-06-10"), NewKey(RootSchedule, "2025-06-1"), false},
		{NewKey(RootDriverDays, 17, "2025-06-01", "2025-06-30"), NewKey(RootDriverDays, 17), true},
		{NewKey(RootDriverDays, 170, "2025-06-01"), NewKey(RootDriverDays, 17), false},
		{NewKey(RootTrip, 5), "", true},
	}
	for _, tt := range tests {
		if got := tt.key.HasPrefix(tt.prefix); got != tt.want {
			t.Errorf("%q.HasPrefix(%q) = %v, want %v", tt.key, tt.prefix, got, tt.want)
		}
	}

	k := NewKey(RootAssignments, "a/b", 3)
	if k != "assignments/a_b/3" {
		t.Errorf("NewKey() = %q, want separators in parts escaped", k)
	}
	if k.Root() != RootAssignments || len(k.Parts()) != 3 {
		t.Errorf("Root() = %q, Parts() = %v", k.Root(), k.Parts())
	}
	if got := NewKey(RootSchedule).Child("2025-06-10"); got != "schedule/2025-06-10" {
		t.Errorf("Child() = %q", got)
	}
}

func TestReadDeduplicatesConcurrentFetches(t *testing.T) {
	c := New()
	key := NewKey(RootSchedule, "2025-06-10")

	var fetches int32
	release := make(chan struct{})
	fetch := func(context.Context) (string, error) {
		atomic.AddInt32(&fetches, 1)
		<-release
		return "snapshot", nil
	}

	const readers = 8
	var wg sync.WaitGroup
	results := make([]string, readers)
	errs := make([]error, readers)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = Read(context.Background(), c, key, fetch)
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := atomic.LoadInt32(&fetches); n != 1 {
		t.Errorf("fetches = %d, want 1", n)
	}
	for i := range results {
		if errs[i] != nil || results[i] != "snapshot" {
			t.Errorf("reader %d got %q, %v", i, results[i], errs[i])
		}
	}
}

func TestReadStaleness(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))
	ctx := context.Background()

	tests := []struct {
		name    string
		key     Key
		advance time.Duration
		want    int32
	}{
		{name: "summary within window", key: NewKey(RootSchedule, "2025-06-10"), advance: time.Minute, want: 1},
		{name: "summary past window", key: NewKey(RootSchedule, "2025-06-11"), advance: 3 * time.Minute, want: 2},
		{name: "reference within window", key: NewKey(RootDrivers, "active"), advance: 30 * time.Minute, want: 1},
		{name: "zero window always refetches", key: NewKey(RootTrip, 5), advance: 0, want: 2},
		{name: "unknown root always refetches", key: NewKey("customers"), advance: 0, want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n int32
			if _, err := Read(ctx, c, tt.key, counting("v", &n)); err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			clock.Advance(tt.advance)
			if _, err := Read(ctx, c, tt.key, counting("v", &n)); err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if n != tt.want {
				t.Errorf("fetches = %d, want %d", n, tt.want)
			}
		})
	}
}

func TestInvalidateByPrefix(t *testing.T) {
	c := New()
	ctx := context.Background()

	var n10, n11, drivers int32
	k10 := NewKey(RootSchedule, "2025-06-10")
	k11 := NewKey(RootSchedule, "2025-06-11")
	kd := NewKey(RootDrivers, "active")
	for _, r := range []struct {
		k Key
		n *int32
	}{{k10, &n10}, {k11, &n11}, {kd, &drivers}} {
		if _, err := Read(ctx, c, r.k, counting("v", r.n)); err != nil {
			t.Fatal(err)
		}
	}

	if got := c.Invalidate(NewKey(RootSchedule)); got != 2 {
		t.Errorf("Invalidate() = %d, want 2", got)
	}
	if c.Peek(k10) != StateInvalidated || c.Peek(kd) != StateFresh {
		t.Errorf("states after invalidate = %v / %v", c.Peek(k10), c.Peek(kd))
	}

	for _, r := range []struct {
		k Key
		n *int32
	}{{k10, &n10}, {k11, &n11}, {kd, &drivers}} {
		if _, err := Read(ctx, c, r.k, counting("v", r.n)); err != nil {
			t.Fatal(err)
		}
	}
	if n10 != 2 || n11 != 2 || drivers != 1 {
		t.Errorf("fetch counts = %d, %d, %d; want 2, 2, 1", n10, n11, drivers)
	}
}

func TestInvalidateDuringFlightDropsResult(t *testing.T) {
	c := New()
	key := NewKey(RootSchedule, "2025-06-10")

	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(context.Context) (string, error) {
		close(started)
		<-release
		return "old", nil
	}

	got := make(chan string, 1)
	go func() {
		v, _ := Read(context.Background(), c, key, fetch)
		got <- v
	}()

	<-started
	c.Invalidate(key)
	close(release)

	if v := <-got; v != "old" {
		t.Errorf("in-flight reader got %q, want the fetched value", v)
	}
	if s := c.Peek(key); s != StateInvalidated {
		t.Errorf("Peek() = %v, want invalidated", s)
	}
	if c.Stats().Discarded != 1 {
		t.Errorf("Discarded = %d, want 1", c.Stats().Discarded)
	}

	var n int32
	v, err := Read(context.Background(), c, key, counting("new", &n))
	if err != nil || v != "new" || n != 1 {
		t.Errorf("Read() after invalidation = %q, %v (fetches %d)", v, err, n)
	}
}

func TestReadCallerCancelled(t *testing.T) {
	c := New()
	key := NewKey(RootAlerts)

	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(ctx context.Context) (string, error) {
		close(started)
		<-release
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "alerts", nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := Read(ctx, c, key, fetch)
		errc <- err
	}()

	<-started
	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("Read() error = %v, want context.Canceled", err)
	}

	close(release)
	waitFor(t, func() bool { return c.Peek(key) == StateFresh })
}

func TestReadFetchError(t *testing.T) {
	c := New()
	key := NewKey(RootTankers)
	boom := errors.New("boom")

	_, err := Read(context.Background(), c, key, func(context.Context) (int, error) { return 0, boom })
	if !errors.Is(err, boom) {
		t.Errorf("Read() error = %v, want %v", err, boom)
	}
	if s := c.Peek(key); s != StatePending {
		t.Errorf("Peek() after failed fetch = %v, want pending", s)
	}
}

func TestReadTypeMismatch(t *testing.T) {
	c := New()
	key := NewKey(RootDrivers)
	if _, err := Read(context.Background(), c, key, func(context.Context) (string, error) { return "x", nil }); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(context.Background(), c, key, func(context.Context) (int, error) { return 1, nil }); err == nil {
		t.Error("Read() with a different type should fail")
	}
}

func TestRetainRelease(t *testing.T) {
	c := New()
	key := NewKey(RootSchedule, "2025-06-10")

	r1 := c.Retain(key)
	r2 := c.Retain(key)
	if _, err := Read(context.Background(), c, key, func(context.Context) (string, error) { return "v", nil }); err != nil {
		t.Fatal(err)
	}

	r1()
	r1()
	if !c.Retained(key) || c.Peek(key) != StateFresh {
		t.Fatalf("entry evicted while still retained: %v", c.Peek(key))
	}
	r2()
	if c.Peek(key) != StateAbsent || c.Len() != 0 {
		t.Errorf("entry not evicted after last release: %v", c.Peek(key))
	}
	if c.Stats().Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", c.Stats().Evictions)
	}
}

func TestPrune(t *testing.T) {
	c := New()
	held := NewKey(RootDrivers)
	release := c.Retain(held)
	defer release()

	for _, k := range []Key{held, NewKey(RootTankers), NewKey(RootMe)} {
		if _, err := Read(context.Background(), c, k, func(context.Context) (int, error) { return 1, nil }); err != nil {
			t.Fatal(err)
		}
	}
	if got := c.Prune(); got != 2 {
		t.Errorf("Prune() = %d, want 2", got)
	}
	if c.Peek(held) != StateFresh {
		t.Error("retained entry was pruned")
	}
}

type recorder struct {
	mu       sync.Mutex
	outcomes []Outcome
	err      error
}

func (r *recorder) Notify(_ context.Context, o Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
	return r.err
}

func seed(t *testing.T, c *Coordinator, keys ...Key) {
	t.Helper()
	for _, k := range keys {
		if _, err := Read(context.Background(), c, k, func(context.Context) (int, error) { return 1, nil }); err != nil {
			t.Fatal(err)
		}
	}
}

func TestMutateSuccess(t *testing.T) {
	rec := &recorder{}
	c := New(WithNotifier(rec))
	sched := NewKey(RootSchedule, "2025-06-10")
	seed(t, c, sched, NewKey(RootDrivers))

	writes := 0
	got, err := Mutate(context.Background(), c, Mutation[int]{
		Name:        "lock",
		Write:       func(context.Context) (int, error) { writes++; return 7, nil },
		Invalidates: []Key{sched},
		Describe:    func(v int) string { return "locked" },
	})
	if err != nil || got != 7 {
		t.Fatalf("Mutate() = %d, %v", got, err)
	}
	if writes != 1 {
		t.Errorf("writes = %d, want 1", writes)
	}
	if c.Peek(sched) != StateInvalidated || c.Peek(NewKey(RootDrivers)) != StateFresh {
		t.Errorf("states = %v / %v", c.Peek(sched), c.Peek(NewKey(RootDrivers)))
	}
	if len(rec.outcomes) != 1 || !rec.outcomes[0].Success() || rec.outcomes[0].Message != "locked" {
		t.Errorf("outcomes = %+v, want one success", rec.outcomes)
	}
	if rec.outcomes[0].At.IsZero() {
		t.Error("outcome has no timestamp")
	}
}

func TestMutateFailureLeavesCache(t *testing.T) {
	rec := &recorder{}
	c := New(WithNotifier(rec))
	sched := NewKey(RootSchedule, "2025-06-10")
	seed(t, c, sched)

	boom := errors.New("schedule is locked")
	writes := 0
	_, err := Mutate(context.Background(), c, Mutation[int]{
		Name:        "update trip",
		Write:       func(context.Context) (int, error) { writes++; return 0, boom },
		Invalidates: []Key{sched},
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Mutate() error = %v, want %v", err, boom)
	}
	if writes != 1 {
		t.Errorf("writes = %d, want exactly one attempt", writes)
	}
	if c.Peek(sched) != StateFresh {
		t.Errorf("failed mutation invalidated the cache: %v", c.Peek(sched))
	}
	if len(rec.outcomes) != 1 || rec.outcomes[0].Success() {
		t.Errorf("outcomes = %+v, want one failure", rec.outcomes)
	}
}

func TestMutateCommittedFailureInvalidates(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		state State
	}{
		{name: "rejected", err: errors.New("remote 422: bad notes"), state: StateFresh},
		{name: "written but unreadable", err: fmt.Errorf("%w: unexpected EOF", apperrors.ErrUnreadableResponse), state: StateInvalidated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			c := New(WithNotifier(rec))
			sched := NewKey(RootSchedule, "2025-06-10")
			drivers := NewKey(RootDrivers)
			seed(t, c, sched, drivers)

			_, err := Mutate(context.Background(), c, Mutation[int]{
				Name:           "update trip",
				Write:          func(context.Context) (int, error) { return 0, tt.err },
				Invalidates:    []Key{sched},
				InvalidatesFor: func(int) []Key { return []Key{drivers} },
			})
			if !errors.Is(err, tt.err) {
				t.Fatalf("Mutate() error = %v, want %v", err, tt.err)
			}
			if got := c.Peek(sched); got != tt.state {
				t.Errorf("Peek(schedule) = %v, want %v", got, tt.state)
			}
			if got := c.Peek(drivers); got != tt.state {
				t.Errorf("Peek(drivers) = %v, want %v", got, tt.state)
			}
			if len(rec.outcomes) != 1 || rec.outcomes[0].Success() {
				t.Errorf("outcomes = %+v, want one failure", rec.outcomes)
			}
		})
	}
}

func TestMutateCheckSkipsWrite(t *testing.T) {
	rec := &recorder{}
	c := New(WithNotifier(rec))

	writes := 0
	_, err := Mutate(context.Background(), c, Mutation[int]{
		Name:  "bulk",
		Check: func() error { return errors.New("no dates") },
		Write: func(context.Context) (int, error) { writes++; return 1, nil },
	})
	if err == nil || writes != 0 {
		t.Errorf("Mutate() = %v with %d writes, want error and no write", err, writes)
	}
	if len(rec.outcomes) != 1 || rec.outcomes[0].Success() {
		t.Errorf("outcomes = %+v, want one failure", rec.outcomes)
	}
}

func TestMutateNotifierFailureStillInvalidates(t *testing.T) {
	rec := &recorder{err: errors.New("tray down")}
	c := New(WithNotifier(rec))
	sched := NewKey(RootSchedule, "2025-06-10")
	seed(t, c, sched)

	_, err := Mutate(context.Background(), c, Mutation[string]{
		Name:           "generate",
		Write:          func(context.Context) (string, error) { return "2025-06-10", nil },
		InvalidatesFor: func(d string) []Key { return []Key{NewKey(RootSchedule, d)} },
	})
	if err != nil {
		t.Fatalf("Mutate() error = %v, notifier errors must not fail the mutation", err)
	}
	if c.Peek(sched) != StateInvalidated {
		t.Errorf("Peek() = %v, want invalidated", c.Peek(sched))
	}
}

func TestMutateDetachedFromCaller(t *testing.T) {
	c := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Mutate(ctx, c, Mutation[bool]{
		Name: "assign",
		Write: func(wctx context.Context) (bool, error) {
			return true, wctx.Err()
		},
	})
	if err != nil {
		t.Errorf("Mutate() error = %v, write should not see the caller's cancellation", err)
	}
}

func TestPollStopsWhenReleased(t *testing.T) {
	c := New()
	key := NewKey(RootAlerts)
	release := c.Retain(key)

	var n int32
	results := make(chan string, 16)
	p := Poll(context.Background(), c, key, 10*time.Millisecond, counting("feed", &n), func(v string, err error) {
		if err != nil {
			return
		}
		select {
		case results <- v:
		default:
		}
	})

	for i := 0; i < 2; i++ {
		select {
		case v := <-results:
			if v != "feed" {
				t.Errorf("poll result = %q", v)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("poller produced no result")
		}
	}

	release()
	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("poller still running after the key was released")
	}
	p.Stop()
	p.Stop()
}

func TestPollStop(t *testing.T) {
	c := New()
	key := NewKey(RootAlerts)
	defer c.Retain(key)()

	p := Poll(context.Background(), c, key, time.Hour, counting("feed", new(int32)), nil)
	p.Stop()
	select {
	case <-p.Done():
	default:
		t.Error("Stop() returned before the loop exited")
	}
}

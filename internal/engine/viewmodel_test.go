package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap/zaptest"

	"github.com/xela07ax/ran-copilot/internal/domain"
)

type countingNotifier struct {
	mu   sync.Mutex
	sent []Notification
}

func (c *countingNotifier) Notify(_ context.Context, n Notification) {
	c.mu.Lock()
	c.sent = append(c.sent, n)
	c.mu.Unlock()
}

func (c *countingNotifier) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func TestViewModel_StartsLoading(t *testing.T) {
	t.Parallel()

	vm := NewViewModel(Options[domain.DashboardKPIs]{
		Name:  "header",
		Fetch: func(context.Context) (domain.DashboardKPIs, error) { return domain.DashboardKPIs{}, nil },
	})
	if s := vm.Snapshot(); s.State != StateLoading || s.View != "header" {
		t.Fatalf("unexpected initial snapshot: %+v", s)
	}
}

func TestViewModel_SuccessIsReady(t *testing.T) {
	t.Parallel()

	live := domain.DashboardKPIs{RRCSuccessRate: 91.1, ActiveCells: 10, Status: domain.NetworkDegraded}
	n := &countingNotifier{}
	vm := NewViewModel(Options[domain.DashboardKPIs]{
		Name:     "header",
		Fetch:    func(context.Context) (domain.DashboardKPIs, error) { return live, nil },
		Fallback: domain.FallbackKPIs,
		Notifier: n,
		Logger:   zaptest.NewLogger(t),
	})

	vm.Refresh(context.Background())

	s := vm.Snapshot()
	if s.State != StateReady || s.Data != live || s.Error != "" {
		t.Fatalf("unexpected snapshot: %+v", s)
	}
	if n.count() != 0 {
		t.Fatalf("notification on success")
	}
}

func TestViewModel_FailureInstallsFallbackAndNotifiesOncePerCycle(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	n := &countingNotifier{}
	vm := NewViewModel(Options[domain.DashboardKPIs]{
		Name:     "header",
		Fetch:    func(context.Context) (domain.DashboardKPIs, error) { return domain.DashboardKPIs{}, errors.New("boom") },
		Fallback: domain.FallbackKPIs,
		Notifier: n,
		Metrics:  m,
		Logger:   zaptest.NewLogger(t),
	})

	vm.Refresh(context.Background())

	s := vm.Snapshot()
	if s.State != StateDegraded {
		t.Fatalf("state=%s", s.State)
	}
	if s.Data != domain.FallbackKPIs() {
		t.Fatalf("fallback mismatch: %+v", s.Data)
	}
	if n.count() != 1 {
		t.Fatalf("notifications=%d want 1", n.count())
	}

	vm.Refresh(context.Background())
	if n.count() != 2 {
		t.Fatalf("notifications=%d want 2 after second failed cycle", n.count())
	}
	if got := testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("header")); got != 2 {
		t.Fatalf("notifications metric=%v", got)
	}
	if got := testutil.ToFloat64(m.ViewState.WithLabelValues("header")); got != 2 {
		t.Fatalf("view state metric=%v", got)
	}
}

func TestViewModel_RecoversAfterFailure(t *testing.T) {
	t.Parallel()

	var fail atomic.Bool
	fail.Store(true)
	vm := NewViewModel(Options[[]domain.CellStatus]{
		Name: "map",
		Fetch: func(context.Context) ([]domain.CellStatus, error) {
			if fail.Load() {
				return nil, errors.New("down")
			}
			return []domain.CellStatus{{CellID: "live"}}, nil
		},
		Fallback: domain.FallbackCells,
	})

	vm.Refresh(context.Background())
	if vm.State() != StateDegraded || len(vm.Snapshot().Data) != 3 {
		t.Fatalf("expected degraded fallback, got %+v", vm.Snapshot())
	}

	fail.Store(false)
	vm.Refresh(context.Background())
	s := vm.Snapshot()
	if s.State != StateReady || len(s.Data) != 1 || s.Data[0].CellID != "live" || s.Error != "" {
		t.Fatalf("expected ready live data, got %+v", s)
	}
}

func TestViewModel_SupersededFetchIsCancelledAndDiscarded(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	var calls atomic.Int32
	n := &countingNotifier{}
	vm := NewViewModel(Options[int]{
		Name: "table",
		Fetch: func(ctx context.Context) (int, error) {
			if calls.Add(1) == 1 {
				close(started)
				<-ctx.Done() // первый запрос висит до отмены
				return 0, ctx.Err()
			}
			return 42, nil
		},
		Fallback: func() int { return -1 },
		Notifier: n,
	})

	done := make(chan struct{})
	go func() {
		vm.Refresh(context.Background())
		close(done)
	}()
	<-started

	vm.Refresh(context.Background())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("superseded fetch was not cancelled")
	}

	s := vm.Snapshot()
	if s.State != StateReady || s.Data != 42 || s.Seq != 2 {
		t.Fatalf("stale result won: %+v", s)
	}
	if n.count() != 0 {
		t.Fatalf("superseded cycle raised a notification")
	}
}

func TestViewModel_RunPollsUntilCancelled(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	vm := NewViewModel(Options[int]{
		Name:     "header",
		Interval: 10 * time.Millisecond,
		Fetch: func(context.Context) (int, error) {
			return int(calls.Add(1)), nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		vm.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d fetches", calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not stop")
	}
}

func TestViewModel_OnceViewFetchesOnlyOnMount(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	vm := NewViewModel(Options[int]{
		Name:  "analytics",
		Fetch: func(context.Context) (int, error) { return int(calls.Add(1)), nil },
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	vm.Run(ctx)

	if calls.Load() != 1 {
		t.Fatalf("calls=%d want 1", calls.Load())
	}
}

func TestViewModel_UnmountAbortsInFlightFetch(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	n := &countingNotifier{}
	vm := NewViewModel(Options[int]{
		Name: "map",
		Fetch: func(ctx context.Context) (int, error) {
			close(started)
			<-ctx.Done()
			return 0, ctx.Err()
		},
		Notifier: n,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		vm.Run(ctx)
		close(done)
	}()
	<-started
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after unmount")
	}
	if vm.State() != StateLoading {
		t.Fatalf("state changed after unmount: %s", vm.State())
	}
	if n.count() != 0 {
		t.Fatalf("unmount raised a notification")
	}
}

func TestViewModel_AbortedRefreshOfMountedViewInstallsFallback(t *testing.T) {
	t.Parallel()

	started := make(chan struct{}, 2)
	n := &countingNotifier{}
	vm := NewViewModel(Options[int]{
		Name: "analytics",
		Fetch: func(ctx context.Context) (int, error) {
			started <- struct{}{}
			<-ctx.Done()
			return 0, ctx.Err()
		},
		Fallback: func() int { return -1 },
		Notifier: n,
	})

	mountCtx, unmount := context.WithCancel(context.Background())
	defer unmount()
	go vm.Run(mountCtx)
	<-started

	// Запрос оператора вытесняет цикл монтирования, затем клиент отваливается
	reqCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	vm.Refresh(reqCtx)

	s := vm.Snapshot()
	if s.State != StateDegraded || s.Data != -1 {
		t.Fatalf("view left without data: %+v", s)
	}
	if n.count() != 1 {
		t.Fatalf("notifications=%d want 1", n.count())
	}
}

func TestViewModel_TimeoutDegrades(t *testing.T) {
	t.Parallel()

	n := &countingNotifier{}
	vm := NewViewModel(Options[int]{
		Name:    "header",
		Timeout: 10 * time.Millisecond,
		Fetch: func(ctx context.Context) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		},
		Fallback: func() int { return 7 },
		Notifier: n,
	})

	vm.Refresh(context.Background())
	if s := vm.Snapshot(); s.State != StateDegraded || s.Data != 7 {
		t.Fatalf("unexpected snapshot: %+v", s)
	}
	if n.count() != 1 || n.sent[0].Message != "Backend timed out, showing sample data." {
		t.Fatalf("unexpected notifications: %+v", n.sent)
	}
}

func TestViewModel_SubscribersReceiveSnapshots(t *testing.T) {
	t.Parallel()

	vm := NewViewModel(Options[string]{
		Name:  "header",
		Fetch: func(context.Context) (string, error) { return "live", nil },
	})
	var got []Snapshot[string]
	vm.Subscribe(func(s Snapshot[string]) { got = append(got, s) })

	vm.Refresh(context.Background())
	vm.Refresh(context.Background())

	if len(got) != 2 || got[1].Data != "live" || got[1].Seq != 2 {
		t.Fatalf("unexpected pushes: %+v", got)
	}
}

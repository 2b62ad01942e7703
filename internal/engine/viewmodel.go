package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/ran-copilot/internal/audit"
)

// State - состояние вью: loading до первого ответа, дальше ready или degraded.
type State string

const (
	StateLoading  State = "loading"
	StateReady    State = "ready"
	StateDegraded State = "degraded"
)

// Snapshot - то, что видит отрисовка: данные и как они получены.
type Snapshot[T any] struct {
	View      string    `json:"view"`
	State     State     `json:"state"`
	Data      T         `json:"data"`
	UpdatedAt time.Time `json:"updated_at"`
	Error     string    `json:"error,omitempty"`
	Seq       uint64    `json:"seq"`
}

type FetchFunc[T any] func(ctx context.Context) (T, error)

type Options[T any] struct {
	Name     string
	Fetch    FetchFunc[T]
	Fallback func() T
	// Interval <= 0: один запрос при монтировании, без опроса
	Interval time.Duration
	// Timeout отдельного цикла; 0 - только таймаут клиента
	Timeout  time.Duration
	Notifier Notifier
	Metrics  *Metrics
	Journal  audit.Auditor
	Logger   *zap.Logger
}

// View - типонезависимый вид ViewModel для консоли.
type View interface {
	Name() string
	Run(ctx context.Context)
	Refresh(ctx context.Context)
	State() State
	Current() any
}

// ViewModel держит состояние одной вью и опрашивает бэкенд.
// Новый цикл отменяет незавершенный предыдущий; устаревшие ответы отбрасываются.
type ViewModel[T any] struct {
	opts   Options[T]
	logger *zap.Logger

	mu     sync.RWMutex
	snap   Snapshot[T]
	seq    uint64             // номер последнего запущенного цикла
	cancel context.CancelFunc // отмена текущего цикла
	life   context.Context    // контекст монтирования из Run
	subs   []func(Snapshot[T])
}

func NewViewModel[T any](opts Options[T]) *ViewModel[T] {
	if opts.Fetch == nil {
		panic("engine: view model " + opts.Name + " without fetch func")
	}
	if opts.Fallback == nil {
		opts.Fallback = func() T {
			var zero T
			return zero
		}
	}
	if opts.Notifier == nil {
		opts.Notifier = Fanout(nil)
	}
	if opts.Journal == nil {
		opts.Journal = audit.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	vm := &ViewModel[T]{
		opts:   opts,
		logger: opts.Logger.With(zap.String("view", opts.Name)),
		snap:   Snapshot[T]{View: opts.Name, State: StateLoading},
	}
	if opts.Metrics != nil {
		opts.Metrics.ViewState.WithLabelValues(opts.Name).Set(stateValue(StateLoading))
	}
	return vm
}

func (vm *ViewModel[T]) Name() string { return vm.opts.Name }

// Run - жизненный цикл смонтированной вью: запрос при монтировании,
// затем опрос по интервалу до отмены ctx. Отмена прерывает и текущий запрос.
func (vm *ViewModel[T]) Run(ctx context.Context) {
	vm.logger.Debug("view mounted", zap.Duration("interval", vm.opts.Interval))
	defer vm.logger.Debug("view unmounted")

	vm.mu.Lock()
	vm.life = ctx
	vm.mu.Unlock()

	vm.Refresh(ctx)

	if vm.opts.Interval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(vm.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			vm.Refresh(ctx)
		}
	}
}

// Refresh выполняет один цикл. Синхронный: возвращается, когда цикл завершен.
// Результат не применяется только у размонтированной вью; отмена ctx вызывающего
// у живой вью дает degraded с фоллбэком.
func (vm *ViewModel[T]) Refresh(ctx context.Context) {
	// 1. Регистрируем цикл и отменяем предыдущий, если он еще идет
	vm.mu.Lock()
	if vm.cancel != nil {
		vm.cancel()
	}
	vm.seq++
	seq := vm.seq
	var cycleCtx context.Context
	var cancel context.CancelFunc
	if vm.opts.Timeout > 0 {
		cycleCtx, cancel = context.WithTimeout(ctx, vm.opts.Timeout)
	} else {
		cycleCtx, cancel = context.WithCancel(ctx)
	}
	vm.cancel = cancel
	vm.mu.Unlock()
	defer cancel()

	// 2. Запрос к бэкенду
	start := time.Now()
	data, err := vm.opts.Fetch(cycleCtx)
	took := time.Since(start)

	// 3. Применяем результат, только если цикл все еще актуален
	vm.mu.Lock()
	if seq != vm.seq {
		vm.mu.Unlock()
		vm.record(ctx, audit.OutcomeSuperseded, took, nil)
		vm.logger.Debug("stale fetch result discarded", zap.Uint64("seq", seq))
		return
	}
	vm.cancel = nil
	if vm.unmountedLocked(ctx) {
		// Вью размонтирована, состояние уже никому не нужно
		vm.mu.Unlock()
		return
	}

	next := Snapshot[T]{View: vm.opts.Name, UpdatedAt: time.Now().UTC(), Seq: seq}
	if err == nil {
		next.State = StateReady
		next.Data = data
	} else {
		next.State = StateDegraded
		next.Data = vm.opts.Fallback()
		next.Error = err.Error()
	}
	vm.snap = next
	subs := append([]func(Snapshot[T]){}, vm.subs...)
	vm.mu.Unlock()

	// 4. Побочные эффекты вне блокировки
	if err == nil {
		vm.record(ctx, audit.OutcomeReady, took, nil)
	} else {
		vm.record(ctx, audit.OutcomeDegraded, took, err)
		vm.logger.Warn("fetch failed, showing fallback data", zap.Duration("took", took), zap.Error(err))
		vm.notify(ctx, err)
	}
	if m := vm.opts.Metrics; m != nil {
		m.ViewState.WithLabelValues(vm.opts.Name).Set(stateValue(next.State))
	}
	for _, fn := range subs {
		fn(next)
	}
}

// unmountedLocked: после Run смотрим на контекст монтирования, до него - на ctx цикла.
func (vm *ViewModel[T]) unmountedLocked(ctx context.Context) bool {
	if vm.life != nil {
		return vm.life.Err() != nil
	}
	return ctx.Err() != nil
}

// Snapshot возвращает текущее состояние.
func (vm *ViewModel[T]) Snapshot() Snapshot[T] {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.snap
}

func (vm *ViewModel[T]) State() State {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.snap.State
}

func (vm *ViewModel[T]) Current() any { return vm.Snapshot() }

// Subscribe регистрирует получателя новых снимков. Вызывается синхронно из Refresh.
func (vm *ViewModel[T]) Subscribe(fn func(Snapshot[T])) {
	vm.mu.Lock()
	vm.subs = append(vm.subs, fn)
	vm.mu.Unlock()
}

func (vm *ViewModel[T]) notify(ctx context.Context, err error) {
	msg := "Backend unavailable, showing sample data."
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "Backend timed out, showing sample data."
	}
	n := newNotification(vm.opts.Name, LevelError, fmt.Sprintf("Failed to load %s", vm.opts.Name), msg)
	vm.opts.Notifier.Notify(ctx, n)
	if m := vm.opts.Metrics; m != nil {
		m.NotificationsTotal.WithLabelValues(vm.opts.Name).Inc()
	}
}

func (vm *ViewModel[T]) record(ctx context.Context, outcome string, took time.Duration, err error) {
	if m := vm.opts.Metrics; m != nil {
		m.FetchTotal.WithLabelValues(vm.opts.Name, outcome).Inc()
		m.FetchDuration.WithLabelValues(vm.opts.Name, outcome).Observe(took.Seconds())
	}
	ev := audit.Event{
		TraceID:    TraceID(ctx),
		Kind:       audit.KindFetch,
		Subject:    vm.opts.Name,
		Outcome:    outcome,
		DurationMs: took.Milliseconds(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	vm.opts.Journal.Log(ev)
}

package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xela07ax/ran-copilot/internal/engine"
)

// ErrRateLimited - оператор отправляет запросы быстрее, чем разрешено.
var ErrRateLimited = errors.New("agent: rate limit exceeded")

type GuardOptions struct {
	Name string
	// Настройки Circuit Breaker
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
	// Лимитер: запросов в секунду и размер всплеска
	RPS   float64
	Burst int

	Metrics *engine.Metrics
	Logger  *zap.Logger
}

// Guarded оборачивает транспорт предохранителем и лимитером.
// Повторов нет: неудачный ход чата сразу превращается в извинение.
type Guarded struct {
	next    Transport
	name    string
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	metrics *engine.Metrics
}

func Guard(next Transport, opts GuardOptions) *Guarded {
	if opts.Name == "" {
		opts.Name = "agent"
	}
	if opts.MaxRequests == 0 {
		opts.MaxRequests = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second // Время, через которое CB попробует "закрыться"
	}
	if opts.ConsecutiveFailures == 0 {
		opts.ConsecutiveFailures = 5
	}
	if opts.RPS <= 0 {
		opts.RPS = 2
	}
	if opts.Burst <= 0 {
		opts.Burst = 5
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	g := &Guarded{
		next:    next,
		name:    opts.Name,
		limiter: rate.NewLimiter(rate.Limit(opts.RPS), opts.Burst),
		metrics: opts.Metrics,
	}

	g.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        opts.Name,
		MaxRequests: opts.MaxRequests,
		Interval:    opts.Interval,
		Timeout:     opts.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// N ошибок подряд - открываемся и перестаем мучить агента
			return counts.ConsecutiveFailures >= opts.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			// Ошибка сессии - вина клиента, а не агента
			return err == nil || errors.Is(err, ErrInvalidSession)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("agent circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			if g.metrics != nil {
				g.metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerValue(to))
			}
		},
	})
	if g.metrics != nil {
		g.metrics.CircuitBreakerState.WithLabelValues(opts.Name).Set(0)
	}
	return g
}

func (g *Guarded) Send(ctx context.Context, prompt string, sess Session) (Reply, Session, error) {
	// 1. Rate Limiter: не ждем, чат должен ответить сразу
	if !g.limiter.Allow() {
		return Reply{}, sess, ErrRateLimited
	}

	// 2. Circuit Breaker
	type result struct {
		reply Reply
		sess  Session
	}
	out, err := g.cb.Execute(func() (interface{}, error) {
		r, s, err := g.next.Send(ctx, prompt, sess)
		return result{reply: r, sess: s}, err
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return Reply{}, sess, fmt.Errorf("agent: %s unavailable: %w", g.name, err)
		}
		if res, ok := out.(result); ok {
			return Reply{}, res.sess, err
		}
		return Reply{}, sess, err
	}
	res := out.(result)
	return res.reply, res.sess, nil
}

func (g *Guarded) State() gobreaker.State { return g.cb.State() }

func breakerValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 0.5
	default:
		return 0
	}
}

package engine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification - транзиентное уведомление (toast) для оператора.
type Notification struct {
	ID      string    `json:"id"`
	View    string    `json:"view"`
	Level   Level     `json:"level"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc позволяет передать функцию как Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

func (f NotifierFunc) Notify(ctx context.Context, n Notification) { f(ctx, n) }

// Fanout рассылает уведомление всем получателям по порядку.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, n Notification) {
	for _, t := range f {
		if t != nil {
			t.Notify(ctx, n)
		}
	}
}

// LogNotifier пишет уведомления в лог.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With(zap.String("mod", "notify"))}
}

func (l *LogNotifier) Notify(_ context.Context, n Notification) {
	l.logger.Warn(n.Title,
		zap.String("view", n.View),
		zap.String("level", string(n.Level)),
		zap.String("message", n.Message))
}

// RedisNotifier публикует уведомления в Pub/Sub, чтобы их увидели
// браузеры, подключенные к любой реплике консоли.
type RedisNotifier struct {
	rdb     *redis.Client
	channel string
	logger  *zap.Logger
}

func NewRedisNotifier(rdb *redis.Client, channel string, logger *zap.Logger) *RedisNotifier {
	return &RedisNotifier{rdb: rdb, channel: channel, logger: logger.With(zap.String("mod", "notify-redis"))}
}

func (r *RedisNotifier) Notify(ctx context.Context, n Notification) {
	payload, err := json.Marshal(n)
	if err != nil {
		r.logger.Error("failed to encode notification", zap.Error(err))
		return
	}
	// Уведомление не должно умирать вместе с контекстом запроса
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := r.rdb.Publish(pubCtx, r.channel, payload).Err(); err != nil {
		r.logger.Warn("notification delivery failed",
			zap.String("channel", r.channel),
			zap.Error(err))
	}
}

// newNotification заполняет служебные поля.
func newNotification(view string, level Level, title, message string) Notification {
	return Notification{
		ID:      uuid.NewString(),
		View:    view,
		Level:   level,
		Title:   title,
		Message: message,
		Time:    time.Now().UTC(),
	}
}

package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xela07ax/ran-copilot/internal/audit"
	"github.com/xela07ax/ran-copilot/internal/domain"
	"github.com/xela07ax/ran-copilot/internal/engine"
)

var ErrEmptyPrompt = errors.New("agent: empty prompt")

type ConversationOptions struct {
	// TransportName - метка транспорта в метриках и журнале (rest, invoke)
	TransportName string
	Metrics       *engine.Metrics
	Journal       audit.Auditor
	Logger        *zap.Logger
	Now           func() time.Time
}

// Conversation - лента чата оператора с агентом.
// Лента только растет и живет в памяти; сессия хранится здесь же, а не в глобале.
type Conversation struct {
	transport Transport
	opts      ConversationOptions
	logger    *zap.Logger

	// sendMu сериализует отправки, чтобы параллельные ходы не затирали сессию
	sendMu sync.Mutex

	mu       sync.RWMutex
	session  Session
	messages []domain.ChatMessage
}

func NewConversation(t Transport, opts ConversationOptions) *Conversation {
	if opts.TransportName == "" {
		opts.TransportName = "rest"
	}
	if opts.Journal == nil {
		opts.Journal = audit.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	c := &Conversation{
		transport: t,
		opts:      opts,
		logger:    opts.Logger.Named("conversation"),
	}
	c.reset()
	return c
}

// Send добавляет в ленту ровно два сообщения: эхо пользователя и ответ агента
// (или фиксированное извинение). Ошибка транспорта возвращается для логов,
// лента при этом уже дополнена.
func (c *Conversation) Send(ctx context.Context, prompt string) ([]domain.ChatMessage, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	user := domain.ChatMessage{
		ID:        uuid.NewString(),
		Role:      domain.RoleUser,
		Content:   prompt,
		Timestamp: c.opts.Now().UTC(),
	}
	c.mu.Lock()
	c.messages = append(c.messages, user)
	sess := c.session
	c.mu.Unlock()

	start := time.Now()
	reply, next, err := c.transport.Send(ctx, prompt, sess)
	took := time.Since(start)

	assistant := domain.ChatMessage{
		ID:   uuid.NewString(),
		Role: domain.RoleAssistant,
	}
	outcome := audit.OutcomeAnswered
	if err != nil {
		outcome = audit.OutcomeApology
		assistant.Content = domain.Apology
		assistant.Timestamp = c.opts.Now().UTC()
		c.logger.Warn("agent request failed, apology sent",
			zap.String("transport", c.opts.TransportName),
			zap.Duration("took", took),
			zap.Error(err))
	} else {
		assistant.Content = reply.Content
		assistant.Recommendation = reply.Recommendation
		assistant.Timestamp = reply.Timestamp.UTC()
		if reply.Timestamp.IsZero() {
			assistant.Timestamp = c.opts.Now().UTC()
		}
	}

	c.mu.Lock()
	c.messages = append(c.messages, assistant)
	// Сессию принимаем и при ошибке: транспорт мог успеть выдать идентификатор
	if next.ID != "" {
		c.session = next
	}
	c.mu.Unlock()

	c.observe(ctx, outcome, took, err)
	return []domain.ChatMessage{user, assistant}, err
}

// Messages возвращает копию ленты.
func (c *Conversation) Messages() []domain.ChatMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// Session - текущее состояние сессии.
func (c *Conversation) Session() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Reset начинает новый диалог: новая сессия и лента с приветствием.
func (c *Conversation) Reset() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	c.reset()
}

func (c *Conversation) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = NewSession()
	c.messages = []domain.ChatMessage{{
		ID:        uuid.NewString(),
		Role:      domain.RoleAssistant,
		Content:   domain.Greeting,
		Timestamp: c.opts.Now().UTC(),
	}}
}

func (c *Conversation) observe(ctx context.Context, outcome string, took time.Duration, err error) {
	if m := c.opts.Metrics; m != nil {
		m.ChatRequests.WithLabelValues(c.opts.TransportName, outcome).Inc()
		m.ChatDuration.WithLabelValues(c.opts.TransportName).Observe(took.Seconds())
	}
	ev := audit.Event{
		TraceID:    engine.TraceID(ctx),
		Kind:       audit.KindChat,
		Subject:    c.opts.TransportName,
		Outcome:    outcome,
		DurationMs: took.Milliseconds(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	c.opts.Journal.Log(ev)
}

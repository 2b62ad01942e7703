package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/xela07ax/ran-copilot/internal/domain"
	"github.com/xela07ax/ran-copilot/internal/ranapi"
)

// Reply - нормализованный ответ агента, одинаковый для всех транспортов.
type Reply struct {
	Content        string
	Timestamp      time.Time
	Recommendation *domain.Recommendation
}

// Transport отправляет один запрос агенту. Сессия передается явно и
// возвращается обновленной; глобального состояния нет.
type Transport interface {
	Send(ctx context.Context, prompt string, sess Session) (Reply, Session, error)
}

// ChatAPI - то, что нужно REST-транспорту от клиента бэкенда.
type ChatAPI interface {
	Chat(ctx context.Context, prompt string) (domain.ChatMessage, error)
}

// InvokeAPI - то, что нужно транспорту управляемого агента.
type InvokeAPI interface {
	InvokeAgent(ctx context.Context, req ranapi.InvokeRequest) (*ranapi.InvokeResponse, error)
}

// RESTTransport - POST /api/chat, синхронный JSON-ответ. Сессию не меняет.
type RESTTransport struct {
	api ChatAPI
	now func() time.Time
}

func NewRESTTransport(api ChatAPI) *RESTTransport {
	return &RESTTransport{api: api, now: time.Now}
}

func (t *RESTTransport) Send(ctx context.Context, prompt string, sess Session) (Reply, Session, error) {
	msg, err := t.api.Chat(ctx, prompt)
	if err != nil {
		return Reply{}, sess, err
	}
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = t.now()
	}
	return Reply{Content: msg.Content, Timestamp: ts, Recommendation: msg.Recommendation}, sess, nil
}

// InvokeTransport - POST /api/agent/invoke к рантайму агента.
// Несет токен продолжения сессии; тело ответа может прийти потоком.
type InvokeTransport struct {
	api     InvokeAPI
	runtime string
	now     func() time.Time
}

func NewInvokeTransport(api InvokeAPI, runtime string) *InvokeTransport {
	return &InvokeTransport{api: api, runtime: runtime, now: time.Now}
}

func (t *InvokeTransport) Send(ctx context.Context, prompt string, sess Session) (Reply, Session, error) {
	if sess.ID == "" {
		sess.ID = NewSessionID()
	}
	if err := sess.Validate(); err != nil {
		return Reply{}, sess, err
	}

	res, err := t.api.InvokeAgent(ctx, ranapi.InvokeRequest{
		Runtime:      t.runtime,
		Prompt:       prompt,
		SessionID:    sess.ID,
		SessionToken: sess.Token,
	})
	if err != nil {
		return Reply{}, sess, err
	}

	reply, token := parseInvokeBody(res.Body)
	if reply.Timestamp.IsZero() {
		reply.Timestamp = t.now()
	}

	// Приоритет: токен из тела, затем из заголовка, иначе оставляем прежний
	switch {
	case token != "":
		sess.Token = token
	case res.SessionToken != "":
		sess.Token = res.SessionToken
	}
	return reply, sess, nil
}

type invokeBody struct {
	Completion     string                 `json:"completion"`
	Content        string                 `json:"content"`
	Message        json.RawMessage        `json:"message"`
	SessionToken   string                 `json:"session_token"`
	Recommendation *domain.Recommendation `json:"recommendation"`
}

// parseInvokeBody пытается разобрать склеенный текст как JSON.
// Если не вышло или текстового поля нет, весь текст считается ответом.
func parseInvokeBody(raw []byte) (Reply, string) {
	text := string(bytes.TrimSpace(raw))

	// Рантайм может отдать ответ одной JSON-строкой
	var whole string
	if err := json.Unmarshal(raw, &whole); err == nil {
		return Reply{Content: whole}, ""
	}

	var body invokeBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return Reply{Content: text}, ""
	}

	content := body.Completion
	if content == "" {
		content = body.Content
	}
	rec := body.Recommendation
	var ts time.Time
	if content == "" && len(body.Message) > 0 {
		var s string
		var m domain.ChatMessage
		switch {
		case json.Unmarshal(body.Message, &s) == nil:
			content = s
		case json.Unmarshal(body.Message, &m) == nil:
			content = m.Content
			ts = m.Timestamp
			if rec == nil {
				rec = m.Recommendation
			}
		}
	}
	if content == "" {
		content = text
	}
	return Reply{Content: content, Timestamp: ts, Recommendation: rec}, body.SessionToken
}

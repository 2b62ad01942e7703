package domain

import (
	"encoding/json"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Recommendation - структурированная рекомендация агента (например, откат параметра).
type Recommendation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Impact      string `json:"impact"`
}

// ChatMessage - сообщение ленты чата. Лента живет только в памяти процесса.
type ChatMessage struct {
	ID             string          `json:"id"`
	Role           Role            `json:"role"`
	Content        string          `json:"content"`
	Timestamp      time.Time       `json:"timestamp"`
	Recommendation *Recommendation `json:"recommendation,omitempty"`
}

// Форматы отметок времени бэкенда. Без зоны считаем UTC.
var wireTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// ParseWireTime разбирает timestamp от бэкенда. Неразборчивое значение дает
// нулевое время: вызывающий подставляет время получения.
func ParseWireTime(s string) time.Time {
	for _, layout := range wireTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// UnmarshalJSON принимает timestamp в свободном формате: кривая отметка
// времени не должна ломать разбор всего ответа агента.
func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	type plain ChatMessage
	aux := struct {
		*plain
		Timestamp json.RawMessage `json:"timestamp"`
	}{plain: (*plain)(m)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	m.Timestamp = time.Time{}
	var ts string
	if len(aux.Timestamp) > 0 && json.Unmarshal(aux.Timestamp, &ts) == nil {
		m.Timestamp = ParseWireTime(ts)
	}
	return nil
}

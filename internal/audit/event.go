package audit

import "time"

// Типы событий журнала
const (
	KindFetch = "fetch" // цикл опроса вью
	KindChat  = "chat"  // ход диалога с агентом
)

// Исходы
const (
	OutcomeReady      = "READY"
	OutcomeDegraded   = "DEGRADED"
	OutcomeSuperseded = "SUPERSEDED"
	OutcomeAnswered   = "ANSWERED"
	OutcomeApology    = "APOLOGY"
)

// Event - одна запись операционного журнала консоли.
// Содержимое сообщений чата сюда не пишем: лента живет только в памяти.
type Event struct {
	ID         string    `json:"id"`       // UUID события
	TraceID    string    `json:"trace_id"` // Сквозной ID запроса, если был
	Kind       string    `json:"kind"`     // fetch | chat
	Subject    string    `json:"subject"`  // имя вью или транспорта
	Outcome    string    `json:"outcome"`
	Timestamp  time.Time `json:"timestamp"`
	DurationMs int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
}

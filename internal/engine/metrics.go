package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Latency: сколько занял цикл опроса вью (включая бэкенд)
	FetchDuration *prometheus.HistogramVec

	// Traffic + Errors: исход каждого цикла (ready, degraded, superseded)
	FetchTotal *prometheus.CounterVec

	// Текущее состояние вью (0 - loading, 1 - ready, 2 - degraded)
	ViewState *prometheus.GaugeVec

	// Сколько уведомлений показали пользователю
	NotificationsTotal *prometheus.CounterVec

	// Chat: запросы к агенту по транспорту и исходу
	ChatRequests *prometheus.CounterVec
	ChatDuration *prometheus.HistogramVec

	// Saturation: состояние Circuit Breaker (0 - ок, 1 - выбило, 0.5 - half-open)
	CircuitBreakerState *prometheus.GaugeVec

	// Audit: заполненность буфера журнала (backpressure)
	JournalBufferFill prometheus.Gauge

	// Подключенные браузеры
	WSClients prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		FetchDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rancopilot_fetch_duration_seconds",
			Help:    "Histogram of view fetch latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"view", "outcome"}),

		FetchTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "rancopilot_fetch_total",
			Help: "Total number of view fetch cycles by outcome.",
		}, []string{"view", "outcome"}),

		ViewState: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "rancopilot_view_state",
			Help: "Current view state (0=loading, 1=ready, 2=degraded).",
		}, []string{"view"}),

		NotificationsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "rancopilot_notifications_total",
			Help: "Total number of user notifications raised.",
		}, []string{"view"}),

		ChatRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "rancopilot_chat_requests_total",
			Help: "Total number of agent chat requests.",
		}, []string{"transport", "outcome"}),

		ChatDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rancopilot_chat_duration_seconds",
			Help:    "Histogram of agent chat latencies.",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30},
		}, []string{"transport"}),

		CircuitBreakerState: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "rancopilot_circuit_breaker_state",
			Help: "Current state of the circuit breaker (0=closed, 0.5=half-open, 1=open).",
		}, []string{"name"}),

		JournalBufferFill: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "rancopilot_journal_buffer_utilization",
			Help: "Current number of events in journal buffer.",
		}),

		WSClients: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "rancopilot_ws_clients",
			Help: "Number of connected dashboard websocket clients.",
		}),
	}
}

func stateValue(s State) float64 {
	switch s {
	case StateReady:
		return 1
	case StateDegraded:
		return 2
	default:
		return 0
	}
}

// Package mock - поддельный бэкенд RAN для локальной разработки и тестов.
// Отдает те же данные, что и фоллбэки, с небольшим шумом.
package mock

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2" // Используем v2 для Go 1.25
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/xela07ax/ran-copilot/internal/domain"
)

type Backend struct {
	router  *chi.Mux
	failing atomic.Bool
	latency time.Duration
	jitter  bool
	calls   atomic.Int64
}

type Option func(*Backend)

// WithLatency имитирует задержку бэкенда.
func WithLatency(d time.Duration) Option {
	return func(b *Backend) { b.latency = d }
}

// WithoutJitter отдает фоллбэки как есть (удобно в тестах).
func WithoutJitter() Option {
	return func(b *Backend) { b.jitter = false }
}

func New(opts ...Option) *Backend {
	b := &Backend{router: chi.NewRouter(), jitter: true}
	for _, opt := range opts {
		opt(b)
	}
	b.routes()
	return b
}

// SetFailing переключает бэкенд в режим 503 на всех эндпоинтах, кроме /ping.
func (b *Backend) SetFailing(v bool) { b.failing.Store(v) }

// Calls - сколько запросов к данным пришло.
func (b *Backend) Calls() int64 { return b.calls.Load() }

func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.router.ServeHTTP(w, r)
}

func (b *Backend) routes() {
	r := b.router

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, domain.Health{Status: "ok", Timestamp: time.Now().UTC().Format(time.RFC3339)})
	})

	r.Group(func(r chi.Router) {
		r.Use(b.simulate)

		r.Get("/api/dashboard/kpis", func(w http.ResponseWriter, r *http.Request) {
			k := domain.FallbackKPIs()
			k.RRCSuccessRate = b.noise(k.RRCSuccessRate, 0.5, 100)
			k.NetworkLoad = b.noise(k.NetworkLoad, 3, 100)
			writeJSON(w, k)
		})

		r.Get("/api/cells/status", func(w http.ResponseWriter, r *http.Request) {
			cells := domain.FallbackCells()
			for i := range cells {
				cells[i].LoadPercentage = b.noise(cells[i].LoadPercentage, 2, 100)
			}
			writeJSON(w, cells)
		})

		r.Get("/api/analytics/timeseries", func(w http.ResponseWriter, r *http.Request) {
			hours, _ := strconv.Atoi(r.URL.Query().Get("hours"))
			if hours <= 0 {
				hours = 24
			}
			// Одна точка на каждые 4 часа окна
			base := domain.FallbackTimeSeries()
			n := hours / 4
			if n < 1 {
				n = 1
			}
			out := make([]domain.TimeSeriesData, 0, n)
			for i := 0; i < n; i++ {
				p := base[i%len(base)]
				p.Timestamp = fmt.Sprintf("%02d:00", (i*4)%24)
				p.ThroughputMbps = b.noise(p.ThroughputMbps, 20, 2000)
				out = append(out, p)
			}
			writeJSON(w, out)
		})

		r.Get("/api/cells/performance", func(w http.ResponseWriter, r *http.Request) {
			rows := domain.FallbackPerformance()
			if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 && limit < len(rows) {
				rows = rows[:limit]
			}
			writeJSON(w, rows)
		})

		r.Get("/api/kpi/heatmap", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("kpi_name") == "" {
				http.Error(w, `{"error":"kpi_name is required"}`, http.StatusBadRequest)
				return
			}
			fc := geojson.NewFeatureCollection()
			values := []float64{-84.2, -97.6, -115.1}
			for i, c := range domain.FallbackCells() {
				f := geojson.NewFeature(orb.Point{c.Longitude, c.Latitude})
				f.Properties["value"] = b.noise(values[i], 1.5, 0)
				fc.Append(f)
			}
			data, err := fc.MarshalJSON()
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/geo+json")
			w.Write(data)
		})

		r.Post("/api/chat", func(w http.ResponseWriter, r *http.Request) {
			prompt, ok := readPrompt(w, r)
			if !ok {
				return
			}
			writeJSON(w, map[string]any{"message": domain.ChatMessage{
				Role:      domain.RoleAssistant,
				Content:   reply(prompt),
				Timestamp: time.Now().UTC(),
			}})
		})

		r.Post("/api/agent/invoke", func(w http.ResponseWriter, r *http.Request) {
			prompt, ok := readPrompt(w, r)
			if !ok {
				return
			}
			token := r.Header.Get("X-Session-Id")
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Header().Set("X-Session-Token", "tok-"+token)
			body, _ := json.Marshal(map[string]any{"completion": reply(prompt)})
			// Отдаем ответ несколькими чанками, как потоковый рантайм агента
			flusher, _ := w.(http.Flusher)
			for i := 0; i < len(body); i += 16 {
				end := min(i+16, len(body))
				w.Write(body[i:end])
				if flusher != nil {
					flusher.Flush()
				}
			}
		})
	})
}

func (b *Backend) simulate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.calls.Add(1)
		if b.latency > 0 {
			select {
			case <-time.After(b.latency):
			case <-r.Context().Done():
				return
			}
		}
		if b.failing.Load() {
			http.Error(w, `{"error":"backend unavailable"}`, http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// noise добавляет равномерный шум ±spread; hi>0 ограничивает сверху.
func (b *Backend) noise(v, spread, hi float64) float64 {
	if !b.jitter {
		return v
	}
	v += (rand.Float64()*2 - 1) * spread
	if hi > 0 && v > hi {
		v = hi
	}
	return v
}

func readPrompt(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req struct {
		Input struct {
			Prompt string `json:"prompt"`
		} `json:"input"`
	}
	data, err := io.ReadAll(r.Body)
	if err == nil {
		err = json.Unmarshal(data, &req)
	}
	if err != nil || req.Input.Prompt == "" {
		http.Error(w, `{"error":"input.prompt is required"}`, http.StatusBadRequest)
		return "", false
	}
	return req.Input.Prompt, true
}

func reply(prompt string) string {
	return fmt.Sprintf("I've analyzed the network data for %q. Cell-456 shows degraded RRC success since 12:00.", prompt)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xela07ax/ran-copilot/internal/console/handler"
	"github.com/xela07ax/ran-copilot/internal/domain"
	"github.com/xela07ax/ran-copilot/internal/engine"
	"github.com/xela07ax/ran-copilot/internal/infra/auth"
)

// Deps - все, из чего собирается HTTP-поверхность консоли.
type Deps struct {
	Logger *zap.Logger

	// Проверка токенов операторов (RS256); nil - чат открыт
	Validator auth.TokenValidator

	Dashboard *handler.DashboardHandler
	Chat      *handler.ChatHandler
	// nil, если база не настроена
	Journal *handler.JournalHandler

	// WebSocket-поток снимков и уведомлений
	WS http.HandlerFunc

	Gatherer prometheus.Gatherer
}

type ConsoleServer struct {
	router *chi.Mux
	logger *zap.Logger
	deps   Deps
}

// NewConsoleServer инициализирует роутер консоли со всеми зависимостями
func NewConsoleServer(deps Deps) *ConsoleServer {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	s := &ConsoleServer{
		router: chi.NewRouter(),
		logger: deps.Logger.Named("console-api"),
		deps:   deps,
	}
	s.routes()
	return s
}

func (s *ConsoleServer) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware (для всех) ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(engine.TracingMiddleware)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// --- 2. Служебные роуты ---
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if s.deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	}
	if s.deps.WS != nil {
		r.Get("/ws", s.deps.WS)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// --- 3. Дашборд (только чтение снимков и переключение вью) ---
		d := s.deps.Dashboard
		r.Get("/header", d.Header)
		r.Get("/canvas", d.Canvas)
		r.Post("/canvas/{view}", d.SwitchCanvas)
		r.Get("/map/cells", d.MapCells)
		r.Get("/map/heatmap/{kpi}", d.Heatmap)
		r.Get("/map/config", d.MapConfig)
		r.Get("/analytics", d.Analytics)
		r.Get("/table", d.Table)
		r.Post("/refresh", d.Refresh)

		if s.deps.Journal != nil {
			r.Get("/journal", s.deps.Journal.Recent)
		}

		// --- 4. Чат с агентом: защищен токеном, если задан ключ IdP ---
		r.Group(func(r chi.Router) {
			if s.deps.Validator != nil {
				r.Use(auth.NewMiddleware(s.deps.Validator, domain.ScopeChat, s.logger))
			}
			r.Get("/chat", s.deps.Chat.List)
			r.Post("/chat", s.deps.Chat.Send)
			r.Post("/chat/reset", s.deps.Chat.Reset)
		})
	})
}

// ServeHTTP позволяет использовать ConsoleServer как стандартный http.Handler
func (s *ConsoleServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

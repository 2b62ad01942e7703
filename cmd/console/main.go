package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/ran-copilot/internal/agent"
	"github.com/xela07ax/ran-copilot/internal/audit"
	"github.com/xela07ax/ran-copilot/internal/console/handler"
	"github.com/xela07ax/ran-copilot/internal/console/hub"
	"github.com/xela07ax/ran-copilot/internal/console/server"
	"github.com/xela07ax/ran-copilot/internal/console/service"
	"github.com/xela07ax/ran-copilot/internal/engine"
	"github.com/xela07ax/ran-copilot/internal/infra"
	"github.com/xela07ax/ran-copilot/internal/infra/auth"
	"github.com/xela07ax/ran-copilot/internal/ranapi"
	"github.com/xela07ax/ran-copilot/internal/repository/postgres"
)

func main() {
	// 1. Конфиг и логгер
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	// Контекст жизненного цикла: SIGINT/SIGTERM отменяют все фоновые горутины
	appCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Метрики
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := engine.NewMetrics(reg)

	// 3. Клиент бэкенда. Недоступный бэкенд не мешает старту: вью покажут фоллбэки
	client := ranapi.New(cfg.Backend.BaseURL,
		ranapi.WithTimeout(cfg.Backend.Timeout),
		ranapi.WithChatTimeout(cfg.Backend.ChatTimeout),
		ranapi.WithLogger(logger),
	)
	if err := client.WaitReady(appCtx, cfg.Backend.ReadyAttempts); err != nil {
		logger.Warn("starting without backend, views will show sample data", zap.Error(err))
	}

	// 4. Журнал в Postgres (опционально)
	var journal audit.Auditor = audit.Nop{}
	var journalHandler *handler.JournalHandler
	if cfg.Database.URL != "" {
		pool, err := postgres.NewPool(appCtx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			logger.Fatal("database unreachable", zap.Error(err))
		}
		defer pool.Close()

		repo := postgres.NewJournalRepo(pool)
		if err := repo.EnsureSchema(appCtx); err != nil {
			logger.Fatal("journal schema", zap.Error(err))
		}
		j := audit.NewJournal(repo, logger, audit.Options{
			BufferSize:    cfg.Journal.BufferSize,
			BatchSize:     cfg.Journal.BatchSize,
			FlushInterval: cfg.Journal.FlushInterval,
			Fill:          metrics.JournalBufferFill,
		})
		j.Start()
		defer j.Stop()
		journal = j
		journalHandler = handler.NewJournalHandler(repo)
	}

	// 5. WebSocket-хаб и уведомления
	wsHub := hub.New(hub.Options{Clients: metrics.WSClients, Logger: logger})
	go wsHub.Run(appCtx)

	notifier := engine.Fanout{engine.NewLogNotifier(logger)}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(appCtx, 5*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			cancel()
			logger.Fatal("redis unreachable", zap.Error(err))
		}
		cancel()

		// Уведомления идут через Pub/Sub, чтобы их увидели браузеры всех реплик
		notifier = append(notifier, engine.NewRedisNotifier(rdb, infra.RedisChanNotifications, logger))
		go engine.ListenNotificationsResilient(appCtx, rdb, logger, infra.RedisChanNotifications, func(n engine.Notification) {
			wsHub.Notify(appCtx, n)
		})
	} else {
		notifier = append(notifier, wsHub)
	}

	// 6. Дашборд
	dash := service.NewDashboard(client, service.DashboardOptions{
		HeaderInterval: cfg.Polling.HeaderInterval,
		MapInterval:    cfg.Polling.MapInterval,
		AnalyticsHours: cfg.Polling.AnalyticsHours,
		TableLimit:     cfg.Polling.TableLimit,
		HeatmapKPIs:    cfg.Polling.HeatmapKPIs,
		Notifier:       notifier,
		Publisher:      wsHub,
		Metrics:        metrics,
		Journal:        journal,
		Logger:         logger,
	})
	if err := dash.Start(appCtx); err != nil {
		logger.Fatal("dashboard start", zap.Error(err))
	}

	// 7. Чат с агентом
	var transport agent.Transport
	switch cfg.Agent.Mode {
	case "invoke":
		transport = agent.NewInvokeTransport(client, cfg.Agent.RuntimeAddress)
	default:
		transport = agent.NewRESTTransport(client)
	}
	guarded := agent.Guard(transport, agent.GuardOptions{
		Name:                "agent-" + cfg.Agent.Mode,
		MaxRequests:         cfg.Agent.CBMaxRequests,
		Interval:            cfg.Agent.CBInterval,
		Timeout:             cfg.Agent.CBTimeout,
		ConsecutiveFailures: cfg.Agent.CBConsecutiveFailures,
		RPS:                 cfg.Agent.RateLimit,
		Burst:               cfg.Agent.RateBurst,
		Metrics:             metrics,
		Logger:              logger,
	})
	conv := agent.NewConversation(guarded, agent.ConversationOptions{
		TransportName: cfg.Agent.Mode,
		Metrics:       metrics,
		Journal:       journal,
		Logger:        logger,
	})

	// 8. Авторизация чата (если задан ключ IdP)
	var validator auth.TokenValidator
	if len(cfg.Auth.PublicKey) > 0 {
		pub, err := auth.ParseRSAPublicKey(cfg.Auth.PublicKey)
		if err != nil {
			logger.Fatal("auth public key", zap.Error(err))
		}
		validator = auth.NewOperatorValidator(pub, auth.ValidatorOptions{
			Issuer:   cfg.Auth.Issuer,
			Audience: cfg.Auth.Audience,
			Leeway:   30 * time.Second,
		})
	} else {
		logger.Warn("auth public key not configured, chat endpoints are open")
	}

	// 9. HTTP
	consoleSrv := server.NewConsoleServer(server.Deps{
		Logger:    logger,
		Validator: validator,
		Dashboard: handler.NewDashboardHandler(dash, handler.MapSettings{APIKey: cfg.Map.APIKey, Style: cfg.Map.Style}),
		Chat:      handler.NewChatHandler(conv, logger),
		Journal:   journalHandler,
		WS:        wsHub.ServeWS,
		Gatherer:  reg,
	})
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      consoleSrv,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("console started", zap.String("addr", srv.Addr), zap.String("agent_mode", cfg.Agent.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen failed", zap.Error(err))
			stop()
		}
	}()

	// 10. Graceful Shutdown
	<-appCtx.Done()
	logger.Info("console stopping...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	dash.Stop()
	logger.Info("console exited properly")
}

// Команда ranmock поднимает поддельный бэкенд RAN для локальной разработки консоли.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/ran-copilot/internal/ranapi/mock"
)

func main() {
	addr := flag.String("addr", ":8000", "listen address")
	latency := flag.Duration("latency", 0, "simulated backend latency")
	failing := flag.Bool("failing", false, "answer 503 on every data endpoint")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	b := mock.New(mock.WithLatency(*latency))
	b.SetFailing(*failing)

	srv := &http.Server{Addr: *addr, Handler: b, ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("mock RAN backend started", zap.String("addr", *addr), zap.Bool("failing", *failing))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

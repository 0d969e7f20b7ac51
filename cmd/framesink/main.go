package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/framewell/framesink/internal/broadcast"
	"github.com/framewell/framesink/internal/config"
	"github.com/framewell/framesink/internal/ingest"
	"github.com/framewell/framesink/internal/payload"
	"github.com/framewell/framesink/internal/server"
	"github.com/framewell/framesink/internal/snapshot"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	logger, err := setupLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.String("addr", cfg.Addr()),
		zap.Duration("heartbeatInterval", cfg.HeartbeatInterval),
		zap.Int("subscriberBuffer", cfg.SubscriberBuffer),
		zap.Bool("wsEnabled", cfg.WSEnabled),
		zap.Bool("includePayload", cfg.IncludePayload),
		zap.Strings("imageOutputs", cfg.ImageOutputs),
	)

	// Core components: the single-slot store, the broadcaster, and the
	// ingestor that drives them both.
	store := payload.NewStore()
	broadcaster := broadcast.NewBroadcaster(cfg.SubscriberBuffer, logger)
	ingestor := ingest.New(store, broadcaster, cfg.IncludePayload, logger)
	reader := snapshot.NewReader(store, cfg.ImageOutputs, logger)

	handlers := server.NewHandlers(ingestor, store, broadcaster, reader, cfg, logger)
	sse := broadcast.NewSSEHandler(broadcaster, cfg.HeartbeatInterval, logger)

	var ws http.Handler
	if cfg.WSEnabled {
		wsHandler, err := broadcast.NewWSHandler(broadcaster, cfg.HeartbeatInterval, logger)
		if err != nil {
			logger.Error("failed to create websocket handler", zap.Error(err))
			return 1
		}
		ws = wsHandler
	}

	router, err := server.NewRouter(handlers, sse, ws, logger)
	if err != nil {
		logger.Error("failed to create router", zap.Error(err))
		return 1
	}

	svc := server.NewService(cfg.Addr(), router, logger)
	if err := svc.Start(); err != nil {
		logger.Error("server failed to start", zap.Error(err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down server...")

	// Wake streaming subscribers first so their connections drain.
	broadcaster.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := svc.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return 1
	}

	logger.Info("server stopped")
	return 0
}

func setupLogger(level string) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	zapConfig.DisableStacktrace = true

	var parsed zapcore.Level
	if err := parsed.UnmarshalText([]byte(level)); err == nil {
		zapConfig.Level = zap.NewAtomicLevelAt(parsed)
	}

	return zapConfig.Build()
}

package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"voicetask/internal/bootstrap"
	"voicetask/internal/config"
	"voicetask/internal/server"
	"voicetask/internal/tracer"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(ctx, cfg)
	if err != nil {
		log.Panicf("Unable to bootstrap: %v", err)
	}
	defer container.Close()
	defer func() { _ = container.Logger.Sync() }()

	// 3. Tracer
	shutdownTracer := tracer.InitTracer(cfg.App.OtelEnabled, container.Logger)
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(flushCtx)
	}()

	// 4. Start Background Services
	go container.WebSocketHub.Run(ctx)
	go func() {
		if err := container.ConsumerService.Consume(ctx); err != nil && !errors.Is(err, context.Canceled) {
			container.Logger.Error("Main", "Consumer stopped", map[string]interface{}{"error": err.Error()})
		}
	}()

	// 5. Initialize Server
	srv := server.New(cfg, container)

	go func() {
		<-ctx.Done()
		container.Logger.Info("Main", "Shutting down", nil)
		if err := srv.Shutdown(); err != nil {
			container.Logger.Error("Main", "Shutdown failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	// 6. Run Server
	if err := srv.Run(); err != nil {
		container.Logger.Error("Main", "Server stopped", map[string]interface{}{"error": err.Error()})
	}
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dots-Uzbekistan/Lexora/internal/bootstrap"
	"github.com/Dots-Uzbekistan/Lexora/internal/config"
	"github.com/Dots-Uzbekistan/Lexora/internal/server"
	"github.com/Dots-Uzbekistan/Lexora/internal/tracer"
)

const moduleName = "MAIN"

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(cfg)
	if err != nil {
		log.Fatalf("Failed to bootstrap: %v", err)
	}
	defer container.Close()

	// 3. Tracer, a no-op unless OTEL_ENABLED
	shutdownTracer := tracer.InitTracer(cfg.Otel, container.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Start Background Services
	if err := container.ConsumerService.Consume(ctx); err != nil {
		container.Logger.Error(moduleName, "Event consumer failed to start", map[string]interface{}{
			"error": err.Error(),
		})
	}
	go container.WebSocketHub.Run(ctx)

	// 5. Initialize and run the server
	srv := server.New(cfg, container)
	go func() {
		if err := srv.Run(); err != nil {
			container.Logger.Error(moduleName, "Server stopped", map[string]interface{}{
				"error": err.Error(),
			})
			stop()
		}
	}()

	<-ctx.Done()
	container.Logger.Info(moduleName, "Shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		container.Logger.Error(moduleName, "Server shutdown failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		container.Logger.Warn(moduleName, "Tracer shutdown failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

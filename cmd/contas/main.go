package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"contas/internal/amqp"
	"contas/internal/cache"
	"contas/internal/config"
	apphttp "contas/internal/http"
	applog "contas/internal/log"
	"contas/internal/middleware/session"
	"contas/internal/remote"
	"contas/internal/services"
	"contas/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(os.Getenv("LOG_LEVEL")),
		Component: "contas",
	})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// AMQP is optional; without it the report pipeline is off.
	var events services.BillEventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		events = amqpClient
		logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	sessions := session.NewVerifier(cfg.SessionToken)

	var contas services.Contas
	switch cfg.DataBackend {
	case "remote":
		client := remote.NewClient(cfg.RemoteURL,
			remote.WithToken(sessions.Token),
			remote.WithOnUnauthorized(sessions.Invalidate))
		replica := cache.NewReplica()
		edge := services.NewEdge(replica, services.NewRemoteUpstream(client))

		poller := services.NewPoller(client, replica, services.PollerConfig{
			PollInterval: cfg.PollInterval,
		})
		poller.OnOnline = edge.FlushLocal
		if err := poller.Start(ctx); err != nil {
			logger.Error("Failed to start replica poller", "error", err)
			os.Exit(1)
		}
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer stopCancel()
			if err := poller.Stop(stopCtx); err != nil {
				logger.Error("Poller stop error", "error", err)
			}
		}()

		contas = edge
		logger.Info("Initialized remote backend", "upstream", cfg.RemoteURL, "poll_interval", cfg.PollInterval)

	case "memory":
		contas = services.NewLocal(storage.NewMemoryStore(), events)
		logger.Info("Initialized memory backend")

	default:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer repo.Close()
		contas = services.NewLocal(repo, events)
		logger.Info("Initialized SQLite backend", "path", cfg.SQLiteDBPath)
	}

	srv := apphttp.NewServer(":"+cfg.Port, contas, sessions, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting contas server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}

package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwrk-planet/chat-service/config"
	"github.com/cwrk-planet/chat-service/internal/bus"
	"github.com/cwrk-planet/chat-service/internal/postgres"
	"github.com/cwrk-planet/chat-service/internal/service"
	"github.com/cwrk-planet/chat-service/internal/sqlite"
	"github.com/cwrk-planet/chat-service/internal/store"
	httpx "github.com/cwrk-planet/chat-service/internal/transport/http"
	"github.com/cwrk-planet/chat-service/internal/transport/ws"
	"github.com/cwrk-planet/chat-service/pkg/logger"

	"github.com/joho/godotenv"
)

func main() {
	// --- config ---
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting chat-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version,
		"driver", cfg.Storage.Driver, "relay", cfg.Bus.Relay)

	ctx := context.Background()

	// --- store & bus ---
	var (
		msgStore store.MessageStore
		identDir store.IdentityDirectory
		eventBus bus.Bus
	)

	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		db, err := postgres.New(ctx, cfg.Storage.DSN)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			log.Fatalf("postgres migrate: %v", err)
		}

		msgStore = postgres.NewMessageRepository(db.Pool)
		identDir = postgres.NewIdentityRepository(db.Pool)
		if cfg.Bus.Relay == config.RelayPostgres {
			eventBus = bus.NewPostgres(ctx, db.Pool, cfg.Bus.Channel)
		}

	case config.DriverSQLite:
		st, err := sqlite.Open(cfg.Storage.Path)
		if err != nil {
			log.Fatalf("sqlite: %v", err)
		}
		defer st.Close()
		msgStore = st
	}

	if eventBus == nil {
		eventBus = bus.NewLocal()
	}
	defer eventBus.Close()

	// --- services ---
	chatSvc := service.NewChatService(msgStore, eventBus)
	chatSvc.SetMaxMessageLen(cfg.Chat.MaxMessageLen)
	chatSvc.SetReplayLimit(cfg.Chat.ReplayLimit)

	var identitySvc *service.IdentityService
	if identDir != nil {
		identitySvc = service.NewIdentityService(identDir)
	}

	// --- WS Hub & Server ---
	hub := ws.NewHub()
	wsServer := ws.NewServer(hub, chatSvc)
	wsServer.SetSubmitLimit(cfg.Chat.SubmitRate, cfg.Chat.SubmitBurst)

	unsubscribe := eventBus.Subscribe(wsServer.BroadcastEvent)
	defer unsubscribe()

	// --- HTTP ---
	handler := httpx.NewHandler(chatSvc, identitySvc)
	router := httpx.NewRouter(handler, wsServer)
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpSrv.Shutdown(ctxShutdown)
	slog.Info("stopped")
}

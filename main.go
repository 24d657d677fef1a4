package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"memory-game-server/api"
	"memory-game-server/auth"
	"memory-game-server/config"
	"memory-game-server/loghandler"
	"memory-game-server/sessions"
	"memory-game-server/web"
	"memory-game-server/ws"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	slog.SetDefault(slog.New(loghandler.NewCompactHandler(os.Stderr, cfg.SlogLevel())))

	if envErr != nil {
		slog.Info("no .env file found; using environment variables", "tag", "main")
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "tag", "main", "err", err)
		os.Exit(1)
	}

	var validator *auth.Validator
	if cfg.NeonAuthBaseURL == "" {
		slog.Info("auth: NEON_AUTH_BASE_URL is not set; play is anonymous", "tag", "main")
	} else {
		v, err := auth.NewNeonValidator(cfg.NeonAuthBaseURL)
		if err != nil {
			slog.Error("auth setup failed", "tag", "main", "err", err)
			os.Exit(1)
		}
		validator = v
		slog.Info("auth: configured", "tag", "main", "base_url", cfg.NeonAuthBaseURL)
	}

	slog.Info("configuration", "tag", "main",
		"symbols", len(cfg.Symbols), "mismatch_delay_ms", cfg.MismatchDelayMS,
		"max_sessions", cfg.MaxSessions, "port", cfg.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mgr := sessions.NewManager(cfg)
	handler, hub := newServer(cfg, mgr, validator)
	go hub.Run(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("shutdown", "tag", "main", "err", err)
		}
		mgr.CloseAll()
	}()

	slog.Info("Memory Game server listening", "tag", "main", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "tag", "main", "err", err)
		os.Exit(1)
	}
}

// newServer wires the router. validator may be nil for anonymous play.
func newServer(cfg *config.Config, mgr *sessions.Manager, validator *auth.Validator) (http.Handler, *ws.Hub) {
	// Keep nil interfaces nil so the handlers can tell auth is off.
	var hubAuth ws.TokenValidator
	var apiAuth api.TokenValidator
	if validator != nil {
		hubAuth = validator
		apiAuth = validator
	}

	hub := ws.NewHub(cfg, mgr, hubAuth)
	h := api.NewHandler(cfg, mgr, apiAuth)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/ws", hub.ServeWS)
	r.Group(h.Routes)
	r.Handle("/*", web.Handler())

	return r, hub
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sketchcode/sketchcode/internal/auth"
	"github.com/sketchcode/sketchcode/internal/codegen"
	"github.com/sketchcode/sketchcode/internal/config"
	"github.com/sketchcode/sketchcode/internal/export"
	mw "github.com/sketchcode/sketchcode/internal/middleware"
	"github.com/sketchcode/sketchcode/internal/project"
	"github.com/sketchcode/sketchcode/internal/session"
	"github.com/sketchcode/sketchcode/internal/store"
	"github.com/sketchcode/sketchcode/internal/templates"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStore(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	authService := auth.NewService(st, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	projectService := project.NewService(st)
	projectHandler := project.NewHandler(projectService)

	rasterizer := export.NewRasterizer(cfg.ExportPixelRatio)
	exportHandler := export.NewHandler(cfg.ExportPixelRatio)

	catalogue := templates.Builtin()
	templateHandler := templates.NewHandler(catalogue)

	generator := newGenerator(cfg)
	codegenHandler := codegen.NewHandler(generator, generator)

	sessions := session.NewManager(projectService, session.Options{
		AutosaveDelay: cfg.AutosaveDelay,
		HistoryLimit:  cfg.HistoryLimit,
		Rasterizer:    rasterizer,
		Templates:     catalogue,
		Metrics:       session.NewMetrics(reg),
	})
	wsHandler := session.NewHandler(sessions, authService, projectService, cfg.Origins())

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))
	r.Use(mw.NewHTTPMetrics(reg).Middleware)

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods("GET")
	}

	// Auth routes (public)
	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST", "OPTIONS")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")

	// Snapshot export and templates (public)
	r.HandleFunc("/export/{format}", exportHandler.Export).Methods("POST", "OPTIONS")
	templateHandler.Register(r)

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)

	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	api.HandleFunc("/generate", codegenHandler.Generate).Methods("POST")
	projectHandler.Register(api)

	// WebSocket endpoint
	r.Handle("/ws/project/{projectId}", wsHandler)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		// Close sessions first so their scenes are saved.
		slog.Info("saving open sessions", "count", sessions.Len())
		if err := sessions.Shutdown(shutdownCtx); err != nil {
			slog.Error("session shutdown", "error", err)
		}
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "database", cfg.DatabaseURL != "")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, databaseURL string) (store.Store, error) {
	if databaseURL == "" {
		slog.Warn("DATABASE_URL not set, using in-memory store")
		return store.NewMemoryStore(), nil
	}
	pg, err := store.OpenPostgres(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return pg, nil
}

// newGenerator chains the configured code generators. The template
// generator is always last so generation never fails outright.
func newGenerator(cfg *config.Config) *codegen.Chain {
	var gens []codegen.Generator
	if cfg.CodegenURL != "" {
		gens = append(gens, codegen.NewRemoteGenerator(cfg.CodegenURL, cfg.CodegenTimeout))
	}
	if cfg.AnthropicAPIKey != "" {
		g, err := codegen.NewAnthropicGenerator(codegen.AnthropicConfig{
			APIKey: cfg.AnthropicAPIKey,
			Model:  cfg.AnthropicModel,
		})
		if err != nil {
			slog.Error("anthropic generator disabled", "error", err)
		} else {
			gens = append(gens, g)
		}
	}
	gens = append(gens, codegen.TemplateGenerator{})
	return codegen.NewChain(gens...)
}

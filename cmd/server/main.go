package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Traction-Rec/n8n-unihook/internal/config"
	"github.com/Traction-Rec/n8n-unihook/internal/db"
	"github.com/Traction-Rec/n8n-unihook/internal/handler"
	"github.com/Traction-Rec/n8n-unihook/internal/n8n"
	"github.com/Traction-Rec/n8n-unihook/internal/router"
)

const usage = `unihook: webhook routing middleware between providers and n8n

Environment variables:
  N8N_API_KEY                n8n API key (required)
  N8N_API_URL                n8n base URL (default: http://localhost:5678)
  LISTEN_ADDR                HTTP bind address (default: 0.0.0.0:3000)
  REFRESH_INTERVAL_SECS      trigger refresh period (default: 60)
  N8N_ENDPOINT_WEBHOOK       production webhook path segment (default: webhook)
  N8N_ENDPOINT_WEBHOOK_TEST  test webhook path segment (default: webhook-test)
  GITHUB_WEBHOOK_SECRET      shared secret for inbound GitHub HMAC verification (optional)
  DATABASE_PATH              SQLite database file (default: unihook.db)
  LOG_LEVEL                  debug|info|warn|error (default: info)`

func main() {
	// A .env file is a convenience for local development only.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n\n%s\n", err, usage)
		os.Exit(1)
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	store, err := db.Open(cfg.DatabasePath)
	if err != nil {
		log.Error("failed to open database", zap.String("path", cfg.DatabasePath), zap.Error(err))
		os.Exit(1)
	}
	defer store.Close()
	log.Info("database ready", zap.String("path", cfg.DatabasePath))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := n8n.New(cfg.N8NAPIURL, cfg.N8NAPIKey)

	slackRouter := router.NewSlack(cfg, store, client, log)
	jiraRouter := router.NewJira(cfg, store, client, log)
	githubRouter := router.NewGitHub(cfg, store, client, log)

	go slackRouter.Run(ctx)
	go jiraRouter.Run(ctx)
	go githubRouter.Run(ctx)

	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)

	mux.Method(http.MethodPost, "/slack/events", handler.NewSlack(slackRouter, log))
	mux.Method(http.MethodPost, "/jira/events", handler.NewJira(jiraRouter, log))
	mux.Method(http.MethodPost, "/github/events", handler.NewGitHub(cfg, githubRouter, log))
	mux.Method(http.MethodGet, "/health", handler.NewHealth(store, log))

	githubProvider := handler.NewGitHubProvider(store, log)
	mux.Get("/repos/{owner}/{repo}/hooks", githubProvider.ListHooks)
	mux.Post("/repos/{owner}/{repo}/hooks", githubProvider.CreateHook)
	mux.Delete("/repos/{owner}/{repo}/hooks/{hook_id}", githubProvider.DeleteHook)
	mux.Get("/user", githubProvider.GetUser)

	jiraProvider := handler.NewJiraProvider(jiraRouter, log)
	mux.Get("/rest/webhooks/1.0/webhook", jiraProvider.ListWebhooks)
	mux.Post("/rest/webhooks/1.0/webhook", jiraProvider.CreateWebhook)
	mux.Delete("/rest/webhooks/1.0/webhook/{id}", jiraProvider.DeleteWebhook)
	mux.Get("/rest/api/2/myself", jiraProvider.GetMyself)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Warn("shutdown error", zap.Error(err))
		}
	}()

	log.Info("unihook listening",
		zap.String("addr", cfg.ListenAddr),
		zap.String("n8n_api_url", cfg.N8NAPIURL))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}
	logCfg := zap.NewProductionConfig()
	logCfg.Level = zap.NewAtomicLevelAt(lvl)
	return logCfg.Build()
}

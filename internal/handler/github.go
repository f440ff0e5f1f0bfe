package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/Traction-Rec/n8n-unihook/internal/config"
	"github.com/Traction-Rec/n8n-unihook/internal/crypto"
	"github.com/Traction-Rec/n8n-unihook/internal/router"
)

// githubPayload carries the repository coordinates routing matches on. The
// full body is forwarded untouched.
type githubPayload struct {
	Repository struct {
		Name  string `json:"name"`
		Owner struct {
			Login string `json:"login"`
		} `json:"owner"`
	} `json:"repository"`
}

// GitHub handles POST /github/events.
type GitHub struct {
	cfg    *config.Config
	router *router.GitHub
	log    *zap.Logger
}

// NewGitHub creates the GitHub events handler.
func NewGitHub(cfg *config.Config, r *router.GitHub, log *zap.Logger) *GitHub {
	return &GitHub{cfg: cfg, router: r, log: log}
}

// ServeHTTP verifies the inbound signature when a shared secret is
// configured, then acknowledges the event and dispatches routing in the
// background. ping events are acknowledged without routing.
func (h *GitHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	eventType := r.Header.Get("X-GitHub-Event")
	if eventType == "" {
		http.Error(w, "missing X-GitHub-Event header", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if h.cfg.GitHubWebhookSecret != "" {
		signature := r.Header.Get("X-Hub-Signature-256")
		if !crypto.VerifySignature(h.cfg.GitHubWebhookSecret, body, signature) {
			h.log.Warn("github event signature mismatch", zap.String("event_type", eventType))
			http.Error(w, "signature mismatch", http.StatusUnauthorized)
			return
		}
	}

	if eventType == "ping" {
		h.log.Info("received github ping")
		w.WriteHeader(http.StatusOK)
		return
	}

	var payload githubPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.log.Warn("failed to parse github webhook payload", zap.Error(err))
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	owner := payload.Repository.Owner.Login
	repository := payload.Repository.Name
	h.log.Info("received github event",
		zap.String("event_type", eventType),
		zap.String("owner", owner),
		zap.String("repository", repository))

	headers := ForwardableHeaders(r.Header, githubHeaderPrefixes)
	go h.router.RouteEvent(context.Background(), eventType, owner, repository, body, headers)

	w.WriteHeader(http.StatusOK)
}

package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Traction-Rec/n8n-unihook/internal/db"
)

// extractWebhookIDFromURL pulls the n8n webhook ID out of a hook config URL.
//
// n8n webhook URLs follow the pattern
// http://<host>/<endpoint>/<webhookId>/webhook, so the ID is always the
// second-to-last path segment.
func extractWebhookIDFromURL(rawURL string) string {
	pathPart := rawURL
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		pathPart = rawURL[:i]
	}
	segments := strings.Split(strings.TrimRight(pathPart, "/"), "/")
	if len(segments) < 2 {
		return ""
	}
	return segments[len(segments)-2]
}

// GitHubProvider impersonates the slice of the GitHub REST API that n8n
// calls during workflow activation and deactivation. Registration is the
// moment the HMAC secret n8n generates can be captured.
type GitHubProvider struct {
	store *db.DB
	log   *zap.Logger
}

// NewGitHubProvider creates the GitHub impersonation handlers.
func NewGitHubProvider(store *db.DB, log *zap.Logger) *GitHubProvider {
	return &GitHubProvider{store: store, log: log}
}

// ListHooks handles GET /repos/{owner}/{repo}/hooks. It always reports no
// existing hooks so n8n proceeds to register a new one.
func (h *GitHubProvider) ListHooks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, []byte("[]"))
}

type githubHookRequest struct {
	Name   string   `json:"name"`
	Events []string `json:"events"`
	Active bool     `json:"active"`
	Config struct {
		URL         string `json:"url"`
		ContentType string `json:"content_type"`
		Secret      string `json:"secret"`
	} `json:"config"`
}

// CreateHook handles POST /repos/{owner}/{repo}/hooks. The webhook ID is
// extracted from config.url and stored with the secret; the response mimics
// a GitHub hook object so n8n considers the registration successful.
func (h *GitHubProvider) CreateHook(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	repo := chi.URLParam(r, "repo")

	var req githubHookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	webhookID := extractWebhookIDFromURL(req.Config.URL)
	if webhookID == "" {
		h.log.Warn("could not extract webhook_id from config.url, using fallback",
			zap.String("url", req.Config.URL))
		// The registration must still succeed, but this hook will not
		// correlate with any trigger.
		webhookID = fmt.Sprintf("unknown-%s-%s", owner, repo)
	}

	hookID, err := h.store.UpsertWebhookSecret(r.Context(), webhookID, "github", req.Config.Secret)
	if err != nil {
		h.log.Warn("failed to store webhook secret", zap.Error(err))
		hookID = 1
	}

	h.log.Info("captured github webhook registration",
		zap.String("webhook_id", webhookID),
		zap.Int64("hook_id", hookID),
		zap.String("owner", owner),
		zap.String("repo", repo),
		zap.Bool("has_secret", req.Config.Secret != ""))

	events := req.Events
	if events == nil {
		events = []string{}
	}
	body, _ := json.Marshal(map[string]any{
		"id":     hookID,
		"name":   "web",
		"active": true,
		"events": events,
		"config": map[string]any{
			"url":          req.Config.URL,
			"content_type": "json",
		},
		"updated_at": "2024-01-01T00:00:00Z",
		"created_at": "2024-01-01T00:00:00Z",
	})
	writeJSON(w, http.StatusCreated, body)
}

// DeleteHook handles DELETE /repos/{owner}/{repo}/hooks/{hook_id}. The
// stored secret is removed; the response is 204 regardless so deactivation
// never fails on the n8n side.
func (h *GitHubProvider) DeleteHook(w http.ResponseWriter, r *http.Request) {
	hookID, err := strconv.ParseInt(chi.URLParam(r, "hook_id"), 10, 64)
	if err != nil {
		h.log.Warn("invalid hook_id", zap.String("hook_id", chi.URLParam(r, "hook_id")))
		w.WriteHeader(http.StatusNoContent)
		return
	}

	deleted, err := h.store.DeleteWebhookSecretByID(r.Context(), hookID)
	switch {
	case err != nil:
		h.log.Warn("failed to delete webhook secret", zap.Int64("hook_id", hookID), zap.Error(err))
	case deleted:
		h.log.Info("deleted webhook secret", zap.Int64("hook_id", hookID))
	default:
		h.log.Debug("hook_id not found", zap.Int64("hook_id", hookID))
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetUser handles GET /user, which n8n calls to validate GitHub
// credentials.
func (h *GitHubProvider) GetUser(w http.ResponseWriter, r *http.Request) {
	body, _ := json.Marshal(map[string]any{
		"login": "unihook-mock",
		"id":    1,
		"type":  "User",
		"name":  "Unihook Mock GitHub User",
	})
	writeJSON(w, http.StatusOK, body)
}

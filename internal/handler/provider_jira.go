package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Traction-Rec/n8n-unihook/internal/router"
)

// JiraProvider impersonates the slice of the Jira REST API that n8n calls
// during workflow activation and deactivation. Jira has no HMAC secrets;
// registration only needs to look successful, and kicks an immediate trigger
// refresh so events arriving before the next periodic tick find their rows.
type JiraProvider struct {
	router *router.Jira
	log    *zap.Logger
}

// NewJiraProvider creates the Jira impersonation handlers.
func NewJiraProvider(r *router.Jira, log *zap.Logger) *JiraProvider {
	return &JiraProvider{router: r, log: log}
}

// ListWebhooks handles GET /rest/webhooks/1.0/webhook. It always reports no
// existing webhooks so n8n proceeds to register a new one.
func (h *JiraProvider) ListWebhooks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, []byte("[]"))
}

type jiraWebhookRequest struct {
	Name   string   `json:"name"`
	URL    string   `json:"url"`
	Events []string `json:"events"`
}

// CreateWebhook handles POST /rest/webhooks/1.0/webhook. The self URL in
// the response is what n8n later parses to derive the ID for DELETE.
func (h *JiraProvider) CreateWebhook(w http.ResponseWriter, r *http.Request) {
	var req jiraWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	name := req.Name
	if name == "" {
		name = "n8n-mock"
	}

	h.log.Info("captured jira webhook registration",
		zap.String("name", name), zap.String("url", req.URL))

	go func() {
		if err := h.router.RefreshTriggers(context.Background()); err != nil {
			h.log.Warn("failed to refresh triggers after webhook registration", zap.Error(err))
		}
	}()

	events := req.Events
	if events == nil {
		events = []string{}
	}
	body, _ := json.Marshal(map[string]any{
		"name":    name,
		"url":     req.URL,
		"events":  events,
		"enabled": true,
		"self":    "http://localhost/rest/webhooks/1.0/webhook/1",
	})
	writeJSON(w, http.StatusCreated, body)
}

// DeleteWebhook handles DELETE /rest/webhooks/1.0/webhook/{id}.
func (h *JiraProvider) DeleteWebhook(w http.ResponseWriter, r *http.Request) {
	h.log.Info("deleted jira webhook", zap.String("id", chi.URLParam(r, "id")))
	w.WriteHeader(http.StatusNoContent)
}

// GetMyself handles GET /rest/api/2/myself, which n8n calls to validate
// Jira credentials.
func (h *JiraProvider) GetMyself(w http.ResponseWriter, r *http.Request) {
	body, _ := json.Marshal(map[string]any{
		"accountId":    "unihook-mock",
		"emailAddress": "unihook@example.com",
		"displayName":  "Unihook Mock Jira User",
		"active":       true,
	})
	writeJSON(w, http.StatusOK, body)
}

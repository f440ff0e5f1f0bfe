package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/Traction-Rec/n8n-unihook/internal/router"
)

// jiraPayload carries the single field routing needs. The full body is
// forwarded untouched.
type jiraPayload struct {
	WebhookEvent string `json:"webhookEvent"`
}

// Jira handles POST /jira/events.
type Jira struct {
	router *router.Jira
	log    *zap.Logger
}

// NewJira creates the Jira events handler.
func NewJira(r *router.Jira, log *zap.Logger) *Jira {
	return &Jira{router: r, log: log}
}

// ServeHTTP acknowledges the event immediately and dispatches routing in the
// background. The inbound query string is preserved: Jira webhook URLs
// registered in n8n may carry authentication query parameters.
func (h *Jira) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	var payload jiraPayload
	if err := json.Unmarshal(body, &payload); err != nil || payload.WebhookEvent == "" {
		h.log.Warn("failed to parse jira webhook payload", zap.Error(err))
		http.Error(w, "Invalid Jira webhook payload", http.StatusBadRequest)
		return
	}

	h.log.Info("received jira event", zap.String("webhook_event", payload.WebhookEvent))

	headers := ForwardableHeaders(r.Header, jiraHeaderPrefixes)
	queryString := r.URL.RawQuery
	go h.router.RouteEvent(context.Background(), payload.WebhookEvent, body, headers, queryString)

	w.WriteHeader(http.StatusOK)
}

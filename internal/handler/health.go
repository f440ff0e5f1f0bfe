package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/Traction-Rec/n8n-unihook/internal/db"
)

type healthResponse struct {
	Status               string `json:"status"`
	SlackTriggersLoaded  int64  `json:"slack_triggers_loaded"`
	JiraTriggersLoaded   int64  `json:"jira_triggers_loaded"`
	GitHubTriggersLoaded int64  `json:"github_triggers_loaded"`
}

// Health handles GET /health. Non-zero trigger counts are the operator's
// signal that discovery is working.
type Health struct {
	store *db.DB
	log   *zap.Logger
}

// NewHealth creates the health check handler.
func NewHealth(store *db.DB, log *zap.Logger) *Health {
	return &Health{store: store, log: log}
}

func (h *Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "healthy"}

	var err error
	if resp.SlackTriggersLoaded, err = h.store.CountSlackTriggers(r.Context()); err != nil {
		h.log.Warn("failed to count slack triggers", zap.Error(err))
	}
	if resp.JiraTriggersLoaded, err = h.store.CountJiraTriggers(r.Context()); err != nil {
		h.log.Warn("failed to count jira triggers", zap.Error(err))
	}
	if resp.GitHubTriggersLoaded, err = h.store.CountGitHubTriggers(r.Context()); err != nil {
		h.log.Warn("failed to count github triggers", zap.Error(err))
	}

	body, _ := json.Marshal(resp)
	writeJSON(w, http.StatusOK, body)
}

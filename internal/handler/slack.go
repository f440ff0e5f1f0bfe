package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/Traction-Rec/n8n-unihook/internal/router"
)

// slackPayload is the outer envelope of a Slack Events API request. The type
// field discriminates between URL verification challenges and event
// callbacks.
type slackPayload struct {
	Type      string      `json:"type"`
	Challenge string      `json:"challenge"`
	EventID   string      `json:"event_id"`
	TeamID    string      `json:"team_id"`
	Event     *slackEvent `json:"event"`
}

type slackEvent struct {
	Type    string `json:"type"`
	Subtype string `json:"subtype"`
	Channel string `json:"channel"`
}

// n8nEventType maps a Slack event to the snake_case event name the n8n Slack
// Trigger node filters on.
func (e *slackEvent) n8nEventType() string {
	switch e.Type {
	case "message":
		if e.Subtype == "file_share" {
			return "file_shared"
		}
		return "message"
	case "team_join":
		return "user_created"
	default:
		return e.Type
	}
}

// Slack handles POST /slack/events.
type Slack struct {
	router *router.Slack
	log    *zap.Logger
}

// NewSlack creates the Slack events handler.
func NewSlack(r *router.Slack, log *zap.Logger) *Slack {
	return &Slack{router: r, log: log}
}

// ServeHTTP answers URL verification challenges synchronously and
// acknowledges event callbacks immediately, dispatching the routing in the
// background. Slack requires a response within 3 seconds.
func (h *Slack) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	var payload slackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.log.Warn("failed to parse slack payload", zap.Error(err))
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	switch payload.Type {
	case "url_verification":
		h.log.Info("received slack url verification challenge")
		resp, _ := json.Marshal(map[string]string{"challenge": payload.Challenge})
		writeJSON(w, http.StatusOK, resp)

	case "event_callback":
		if payload.Event == nil {
			http.Error(w, "Invalid Slack payload", http.StatusBadRequest)
			return
		}
		eventType := payload.Event.n8nEventType()
		channel := payload.Event.Channel
		h.log.Info("received slack event",
			zap.String("event_type", eventType),
			zap.String("event_id", payload.EventID),
			zap.String("team_id", payload.TeamID))

		headers := ForwardableHeaders(r.Header, slackHeaderPrefixes)
		go h.router.RouteEvent(context.Background(), eventType, channel, body, headers)

		w.WriteHeader(http.StatusOK)

	default:
		http.Error(w, "Invalid Slack payload", http.StatusBadRequest)
	}
}

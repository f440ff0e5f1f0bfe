package router

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Traction-Rec/n8n-unihook/internal/config"
	"github.com/Traction-Rec/n8n-unihook/internal/db"
	"github.com/Traction-Rec/n8n-unihook/internal/n8n"
	"github.com/Traction-Rec/n8n-unihook/internal/trigger"
)

// Slack routes Slack events to matching triggers.
type Slack struct {
	cfg    *config.Config
	store  *db.DB
	client *n8n.Client
	log    *zap.Logger
}

// NewSlack creates a Slack router.
func NewSlack(cfg *config.Config, store *db.DB, client *n8n.Client, log *zap.Logger) *Slack {
	return &Slack{cfg: cfg, store: store, client: client, log: log}
}

// Run refreshes triggers immediately and then periodically until ctx is
// cancelled.
func (r *Slack) Run(ctx context.Context) {
	runRefreshLoop(ctx, r.log, "slack", time.Duration(r.cfg.RefreshIntervalSecs)*time.Second, r.RefreshTriggers)
}

// RefreshTriggers reloads Slack trigger configurations from n8n into the
// store.
func (r *Slack) RefreshTriggers(ctx context.Context) error {
	workflows, err := r.client.ListWorkflows(ctx)
	if err != nil {
		return fmt.Errorf("refresh slack triggers: %w", err)
	}

	var configs []trigger.SlackConfig
	for i := range workflows {
		for j := range workflows[i].Nodes {
			if c := trigger.ParseSlack(&workflows[i], &workflows[i].Nodes[j]); c != nil {
				configs = append(configs, *c)
			}
		}
	}

	if err := r.store.SyncSlackTriggers(ctx, configs); err != nil {
		return fmt.Errorf("refresh slack triggers: %w", err)
	}
	r.log.Info("refreshed slack triggers", zap.Int("count", len(configs)))
	return nil
}

// RouteEvent forwards a Slack event to every matching trigger. eventType is
// the n8n event name already mapped from the Slack payload; channel is empty
// for events that carry no channel. Deliveries fan out in parallel; RouteEvent
// returns once all of them have completed.
func (r *Slack) RouteEvent(ctx context.Context, eventType, channel string, rawBody []byte, headers http.Header) {
	triggers, err := r.store.QuerySlackTriggers(ctx)
	if err != nil {
		r.log.Error("failed to query slack triggers", zap.Error(err))
		return
	}

	var wg sync.WaitGroup
	dispatch := func(workflowName, kind, url string) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			forward(ctx, r.client, r.log, workflowName, kind, url, rawBody, headers)
		}()
	}

	matched := 0
	for _, t := range triggers {
		if !slackMatches(t, eventType, channel) {
			continue
		}
		matched++

		if t.WorkflowActive {
			dispatch(t.WorkflowName, "production", productionURL(r.cfg, t.WebhookID))
		} else {
			r.log.Debug("skipping production webhook for inactive workflow",
				zap.String("workflow", t.WorkflowName))
		}
		dispatch(t.WorkflowName, "test", testURL(r.cfg, t.WebhookID))
	}
	wg.Wait()

	if matched == 0 {
		r.log.Debug("no matching slack triggers",
			zap.String("event_type", eventType),
			zap.String("channel", channel))
	}
}

// channel-less Slack event types that triggers can still receive when the
// inbound event carries no channel.
var slackChannelless = map[string]bool{
	"user_created":    true,
	"channel_created": true,
	"any_event":       true,
}

// slackMatches reports whether a trigger should receive an event. The event
// type must match (or the trigger listens for any_event), and the trigger's
// channel scope must cover the event.
func slackMatches(t db.SlackTriggerRow, eventType, channel string) bool {
	if t.EventType != "any_event" && t.EventType != eventType {
		return false
	}
	if t.WatchWholeWorkspace {
		return true
	}
	if channel != "" {
		for _, c := range t.Channels {
			if c == channel {
				return true
			}
		}
		return false
	}
	return slackChannelless[t.EventType]
}

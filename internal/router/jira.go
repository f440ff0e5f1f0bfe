package router

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Traction-Rec/n8n-unihook/internal/config"
	"github.com/Traction-Rec/n8n-unihook/internal/db"
	"github.com/Traction-Rec/n8n-unihook/internal/n8n"
	"github.com/Traction-Rec/n8n-unihook/internal/trigger"
)

// Jira routes Jira events to matching triggers.
type Jira struct {
	cfg    *config.Config
	store  *db.DB
	client *n8n.Client
	log    *zap.Logger
}

// NewJira creates a Jira router.
func NewJira(cfg *config.Config, store *db.DB, client *n8n.Client, log *zap.Logger) *Jira {
	return &Jira{cfg: cfg, store: store, client: client, log: log}
}

// Run refreshes triggers immediately and then periodically until ctx is
// cancelled.
func (r *Jira) Run(ctx context.Context) {
	runRefreshLoop(ctx, r.log, "jira", time.Duration(r.cfg.RefreshIntervalSecs)*time.Second, r.RefreshTriggers)
}

// RefreshTriggers reloads Jira trigger configurations from n8n into the
// store. It is also invoked directly by the Jira impersonation endpoint so a
// freshly activated workflow becomes routable before the next periodic tick.
func (r *Jira) RefreshTriggers(ctx context.Context) error {
	workflows, err := r.client.ListWorkflows(ctx)
	if err != nil {
		return fmt.Errorf("refresh jira triggers: %w", err)
	}

	var configs []trigger.JiraConfig
	for i := range workflows {
		for j := range workflows[i].Nodes {
			if c := trigger.ParseJira(&workflows[i], &workflows[i].Nodes[j]); c != nil {
				configs = append(configs, *c)
			}
		}
	}

	if err := r.store.SyncJiraTriggers(ctx, configs); err != nil {
		return fmt.Errorf("refresh jira triggers: %w", err)
	}
	r.log.Info("refreshed jira triggers", zap.Int("count", len(configs)))
	return nil
}

// RouteEvent forwards a Jira event to every matching trigger. queryString is
// the raw query string of the inbound request; Jira webhook URLs registered
// in n8n may carry authentication query parameters, so it is re-appended to
// each forward URL. Deliveries fan out in parallel; RouteEvent returns once
// all of them have completed.
func (r *Jira) RouteEvent(ctx context.Context, webhookEvent string, rawBody []byte, headers http.Header, queryString string) {
	triggers, err := r.store.QueryJiraTriggers(ctx)
	if err != nil {
		r.log.Error("failed to query jira triggers", zap.Error(err))
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
		if !eventMatches(t.Events, webhookEvent) {
			continue
		}
		matched++

		if t.WorkflowActive {
			dispatch(t.WorkflowName, "production",
				appendQueryString(productionURL(r.cfg, t.WebhookID), queryString))
		} else {
			r.log.Debug("skipping production webhook for inactive workflow",
				zap.String("workflow", t.WorkflowName))
		}
		dispatch(t.WorkflowName, "test",
			appendQueryString(testURL(r.cfg, t.WebhookID), queryString))
	}
	wg.Wait()

	if matched == 0 {
		r.log.Debug("no matching jira triggers", zap.String("webhook_event", webhookEvent))
	}
}

// eventMatches reports whether an event list covers an event, honoring the
// "*" wildcard.
func eventMatches(events []string, event string) bool {
	for _, e := range events {
		if e == "*" || e == event {
			return true
		}
	}
	return false
}

// appendQueryString appends qs to url with '?' or '&' as appropriate.
func appendQueryString(url, qs string) string {
	if qs == "" {
		return url
	}
	if strings.Contains(url, "?") {
		return url + "&" + qs
	}
	return url + "?" + qs
}

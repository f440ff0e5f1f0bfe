package router

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Traction-Rec/n8n-unihook/internal/config"
	"github.com/Traction-Rec/n8n-unihook/internal/crypto"
	"github.com/Traction-Rec/n8n-unihook/internal/db"
	"github.com/Traction-Rec/n8n-unihook/internal/n8n"
	"github.com/Traction-Rec/n8n-unihook/internal/trigger"
)

// GitHub routes GitHub events to matching triggers, re-signing each payload
// with the trigger's captured webhook secret.
type GitHub struct {
	cfg    *config.Config
	store  *db.DB
	client *n8n.Client
	log    *zap.Logger
}

// NewGitHub creates a GitHub router.
func NewGitHub(cfg *config.Config, store *db.DB, client *n8n.Client, log *zap.Logger) *GitHub {
	return &GitHub{cfg: cfg, store: store, client: client, log: log}
}

// Run refreshes triggers immediately and then periodically until ctx is
// cancelled.
func (r *GitHub) Run(ctx context.Context) {
	runRefreshLoop(ctx, r.log, "github", time.Duration(r.cfg.RefreshIntervalSecs)*time.Second, r.RefreshTriggers)
}

// RefreshTriggers reloads GitHub trigger configurations from n8n into the
// store. Secrets found in workflow staticData are persisted with the
// fallback upsert first, so they never overwrite secrets captured
// authoritatively by the impersonation endpoint.
func (r *GitHub) RefreshTriggers(ctx context.Context) error {
	workflows, err := r.client.ListWorkflows(ctx)
	if err != nil {
		return fmt.Errorf("refresh github triggers: %w", err)
	}

	var configs []trigger.GitHubConfig
	for i := range workflows {
		for j := range workflows[i].Nodes {
			if c := trigger.ParseGitHub(&workflows[i], &workflows[i].Nodes[j]); c != nil {
				configs = append(configs, *c)
			}
		}
	}

	for _, c := range configs {
		if c.Secret == "" {
			continue
		}
		if err := r.store.UpsertWebhookSecretFallback(ctx, c.WebhookID, "github", c.Secret); err != nil {
			r.log.Warn("failed to persist staticData webhook secret",
				zap.String("webhook_id", c.WebhookID), zap.Error(err))
		}
	}

	if err := r.store.SyncGitHubTriggers(ctx, configs); err != nil {
		// A failed sync keeps the prior trigger rows; secrets fallback-
		// upserted above are already visible to readers, so the retry path
		// can still proceed.
		r.log.Warn("failed to sync github triggers", zap.Error(err))
		return nil
	}
	r.log.Info("refreshed github triggers", zap.Int("count", len(configs)))
	return nil
}

// forwardResult records one delivery attempt so the retry pass can decide
// which URLs to redo.
type forwardResult struct {
	webhookURL string
	hadSecret  bool
	status     int // 0 means no response was obtained
}

// RouteEvent forwards a GitHub event to every matching trigger.
//
// The secret captured for a trigger can be stale: n8n regenerates it when a
// workflow is re-activated. A 401 from n8n, or a trigger with no captured
// secret at all, therefore triggers a single refresh from the n8n API
// followed by a retry of just the failed deliveries with the fresh secrets.
func (r *GitHub) RouteEvent(ctx context.Context, eventType, owner, repository string, rawBody []byte, headers http.Header) {
	matching, err := r.queryMatching(ctx, eventType, owner, repository)
	if err != nil {
		r.log.Error("failed to query github triggers", zap.Error(err))
		return
	}
	if len(matching) == 0 {
		r.log.Debug("no matching github triggers",
			zap.String("event_type", eventType),
			zap.String("owner", owner),
			zap.String("repository", repository))
		return
	}

	results := r.forwardAll(ctx, matching, rawBody, headers, nil, false)

	retryURLs := map[string]bool{}
	for _, res := range results {
		if res.status == http.StatusUnauthorized || !res.hadSecret {
			retryURLs[res.webhookURL] = true
		}
	}
	if len(retryURLs) == 0 {
		return
	}

	r.log.Info("retrying deliveries after refreshing triggers",
		zap.Int("retry_count", len(retryURLs)))

	if err := r.RefreshTriggers(ctx); err != nil {
		r.log.Warn("failed to refresh triggers for retry", zap.Error(err))
		return
	}

	fresh, err := r.queryMatching(ctx, eventType, owner, repository)
	if err != nil {
		r.log.Error("failed to re-query github triggers after refresh", zap.Error(err))
		return
	}
	r.forwardAll(ctx, fresh, rawBody, headers, retryURLs, true)
}

func (r *GitHub) queryMatching(ctx context.Context, eventType, owner, repository string) ([]db.GitHubTriggerRow, error) {
	rows, err := r.store.QueryGitHubTriggers(ctx, owner, repository)
	if err != nil {
		return nil, err
	}
	var matching []db.GitHubTriggerRow
	for _, row := range rows {
		if eventMatches(row.Events, eventType) {
			matching = append(matching, row)
		}
	}
	return matching, nil
}

// forwardAll delivers an event to each trigger's production (active
// workflows only) and test URLs. When only is non-nil, deliveries are
// restricted to those URLs (the retry pass). Deliveries fan out in parallel;
// forwardAll returns once the whole wave has completed, so the retry
// decision sees every result.
func (r *GitHub) forwardAll(ctx context.Context, triggers []db.GitHubTriggerRow, rawBody []byte, headers http.Header, only map[string]bool, retryPass bool) []forwardResult {
	prodKind, testKind := "production", "test"
	if retryPass {
		prodKind, testKind = "production (retry)", "test (retry)"
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []forwardResult
	)
	deliver := func(workflowName, kind, url string, hadSecret bool, signed http.Header) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status := forward(ctx, r.client, r.log, workflowName, kind, url, rawBody, signed)
			mu.Lock()
			results = append(results, forwardResult{webhookURL: url, hadSecret: hadSecret, status: status})
			mu.Unlock()
		}()
	}

	for _, t := range triggers {
		// An empty captured secret counts as missing so the
		// refresh-and-retry path can replace it.
		hadSecret := t.Secret != nil && *t.Secret != ""
		signed := r.signHeaders(headers, rawBody, t.Secret)

		prodURL := productionURL(r.cfg, t.WebhookID)
		if t.WorkflowActive && (only == nil || only[prodURL]) {
			deliver(t.WorkflowName, prodKind, prodURL, hadSecret, signed)
		} else if !t.WorkflowActive {
			r.log.Debug("skipping production webhook for inactive workflow",
				zap.String("workflow", t.WorkflowName))
		}

		tURL := testURL(r.cfg, t.WebhookID)
		if only == nil || only[tURL] {
			deliver(t.WorkflowName, testKind, tURL, hadSecret, signed)
		}
	}
	wg.Wait()
	return results
}

// signHeaders clones the forwarded header set and replaces
// X-Hub-Signature-256 with a signature computed under the trigger's secret.
// Without a secret the headers pass through unchanged.
func (r *GitHub) signHeaders(headers http.Header, body []byte, secret *string) http.Header {
	if secret == nil || *secret == "" {
		r.log.Warn("no webhook secret available; forwarding without re-signing")
		return headers
	}
	signed := headers.Clone()
	if signed == nil {
		signed = http.Header{}
	}
	signed.Set("X-Hub-Signature-256", crypto.SignPayload(*secret, body))
	return signed
}

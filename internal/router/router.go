// Package router matches inbound provider events against stored trigger
// configurations and forwards them to the engine's webhook endpoints.
//
// Routing never propagates delivery failures to the caller: the provider has
// already been acknowledged by the time an event reaches a router, so
// failures are logged and dropped.
package router

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Traction-Rec/n8n-unihook/internal/config"
	"github.com/Traction-Rec/n8n-unihook/internal/n8n"
)

// webhookURL reconstructs an n8n webhook URL for a trigger.
func webhookURL(cfg *config.Config, endpoint, webhookID string) string {
	base := strings.TrimRight(cfg.N8NAPIURL, "/")
	return fmt.Sprintf("%s/%s/%s/webhook", base, endpoint, webhookID)
}

func productionURL(cfg *config.Config, webhookID string) string {
	return webhookURL(cfg, cfg.EndpointWebhook, webhookID)
}

func testURL(cfg *config.Config, webhookID string) string {
	return webhookURL(cfg, cfg.EndpointWebhookTest, webhookID)
}

// forward delivers one event to one webhook URL. It returns the HTTP status
// code, or 0 when no response was obtained. Non-2xx responses are logged but
// still count as delivered for the caller.
func forward(ctx context.Context, client *n8n.Client, log *zap.Logger, workflowName, kind, url string, body []byte, headers http.Header) int {
	status, err := client.ForwardEvent(ctx, url, body, headers)
	if err != nil {
		log.Error("failed to forward event",
			zap.String("workflow", workflowName),
			zap.String("kind", kind),
			zap.String("webhook_url", url),
			zap.Error(err))
		return 0
	}

	if status >= 200 && status < 300 {
		log.Info("forwarded event",
			zap.String("workflow", workflowName),
			zap.String("kind", kind),
			zap.Int("status", status))
	} else {
		log.Warn("webhook returned non-success status",
			zap.String("workflow", workflowName),
			zap.String("kind", kind),
			zap.String("webhook_url", url),
			zap.Int("status", status))
	}
	return status
}

// runRefreshLoop performs an immediate refresh, then refreshes every
// interval until ctx is cancelled. A slow refresh delays the next tick
// rather than overlapping it.
func runRefreshLoop(ctx context.Context, log *zap.Logger, provider string, interval time.Duration, refresh func(context.Context) error) {
	if err := refresh(ctx); err != nil {
		log.Error("initial trigger load failed", zap.String("provider", provider), zap.Error(err))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := refresh(ctx); err != nil {
				log.Warn("trigger refresh failed", zap.String("provider", provider), zap.Error(err))
			}
		}
	}
}

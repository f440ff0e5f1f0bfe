package handler

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Traction-Rec/n8n-unihook/internal/config"
	"github.com/Traction-Rec/n8n-unihook/internal/db"
	"github.com/Traction-Rec/n8n-unihook/internal/n8n"
	"github.com/Traction-Rec/n8n-unihook/internal/router"
)

func testLog() *zap.Logger {
	return zap.NewNop()
}

type testHarness struct {
	cfg    *config.Config
	store  *db.DB
	log    *zap.Logger
	slack  *router.Slack
	jira   *router.Jira
	github *router.GitHub
}

// newTestHarness wires routers against the given engine URL and an
// in-memory store.
func newTestHarness(t *testing.T, engineURL string) *testHarness {
	t.Helper()

	cfg := &config.Config{
		N8NAPIURL:           engineURL,
		N8NAPIKey:           "test-api-key",
		ListenAddr:          "0.0.0.0:3000",
		RefreshIntervalSecs: 600,
		EndpointWebhook:     "webhook",
		EndpointWebhookTest: "webhook-test",
		DatabasePath:        ":memory:",
	}

	store, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	log := zap.NewNop()
	client := n8n.New(engineURL, cfg.N8NAPIKey)
	return &testHarness{
		cfg:    cfg,
		store:  store,
		log:    log,
		slack:  router.NewSlack(cfg, store, client, log),
		jira:   router.NewJira(cfg, store, client, log),
		github: router.NewGitHub(cfg, store, client, log),
	}
}

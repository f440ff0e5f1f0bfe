package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Traction-Rec/n8n-unihook/internal/n8n"
	"github.com/Traction-Rec/n8n-unihook/internal/trigger"
)

func TestAppendQueryStringEmpty(t *testing.T) {
	url := "http://n8n:5678/webhook/abc/webhook"
	require.Equal(t, url, appendQueryString(url, ""))
}

func TestAppendQueryStringToCleanURL(t *testing.T) {
	require.Equal(t,
		"http://n8n:5678/webhook/abc/webhook?secret=abc123",
		appendQueryString("http://n8n:5678/webhook/abc/webhook", "secret=abc123"))
}

func TestAppendQueryStringToURLWithExistingParams(t *testing.T) {
	require.Equal(t,
		"http://n8n:5678/webhook/abc/webhook?existing=true&secret=abc123",
		appendQueryString("http://n8n:5678/webhook/abc/webhook?existing=true", "secret=abc123"))
}

func TestEventMatches(t *testing.T) {
	require.True(t, eventMatches([]string{"jira:issue_created"}, "jira:issue_created"))
	require.False(t, eventMatches([]string{"jira:issue_created"}, "comment_created"))
	require.True(t, eventMatches([]string{"*"}, "sprint_started"))
	require.True(t, eventMatches([]string{"jira:issue_created", "comment_created"}, "comment_created"))
	require.False(t, eventMatches(nil, "jira:issue_created"))
}

func TestJiraRouteEventAppendsInboundQueryString(t *testing.T) {
	var mu sync.Mutex
	var requests []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests = append(requests, r.URL.String())
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	store := testStore(t)
	r := NewJira(cfg, store, n8n.New(srv.URL, "k"), testLogger())

	err := store.SyncJiraTriggers(context.Background(), []trigger.JiraConfig{
		{
			WebhookID:      "wh-j1",
			WorkflowName:   "Jira Workflow",
			WorkflowActive: true,
			Events:         []string{"jira:issue_created"},
		},
	})
	require.NoError(t, err)

	r.RouteEvent(context.Background(), "jira:issue_created",
		[]byte(`{"webhookEvent":"jira:issue_created"}`), nil, "token=xyz")

	require.ElementsMatch(t, []string{
		"/webhook/wh-j1/webhook?token=xyz",
		"/webhook-test/wh-j1/webhook?token=xyz",
	}, requests)
}

func TestJiraRouteEventSkipsNonMatchingEvents(t *testing.T) {
	var mu sync.Mutex
	posts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		posts++
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	store := testStore(t)
	r := NewJira(cfg, store, n8n.New(srv.URL, "k"), testLogger())

	err := store.SyncJiraTriggers(context.Background(), []trigger.JiraConfig{
		{WebhookID: "wh-j1", WorkflowName: "W", WorkflowActive: true, Events: []string{"comment_created"}},
	})
	require.NoError(t, err)

	r.RouteEvent(context.Background(), "jira:issue_created", []byte(`{}`), nil, "")
	require.Zero(t, posts)
}

func TestJiraRouteEventDeliversInParallel(t *testing.T) {
	var (
		mu       sync.Mutex
		arrivals = map[string]time.Duration{}
		begin    time.Time
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		elapsed := time.Since(begin)
		mu.Lock()
		arrivals[r.URL.Path] = elapsed
		mu.Unlock()
		if strings.Contains(r.URL.Path, "wh-slow") {
			time.Sleep(500 * time.Millisecond)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	store := testStore(t)
	r := NewJira(cfg, store, n8n.New(srv.URL, "k"), testLogger())

	err := store.SyncJiraTriggers(context.Background(), []trigger.JiraConfig{
		{WebhookID: "wh-slow", WorkflowName: "Slow", WorkflowActive: true, Events: []string{"*"}},
		{WebhookID: "wh-fast", WorkflowName: "Fast", WorkflowActive: true, Events: []string{"*"}},
	})
	require.NoError(t, err)

	begin = time.Now()
	r.RouteEvent(context.Background(), "jira:issue_created", []byte(`{}`), nil, "")

	// The fast trigger's deliveries must not queue behind the slow webhook.
	for _, path := range []string{"/webhook/wh-fast/webhook", "/webhook-test/wh-fast/webhook"} {
		require.Contains(t, arrivals, path)
		require.Less(t, arrivals[path], 250*time.Millisecond)
	}
}

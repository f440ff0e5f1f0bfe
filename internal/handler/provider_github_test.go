package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func githubProviderMux(t *testing.T) (chi.Router, *testHarness) {
	t.Helper()
	hn := newTestHarness(t, "http://localhost:5678")
	p := NewGitHubProvider(hn.store, testLog())

	mux := chi.NewRouter()
	mux.Get("/repos/{owner}/{repo}/hooks", p.ListHooks)
	mux.Post("/repos/{owner}/{repo}/hooks", p.CreateHook)
	mux.Delete("/repos/{owner}/{repo}/hooks/{hook_id}", p.DeleteHook)
	mux.Get("/user", p.GetUser)
	return mux, hn
}

func TestExtractWebhookIDStandardURL(t *testing.T) {
	require.Equal(t, "abc123-def456",
		extractWebhookIDFromURL("http://n8n:5678/webhook/abc123-def456/webhook"))
}

func TestExtractWebhookIDTestEndpoint(t *testing.T) {
	require.Equal(t, "abc123-def456",
		extractWebhookIDFromURL("http://n8n:5678/webhook-test/abc123-def456/webhook"))
}

func TestExtractWebhookIDTrailingSlash(t *testing.T) {
	require.Equal(t, "abc123",
		extractWebhookIDFromURL("http://n8n:5678/webhook/abc123/webhook/"))
}

func TestExtractWebhookIDQueryString(t *testing.T) {
	require.Equal(t, "abc123",
		extractWebhookIDFromURL("http://n8n:5678/webhook/abc123/webhook?token=xyz"))
}

func TestExtractWebhookIDEmptyURL(t *testing.T) {
	require.Empty(t, extractWebhookIDFromURL(""))
}

func TestExtractWebhookIDNoPath(t *testing.T) {
	require.Empty(t, extractWebhookIDFromURL("http://n8n:5678"))
}

func createHookBody(url, secret string) string {
	b, _ := json.Marshal(map[string]any{
		"name":   "web",
		"active": true,
		"events": []string{"push"},
		"config": map[string]any{
			"url":          url,
			"content_type": "json",
			"secret":       secret,
		},
	})
	return string(b)
}

func TestCreateHookStoresSecret(t *testing.T) {
	mux, hn := githubProviderMux(t)

	req := httptest.NewRequest(http.MethodPost, "/repos/octo/repo/hooks",
		strings.NewReader(createHookBody("http://n8n:5678/webhook/wh-gh-1/webhook", "s3cret")))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "web", resp["name"])
	require.Equal(t, true, resp["active"])

	secret, err := hn.store.GetWebhookSecret(context.Background(), "wh-gh-1")
	require.NoError(t, err)
	require.NotNil(t, secret)
	require.Equal(t, "s3cret", *secret)
}

func TestCreateHookUpsertPreservesIDAndUpdatesSecret(t *testing.T) {
	mux, hn := githubProviderMux(t)

	req := httptest.NewRequest(http.MethodPost, "/repos/octo/repo/hooks",
		strings.NewReader(createHookBody("http://n8n:5678/webhook/wh-gh-1/webhook", "first")))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var first map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))

	req = httptest.NewRequest(http.MethodPost, "/repos/octo/repo/hooks",
		strings.NewReader(createHookBody("http://n8n:5678/webhook/wh-gh-1/webhook", "second")))
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var second map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	require.Equal(t, first["id"], second["id"])

	secret, err := hn.store.GetWebhookSecret(context.Background(), "wh-gh-1")
	require.NoError(t, err)
	require.NotNil(t, secret)
	require.Equal(t, "second", *secret)
}

func TestCreateHookFallbackIDWhenURLMissing(t *testing.T) {
	mux, hn := githubProviderMux(t)

	req := httptest.NewRequest(http.MethodPost, "/repos/octo/repo/hooks",
		strings.NewReader(`{"name":"web","config":{"secret":"s3cret"}}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	secret, err := hn.store.GetWebhookSecret(context.Background(), "unknown-octo-repo")
	require.NoError(t, err)
	require.NotNil(t, secret)
	require.Equal(t, "s3cret", *secret)
}

func TestCreateHookEmptySecretStillStored(t *testing.T) {
	mux, hn := githubProviderMux(t)

	req := httptest.NewRequest(http.MethodPost, "/repos/octo/repo/hooks",
		strings.NewReader(createHookBody("http://n8n:5678/webhook/wh-gh-1/webhook", "")))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	secret, err := hn.store.GetWebhookSecret(context.Background(), "wh-gh-1")
	require.NoError(t, err)
	require.NotNil(t, secret)
	require.Empty(t, *secret)
}

func TestDeleteHookRemovesSecret(t *testing.T) {
	mux, hn := githubProviderMux(t)

	req := httptest.NewRequest(http.MethodPost, "/repos/octo/repo/hooks",
		strings.NewReader(createHookBody("http://n8n:5678/webhook/wh-gh-1/webhook", "s3cret")))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	hookID := int64(resp["id"].(float64))

	req = httptest.NewRequest(http.MethodDelete,
		"/repos/octo/repo/hooks/"+strconv.FormatInt(hookID, 10), nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	secret, err := hn.store.GetWebhookSecret(context.Background(), "wh-gh-1")
	require.NoError(t, err)
	require.Nil(t, secret)
}

func TestDeleteHookNonexistentReturns204(t *testing.T) {
	mux, _ := githubProviderMux(t)

	req := httptest.NewRequest(http.MethodDelete, "/repos/octo/repo/hooks/999", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestListHooksReturnsEmptyArray(t *testing.T) {
	mux, _ := githubProviderMux(t)

	req := httptest.NewRequest(http.MethodGet, "/repos/octo/repo/hooks", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, "[]", rec.Body.String())
}

func TestGetUserReturnsMockUser(t *testing.T) {
	mux, _ := githubProviderMux(t)

	req := httptest.NewRequest(http.MethodGet, "/user", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "unihook-mock", resp["login"])
}

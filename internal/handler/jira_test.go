package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJiraEventAcknowledgedImmediately(t *testing.T) {
	h := NewJira(newTestHarness(t, "http://localhost:5678").jira, testLog())

	req := httptest.NewRequest(http.MethodPost, "/jira/events?token=xyz",
		strings.NewReader(`{"webhookEvent":"jira:issue_created","issue":{"key":"PROJ-1"}}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestJiraInvalidJSONReturns400(t *testing.T) {
	h := NewJira(newTestHarness(t, "http://localhost:5678").jira, testLog())

	req := httptest.NewRequest(http.MethodPost, "/jira/events", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJiraMissingWebhookEventReturns400(t *testing.T) {
	h := NewJira(newTestHarness(t, "http://localhost:5678").jira, testLog())

	req := httptest.NewRequest(http.MethodPost, "/jira/events",
		strings.NewReader(`{"issue":{"key":"PROJ-1"}}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

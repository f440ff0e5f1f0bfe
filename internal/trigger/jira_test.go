package trigger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Traction-Rec/n8n-unihook/internal/n8n"
)

func jiraNode(webhookID string, params map[string]any) n8n.WorkflowNode {
	return n8n.WorkflowNode{
		Type:       "n8n-nodes-base.jiraTrigger",
		Name:       "Jira Trigger",
		Parameters: params,
		WebhookID:  webhookID,
	}
}

func TestParseJiraBasic(t *testing.T) {
	node := jiraNode("wh-j1", map[string]any{
		"events": []any{"jira:issue_created"},
	})
	wf := &n8n.Workflow{ID: "wf1", Name: "Jira Workflow", Active: true, Nodes: []n8n.WorkflowNode{node}}

	cfg := ParseJira(wf, &node)
	require.NotNil(t, cfg)
	require.Equal(t, "wh-j1", cfg.WebhookID)
	require.Equal(t, "wf1", cfg.WorkflowID)
	require.Equal(t, "Jira Workflow", cfg.WorkflowName)
	require.True(t, cfg.WorkflowActive)
	require.Equal(t, []string{"jira:issue_created"}, cfg.Events)
}

func TestParseJiraMultipleEvents(t *testing.T) {
	node := jiraNode("wh-j2", map[string]any{
		"events": []any{"jira:issue_created", "comment_created", "sprint_started"},
	})
	wf := &n8n.Workflow{ID: "wf2", Name: "Multi", Active: true}

	cfg := ParseJira(wf, &node)
	require.NotNil(t, cfg)
	require.Equal(t, []string{"jira:issue_created", "comment_created", "sprint_started"}, cfg.Events)
}

func TestParseJiraWildcard(t *testing.T) {
	node := jiraNode("wh-j3", map[string]any{"events": []any{"*"}})
	wf := &n8n.Workflow{ID: "wf3", Name: "Wildcard", Active: true}

	cfg := ParseJira(wf, &node)
	require.NotNil(t, cfg)
	require.Equal(t, []string{"*"}, cfg.Events)
}

func TestParseJiraEmptyOrMissingEvents(t *testing.T) {
	wf := &n8n.Workflow{ID: "wf4", Name: "Empty", Active: true}

	node := jiraNode("wh-j4", map[string]any{"events": []any{}})
	cfg := ParseJira(wf, &node)
	require.NotNil(t, cfg)
	require.Empty(t, cfg.Events)

	node = jiraNode("wh-j5", map[string]any{})
	cfg = ParseJira(wf, &node)
	require.NotNil(t, cfg)
	require.Empty(t, cfg.Events)
}

func TestParseJiraInactiveWorkflow(t *testing.T) {
	node := jiraNode("wh-j6", map[string]any{"events": []any{"*"}})
	wf := &n8n.Workflow{ID: "wf6", Name: "Inactive", Active: false}

	cfg := ParseJira(wf, &node)
	require.NotNil(t, cfg)
	require.False(t, cfg.WorkflowActive)
}

func TestParseJiraRejectsOtherNodeTypes(t *testing.T) {
	node := n8n.WorkflowNode{
		Type:       "n8n-nodes-base.httpRequest",
		Name:       "HTTP Request",
		Parameters: map[string]any{},
		WebhookID:  "wh-x",
	}
	wf := &n8n.Workflow{ID: "wf7", Name: "Workflow", Active: true}

	require.Nil(t, ParseJira(wf, &node))
}

func TestParseJiraRejectsMissingWebhookID(t *testing.T) {
	node := jiraNode("", map[string]any{"events": []any{"jira:issue_created"}})
	wf := &n8n.Workflow{ID: "wf8", Name: "Workflow", Active: true}

	require.Nil(t, ParseJira(wf, &node))
}

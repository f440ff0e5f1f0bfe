package trigger

import "github.com/Traction-Rec/n8n-unihook/internal/n8n"

// JiraConfig is the extracted configuration of a Jira Trigger node.
type JiraConfig struct {
	WebhookID      string
	WorkflowID     string
	WorkflowName   string
	WorkflowActive bool

	// Events are Jira webhook event names ("jira:issue_created",
	// "comment_updated", ...), or "*" for all events. An empty list matches
	// nothing.
	Events []string
}

// ParseJira extracts a JiraConfig from a workflow node, or nil when the node
// is not a routable Jira Trigger.
func ParseJira(workflow *n8n.Workflow, node *n8n.WorkflowNode) *JiraConfig {
	if node.Type != jiraNodeType || node.WebhookID == "" {
		return nil
	}

	return &JiraConfig{
		WebhookID:      node.WebhookID,
		WorkflowID:     workflow.ID,
		WorkflowName:   workflow.Name,
		WorkflowActive: workflow.Active,
		Events:         stringSlice(node.Parameters["events"]),
	}
}

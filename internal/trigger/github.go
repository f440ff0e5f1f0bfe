package trigger

import "github.com/Traction-Rec/n8n-unihook/internal/n8n"

// GitHubConfig is the extracted configuration of a GitHub Trigger node.
type GitHubConfig struct {
	// WebhookID correlates trigger metadata with captured webhook secrets.
	WebhookID    string
	WorkflowID   string
	WorkflowName string

	// WorkflowActive selects whether the production webhook is hit in
	// addition to the test webhook.
	WorkflowActive bool

	// Owner and Repository scope the trigger; both empty means the trigger
	// receives org-level events.
	Owner      string
	Repository string

	// Events are GitHub event names, or "*" for all events.
	Events []string

	// Secret is the HMAC secret n8n generated for this trigger, recovered
	// from workflow staticData. Empty when n8n hasn't stored one.
	Secret string
}

// ParseGitHub extracts a GitHubConfig from a workflow node, or nil when the
// node is not a routable GitHub Trigger.
func ParseGitHub(workflow *n8n.Workflow, node *n8n.WorkflowNode) *GitHubConfig {
	if node.Type != githubNodeType || node.WebhookID == "" {
		return nil
	}

	return &GitHubConfig{
		WebhookID:      node.WebhookID,
		WorkflowID:     workflow.ID,
		WorkflowName:   workflow.Name,
		WorkflowActive: workflow.Active,
		Owner:          resourceLocatorValue(node.Parameters, "owner"),
		Repository:     resourceLocatorValue(node.Parameters, "repository"),
		Events:         stringSlice(node.Parameters["events"]),
		Secret:         staticDataSecret(workflow, node.Name),
	}
}

// staticDataSecret reads staticData["node:<NodeName>"]["webhookSecret"].
func staticDataSecret(workflow *n8n.Workflow, nodeName string) string {
	nodeData, ok := workflow.StaticData["node:"+nodeName].(map[string]any)
	if !ok {
		return ""
	}
	secret, _ := nodeData["webhookSecret"].(string)
	return secret
}

package trigger

import "github.com/Traction-Rec/n8n-unihook/internal/n8n"

// SlackConfig is the extracted configuration of a Slack Trigger node.
type SlackConfig struct {
	WebhookID      string
	WorkflowID     string
	WorkflowName   string
	WorkflowActive bool

	// EventType is the n8n Slack event name this trigger listens for
	// ("any_event", "message", "reaction_added", ...).
	EventType string

	// Channels are the watched channel IDs; empty when watching the whole
	// workspace or when no channel is configured.
	Channels []string

	// WatchWholeWorkspace disables channel scoping entirely.
	WatchWholeWorkspace bool
}

// ParseSlack extracts a SlackConfig from a workflow node, or nil when the
// node is not a routable Slack Trigger.
func ParseSlack(workflow *n8n.Workflow, node *n8n.WorkflowNode) *SlackConfig {
	if node.Type != slackNodeType || node.WebhookID == "" {
		return nil
	}

	params := node.Parameters

	// "trigger" is an array; only the first entry is meaningful.
	eventType := "any_event"
	if triggers := stringSlice(params["trigger"]); len(triggers) > 0 {
		eventType = triggers[0]
	}

	watchWorkspace, _ := params["watchWorkspace"].(bool)

	var channels []string
	if !watchWorkspace {
		if ch := resourceLocatorValue(params, "channelId"); ch != "" {
			channels = []string{ch}
		}
	}

	return &SlackConfig{
		WebhookID:           node.WebhookID,
		WorkflowID:          workflow.ID,
		WorkflowName:        workflow.Name,
		WorkflowActive:      workflow.Active,
		EventType:           eventType,
		Channels:            channels,
		WatchWholeWorkspace: watchWorkspace,
	}
}

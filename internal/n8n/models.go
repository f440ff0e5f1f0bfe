package n8n

// Workflow is a single workflow as returned by the n8n REST API.
type Workflow struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Active bool           `json:"active"`
	Nodes  []WorkflowNode `json:"nodes"`

	// StaticData is keyed by "node:<NodeName>" and holds per-node runtime
	// state, including the webhook secret n8n generates for GitHub triggers.
	StaticData map[string]any `json:"staticData,omitempty"`
}

// WorkflowNode is a single node within a workflow.
type WorkflowNode struct {
	Type       string         `json:"type"`
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters"`
	WebhookID  string         `json:"webhookId,omitempty"`
}

// workflowsResponse is one page of GET /api/v1/workflows.
type workflowsResponse struct {
	Data       []Workflow `json:"data"`
	NextCursor *string    `json:"nextCursor"`
}

// Package trigger extracts per-provider trigger configurations from n8n
// workflow nodes. Parsers are pure functions: they return nil for nodes of
// the wrong type or without a webhook ID (the correlation key used by the
// store and the routers).
package trigger

// Node type sentinels used by n8n.
const (
	githubNodeType = "n8n-nodes-base.githubTrigger"
	jiraNodeType   = "n8n-nodes-base.jiraTrigger"
	slackNodeType  = "n8n-nodes-base.slackTrigger"
)

// stringSlice converts a decoded JSON array into its string elements,
// skipping anything that isn't a string.
func stringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// resourceLocatorValue reads a node parameter that may be either a plain
// string or an n8n resource-locator object ({"__rl": true, "value": ...,
// "mode": ...}). Returns "" when neither form is present.
func resourceLocatorValue(params map[string]any, key string) string {
	switch v := params[key].(type) {
	case string:
		return v
	case map[string]any:
		if s, ok := v["value"].(string); ok {
			return s
		}
	}
	return ""
}

// Package handler implements the inbound HTTP surface: provider event
// endpoints, the provider API impersonation endpoints n8n calls during
// workflow activation, and the health check.
package handler

import (
	"net/http"
	"strings"
)

// Header prefixes forwarded to n8n per provider. Everything else on the
// inbound request (authorization, host, user-agent) is dropped.
var (
	slackHeaderPrefixes  = []string{"x-slack-", "content-type"}
	jiraHeaderPrefixes   = []string{"x-atlassian-", "content-type"}
	githubHeaderPrefixes = []string{"x-github-", "content-type"}
)

// ForwardableHeaders returns the subset of h whose names start with one of
// the allowed prefixes. Matching is case-insensitive.
func ForwardableHeaders(h http.Header, prefixes []string) http.Header {
	forwarded := http.Header{}
	for name, values := range h {
		lower := strings.ToLower(name)
		for _, prefix := range prefixes {
			if strings.HasPrefix(lower, prefix) {
				for _, v := range values {
					forwarded.Add(name, v)
				}
				break
			}
		}
	}
	return forwarded
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

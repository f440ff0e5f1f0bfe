package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Traction-Rec/n8n-unihook/internal/trigger"
)

// GitHubTriggerRow is a github_triggers row joined with its captured webhook
// secret (nil when no secret has been captured yet).
type GitHubTriggerRow struct {
	WebhookID      string
	WorkflowID     string
	WorkflowName   string
	WorkflowActive bool
	Owner          string
	Repository     string
	Events         []string
	Secret         *string
}

// JiraTriggerRow is a jira_triggers row.
type JiraTriggerRow struct {
	WebhookID      string
	WorkflowID     string
	WorkflowName   string
	WorkflowActive bool
	Events         []string
}

// SlackTriggerRow is a slack_triggers row.
type SlackTriggerRow struct {
	WebhookID           string
	WorkflowID          string
	WorkflowName        string
	WorkflowActive      bool
	EventType           string
	Channels            []string
	WatchWholeWorkspace bool
}

// ── webhook secrets ───────────────────────────────────────────────────────────

// UpsertWebhookSecret stores a secret authoritatively: an existing row for
// the webhook ID is overwritten, keeping its numeric id; otherwise a new row
// is inserted. Returns the stable numeric id.
func (d *DB) UpsertWebhookSecret(ctx context.Context, webhookID, provider, secret string) (int64, error) {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("UpsertWebhookSecret: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM webhook_secrets WHERE webhook_id = ?`, webhookID).Scan(&id)
	switch {
	case err == nil:
		if _, err := tx.ExecContext(ctx,
			`UPDATE webhook_secrets SET secret = ?, provider = ? WHERE id = ?`,
			secret, provider, id); err != nil {
			return 0, fmt.Errorf("UpsertWebhookSecret update: %w", err)
		}
	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.ExecContext(ctx,
			`INSERT INTO webhook_secrets (webhook_id, provider, secret) VALUES (?, ?, ?)`,
			webhookID, provider, secret)
		if err != nil {
			return 0, fmt.Errorf("UpsertWebhookSecret insert: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return 0, fmt.Errorf("UpsertWebhookSecret insert id: %w", err)
		}
	default:
		return 0, fmt.Errorf("UpsertWebhookSecret select: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("UpsertWebhookSecret commit: %w", err)
	}
	return id, nil
}

// UpsertWebhookSecretFallback stores a secret only when no row exists for
// the webhook ID. It never overwrites an authoritative capture.
func (d *DB) UpsertWebhookSecretFallback(ctx context.Context, webhookID, provider, secret string) error {
	const q = `INSERT OR IGNORE INTO webhook_secrets (webhook_id, provider, secret) VALUES (?, ?, ?)`
	if _, err := d.conn.ExecContext(ctx, q, webhookID, provider, secret); err != nil {
		return fmt.Errorf("UpsertWebhookSecretFallback: %w", err)
	}
	return nil
}

// DeleteWebhookSecretByID deletes a secret by its numeric id, returning
// whether a row was removed.
func (d *DB) DeleteWebhookSecretByID(ctx context.Context, id int64) (bool, error) {
	res, err := d.conn.ExecContext(ctx, `DELETE FROM webhook_secrets WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("DeleteWebhookSecretByID: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("DeleteWebhookSecretByID rows: %w", err)
	}
	return n > 0, nil
}

// GetWebhookSecret returns the captured secret for a webhook ID, or nil when
// none exists.
func (d *DB) GetWebhookSecret(ctx context.Context, webhookID string) (*string, error) {
	var secret string
	err := d.conn.QueryRowContext(ctx,
		`SELECT secret FROM webhook_secrets WHERE webhook_id = ?`, webhookID).Scan(&secret)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetWebhookSecret: %w", err)
	}
	return &secret, nil
}

// ── GitHub triggers ───────────────────────────────────────────────────────────

// SyncGitHubTriggers atomically replaces all github_triggers rows. Secrets
// are not touched.
func (d *DB) SyncGitHubTriggers(ctx context.Context, triggers []trigger.GitHubConfig) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("SyncGitHubTriggers: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM github_triggers`); err != nil {
		return fmt.Errorf("SyncGitHubTriggers delete: %w", err)
	}

	const q = `
		INSERT INTO github_triggers (webhook_id, workflow_id, workflow_name, workflow_active, owner, repository, events, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, datetime('now'))`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return fmt.Errorf("SyncGitHubTriggers prepare: %w", err)
	}
	defer stmt.Close()

	for _, t := range triggers {
		if _, err := stmt.ExecContext(ctx,
			t.WebhookID, t.WorkflowID, t.WorkflowName, t.WorkflowActive,
			t.Owner, t.Repository, marshalStrings(t.Events)); err != nil {
			return fmt.Errorf("SyncGitHubTriggers insert: %w", err)
		}
	}
	return tx.Commit()
}

// QueryGitHubTriggers returns trigger rows joined with captured secrets.
// When owner and repository are both non-empty the match is
// case-insensitive; otherwise only org-level rows (empty owner AND empty
// repository) are returned.
func (d *DB) QueryGitHubTriggers(ctx context.Context, owner, repository string) ([]GitHubTriggerRow, error) {
	const base = `
		SELECT gt.webhook_id, gt.workflow_id, gt.workflow_name, gt.workflow_active,
		       gt.owner, gt.repository, gt.events, ws.secret
		FROM github_triggers gt
		LEFT JOIN webhook_secrets ws ON ws.webhook_id = gt.webhook_id`

	var rows *sql.Rows
	var err error
	if owner != "" && repository != "" {
		rows, err = d.conn.QueryContext(ctx,
			base+` WHERE LOWER(gt.owner) = LOWER(?) AND LOWER(gt.repository) = LOWER(?)`,
			owner, repository)
	} else {
		rows, err = d.conn.QueryContext(ctx,
			base+` WHERE gt.owner = '' AND gt.repository = ''`)
	}
	if err != nil {
		return nil, fmt.Errorf("QueryGitHubTriggers: %w", err)
	}
	defer rows.Close()

	var out []GitHubTriggerRow
	for rows.Next() {
		var r GitHubTriggerRow
		var events string
		if err := rows.Scan(&r.WebhookID, &r.WorkflowID, &r.WorkflowName, &r.WorkflowActive,
			&r.Owner, &r.Repository, &events, &r.Secret); err != nil {
			return nil, fmt.Errorf("QueryGitHubTriggers scan: %w", err)
		}
		if r.Events, err = unmarshalStrings(events); err != nil {
			return nil, fmt.Errorf("QueryGitHubTriggers events: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountGitHubTriggers returns the number of github_triggers rows.
func (d *DB) CountGitHubTriggers(ctx context.Context) (int64, error) {
	return d.countRows(ctx, "github_triggers")
}

// ── Jira triggers ─────────────────────────────────────────────────────────────

// SyncJiraTriggers atomically replaces all jira_triggers rows.
func (d *DB) SyncJiraTriggers(ctx context.Context, triggers []trigger.JiraConfig) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("SyncJiraTriggers: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM jira_triggers`); err != nil {
		return fmt.Errorf("SyncJiraTriggers delete: %w", err)
	}

	const q = `
		INSERT INTO jira_triggers (webhook_id, workflow_id, workflow_name, workflow_active, events, updated_at)
		VALUES (?, ?, ?, ?, ?, datetime('now'))`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return fmt.Errorf("SyncJiraTriggers prepare: %w", err)
	}
	defer stmt.Close()

	for _, t := range triggers {
		if _, err := stmt.ExecContext(ctx,
			t.WebhookID, t.WorkflowID, t.WorkflowName, t.WorkflowActive,
			marshalStrings(t.Events)); err != nil {
			return fmt.Errorf("SyncJiraTriggers insert: %w", err)
		}
	}
	return tx.Commit()
}

// QueryJiraTriggers returns all jira_triggers rows.
func (d *DB) QueryJiraTriggers(ctx context.Context) ([]JiraTriggerRow, error) {
	const q = `
		SELECT webhook_id, workflow_id, workflow_name, workflow_active, events
		FROM jira_triggers`

	rows, err := d.conn.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("QueryJiraTriggers: %w", err)
	}
	defer rows.Close()

	var out []JiraTriggerRow
	for rows.Next() {
		var r JiraTriggerRow
		var events string
		if err := rows.Scan(&r.WebhookID, &r.WorkflowID, &r.WorkflowName, &r.WorkflowActive, &events); err != nil {
			return nil, fmt.Errorf("QueryJiraTriggers scan: %w", err)
		}
		if r.Events, err = unmarshalStrings(events); err != nil {
			return nil, fmt.Errorf("QueryJiraTriggers events: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountJiraTriggers returns the number of jira_triggers rows.
func (d *DB) CountJiraTriggers(ctx context.Context) (int64, error) {
	return d.countRows(ctx, "jira_triggers")
}

// ── Slack triggers ────────────────────────────────────────────────────────────

// SyncSlackTriggers atomically replaces all slack_triggers rows.
func (d *DB) SyncSlackTriggers(ctx context.Context, triggers []trigger.SlackConfig) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("SyncSlackTriggers: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM slack_triggers`); err != nil {
		return fmt.Errorf("SyncSlackTriggers delete: %w", err)
	}

	const q = `
		INSERT INTO slack_triggers (webhook_id, workflow_id, workflow_name, workflow_active, event_type, channels, watch_whole_workspace, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, datetime('now'))`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return fmt.Errorf("SyncSlackTriggers prepare: %w", err)
	}
	defer stmt.Close()

	for _, t := range triggers {
		if _, err := stmt.ExecContext(ctx,
			t.WebhookID, t.WorkflowID, t.WorkflowName, t.WorkflowActive,
			t.EventType, marshalStrings(t.Channels), t.WatchWholeWorkspace); err != nil {
			return fmt.Errorf("SyncSlackTriggers insert: %w", err)
		}
	}
	return tx.Commit()
}

// QuerySlackTriggers returns all slack_triggers rows.
func (d *DB) QuerySlackTriggers(ctx context.Context) ([]SlackTriggerRow, error) {
	const q = `
		SELECT webhook_id, workflow_id, workflow_name, workflow_active, event_type, channels, watch_whole_workspace
		FROM slack_triggers`

	rows, err := d.conn.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("QuerySlackTriggers: %w", err)
	}
	defer rows.Close()

	var out []SlackTriggerRow
	for rows.Next() {
		var r SlackTriggerRow
		var channels string
		if err := rows.Scan(&r.WebhookID, &r.WorkflowID, &r.WorkflowName, &r.WorkflowActive,
			&r.EventType, &channels, &r.WatchWholeWorkspace); err != nil {
			return nil, fmt.Errorf("QuerySlackTriggers scan: %w", err)
		}
		if r.Channels, err = unmarshalStrings(channels); err != nil {
			return nil, fmt.Errorf("QuerySlackTriggers channels: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountSlackTriggers returns the number of slack_triggers rows.
func (d *DB) CountSlackTriggers(ctx context.Context) (int64, error) {
	return d.countRows(ctx, "slack_triggers")
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (d *DB) countRows(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := d.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// marshalStrings stores a string slice as a JSON array, with nil mapping to
// "[]" rather than "null".
func marshalStrings(vals []string) string {
	if len(vals) == 0 {
		return "[]"
	}
	b, err := json.Marshal(vals)
	if err != nil {
		// A []string cannot fail to marshal.
		return "[]"
	}
	return string(b)
}

func unmarshalStrings(raw string) ([]string, error) {
	if raw == "" || raw == "[]" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Package slack posts major-incident triage results to a Slack incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/linnemanlabs/warden/internal/triage"
)

const (
	maxReasoningLen = 3000
	maxSummaryLen   = 120
	httpTimeout     = 10 * time.Second
)

// Alert is a triage decision worth paging a channel about.
type Alert struct {
	TriageID string
	Summary  string
	Provider string
	Result   *triage.Result
	At       time.Time
}

// Notifier sends triage alerts to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// New creates a new Slack notifier. If webhookURL is empty, Send is a no-op.
func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout:   httpTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Enabled reports whether a webhook URL is configured.
func (n *Notifier) Enabled() bool { return n.webhookURL != "" }

// Send posts the alert to the configured webhook.
func (n *Notifier) Send(ctx context.Context, a *Alert) error {
	if n.webhookURL == "" || a == nil || a.Result == nil {
		return nil
	}

	body, err := json.Marshal(buildMessage(a))
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(a *Alert) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(a),
			fieldsBlock(a.Result),
			{"type": "divider"},
			reasoningBlock(a.Result),
			contextBlock(a),
		},
	}
}

func headerBlock(a *Alert) map[string]any {
	title := "Major incident"
	if s := truncate(oneLine(a.Summary), maxSummaryLen); s != "" {
		title += ": " + s
	}
	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": fmt.Sprintf("%s %s", priorityEmoji(a.Result.RecommendedPriority), title),
		},
	}
}

func fieldsBlock(r *triage.Result) map[string]any {
	field := func(label, value string) map[string]any {
		if value == "" {
			value = "-"
		}
		return map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*%s:* %s", label, value)}
	}
	return map[string]any{
		"type": "section",
		"fields": []map[string]any{
			field("Priority", r.RecommendedPriority),
			field("Category", r.RecommendedCategory),
			field("Assignment group", r.RecommendedAssignmentGroup),
			field("Confidence", fmt.Sprintf("%.0f%%", r.Confidence*100)),
		},
	}
}

func reasoningBlock(r *triage.Result) map[string]any {
	text := truncate(r.Reasoning, maxReasoningLen)
	if text == "" {
		text = "_No reasoning provided._"
	}
	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": "*Reasoning*\n\n" + text,
		},
	}
}

func contextBlock(a *Alert) map[string]any {
	ts := a.At
	if ts.IsZero() {
		ts = time.Now()
	}
	text := fmt.Sprintf("warden • triage %s • %s", a.TriageID, ts.UTC().Format("2006-01-02 15:04 UTC"))
	if a.Provider != "" {
		text += " • " + a.Provider
	}
	return map[string]any{
		"type":     "context",
		"elements": []map[string]any{{"type": "mrkdwn", "text": text}},
	}
}

func priorityEmoji(priority string) string {
	switch strings.ToUpper(strings.TrimSpace(priority)) {
	case "P1":
		return "\U0001f534" // red circle
	case "P2":
		return "\U0001f7e0" // orange circle
	case "P3":
		return "\U0001f7e1" // yellow circle
	default:
		return "\U0001f7e2" // green circle
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}

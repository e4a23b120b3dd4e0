package triage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/linnemanlabs/warden/internal/kb"
)

// parseIncident checks that body is a single JSON object and returns it
// re-indented for the prompt. Field order is preserved.
func parseIncident(body []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return nil, ErrInvalidIncident
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, trimmed, "", "  "); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidIncident, err)
	}
	return buf.Bytes(), nil
}

// buildPrompt embeds the knowledge base and the incident into the triage
// instructions.
func buildPrompt(entries []kb.Entry, incident []byte) (string, error) {
	history, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal knowledge base: %w", err)
	}

	return fmt.Sprintf(`You are an IT incident triage expert.

Using ONLY the historical incident knowledge below,
determine the correct incident fields.

Historical Incidents:
%s

New Incident:
%s

Return STRICT JSON with these fields only:
major_incident (true/false),
recommended_priority,
recommended_category,
recommended_assignment_group,
confidence (0 to 1),
reasoning
`, history, incident), nil
}

// parseModelOutput returns the model's JSON re-indented, plus the decoded
// Result when the JSON matches the expected field types. ok is false when the
// text is not JSON at all.
func parseModelOutput(text string) (body []byte, res *Result, ok bool) {
	s := []byte(stripCodeFences(text))
	if !json.Valid(s) {
		return nil, nil, false
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, s, "", "  "); err != nil {
		return nil, nil, false
	}

	var r Result
	if s[0] == '{' && json.Unmarshal(s, &r) == nil {
		res = &r
	}
	return buf.Bytes(), res, true
}

// stripCodeFences removes a markdown fence wrapping the whole text, e.g.
// "```json\n{...}\n```". Text that does not start with a fence is only
// trimmed.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, ln := range lines {
		if strings.HasPrefix(strings.TrimSpace(ln), "```") {
			continue
		}
		out = append(out, ln)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

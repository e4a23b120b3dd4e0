package triageapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/warden/internal/notify/slack"
	"github.com/linnemanlabs/warden/internal/triage"
)

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (a *API) handleTriage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := ulid.Make().String()
	w.Header().Set(IDHeader, id)

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String("warden.triage.id", id))

	defer func() {
		if rec := recover(); rec != nil {
			a.logger.Error(ctx, fmt.Errorf("panic: %v", rec), "triage handler panicked", "triage_id", id)
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"}, true)
		}
	}()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.logger.Warn(ctx, "request body too large", "triage_id", id, "limit", tooLarge.Limit)
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "Request body too large"}, false)
			return
		}
		a.logger.Warn(ctx, "failed to read request body", "triage_id", id, "error", err)
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid or missing JSON body"}, false)
		return
	}

	out, err := a.svc.Triage(ctx, id, body)
	if err != nil {
		a.writeError(ctx, w, id, err)
		return
	}

	if out.Kind == triage.OutcomeRaw {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Body)

	a.notify(ctx, id, body, out)
}

func (a *API) writeError(ctx context.Context, w http.ResponseWriter, id string, err error) {
	var kbErr *triage.KnowledgeBaseError
	var upErr *triage.UpstreamError

	switch {
	case errors.Is(err, triage.ErrInvalidIncident):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid or missing JSON body"}, false)
	case errors.As(err, &kbErr):
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Error:   "Knowledge base unavailable",
			Details: kbErr.Err.Error(),
		}, true)
	case errors.As(err, &upErr):
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Error:   "AI processing failed",
			Details: upErr.Err.Error(),
		}, true)
	default:
		a.logger.Error(ctx, err, "triage failed", "triage_id", id)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"}, true)
	}
}

// notify dispatches the alert in the background so the response is never
// held up by Slack. Failures are logged only. Wait drains pending sends.
func (a *API) notify(ctx context.Context, id string, incident []byte, out *triage.Outcome) {
	if a.notifier == nil || out.Kind != triage.OutcomeAI || out.Result == nil || !out.Result.MajorIncident {
		return
	}

	alert := &slack.Alert{
		TriageID: id,
		Summary:  incidentSummary(incident),
		Provider: a.provider,
		Result:   out.Result,
		At:       a.now(),
	}
	ctx = context.WithoutCancel(ctx)

	a.pending.Add(1)
	go func() {
		defer a.pending.Done()
		a.send(ctx, alert)
	}()
}

func (a *API) send(ctx context.Context, alert *slack.Alert) {
	id := alert.TriageID
	err := a.notifier.Send(ctx, alert)
	if a.observeNotify != nil {
		a.observeNotify(err)
	}
	if err != nil {
		a.logger.Error(ctx, err, "major incident notification failed", "triage_id", id)
		return
	}
	a.logger.Info(ctx, "major incident notification sent", "triage_id", id)
}

func incidentSummary(incident []byte) string {
	var v struct {
		Summary any `json:"summary"`
	}
	if err := json.Unmarshal(incident, &v); err != nil {
		return ""
	}
	s, _ := v.Summary.(string)
	return s
}

// writeJSON writes v with status. The 400 body is compact, everything else
// is two-space indented.
func writeJSON(w http.ResponseWriter, status int, v any, indent bool) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(bytes.TrimRight(buf.Bytes(), "\n"))
}

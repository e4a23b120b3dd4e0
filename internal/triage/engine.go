package triage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/warden/internal/kb"
)

// DefaultTimeout bounds a single completion call when EngineConfig.Timeout is zero.
const DefaultTimeout = 20 * time.Second

var tracer = otel.Tracer("github.com/linnemanlabs/warden/internal/triage")

// CompleteEvent describes a finished triage run for metrics.
type CompleteEvent struct {
	// Outcome is an OutcomeKind or "kb_error" / "upstream_error" / "invalid_input".
	Outcome  string
	Provider string
	Duration float64
}

// EngineHooks are optional callbacks for instrumentation. Nil fields are skipped.
type EngineHooks struct {
	OnKBLoad   func(entries int, err error)
	OnLLMCall  func(provider string, duration float64, err error)
	OnComplete func(e *CompleteEvent)
}

// EngineConfig holds the Engine's collaborators.
type EngineConfig struct {
	Source kb.Source
	// Completer may be nil, in which case every triage returns FallbackResult.
	Completer Completer
	// Provider labels logs, spans and metrics ("azure", "claude", ...).
	Provider string
	Timeout  time.Duration
}

// Engine runs one incident through knowledge base lookup, prompt assembly and
// a single completion call. It holds no per-request state.
type Engine struct {
	source    kb.Source
	completer Completer
	provider  string
	timeout   time.Duration
	logger    log.Logger
	hooks     EngineHooks
}

// NewEngine creates a triage engine. Source is required.
func NewEngine(c EngineConfig, logger log.Logger, hooks EngineHooks) *Engine {
	if c.Source == nil {
		panic(xerrors.New("knowledge base source is required"))
	}
	if logger == nil {
		logger = log.Nop()
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	provider := c.Provider
	if provider == "" {
		provider = "none"
	}
	return &Engine{
		source:    c.Source,
		completer: c.Completer,
		provider:  provider,
		timeout:   timeout,
		logger:    logger,
		hooks:     hooks,
	}
}

// Configured reports whether a completion provider is wired.
func (e *Engine) Configured() bool { return e.completer != nil }

// Triage classifies the incident in body. Errors are *KnowledgeBaseError,
// *UpstreamError, or wrap ErrInvalidIncident.
func (e *Engine) Triage(ctx context.Context, id string, body []byte) (*Outcome, error) {
	start := time.Now()

	ctx, span := tracer.Start(ctx, "triage.Triage")
	defer span.End()
	span.SetAttributes(
		attribute.String("warden.triage.id", id),
		attribute.String("warden.llm.provider", e.provider),
	)

	L := e.logger.With("triage_id", id, "provider", e.provider)

	out, err := e.run(ctx, L, id, body)
	dur := time.Since(start).Seconds()

	label := outcomeLabel(out, err)
	span.SetAttributes(attribute.String("warden.triage.outcome", label))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if e.hooks.OnComplete != nil {
		e.hooks.OnComplete(&CompleteEvent{Outcome: label, Provider: e.provider, Duration: dur})
	}

	L.Info(ctx, "triage finished", "outcome", label, "duration", dur)
	return out, err
}

func (e *Engine) run(ctx context.Context, L log.Logger, id string, body []byte) (*Outcome, error) {
	incident, err := parseIncident(body)
	if err != nil {
		return nil, err
	}

	entries, err := e.loadKB(ctx)
	if err != nil {
		L.Error(ctx, err, "knowledge base load failed")
		return nil, &KnowledgeBaseError{Err: err}
	}

	prompt, err := buildPrompt(entries, incident)
	if err != nil {
		return nil, err
	}

	if e.completer == nil {
		L.Warn(ctx, "llm not configured, returning fallback response")
		fb, err := json.MarshalIndent(FallbackResult(), "", "  ")
		if err != nil {
			return nil, err
		}
		return &Outcome{ID: id, Kind: OutcomeFallback, Body: fb, Result: FallbackResult()}, nil
	}

	text, err := e.complete(ctx, prompt)
	if err != nil {
		L.Error(ctx, err, "llm call failed")
		return nil, &UpstreamError{Provider: e.provider, Err: err}
	}

	jsonBody, res, ok := parseModelOutput(text)
	if !ok {
		L.Warn(ctx, "model output is not valid JSON, returning raw text", "output_bytes", len(text))
		return &Outcome{ID: id, Kind: OutcomeRaw, Body: []byte(text)}, nil
	}
	if res == nil {
		L.Warn(ctx, "model JSON does not match triage fields")
	}
	return &Outcome{ID: id, Kind: OutcomeAI, Body: jsonBody, Result: res}, nil
}

func (e *Engine) loadKB(ctx context.Context) ([]kb.Entry, error) {
	ctx, span := tracer.Start(ctx, "triage.LoadKnowledgeBase")
	defer span.End()

	entries, err := e.source.Load(ctx)
	if e.hooks.OnKBLoad != nil {
		e.hooks.OnKBLoad(len(entries), err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("warden.kb.entries", len(entries)))
	return entries, nil
}

func (e *Engine) complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	ctx, span := tracer.Start(ctx, "triage.Complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("warden.llm.provider", e.provider),
		attribute.Int("warden.llm.prompt_bytes", len(prompt)),
	)

	start := time.Now()
	text, err := e.completer.Complete(ctx, prompt)
	dur := time.Since(start).Seconds()

	if err == nil && text == "" {
		err = errors.New("empty completion")
	}
	if e.hooks.OnLLMCall != nil {
		e.hooks.OnLLMCall(e.provider, dur, err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(attribute.Int("warden.llm.output_bytes", len(text)))
	return text, nil
}

func outcomeLabel(out *Outcome, err error) string {
	var kbErr *KnowledgeBaseError
	var upErr *UpstreamError
	switch {
	case err == nil && out != nil:
		return string(out.Kind)
	case errors.Is(err, ErrInvalidIncident):
		return "invalid_input"
	case errors.As(err, &kbErr):
		return "kb_error"
	case errors.As(err, &upErr):
		return "upstream_error"
	default:
		return "error"
	}
}

package triage

import "errors"

// ErrInvalidIncident is returned when the incident is not a JSON object.
var ErrInvalidIncident = errors.New("invalid or missing JSON body")

// KnowledgeBaseError wraps a failure to load the knowledge base.
type KnowledgeBaseError struct {
	Err error
}

func (e *KnowledgeBaseError) Error() string { return "knowledge base unavailable: " + e.Err.Error() }

func (e *KnowledgeBaseError) Unwrap() error { return e.Err }

// UpstreamError wraps a failed or timed out completion call.
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string { return e.Provider + " completion failed: " + e.Err.Error() }

func (e *UpstreamError) Unwrap() error { return e.Err }

// Package triage provides the business boundary for Warden's incident triage.
// It defines the Engine (knowledge base grounding, prompt assembly, one
// completion call, output validation), the Completer interface implemented by
// the llm/* packages, and the domain models returned to the HTTP layer.
package triage

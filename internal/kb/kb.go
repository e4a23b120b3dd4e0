// Package kb provides the historical incident examples used to ground triage
// prompts.
package kb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Entry is a single historical incident with its known triage fields.
type Entry struct {
	Summary         string `json:"summary"`
	Service         string `json:"service"`
	Impact          string `json:"impact"`
	Priority        string `json:"priority"`
	Category        string `json:"category"`
	AssignmentGroup string `json:"assignment_group"`
	MajorIncident   bool   `json:"major_incident"`
}

// Source loads the knowledge base. Implementations return a slice the caller
// owns.
type Source interface {
	Load(ctx context.Context) ([]Entry, error)
}

// Static is an immutable in-memory knowledge base.
type Static struct {
	entries []Entry
}

// NewStatic copies entries into a Static source.
func NewStatic(entries []Entry) *Static {
	return &Static{entries: append([]Entry(nil), entries...)}
}

// Default returns the built-in knowledge base.
func Default() *Static {
	return NewStatic([]Entry{
		{
			Summary:         "Payment transactions failing globally",
			Service:         "Payments",
			Impact:          "All users",
			Priority:        "P1",
			Category:        "Application",
			AssignmentGroup: "Payments Support",
			MajorIncident:   true,
		},
		{
			Summary:         "Customer portal unavailable",
			Service:         "Customer Portal",
			Impact:          "All users",
			Priority:        "P1",
			Category:        "Application",
			AssignmentGroup: "Web Platform Team",
			MajorIncident:   true,
		},
		{
			Summary:         "VPN login slow",
			Service:         "Corporate VPN",
			Impact:          "Few users",
			Priority:        "P4",
			Category:        "Network",
			AssignmentGroup: "Network Operations",
			MajorIncident:   false,
		},
	})
}

// Load returns a copy of the entries.
func (s *Static) Load(_ context.Context) ([]Entry, error) {
	return append([]Entry(nil), s.entries...), nil
}

// File reads a JSON array of entries from disk on every Load, so edits to the
// file are picked up without a restart.
type File struct {
	path string
}

// NewFile returns a Source backed by the JSON file at path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Load reads and validates the knowledge base file.
func (f *File) Load(_ context.Context) ([]Entry, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge base: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode knowledge base %s: %w", f.path, err)
	}
	if err := Validate(entries); err != nil {
		return nil, fmt.Errorf("knowledge base %s: %w", f.path, err)
	}
	return entries, nil
}

// Validate checks that the knowledge base is usable for prompting.
func Validate(entries []Entry) error {
	if len(entries) == 0 {
		return errors.New("no entries")
	}
	for i, e := range entries {
		if e.Summary == "" {
			return fmt.Errorf("entry %d: summary is required", i)
		}
	}
	return nil
}

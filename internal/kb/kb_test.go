package kb

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault_Entries(t *testing.T) {
	t.Parallel()

	entries, err := Default().Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len = %d, want 3", len(entries))
	}

	first := entries[0]
	if first.Summary != "Payment transactions failing globally" {
		t.Errorf("summary = %q", first.Summary)
	}
	if first.AssignmentGroup != "Payments Support" || !first.MajorIncident || first.Priority != "P1" {
		t.Errorf("first entry = %+v", first)
	}

	last := entries[2]
	if last.Category != "Network" || last.MajorIncident || last.Priority != "P4" {
		t.Errorf("last entry = %+v", last)
	}
}

func TestStatic_LoadReturnsCopy(t *testing.T) {
	t.Parallel()

	src := Default()
	entries, _ := src.Load(context.Background())
	entries[0].Priority = "P9"

	again, _ := src.Load(context.Background())
	if again[0].Priority != "P1" {
		t.Errorf("mutation leaked into source: priority = %q", again[0].Priority)
	}
}

func TestNewStatic_CopiesInput(t *testing.T) {
	t.Parallel()

	in := []Entry{{Summary: "disk full"}}
	src := NewStatic(in)
	in[0].Summary = "changed"

	got, _ := src.Load(context.Background())
	if got[0].Summary != "disk full" {
		t.Errorf("summary = %q, want %q", got[0].Summary, "disk full")
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "incident_kb.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestFile_Load(t *testing.T) {
	t.Parallel()

	path := writeFile(t, `[
  {"summary":"DNS resolution failing","service":"DNS","impact":"All users","priority":"P2","category":"Network","assignment_group":"Network Operations","major_incident":false}
]`)

	entries, err := NewFile(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len = %d, want 1", len(entries))
	}
	if entries[0].Service != "DNS" || entries[0].AssignmentGroup != "Network Operations" {
		t.Errorf("entry = %+v", entries[0])
	}
}

func TestFile_ReadsFreshEachTime(t *testing.T) {
	t.Parallel()

	path := writeFile(t, `[{"summary":"one"}]`)
	src := NewFile(path)

	if _, err := src.Load(context.Background()); err != nil {
		t.Fatalf("first Load: %v", err)
	}
	if err := os.WriteFile(path, []byte(`[{"summary":"one"},{"summary":"two"}]`), 0o600); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	entries, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("len = %d, want 2", len(entries))
	}
}

func TestFile_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		missing bool
		wantSub string
	}{
		{name: "missing file", missing: true, wantSub: "read knowledge base"},
		{name: "malformed json", content: `[{"summary":`, wantSub: "decode knowledge base"},
		{name: "object not array", content: `{"summary":"x"}`, wantSub: "decode knowledge base"},
		{name: "empty array", content: `[]`, wantSub: "no entries"},
		{name: "entry without summary", content: `[{"service":"x"}]`, wantSub: "summary is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "absent.json")
			if !tt.missing {
				path = writeFile(t, tt.content)
			}

			_, err := NewFile(path).Load(context.Background())
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error = %q, want substring %q", err, tt.wantSub)
			}
		})
	}
}

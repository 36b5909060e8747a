package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/phanxgames/sketchboard"
)

func TestSummarize(t *testing.T) {
	doc, err := sketchboard.ParseDocument([]byte(`{
		"sheets": [
			{"name": "Flow", "nodes": [{"id": "a", "kind": "process"}, {"id": "b", "kind": "decision"}],
			 "connections": [{"id": "c", "from": "a", "to": "b", "kind": "flow"}]},
			{"name": "Sketch"}
		],
		"activeSheet": 1
	}`))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}

	var buf bytes.Buffer
	if err := summarize(&buf, doc); err != nil {
		t.Fatalf("summarize: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 sheets, got %d lines:\n%s", len(lines), buf.String())
	}
	flow := strings.Fields(lines[1])
	if flow[0] != "1" || flow[1] != "Flow" || flow[2] != "2" || flow[3] != "1" {
		t.Errorf("flow row = %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "*2") {
		t.Errorf("active sheet not marked: %q", lines[2])
	}
}

func TestIsJSONFile(t *testing.T) {
	tests := []struct {
		ref  string
		want bool
	}{
		{"board.json", true},
		{"dir/board.json", true},
		{"board", false},
		{".json", false},
		{"board-json", false},
	}
	for _, tt := range tests {
		if got := isJSONFile(tt.ref); got != tt.want {
			t.Errorf("isJSONFile(%q) = %v, want %v", tt.ref, got, tt.want)
		}
	}
}

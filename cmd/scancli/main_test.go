package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/qrshield/urlscan/pkg/orchestrator"
	"github.com/qrshield/urlscan/pkg/testutil"
)

func TestWriteResult_JSON(t *testing.T) {
	var buf testutil.CountingWriter
	result := &orchestrator.ScanResult{Status: "safe", RiskScore: 0.1}
	if err := writeResult(&buf, "json", result); err != nil {
		t.Fatalf("writeResult: %v", err)
	}
	if buf.N == 0 {
		t.Error("expected bytes written")
	}
}

func TestWriteResult_JSONL(t *testing.T) {
	var buf testutil.CountingWriter
	result := &orchestrator.ScanResult{Status: "danger", RiskScore: 0.9}
	if err := writeResult(&buf, "jsonl", result); err != nil {
		t.Fatalf("writeResult: %v", err)
	}
	if buf.N == 0 {
		t.Error("expected bytes written")
	}
}

func TestWriteResult_WriteFailurePropagates(t *testing.T) {
	fw := &testutil.FailingWriter{Limit: 0}
	result := &orchestrator.ScanResult{Status: "safe"}
	if err := writeResult(fw, "json", result); err == nil {
		t.Error("expected error from a writer that fails immediately")
	}
}

func TestReadTargets_SkipsBlankAndCommentLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "targets.txt")
	content := "https://example.com/a\n\n# a comment\nhttps://example.com/b\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	targets, err := readTargets(path)
	if err != nil {
		t.Fatalf("readTargets: %v", err)
	}
	want := []string{"https://example.com/a", "https://example.com/b"}
	if len(targets) != len(want) {
		t.Fatalf("got %v, want %v", targets, want)
	}
	for i, v := range want {
		if targets[i] != v {
			t.Errorf("targets[%d] = %q, want %q", i, targets[i], v)
		}
	}
}

func TestReadTargets_MissingFile(t *testing.T) {
	if _, err := readTargets(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing list file")
	}
}

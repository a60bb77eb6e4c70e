package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/qrshield/urlscan/pkg/testutil"
)

func TestScan_InvalidInput(t *testing.T) {
	t.Parallel()
	o := New()
	_, err := o.Scan(context.Background(), "")
	if err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestScan_ZeroDeadlineProducesTimeoutVerdict(t *testing.T) {
	t.Parallel()
	o := New()
	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()

	result, err := o.Scan(ctx, "https://example.com/")
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if result.Status != "suspicious" && result.Status != "danger" {
		t.Errorf("status = %q, want suspicious or danger", result.Status)
	}
	if result.Message != "Analysis timed out" {
		t.Errorf("message = %q, want timeout message", result.Message)
	}
}

func TestScan_ResultCachedOnSecondCall(t *testing.T) {
	t.Parallel()
	o := New()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	first, err := o.Scan(ctx, "https://example.com/login")
	if err != nil {
		t.Fatalf("first Scan: %v", err)
	}

	second, err := o.Scan(context.Background(), "https://example.com/login")
	if err != nil {
		t.Fatalf("second Scan: %v", err)
	}
	if first != second {
		t.Error("expected second Scan to return the identical cached *ScanResult")
	}
}

func TestScan_ConcurrentCallsAreSafe(t *testing.T) {
	t.Parallel()
	o := New()

	testutil.AssertTimeout(t, "concurrent scans", 5*time.Second, func() {
		testutil.RunConcurrently(8, func(i int) {
			ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
			defer cancel()
			if _, err := o.Scan(ctx, "https://example.com/concurrent"); err != nil {
				t.Errorf("scan %d: %v", i, err)
			}
		})
	})
}

package scanmetrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestVerdictTotal_Increments(t *testing.T) {
	VerdictTotal.Reset()
	VerdictTotal.WithLabelValues("danger").Inc()
	VerdictTotal.WithLabelValues("danger").Inc()
	VerdictTotal.WithLabelValues("safe").Inc()

	if got := testutil.ToFloat64(VerdictTotal.WithLabelValues("danger")); got != 2 {
		t.Errorf("danger count = %v, want 2", got)
	}
}

func TestScanDuration_Registered(t *testing.T) {
	count, err := testutil.GatherAndCount(Registry)
	if err != nil {
		t.Fatalf("GatherAndCount: %v", err)
	}
	if count < 0 {
		t.Fatalf("unexpected negative metric count: %d", count)
	}
}

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second Register: %v", err)
	}
}

func TestHelpersCountAfterRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}

	IncLaunch("desktop")
	IncAdoption("desktop")
	IncGateOutcome("ready")
	IncRequest("completed")
	SetQueueDepth(3)
	ObserveGateWait(0.25)

	if got := testutil.ToFloat64(browserLaunches.WithLabelValues("desktop")); got != 1 {
		t.Fatalf("launches = %v", got)
	}
	if got := testutil.ToFloat64(browserAdoptions.WithLabelValues("desktop")); got != 1 {
		t.Fatalf("adoptions = %v", got)
	}
	if got := testutil.ToFloat64(gateOutcomes.WithLabelValues("ready")); got != 1 {
		t.Fatalf("gate outcomes = %v", got)
	}
	if got := testutil.ToFloat64(requestsTotal.WithLabelValues("completed")); got != 1 {
		t.Fatalf("requests = %v", got)
	}
	if got := testutil.ToFloat64(queueDepth); got != 3 {
		t.Fatalf("queue depth = %v", got)
	}
}

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestIncrementAIAction(t *testing.T) {
	before := testutil.ToFloat64(AIActionCount.WithLabelValues("prioritize", "success"))
	IncrementAIAction("prioritize", "success")
	after := testutil.ToFloat64(AIActionCount.WithLabelValues("prioritize", "success"))
	if after-before != 1 {
		t.Errorf("expected counter to grow by 1, got %v", after-before)
	}
}

func TestIncrementWizardCompleted(t *testing.T) {
	before := testutil.ToFloat64(WizardCompletedCount.WithLabelValues("true"))
	IncrementWizardCompleted(true)
	if got := testutil.ToFloat64(WizardCompletedCount.WithLabelValues("true")); got-before != 1 {
		t.Errorf("expected wizard counter to grow by 1, got %v", got-before)
	}
}

func TestIncrementTaskGeneration(t *testing.T) {
	before := testutil.ToFloat64(TaskGenerationCount.WithLabelValues("wizard"))
	IncrementTaskGeneration("wizard", 4)
	if got := testutil.ToFloat64(TaskGenerationCount.WithLabelValues("wizard")); got-before != 4 {
		t.Errorf("expected +4, got %v", got-before)
	}
}

func TestRecordersDoNotPanic(t *testing.T) {
	RecordLLMCallLatency("mock", "success", 120*time.Millisecond)
	RecordMQConsumeLatency("message.received", "message.received.q", "ack", 5*time.Millisecond)
	RecordDBQueryDuration("select", "entities", time.Millisecond)
	RecordHTTPRequestDuration("GET", "/api/tasks", "200", time.Millisecond)
	IncrementSlowQuery("select")
}

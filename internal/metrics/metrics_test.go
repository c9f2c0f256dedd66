package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordTaskSubmissionIncrementsCounter(t *testing.T) {
	before := testutil.ToFloat64(TasksSubmittedTotal.WithLabelValues("ok"))
	RecordTaskSubmission("ok")
	after := testutil.ToFloat64(TasksSubmittedTotal.WithLabelValues("ok"))
	assert.Equal(t, before+1, after)
}

func TestRecordWorkerFinishedUsesGroupAndOutcomeLabels(t *testing.T) {
	before := testutil.ToFloat64(WorkersSpawnedTotal.WithLabelValues("AREA", "ok"))
	RecordWorkerFinished("AREA", "ok")
	after := testutil.ToFloat64(WorkersSpawnedTotal.WithLabelValues("AREA", "ok"))
	assert.Equal(t, before+1, after)
}

func TestRecordTaskDurationDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() { RecordTaskDuration(2 * time.Second) })
}

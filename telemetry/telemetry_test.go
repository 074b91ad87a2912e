package telemetry_test

import (
	"testing"
	"time"

	"github.com/delaneyj/fiberparty/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilCollectorsAreNoops(t *testing.T) {
	var s *telemetry.Scheduler
	var r *telemetry.Reconciler
	assert.NotPanics(t, func() {
		s.Scheduled("normal")
		s.Ran(true)
		s.Cancelled()
		s.Continued()
		s.Yielded()
		r.Started()
		r.Interrupted()
		r.Suspended()
		r.Failed()
		r.Committed(time.Millisecond)
	})
}

func TestRegistersAndCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := telemetry.NewScheduler(reg, "")
	r := telemetry.NewReconciler(reg, "")

	s.Scheduled("normal")
	s.Scheduled("normal")
	s.Ran(true)
	r.Committed(time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(s.TasksScheduled.WithLabelValues("normal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.TasksRun))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.Timeouts))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.RendersCommitted))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "fiberparty_reconciler_commit_duration_seconds")
	assert.Contains(t, names, "fiberparty_scheduler_tasks_scheduled_total")
}

// Package telemetry exposes prometheus collectors for the scheduler and the
// reconciler. A nil *Scheduler or *Reconciler is valid and records nothing.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const DefaultNamespace = "fiberparty"

type Scheduler struct {
	TasksScheduled *prometheus.CounterVec
	TasksRun       prometheus.Counter
	TasksCancelled prometheus.Counter
	Continuations  prometheus.Counter
	Yields         prometheus.Counter
	Timeouts       prometheus.Counter
}

func NewScheduler(reg prometheus.Registerer, namespace string) *Scheduler {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	m := &Scheduler{
		TasksScheduled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "tasks_scheduled_total",
			Help:      "Tasks submitted, by priority.",
		}, []string{"priority"}),
		TasksRun: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "tasks_run_total",
			Help:      "Task callback invocations.",
		}),
		TasksCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "tasks_cancelled_total",
			Help:      "Tasks cancelled before completion.",
		}),
		Continuations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "continuations_total",
			Help:      "Callbacks that returned a continuation.",
		}),
		Yields: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "yields_total",
			Help:      "Work loops that gave control back to the host with work pending.",
		}),
		Timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "overdue_tasks_total",
			Help:      "Callbacks invoked after their expiration time.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.TasksScheduled, m.TasksRun, m.TasksCancelled, m.Continuations, m.Yields, m.Timeouts)
	}
	return m
}

func (m *Scheduler) Scheduled(priority string) {
	if m == nil {
		return
	}
	m.TasksScheduled.WithLabelValues(priority).Inc()
}

func (m *Scheduler) Ran(overdue bool) {
	if m == nil {
		return
	}
	m.TasksRun.Inc()
	if overdue {
		m.Timeouts.Inc()
	}
}

func (m *Scheduler) Cancelled() {
	if m == nil {
		return
	}
	m.TasksCancelled.Inc()
}

func (m *Scheduler) Continued() {
	if m == nil {
		return
	}
	m.Continuations.Inc()
}

func (m *Scheduler) Yielded() {
	if m == nil {
		return
	}
	m.Yields.Inc()
}

type Reconciler struct {
	RendersStarted     prometheus.Counter
	RendersCommitted   prometheus.Counter
	RendersInterrupted prometheus.Counter
	RendersSuspended   prometheus.Counter
	RenderErrors       prometheus.Counter
	CommitDuration     prometheus.Histogram
}

func NewReconciler(reg prometheus.Registerer, namespace string) *Reconciler {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	m := &Reconciler{
		RendersStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "renders_started_total",
			Help:      "Fresh work-in-progress trees prepared.",
		}),
		RendersCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "renders_committed_total",
			Help:      "Finished trees committed to the host.",
		}),
		RendersInterrupted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "renders_interrupted_total",
			Help:      "In-flight renders discarded by a newer render.",
		}),
		RendersSuspended: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "renders_suspended_total",
			Help:      "Renders that suspended without a boundary.",
		}),
		RenderErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "render_errors_total",
			Help:      "Renders aborted by an error.",
		}),
		CommitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "commit_duration_seconds",
			Help:      "Time spent applying a finished tree, by the scheduler clock.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.RendersStarted, m.RendersCommitted, m.RendersInterrupted, m.RendersSuspended, m.RenderErrors, m.CommitDuration)
	}
	return m
}

func (m *Reconciler) Started() {
	if m != nil {
		m.RendersStarted.Inc()
	}
}

func (m *Reconciler) Interrupted() {
	if m != nil {
		m.RendersInterrupted.Inc()
	}
}

func (m *Reconciler) Suspended() {
	if m != nil {
		m.RendersSuspended.Inc()
	}
}

func (m *Reconciler) Failed() {
	if m != nil {
		m.RenderErrors.Inc()
	}
}

func (m *Reconciler) Committed(took time.Duration) {
	if m == nil {
		return
	}
	m.RendersCommitted.Inc()
	m.CommitDuration.Observe(took.Seconds())
}

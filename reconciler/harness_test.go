package reconciler_test

import (
	"io"
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	"github.com/delaneyj/fiberparty/noop"
	"github.com/delaneyj/fiberparty/reconciler"
	"github.com/delaneyj/fiberparty/scheduler"
	"github.com/delaneyj/fiberparty/telemetry"
	"github.com/delaneyj/fiberparty/value"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type harness struct {
	t         *testing.T
	host      *scheduler.ManualHost
	sched     *scheduler.Scheduler
	ui        *noop.Host
	rec       *reconciler.Reconciler
	metrics   *telemetry.Reconciler
	container *noop.Container
	root      *reconciler.Root
	errs      []error
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	clk := fakeclock.NewFakeClock(time.Unix(0, 0))
	h := &harness{t: t, host: scheduler.NewManualHost(clk)}
	h.sched = scheduler.New(h.host, scheduler.WithClock(clk), scheduler.WithLogger(log))
	h.ui = noop.New(h.host, noop.WithLogger(log))
	h.metrics = telemetry.NewReconciler(prometheus.NewRegistry(), "test")
	h.rec = reconciler.New(h.ui, h.sched,
		reconciler.WithLogger(log),
		reconciler.WithMetrics(h.metrics),
		reconciler.WithErrorHandler(func(err error) { h.errs = append(h.errs, err) }),
	)
	h.container = h.ui.NewContainer()
	h.root = h.rec.CreateContainer(h.container)
	return h
}

// render schedules node and runs the host until it is idle.
func (h *harness) render(node reconciler.Node) {
	h.t.Helper()
	h.rec.UpdateContainer(h.root, node)
	h.flush()
}

func (h *harness) flush() {
	h.t.Helper()
	require.NoError(h.t, h.host.RunAll())
}

// tick moves the fake clock, standing in for a component that takes time
// to render.
func (h *harness) tick(d time.Duration) {
	h.host.Clock().Increment(d)
}

func (h *harness) html() string {
	return noop.HTML(h.container)
}

func div(attrs map[string]any, children ...reconciler.Node) *reconciler.Element {
	return host("div", attrs, children...)
}

func host(typ string, attrs map[string]any, children ...reconciler.Node) *reconciler.Element {
	props := &reconciler.Props{}
	if len(attrs) > 0 {
		props.Attrs = valueMap(attrs)
	}
	return reconciler.H(reconciler.Host(typ), props, children...)
}

func valueMap(attrs map[string]any) value.Map {
	m := make(value.Map, len(attrs))
	for k, v := range attrs {
		m[k] = value.Of(v)
	}
	return m
}

func component(name string, render func(h *reconciler.Hooks, props *reconciler.Props) (reconciler.Node, error)) *reconciler.Component {
	return &reconciler.Component{Name: name, Render: render}
}

// walk visits every fiber of the committed tree in depth-first order.
func walk(f *reconciler.Fiber, visit func(*reconciler.Fiber)) {
	if f == nil {
		return
	}
	visit(f)
	for c := f.Child(); c != nil; c = c.Sibling() {
		walk(c, visit)
	}
}

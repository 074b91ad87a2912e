package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"strconv"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	"github.com/delaneyj/fiberparty/noop"
	"github.com/delaneyj/fiberparty/reconciler"
	"github.com/delaneyj/fiberparty/scheduler"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sirupsen/logrus"
)

func main() {
	profile := flag.String("cpuprofile", "", "write a CPU profile to this file")
	flag.IntVar(&iters, "iters", iters, "samples per benchmark")
	flag.Parse()

	if *profile != "" {
		f, err := os.Create(*profile)
		if err != nil {
			log.Fatal(err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal(err)
		}
		defer pprof.StopCPUProfile()
	}

	log.Printf("warming up")
	run(false)
	run(true)
}

var (
	widths = []int{10, 100, 1_000, 10_000}
	iters  = 100
)

type benchmark struct {
	name string
	run  func(width int, tach *tachymeter.Tachymeter)
}

var benchmarks = []benchmark{
	{"mount", benchMount},
	{"reverse keyed", benchReverse},
	{"update one leaf (sync)", benchLeaf(true)},
	{"update one leaf (default)", benchLeaf(false)},
}

func run(shouldRender bool) {
	tbl := table.NewWriter()
	tbl.SetTitle("Reconciler")
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"benchmark", "avg", "min", "p75", "p99", "max"})

	for _, b := range benchmarks {
		for _, w := range widths {
			tach := tachymeter.New(&tachymeter.Config{Size: iters})
			b.run(w, tach)
			calc := tach.Calc()
			tbl.AppendRow(table.Row{
				fmt.Sprintf("%s: %d", b.name, w),
				calc.Time.Avg,
				calc.Time.Min,
				calc.Time.P75,
				calc.Time.P99,
				calc.Time.Max,
			})
		}
	}

	if shouldRender {
		tbl.Render()
	}
}

type env struct {
	host *scheduler.ManualHost
	rec  *reconciler.Reconciler
	root *reconciler.Root
}

func newEnv() *env {
	quiet := logrus.New()
	quiet.SetLevel(logrus.WarnLevel)

	// the clock never moves, so a render is never split into slices
	clk := fakeclock.NewFakeClock(time.Now())
	host := scheduler.NewManualHost(clk)
	sched := scheduler.New(host, scheduler.WithClock(clk), scheduler.WithLogger(quiet))
	ui := noop.New(host, noop.WithLogger(quiet))
	rec := reconciler.New(ui, sched, reconciler.WithLogger(quiet))
	return &env{host: host, rec: rec, root: rec.CreateContainer(ui.NewContainer())}
}

func (e *env) renderSync(node reconciler.Node) {
	if err := e.rec.FlushSync(func() { e.rec.UpdateContainer(e.root, node) }); err != nil {
		log.Fatal(err)
	}
}

func (e *env) drain() {
	if err := e.host.RunAll(); err != nil {
		log.Fatal(err)
	}
}

func keyedList(n int, reversed bool) reconciler.Node {
	items := make(reconciler.List, n)
	for i := range n {
		k := i
		if reversed {
			k = n - 1 - i
		}
		items[i] = reconciler.H(reconciler.Host("li"), nil, reconciler.Textf("%d", k)).WithKey(strconv.Itoa(k))
	}
	return reconciler.H(reconciler.Host("ul"), nil, items)
}

func benchMount(w int, tach *tachymeter.Tachymeter) {
	tree := keyedList(w, false)
	for range iters {
		e := newEnv()
		start := time.Now()
		e.renderSync(tree)
		tach.AddTime(time.Since(start))
	}
}

func benchReverse(w int, tach *tachymeter.Tachymeter) {
	e := newEnv()
	forward, backward := keyedList(w, false), keyedList(w, true)
	e.renderSync(forward)
	for i := range iters {
		next := backward
		if i%2 == 1 {
			next = forward
		}
		start := time.Now()
		e.renderSync(next)
		tach.AddTime(time.Since(start))
	}
}

func benchLeaf(sync bool) func(int, *tachymeter.Tachymeter) {
	return func(w int, tach *tachymeter.Tachymeter) {
		e := newEnv()
		setters := make([]reconciler.SetState[int], w)
		rows := make(reconciler.List, w)
		for i := range w {
			row := &reconciler.Component{
				Name: "Row",
				Render: func(h *reconciler.Hooks, _ *reconciler.Props) (reconciler.Node, error) {
					n, set := reconciler.UseState(h, 0)
					setters[i] = set
					return reconciler.H(reconciler.Host("li"), nil, reconciler.Textf("%d:%d", i, n)), nil
				},
			}
			rows[i] = reconciler.H(row, nil)
		}
		e.renderSync(reconciler.H(reconciler.Host("ul"), nil, rows))

		for i := range iters {
			set := setters[(i*7919)%w]
			start := time.Now()
			if sync {
				if err := e.rec.FlushSync(func() { set(func(n int) int { return n + 1 }) }); err != nil {
					log.Fatal(err)
				}
			} else {
				set(func(n int) int { return n + 1 })
				e.drain()
			}
			tach.AddTime(time.Since(start))
		}
	}
}

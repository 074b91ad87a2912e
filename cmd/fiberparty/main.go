package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/delaneyj/fiberparty/config"
	"github.com/delaneyj/fiberparty/noop"
	"github.com/delaneyj/fiberparty/reconciler"
	"github.com/delaneyj/fiberparty/scheduler"
	"github.com/delaneyj/fiberparty/telemetry"
	"github.com/delaneyj/fiberparty/value"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

const (
	configKey   = "config"
	logLevelKey = "log-level"
	itemsKey    = "items"
	delayKey    = "delay"
	metricsKey  = "metrics"
)

func main() {
	cmd := &cli.Command{
		Name:  "fiberparty",
		Usage: "Drive the fiber reconciler against an in-memory host",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  configKey,
				Usage: "Path to a yaml config file",
			},
			&cli.StringFlag{
				Name:  logLevelKey,
				Usage: "Override the configured log level",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "render",
				Usage: "Render the demo tree until it settles and print the resulting html",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  itemsKey,
						Usage: "Number of list items in the demo tree",
						Value: 5,
					},
					&cli.DurationFlag{
						Name:  delayKey,
						Usage: "How long the suspended greeting waits before resolving",
						Value: 20 * time.Millisecond,
					},
					&cli.BoolFlag{
						Name:  metricsKey,
						Usage: "Print collected metrics after rendering",
					},
				},
				Action: render,
			},
			{
				Name:   "config",
				Usage:  "Print the effective configuration",
				Action: dumpConfig,
			},
		},
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadConfig(cmd *cli.Command) (config.Config, error) {
	cfg := config.Default()
	if path := cmd.String(configKey); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}
	if level := cmd.String(logLevelKey); level != "" {
		cfg.Log.Level = level
	}
	return cfg, cfg.Validate()
}

func dumpConfig(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

func render(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := cfg.Logger(os.Stderr)
	if err != nil {
		return err
	}

	showMetrics := cmd.Bool(metricsKey) || cfg.Metrics.Enabled
	var (
		reg          *prometheus.Registry
		schedMetrics *telemetry.Scheduler
		recMetrics   *telemetry.Reconciler
	)
	if showMetrics {
		reg = prometheus.NewRegistry()
		schedMetrics = telemetry.NewScheduler(reg, cfg.Metrics.Namespace)
		recMetrics = telemetry.NewReconciler(reg, cfg.Metrics.Namespace)
	}

	loop := scheduler.NewLoopHost(clock.NewClock())
	sched := scheduler.New(loop,
		scheduler.WithConfig(cfg.Scheduler),
		scheduler.WithLogger(logger),
		scheduler.WithMetrics(schedMetrics),
	)
	ui := noop.New(loop, noop.WithLogger(logger))
	rec := reconciler.New(ui, sched,
		reconciler.WithLogger(logger),
		reconciler.WithMetrics(recMetrics),
	)
	container := ui.NewContainer()
	root := rec.CreateContainer(container)

	greeting := reconciler.NewPromise()
	loop.SetTimeout(cmd.Duration(delayKey), func() error {
		greeting.Resolve("hello from a resolved promise")
		return nil
	})

	start := time.Now()
	loop.PostTask(func() error {
		rec.UpdateContainer(root, demoApp(int(cmd.Int(itemsKey)), greeting))
		return nil
	})
	if err := loop.RunUntilIdle(ctx); err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"took":    time.Since(start),
		"host_op": len(ui.Ops()),
	}).Info("settled")

	fmt.Println(noop.HTML(container))

	if showMetrics {
		return printMetrics(reg)
	}
	return nil
}

var themeContext = reconciler.NewContext("theme", "light")

// demoApp renders a themed counter that counts itself up through effects, a
// keyed list, and a greeting that suspends until greeting resolves.
func demoApp(items int, greeting reconciler.Thenable) reconciler.Node {
	counter := &reconciler.Component{
		Name: "Counter",
		Render: func(h *reconciler.Hooks, _ *reconciler.Props) (reconciler.Node, error) {
			n, setN := reconciler.UseState(h, 0)
			theme := h.UseContext(themeContext).(string)
			h.UseEffect(func() func() {
				if n < 3 {
					setN(func(prev int) int { return prev + 1 })
				}
				return nil
			}, []any{n})
			return reconciler.H(reconciler.Host("p"), &reconciler.Props{Attrs: value.Map{
				"class": value.String(theme),
			}}, reconciler.Textf("count %d", n)), nil
		},
	}

	greet := &reconciler.Component{
		Name: "Greeting",
		Render: func(h *reconciler.Hooks, _ *reconciler.Props) (reconciler.Node, error) {
			v, err := h.Use(greeting)
			if err != nil {
				return nil, err
			}
			return reconciler.H(reconciler.Host("h1"), nil, reconciler.Text(v.(string))), nil
		},
	}

	list := make(reconciler.List, items)
	for i := range items {
		list[i] = reconciler.H(reconciler.Host("li"), &reconciler.Props{Attrs: value.Map{
			"data-index": value.Int(int64(i)),
		}}, reconciler.Textf("item %d", i)).WithKey(fmt.Sprintf("item-%d", i))
	}

	return themeContext.Provide("dark",
		reconciler.H(reconciler.Suspense,
			&reconciler.Props{Fallback: reconciler.H(reconciler.Host("h1"), nil, reconciler.Text("loading"))},
			reconciler.H(greet, nil),
		),
		reconciler.H(counter, nil),
		reconciler.H(reconciler.Host("ul"), nil, list),
	)
}

func printMetrics(reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	tbl := table.NewWriter()
	tbl.SetTitle("Metrics")
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"name", "labels", "value"})
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := ""
			for _, lp := range m.GetLabel() {
				labels += fmt.Sprintf("%s=%s ", lp.GetName(), lp.GetValue())
			}
			var v any
			switch {
			case m.GetCounter() != nil:
				v = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				v = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				v = fmt.Sprintf("n=%d sum=%.6fs", m.GetHistogram().GetSampleCount(), m.GetHistogram().GetSampleSum())
			}
			tbl.AppendRow(table.Row{mf.GetName(), labels, v})
		}
	}
	tbl.Render()
	return nil
}

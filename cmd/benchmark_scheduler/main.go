package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/delaneyj/fiberparty/scheduler"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
)

func main() {
	log.Print("Starting scheduler benchmark, please wait...")
	defer log.Print("Finished scheduler benchmark")

	perfTestCfgs := []benchmarkTestConfig{
		{
			name:       "many tiny tasks",
			tasks:      100_000,
			chunks:     1,
			spin:       10,
			priorities: []scheduler.Priority{scheduler.NormalPriority},
		},
		{
			name:   "mixed priorities",
			tasks:  20_000,
			chunks: 1,
			spin:   100,
			priorities: []scheduler.Priority{
				scheduler.ImmediatePriority,
				scheduler.UserBlockingPriority,
				scheduler.NormalPriority,
				scheduler.LowPriority,
				scheduler.IdlePriority,
			},
		},
		{
			name:       "long continuations",
			tasks:      100,
			chunks:     500,
			spin:       2_000,
			priorities: []scheduler.Priority{scheduler.NormalPriority, scheduler.LowPriority},
		},
		{
			name:           "half cancelled",
			tasks:          50_000,
			chunks:         2,
			spin:           50,
			cancelFraction: 0.5,
			priorities:     []scheduler.Priority{scheduler.UserBlockingPriority, scheduler.NormalPriority},
		},
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{
		"test", "tasks", "chunks", "priorities",
		"time", "callbacks", "host tasks", "callbacks/ms",
	})

	testRepeats := 5
	for _, cfg := range perfTestCfgs {
		log.Printf("Running '%s' config", cfg.name)

		// run once to warm up
		if _, err := runOnce(cfg); err != nil {
			log.Fatal(err)
		}

		best := benchmarkResult{duration: time.Hour}
		for i := range testRepeats {
			log.Printf("Running '%s' config, iteration %d/%d %d%%", cfg.name, i+1, testRepeats, (i+1)*100/testRepeats)
			res, err := runOnce(cfg)
			if err != nil {
				log.Fatal(err)
			}
			if res.duration < best.duration {
				best = res
			}
		}

		names := make([]string, len(cfg.priorities))
		for i, p := range cfg.priorities {
			names[i] = p.String()
		}
		rate := float64(best.callbacks) / (float64(best.duration) / float64(time.Millisecond))
		table.Append([]string{
			cfg.name,
			humanize.Comma(int64(cfg.tasks)),
			humanize.Comma(int64(cfg.chunks)),
			strings.Join(names, ","),
			best.duration.String(),
			humanize.Comma(best.callbacks),
			humanize.Comma(best.hostTasks),
			humanize.CommafWithDigits(rate, 1),
		})
	}

	table.Render()
}

type benchmarkTestConfig struct {
	name           string
	tasks          int
	chunks         int
	spin           int
	cancelFraction float64
	priorities     []scheduler.Priority
}

type benchmarkResult struct {
	duration  time.Duration
	callbacks int64
	hostTasks int64
}

// countingHost counts the macrotasks the scheduler asks for, which is one per
// time slice.
type countingHost struct {
	*scheduler.LoopHost
	posted int64
}

func (h *countingHost) PostTask(fn func() error) {
	h.posted++
	h.LoopHost.PostTask(fn)
}

var sink int

func spin(n int) {
	x := 1
	for i := range n {
		x = x*31 + i
	}
	sink += x
}

func runOnce(cfg benchmarkTestConfig) (benchmarkResult, error) {
	quiet := logrus.New()
	quiet.SetLevel(logrus.WarnLevel)

	loop := scheduler.NewLoopHost(clock.NewClock())
	host := &countingHost{LoopHost: loop}
	s := scheduler.New(host, scheduler.WithLogger(quiet))

	var callbacks int64
	var task func(left int) scheduler.Callback
	task = func(left int) scheduler.Callback {
		return func(bool) (scheduler.Result, error) {
			callbacks++
			spin(cfg.spin)
			if left > 1 {
				return scheduler.Continue(task(left - 1)), nil
			}
			return scheduler.Done(), nil
		}
	}

	cancelEvery := 0
	if cfg.cancelFraction > 0 {
		cancelEvery = int(1 / cfg.cancelFraction)
	}

	start := time.Now()
	for i := range cfg.tasks {
		p := cfg.priorities[i%len(cfg.priorities)]
		id := s.ScheduleCallback(p, task(cfg.chunks), 0)
		if cancelEvery > 0 && i%cancelEvery == 0 {
			s.CancelCallback(id)
		}
	}
	if err := loop.RunUntilIdle(context.Background()); err != nil {
		return benchmarkResult{}, fmt.Errorf("%s: %w", cfg.name, err)
	}
	duration := time.Since(start)

	if s.Pending() != 0 {
		return benchmarkResult{}, fmt.Errorf("%s: %d tasks left over", cfg.name, s.Pending())
	}
	return benchmarkResult{duration: duration, callbacks: callbacks, hostTasks: host.posted}, nil
}

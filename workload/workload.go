// Package workload runs the shared counter scenario: a group of workers
// incrementing one integer through a mutex.Mutex, pausing halfway with a
// per-worker stagger.
package workload

import (
	"sync"
	"time"

	logger "github.com/moontrade/log"
	"github.com/pkg/errors"

	"github.com/moontrade/parklock/config"
	"github.com/moontrade/parklock/mutex"
	"github.com/moontrade/parklock/pkg/counter"
	"github.com/moontrade/parklock/pkg/timex"
	"github.com/moontrade/parklock/pkg/util"
)

// Options configures Run. A zero Workers, Workload or Spawner takes its value
// from package config; a zero Stagger means workers do not pause between
// phases.
type Options struct {
	// Workers is the number of concurrent workers.
	Workers int
	// Workload is the number of increments per phase; every worker runs
	// two phases.
	Workload int
	// Stagger is multiplied by the worker index to get its pause between
	// phases.
	Stagger time.Duration
	// Spawner selects how workers are started, see NewSpawner.
	Spawner string
}

// DefaultOptions returns the options built from package config.
func DefaultOptions() Options {
	return Options{
		Workers:  config.Workers,
		Workload: config.Workload,
		Stagger:  config.Stagger,
		Spawner:  config.Spawner,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Workers == 0 {
		o.Workers = d.Workers
	}
	if o.Workload == 0 {
		o.Workload = d.Workload
	}
	if o.Spawner == "" {
		o.Spawner = d.Spawner
	}
	return o
}

// Result describes a finished run.
type Result struct {
	Value    int
	Expected int
	Panics   int64
	Elapsed  time.Duration
	Stats    mutex.Stats
}

// Run executes the scenario and waits for every worker. It returns an error
// if a worker could not be started, a worker panicked or the final value is
// not Workers*Workload*2.
func Run(opts Options) (Result, error) {
	opts = opts.withDefaults()
	if opts.Workers < 0 {
		return Result{}, errors.Errorf("workload: invalid worker count %d", opts.Workers)
	}
	if opts.Workload < 0 {
		return Result{}, errors.Errorf("workload: invalid workload %d", opts.Workload)
	}
	if opts.Stagger < 0 {
		return Result{}, errors.Errorf("workload: invalid stagger %v", opts.Stagger)
	}

	spawner, err := NewSpawner(opts.Spawner, opts.Workers)
	if err != nil {
		return Result{}, err
	}
	defer spawner.Close()

	var (
		m      = mutex.New(0)
		wg     sync.WaitGroup
		panics counter.Counter
		sw     = timex.NewStopWatch()
	)
	for i := 0; i < opts.Workers; i++ {
		i := i
		wg.Add(1)
		err := spawner.Go(func() {
			defer wg.Done()
			defer func() {
				if e := recover(); e != nil {
					panics.Incr()
					logger.Error(util.PanicToError(e), "worker panic")
				}
			}()
			work(m, i, opts)
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return Result{}, errors.Wrapf(err, "workload: start worker %d", i)
		}
	}
	wg.Wait()

	g := m.Lock()
	value := g.Load()
	g.Release()

	res := Result{
		Value:    value,
		Expected: opts.Workers * opts.Workload * 2,
		Panics:   panics.Load(),
		Elapsed:  time.Duration(sw.Stop()),
		Stats:    m.Stats(),
	}
	if res.Panics > 0 {
		return res, errors.Errorf("workload: %d workers panicked", res.Panics)
	}
	if res.Value != res.Expected {
		return res, errors.Errorf("workload: counter is %d, expected %d", res.Value, res.Expected)
	}
	return res, nil
}

func increment(v *int) {
	*v++
}

func work(m *mutex.Mutex[int], i int, opts Options) {
	for j := 0; j < opts.Workload; j++ {
		m.With(increment)
	}
	logger.Debug("worker halfway", i)
	time.Sleep(time.Duration(i) * opts.Stagger)
	for j := 0; j < opts.Workload; j++ {
		m.With(increment)
	}
	logger.Debug("worker finished", i)
}

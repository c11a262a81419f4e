// Command parklock runs the shared counter workload against mutex.Mutex and
// reports the final value and lock statistics.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	logger "github.com/moontrade/log"
	"github.com/peterbourgon/ff/v3"
	"github.com/pkg/errors"

	"github.com/moontrade/parklock/config"
	"github.com/moontrade/parklock/mutex"
	"github.com/moontrade/parklock/workload"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		logger.Error(err, "parklock failed")
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("parklock", flag.ContinueOnError)
	var (
		workers = fs.Int("workers", config.Workers, "number of worker goroutines")
		load    = fs.Int("workload", config.Workload, "increments per worker per phase")
		stagger = fs.Duration("stagger", config.Stagger, "pause between phases, multiplied by worker index")
		spawner = fs.String("spawner", config.Spawner, "worker spawner: ants, gopool or go")
	)
	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix("PARKLOCK")); err != nil {
		return errors.Wrap(err, "parse flags")
	}

	res, err := workload.Run(workload.Options{
		Workers:  *workers,
		Workload: *load,
		Stagger:  *stagger,
		Spawner:  *spawner,
	})
	if err != nil {
		return err
	}

	s := res.Stats
	fmt.Fprintln(out, res.Value)
	fmt.Fprintf(out, "elapsed=%v acquired=%d contended=%d parks=%d wakes=%d wait=%v\n",
		res.Elapsed, s.Acquired, s.Contended, s.Parks, s.Wakes, s.WaitTime)
	if n := reparks(s); n > 0 {
		logger.Warn("woken waiters parked again", n)
	}
	return nil
}

// reparks counts parks beyond the first one of each contended Lock: wakes
// that lost the lock to a newcomer, or arrived while it was still held.
func reparks(s mutex.Stats) int64 {
	return s.Parks - int64(s.Contended)
}

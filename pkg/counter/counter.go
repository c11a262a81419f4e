package counter

import (
	"sync/atomic"
	"time"

	"github.com/moontrade/parklock/pkg/timex"
)

// Counter is an int64 updated atomically.
type Counter int64

func (c *Counter) Load() int64 {
	return atomic.LoadInt64((*int64)(c))
}

func (c *Counter) Incr() int64 {
	return atomic.AddInt64((*int64)(c), 1)
}

// TimeCounter accumulates nanoseconds.
type TimeCounter int64

func (c *TimeCounter) Load() int64 {
	return atomic.LoadInt64((*int64)(c))
}

// Since adds the time elapsed on s and restarts it.
func (c *TimeCounter) Since(s *timex.StopWatch) {
	atomic.AddInt64((*int64)(c), s.Stop())
}

func (c *TimeCounter) Duration() time.Duration {
	return time.Duration(c.Load())
}

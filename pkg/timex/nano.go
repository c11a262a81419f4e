package timex

import "time"

// epoch anchors NanoTime to the monotonic clock reading taken at startup.
var epoch = time.Now()

// NanoTime returns monotonic nanoseconds since process start.
func NanoTime() int64 {
	return int64(time.Since(epoch))
}

// StopWatch measures elapsed monotonic time from its last start.
type StopWatch int64

func NewStopWatch() StopWatch {
	return StopWatch(NanoTime())
}

// Stop returns the nanoseconds since the last start and restarts the watch.
func (s *StopWatch) Stop() int64 {
	o := int64(*s)
	n := NanoTime()
	*s = StopWatch(n)
	return n - o
}

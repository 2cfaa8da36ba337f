package netgauge

import (
	"time"

	"golang.org/x/time/rate"
)

// progressReporter forwards intermediate rates to a sink, dropping reports that arrive
// faster than the configured interval. Flush always goes through.
type progressReporter struct {
	sink    ProgressSink
	limiter *rate.Limiter
}

func newProgressReporter(sink ProgressSink, interval time.Duration) *progressReporter {
	r := &progressReporter{sink: sink}
	if interval > 0 {
		r.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
	return r
}

func (r *progressReporter) Report(mbps float64) {
	if r.sink == nil {
		return
	}
	if r.limiter != nil && !r.limiter.Allow() {
		return
	}
	r.sink(mbps)
}

func (r *progressReporter) Flush(mbps float64) {
	if r.sink == nil {
		return
	}
	r.sink(mbps)
}

package netgauge

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// RunLatencyProbe issues Latency.Attempts HEAD requests and aggregates the successful
// round trips. Failed attempts are skipped, never retried. When none succeeds the result
// is OutcomeUnmeasurable with Millis 0.
func (e *Estimator) RunLatencyProbe(ctx context.Context) LatencyResult {
	cfg := e.cfg.Latency

	result := LatencyResult{
		Aggregate: cfg.Aggregate,
		NAttempts: cfg.Attempts,
	}
	durations := []time.Duration{}

	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		duration, err := e.measureRTT(ctx)
		if err != nil {
			result.NFailed++
			e.logger.Debug().Err(err).Int("attempt", attempt).Msg("latency attempt failed")
			continue
		}
		logDuration(e.logger.Debug().Int("attempt", attempt), "ms", duration).Msg("latency attempt")
		durations = append(durations, duration)
	}

	if len(durations) == 0 {
		result.Outcome = OutcomeUnmeasurable
		e.logger.Warn().Int("attempts", cfg.Attempts).Msg("latency is unmeasurable, every attempt failed")
		return result
	}

	result.Stats = getDurationMSStats(durations)
	value := result.Stats.Mean
	if cfg.Aggregate == AggregateMedian {
		value = result.Stats.Median
	}
	result.Millis = int64(math.Round(value))
	result.Outcome = OutcomeMeasured

	return result
}

func (e *Estimator) measureRTT(ctx context.Context) (time.Duration, error) {
	cfg := e.cfg.Latency

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	target, err := withQuery(cfg.URL, map[string]string{"nocache": cacheBuster()})
	if err != nil {
		return 0, errors.Wrap(err, "invalid latency URL")
	}
	req, err := e.newRequest(ctx, http.MethodHead, target, nil)
	if err != nil {
		return 0, err
	}

	start := e.now()
	resp, err := e.client.Do(req)
	duration := e.now().Sub(start)
	if err != nil {
		return 0, errors.Wrap(err, "HEAD request failed")
	}
	_, _ = flushHTTPResponse(resp)

	if err := checkStatus(resp); err != nil {
		return 0, err
	}

	return duration, nil
}

package netgauge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"gotest.tools/v3/assert"
)

// newLatencyServer answers HEAD requests, failing the attempts listed in fail (1-based).
func newLatencyServer(t *testing.T, hits *atomic.Int32, fail ...int32) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit := hits.Add(1)
		if r.Method != http.MethodHead || r.URL.Query().Get("nocache") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for _, f := range fail {
			if f == hit {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRunLatencyProbe_Mean(t *testing.T) {
	hits := &atomic.Int32{}
	server := newLatencyServer(t, hits)
	cfg := testConfig(t, func(cfg *Config) { cfg.Latency.URL = server.URL })
	clock := newScriptedClock(0, 10*time.Millisecond, 10*time.Millisecond, 40*time.Millisecond, 40*time.Millisecond, 240*time.Millisecond)

	estimator := NewEstimator(server.Client(), cfg, WithClock(clock.Now), WithLogger(testLogger(t)))
	result := estimator.RunLatencyProbe(context.Background())

	assert.Equal(t, hits.Load(), int32(3))
	assert.Equal(t, result.Outcome, OutcomeMeasured)
	assert.Equal(t, result.Millis, int64(80))
	assert.Equal(t, result.NAttempts, 3)
	assert.Equal(t, result.NFailed, 0)
	assert.Equal(t, result.Stats.Min, 10.0)
	assert.Equal(t, result.Stats.Max, 200.0)
}

func TestRunLatencyProbe_Median(t *testing.T) {
	server := newLatencyServer(t, &atomic.Int32{})
	cfg := testConfig(t, func(cfg *Config) {
		cfg.Latency.URL = server.URL
		cfg.Latency.Aggregate = AggregateMedian
	})
	clock := newScriptedClock(0, 10*time.Millisecond, 10*time.Millisecond, 40*time.Millisecond, 40*time.Millisecond, 240*time.Millisecond)

	estimator := NewEstimator(server.Client(), cfg, WithClock(clock.Now), WithLogger(testLogger(t)))
	result := estimator.RunLatencyProbe(context.Background())

	assert.Equal(t, result.Millis, int64(30))
	assert.Equal(t, result.Aggregate, AggregateMedian)
}

func TestRunLatencyProbe_SkipsFailedAttempt(t *testing.T) {
	hits := &atomic.Int32{}
	server := newLatencyServer(t, hits, 2)
	cfg := testConfig(t, func(cfg *Config) { cfg.Latency.URL = server.URL })
	// the second attempt takes a second but is discarded
	clock := newScriptedClock(0, 10*time.Millisecond, 10*time.Millisecond, 1010*time.Millisecond, 1010*time.Millisecond, 1040*time.Millisecond)

	estimator := NewEstimator(server.Client(), cfg, WithClock(clock.Now), WithLogger(testLogger(t)))
	result := estimator.RunLatencyProbe(context.Background())

	assert.Equal(t, hits.Load(), int32(3))
	assert.Equal(t, result.Outcome, OutcomeMeasured)
	assert.Equal(t, result.Millis, int64(20))
	assert.Equal(t, result.NFailed, 1)
	assert.Equal(t, result.Stats.NSamples, 2)
}

func TestRunLatencyProbe_AllFail(t *testing.T) {
	hits := &atomic.Int32{}
	server := newLatencyServer(t, hits, 1, 2, 3)
	cfg := testConfig(t, func(cfg *Config) { cfg.Latency.URL = server.URL })

	estimator := NewEstimator(server.Client(), cfg, WithLogger(testLogger(t)))
	result := estimator.RunLatencyProbe(context.Background())

	assert.Equal(t, hits.Load(), int32(3))
	assert.Equal(t, result.Outcome, OutcomeUnmeasurable)
	assert.Equal(t, result.Millis, int64(0))
	assert.Equal(t, result.NFailed, 3)
	assert.Assert(t, result.Stats == nil)
	assert.Assert(t, !result.Measured())
}

func TestRunLatencyProbe_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()
	cfg := testConfig(t, func(cfg *Config) {
		cfg.Latency.URL = url
		cfg.Latency.Timeout = time.Second
	})

	estimator := NewEstimator(http.DefaultClient, cfg, WithLogger(testLogger(t)))
	result := estimator.RunLatencyProbe(context.Background())

	assert.Equal(t, result.Outcome, OutcomeUnmeasurable)
	assert.Equal(t, result.Millis, int64(0))
}

func TestRunLatencyProbe_AttemptsAreClamped(t *testing.T) {
	hits := &atomic.Int32{}
	server := newLatencyServer(t, hits)
	cfg := testConfig(t, func(cfg *Config) {
		cfg.Latency.URL = server.URL
		cfg.Latency.Attempts = 9
	})

	estimator := NewEstimator(server.Client(), cfg, WithLogger(testLogger(t)))
	result := estimator.RunLatencyProbe(context.Background())

	assert.Equal(t, hits.Load(), int32(latencyAttemptsMax))
	assert.Equal(t, result.NAttempts, latencyAttemptsMax)
	assert.Equal(t, result.Outcome, OutcomeMeasured)
}

package netgauge

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gotest.tools/v3/assert"
)

// steppingClock advances by step on every reading, so a transfer timed with two readings
// always lasts exactly step.
type steppingClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newSteppingClock(step time.Duration) *steppingClock {
	return &steppingClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), step: step}
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	ret := c.now
	c.now = c.now.Add(c.step)
	return ret
}

// scriptedClock returns base+offsets[i] on the i-th reading and repeats the last offset
// once the script is exhausted.
type scriptedClock struct {
	mu      sync.Mutex
	base    time.Time
	offsets []time.Duration
	next    int
}

func newScriptedClock(offsets ...time.Duration) *scriptedClock {
	return &scriptedClock{base: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), offsets: offsets}
}

func (c *scriptedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	index := c.next
	if index >= len(c.offsets) {
		index = len(c.offsets) - 1
	} else {
		c.next++
	}
	return c.base.Add(c.offsets[index])
}

func testLogger(t *testing.T) zerolog.Logger {
	return zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel)
}

func testConfig(t *testing.T, mutate func(cfg *Config)) *Config {
	cfg := DefaultConfig()
	cfg.Progress.Interval = 0
	if mutate != nil {
		mutate(cfg)
	}
	assert.NilError(t, cfg.Normalize())
	return cfg
}

func assertAlmostEqual(t *testing.T, actual, expected float64) {
	t.Helper()
	assert.Assert(t, math.Abs(actual-expected) < 1e-9, "expected %v, got %v", expected, actual)
}

type progressRecorder struct {
	mu    sync.Mutex
	rates []float64
}

func (r *progressRecorder) Sink(mbps float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rates = append(r.rates, mbps)
}

func (r *progressRecorder) Rates() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.rates...)
}

// zeroSource is an endless stream of zero bytes.
type zeroSource struct{}

func (zeroSource) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

// manualClock only moves when advanced.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

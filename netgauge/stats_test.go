package netgauge

import (
	"testing"
	"time"

	"gotest.tools/v3/assert"
)

func TestGetF64Stats_8Samples(t *testing.T) {
	samples := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	stats := getF64Stats(samples)

	assert.Equal(t, stats.NSamples, 8)
	assert.Equal(t, stats.Mean, 5.0)
	assert.Equal(t, stats.Median, 4.5)
	assert.Equal(t, stats.StdDev, 2.0)
	assertAlmostEqual(t, stats.StdErr, 0.7071067811865476)
	assert.Equal(t, stats.Min, 2.0)
	assert.Equal(t, stats.MinIndex, 0)
	assert.Equal(t, stats.Max, 9.0)
	assert.Equal(t, stats.MaxIndex, 7)
}

func TestGetF64Stats_6Samples(t *testing.T) {
	samples := []float64{-2.0, -3.0, 0.0, 2.0, -1.0, 1.0}

	stats := getF64Stats(samples)

	assert.Equal(t, stats.NSamples, 6)
	assert.Equal(t, stats.Mean, -0.5)
	assert.Equal(t, stats.Median, -0.5)
	assertAlmostEqual(t, stats.StdDev, 1.707825127659933)
	assertAlmostEqual(t, stats.StdErr, 0.6972166887783964)
	assert.Equal(t, stats.Min, -3.0)
	assert.Equal(t, stats.MinIndex, 1)
	assert.Equal(t, stats.Max, 2.0)
	assert.Equal(t, stats.MaxIndex, 3)
}

func TestGetF64Stats_Empty(t *testing.T) {
	assert.Assert(t, getF64Stats(nil) == nil)
	assert.Assert(t, getF64Stats([]float64{}) == nil)
}

func TestGetDurationMSStats(t *testing.T) {
	samples := []time.Duration{}

	for _, durationMS := range []int64{127, 19, 139, 34, 134} {
		samples = append(samples, time.Duration(durationMS)*time.Millisecond)
	}

	stats := getDurationMSStats(samples)

	assert.Equal(t, stats.NSamples, 5)
	assertAlmostEqual(t, stats.Mean, 90.6)
	assert.Equal(t, stats.Median, 127.0)
	assert.Equal(t, stats.Min, 19.0)
	assert.Equal(t, stats.MinIndex, 1)
	assert.Equal(t, stats.Max, 139.0)
	assert.Equal(t, stats.MaxIndex, 2)
}

func TestGetMean_Empty(t *testing.T) {
	assert.Equal(t, getMean(nil), 0.0)
}

func TestAnalyseIOEvents(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	events := []IOEvent{
		{Timestamp: start.Add(50 * time.Millisecond), Size: 100 * 1000},
		{Timestamp: start.Add(100 * time.Millisecond), Size: 150 * 1000}, // 250 kB in 100 ms, 20 Mbps
		{Timestamp: start.Add(150 * time.Millisecond), Size: 100 * 1000},
		{Timestamp: start.Add(300 * time.Millisecond), Size: 150 * 1000}, // 250 kB in 200 ms, 10 Mbps
		{Timestamp: start.Add(350 * time.Millisecond), Size: 500 * 1000}, // incomplete window
	}

	mbpsSamples := analyseIOEvents(start, events, 100*time.Millisecond)

	assert.Equal(t, len(mbpsSamples), 2)
	assertAlmostEqual(t, mbpsSamples[0], 20)
	assertAlmostEqual(t, mbpsSamples[1], 10)
}

func TestAnalyseIOEvents_NoEvents(t *testing.T) {
	mbpsSamples := analyseIOEvents(time.Now(), nil, ioSamplingWindowWidth)

	assert.Equal(t, len(mbpsSamples), 0)
}

package netgauge

import (
	"math"
	"time"

	"github.com/montanaflynn/stats"
)

const ioSamplingWindowWidth = 100 * time.Millisecond

type Stats struct {
	NSamples int     `json:"n"`
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	StdDev   float64 `json:"stddev"`
	StdErr   float64 `json:"stderr"`
	Min      float64 `json:"min"`
	MinIndex int     `json:"-"`
	Max      float64 `json:"max"`
	MaxIndex int     `json:"-"`
}

// getF64Stats returns nil for an empty series.
func getF64Stats(series []float64) *Stats {
	if len(series) == 0 {
		return nil
	}

	ret := &Stats{
		NSamples: len(series),
		Min:      math.Inf(1),
		Max:      math.Inf(-1),
	}

	for index, element := range series {
		if element < ret.Min {
			ret.Min = element
			ret.MinIndex = index
		}
		if element > ret.Max {
			ret.Max = element
			ret.MaxIndex = index
		}
	}

	// errors are only returned for empty input
	ret.Mean, _ = stats.Mean(series)
	ret.Median, _ = stats.Median(series)
	ret.StdDev, _ = stats.StandardDeviationPopulation(series)
	ret.StdErr = ret.StdDev / math.Sqrt(float64(ret.NSamples))

	return ret
}

func getDurationMSStats(durations []time.Duration) *Stats {
	return getF64Stats(durationsToMS(durations))
}

func durationsToMS(durations []time.Duration) []float64 {
	durationSamples := make([]float64, 0, len(durations))

	for _, duration := range durations {
		durationSamples = append(durationSamples, float64(duration.Microseconds())/1000)
	}

	return durationSamples
}

func getMean(series []float64) float64 {
	mean, err := stats.Mean(series)
	if err != nil {
		return 0
	}
	return mean
}

// analyseIOEvents slices a transfer into windows of at least width and returns the rate
// observed in each completed window, in Mbps.
func analyseIOEvents(start time.Time, ioEvents []IOEvent, width time.Duration) []float64 {
	mbpsSamples := []float64{}

	windowStart := start
	sizeSum := int64(0)
	for _, event := range ioEvents {
		sizeSum += int64(event.Size)

		sinceStart := event.Timestamp.Sub(windowStart)
		if sinceStart >= width {
			mbpsSamples = append(mbpsSamples, Sample{Bytes: sizeSum, Elapsed: sinceStart}.Mbps())

			windowStart = event.Timestamp
			sizeSum = 0
		}
	}

	return mbpsSamples
}

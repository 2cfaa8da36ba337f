package netgauge

import (
	"time"

	"github.com/google/uuid"
)

type Direction string

const (
	DirectionDownlink Direction = "down"
	DirectionUplink   Direction = "up"
)

func (d Direction) Label() string {
	if d == DirectionUplink {
		return "Uplink"
	}
	return "Downlink"
}

// Outcome tells a measured value apart from one that could not be obtained. The numeric
// field of an unmeasurable result is always 0 and must not be read as a measurement.
type Outcome uint8

const (
	OutcomeUnknown Outcome = iota
	OutcomeUnmeasurable
	OutcomeMeasured
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMeasured:
		return "measured"
	case OutcomeUnmeasurable:
		return "unmeasurable"
	default:
		return "unknown"
	}
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// ProgressSink receives intermediate rates in Mbps while a measurement is running.
type ProgressSink func(mbps float64)

type Sample struct {
	Bytes   int64
	Elapsed time.Duration
}

// Mbps is bytes * 8 / (seconds * 1e6); a sample without elapsed time has no rate.
func (s Sample) Mbps() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Bytes) * 8 / (s.Elapsed.Seconds() * 1000 * 1000)
}

type LatencyResult struct {
	Millis    int64   `json:"ms"`
	Outcome   Outcome `json:"outcome"`
	Aggregate string  `json:"aggregate"`
	NAttempts int     `json:"attempts"`
	NFailed   int     `json:"failed"`
	Stats     *Stats  `json:"stats,omitempty"`
}

func (r LatencyResult) Measured() bool {
	return r.Outcome == OutcomeMeasured
}

type SpeedResult struct {
	Direction Direction     `json:"direction"`
	Mbps      float64       `json:"mbps"`
	Outcome   Outcome       `json:"outcome"`
	TXSize    int64         `json:"bytes"`
	Duration  time.Duration `json:"duration"`
	Samples   []float64     `json:"samples"`
	NTX       int           `json:"transfers"`
	NFailed   int           `json:"failed"`
	Fallback  bool          `json:"fallback"`
	Peak      *Stats        `json:"peak,omitempty"`
}

func (r SpeedResult) Measured() bool {
	return r.Outcome == OutcomeMeasured
}

type Report struct {
	ID        uuid.UUID     `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Latency   LatencyResult `json:"latency"`
	Download  SpeedResult   `json:"download"`
	Upload    SpeedResult   `json:"upload"`
}

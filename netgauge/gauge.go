package netgauge

import "math"

const (
	gaugeAngleMin = -90.0
	gaugeAngleMax = 90.0
)

// Gauge is the dial position for a rate: Angle in degrees from -90 (0 Mbps) to +90 (full
// scale), Fraction in [0, 1].
type Gauge struct {
	Angle    float64
	Fraction float64
}

// MapGauge clamps mbps to [0, maxMbps] before mapping it. A non-positive scale or a NaN
// rate yields the resting position.
func MapGauge(mbps, maxMbps float64) Gauge {
	if maxMbps <= 0 || math.IsNaN(mbps) || math.IsNaN(maxMbps) {
		return Gauge{Angle: gaugeAngleMin}
	}

	clamped := math.Min(math.Max(mbps, 0), maxMbps)
	fraction := clamped / maxMbps

	return Gauge{
		Angle:    gaugeAngleMin + fraction*(gaugeAngleMax-gaugeAngleMin),
		Fraction: fraction,
	}
}

// ArcOffset is the dash offset of a progress arc of the given length.
func (g Gauge) ArcOffset(arcLength float64) float64 {
	return arcLength - g.Fraction*arcLength
}

package netgauge

import (
	"math"
	"testing"

	"gotest.tools/v3/assert"
)

func TestMapGauge_Bounds(t *testing.T) {
	assert.DeepEqual(t, MapGauge(0, 200), Gauge{Angle: -90, Fraction: 0})
	assert.DeepEqual(t, MapGauge(200, 200), Gauge{Angle: 90, Fraction: 1})
	assert.DeepEqual(t, MapGauge(100, 200), Gauge{Angle: 0, Fraction: 0.5})
}

func TestMapGauge_Clamps(t *testing.T) {
	assert.DeepEqual(t, MapGauge(1000, 200), Gauge{Angle: 90, Fraction: 1})
	assert.DeepEqual(t, MapGauge(-5, 200), Gauge{Angle: -90, Fraction: 0})
	assert.DeepEqual(t, MapGauge(math.Inf(1), 200), Gauge{Angle: 90, Fraction: 1})
}

func TestMapGauge_DegenerateInput(t *testing.T) {
	assert.DeepEqual(t, MapGauge(50, 0), Gauge{Angle: -90, Fraction: 0})
	assert.DeepEqual(t, MapGauge(50, -10), Gauge{Angle: -90, Fraction: 0})
	assert.DeepEqual(t, MapGauge(math.NaN(), 200), Gauge{Angle: -90, Fraction: 0})
}

func TestGaugeArcOffset(t *testing.T) {
	assert.Equal(t, MapGauge(0, 200).ArcOffset(314), 314.0)
	assert.Equal(t, MapGauge(100, 200).ArcOffset(314), 157.0)
	assert.Equal(t, MapGauge(400, 200).ArcOffset(314), 0.0)
}

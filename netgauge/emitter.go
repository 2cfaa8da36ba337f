package netgauge

import (
	"fmt"
	"io"
	"math"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
)

// gaugeResolution is the number of steps the progress bar maps the gauge fraction onto.
const gaugeResolution = 1000

// Emitter is the presentation side of a run. It never influences measurements.
type Emitter interface {
	OnLatencyStart()
	OnLatency(LatencyResult)
	OnSpeedStart(Direction)
	OnProgress(Direction, float64)
	OnSpeed(SpeedResult)
}

type NopEmitter struct{}

func (NopEmitter) OnLatencyStart()               {}
func (NopEmitter) OnLatency(LatencyResult)       {}
func (NopEmitter) OnSpeedStart(Direction)        {}
func (NopEmitter) OnProgress(Direction, float64) {}
func (NopEmitter) OnSpeed(SpeedResult)           {}

type LogEmitter struct {
	Logger zerolog.Logger
}

func (e *LogEmitter) OnLatencyStart() {
	e.Logger.Info().Msg("latency: starting")
}

func (e *LogEmitter) OnLatency(result LatencyResult) {
	e.Logger.Info().
		Int64("ms", result.Millis).
		Stringer("outcome", result.Outcome).
		Int("failed", result.NFailed).
		Msg("latency: completed")
}

func (e *LogEmitter) OnSpeedStart(direction Direction) {
	e.Logger.Info().Msgf("%s: starting", direction.Label())
}

func (e *LogEmitter) OnProgress(direction Direction, mbps float64) {
	e.Logger.Info().Float64("mbps", mbps).Msgf("%s: throughput", direction.Label())
}

func (e *LogEmitter) OnSpeed(result SpeedResult) {
	e.Logger.Info().
		Float64("mbps", result.Mbps).
		Stringer("outcome", result.Outcome).
		Int("failed", result.NFailed).
		Bool("fallback", result.Fallback).
		Msgf("%s: completed", result.Direction.Label())
}

// BarEmitter renders intermediate rates as a progress bar scaled to the gauge.
type BarEmitter struct {
	writer  io.Writer
	maxMbps float64
	bar     *progressbar.ProgressBar
}

func NewBarEmitter(w io.Writer, gauge GaugeConfig) *BarEmitter {
	return &BarEmitter{
		writer:  w,
		maxMbps: gauge.MaxMbps,
	}
}

func (e *BarEmitter) OnLatencyStart()         {}
func (e *BarEmitter) OnLatency(LatencyResult) {}

func (e *BarEmitter) OnSpeedStart(direction Direction) {
	e.bar = progressbar.NewOptions(gaugeResolution,
		progressbar.OptionSetWriter(e.writer),
		progressbar.OptionSetDescription(describeProgress(direction, 0)),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
	)
}

func (e *BarEmitter) OnProgress(direction Direction, mbps float64) {
	if e.bar == nil {
		return
	}
	gauge := MapGauge(mbps, e.maxMbps)
	e.bar.Describe(describeProgress(direction, mbps))
	_ = e.bar.Set(int(math.Round(gauge.Fraction * gaugeResolution)))
}

func (e *BarEmitter) OnSpeed(SpeedResult) {
	if e.bar == nil {
		return
	}
	_ = e.bar.Finish()
	e.bar = nil
}

func describeProgress(direction Direction, mbps float64) string {
	return fmt.Sprintf("%-8s %8.2f Mbps", direction.Label(), mbps)
}

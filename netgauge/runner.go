package netgauge

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var ErrAlreadyRunning = errors.New("a measurement run is already in progress")

// Runner sequences ping, downlink and uplink measurements. At most one run is in flight;
// the slot is released on every exit path, panics included.
type Runner struct {
	estimator *Estimator
	gate      chan struct{}
	newID     func() uuid.UUID
}

func NewRunner(estimator *Estimator) *Runner {
	return &Runner{
		estimator: estimator,
		gate:      make(chan struct{}, 1),
		newID:     uuid.New,
	}
}

func (r *Runner) Running() bool {
	return len(r.gate) > 0
}

func (r *Runner) Run(ctx context.Context, emitter Emitter) (*Report, error) {
	select {
	case r.gate <- struct{}{}:
	default:
		return nil, ErrAlreadyRunning
	}
	defer func() { <-r.gate }()

	if emitter == nil {
		emitter = NopEmitter{}
	}

	report := &Report{
		ID:        r.newID(),
		Timestamp: time.Now(),
	}
	r.estimator.logger.Debug().Str("run", report.ID.String()).Msg("measurement run started")

	emitter.OnLatencyStart()
	report.Latency = r.estimator.RunLatencyProbe(ctx)
	emitter.OnLatency(report.Latency)
	if err := ctx.Err(); err != nil {
		return report, errors.Wrap(err, "interrupted after latency measurement")
	}

	report.Download = r.runSpeed(ctx, emitter, DirectionDownlink, r.estimator.RunDownloadProbe)
	if err := ctx.Err(); err != nil {
		return report, errors.Wrap(err, "interrupted after downlink measurement")
	}

	report.Upload = r.runSpeed(ctx, emitter, DirectionUplink, r.estimator.RunUploadProbe)
	if err := ctx.Err(); err != nil {
		return report, errors.Wrap(err, "interrupted after uplink measurement")
	}

	r.estimator.logger.Debug().Str("run", report.ID.String()).Msg("measurement run finished")

	return report, nil
}

func (r *Runner) runSpeed(
	ctx context.Context, emitter Emitter, direction Direction,
	probe func(context.Context, ProgressSink) SpeedResult,
) SpeedResult {
	emitter.OnSpeedStart(direction)
	result := probe(ctx, func(mbps float64) {
		emitter.OnProgress(direction, mbps)
	})
	emitter.OnSpeed(result)
	return result
}

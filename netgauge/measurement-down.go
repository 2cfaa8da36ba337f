package netgauge

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

type downloadTransfer struct {
	Sample
	start  time.Time
	events []IOEvent
}

// RunDownloadProbe measures downlink throughput with the configured policy, falling back
// to one plain request when every test fails.
func (e *Estimator) RunDownloadProbe(ctx context.Context, onProgress ProgressSink) SpeedResult {
	cfg := e.cfg.Download
	progress := newProgressReporter(onProgress, e.cfg.Progress.Interval)

	result := SpeedResult{
		Direction: DirectionDownlink,
		Samples:   []float64{},
	}
	peaks := []float64{}

	record := func(transfer *downloadTransfer) {
		mbps := transfer.Mbps()
		progress.Flush(mbps)

		result.Samples = append(result.Samples, mbps)
		result.TXSize += transfer.Bytes
		result.Duration += transfer.Elapsed
		result.NTX++
		peaks = append(peaks, analyseIOEvents(transfer.start, transfer.events, ioSamplingWindowWidth)...)
	}

	switch cfg.Mode {
	case DownloadModeStream:
		transfer, err := e.download(ctx, cfg.StreamMaxBytes, cfg.StreamDuration, progress)
		if err == nil && transfer.Bytes == 0 {
			err = errNoBytes
		}
		if err != nil {
			result.NFailed++
			e.logger.Debug().Err(err).Msg("streaming download failed")
		} else {
			record(transfer)
		}

	default:
		for index, size := range cfg.Sizes {
			transfer, err := e.download(ctx, size, 0, progress)
			if err == nil && transfer.Bytes == 0 {
				err = errNoBytes
			}
			if err != nil {
				result.NFailed++
				e.logger.Debug().Err(err).Int("test", index+1).Int64("size", size).Msg("download test failed")
				continue
			}
			record(transfer)
		}
	}

	if result.NTX > 0 {
		if cfg.Mode == DownloadModeStream {
			result.Mbps = result.Samples[0]
		} else {
			result.Mbps = getMean(result.Samples)
		}
		result.Outcome = OutcomeMeasured
		result.Peak = getF64Stats(peaks)
		return result
	}

	e.logger.Debug().Int64("size", cfg.FallbackSize).Msg("every download test failed, trying fallback")
	sample, err := e.downloadFallback(ctx)
	if err != nil {
		result.NFailed++
		result.Outcome = OutcomeUnmeasurable
		e.logger.Warn().Err(err).Msg("downlink is unmeasurable, fallback failed")
		return result
	}

	mbps := sample.Mbps()
	progress.Flush(mbps)

	result.Mbps = mbps
	result.Samples = append(result.Samples, mbps)
	result.TXSize = sample.Bytes
	result.Duration = sample.Elapsed
	result.NTX = 1
	result.Fallback = true
	result.Outcome = OutcomeMeasured

	return result
}

func (e *Estimator) downloadURL(size int64) (string, error) {
	return withQuery(e.cfg.Download.URL, map[string]string{
		"bytes":   strconv.FormatInt(size, 10),
		"nocache": cacheBuster(),
	})
}

// download streams size bytes in chunks, reporting the cumulative rate at every chunk
// boundary. With a positive cutoff the stream is cancelled once cutoff has elapsed and the
// bytes received so far make a valid transfer.
func (e *Estimator) download(ctx context.Context, size int64, cutoff time.Duration, progress *progressReporter) (*downloadTransfer, error) {
	limit := e.cfg.Download.Timeout
	if cutoff > 0 {
		limit = cutoff
	}

	var (
		reqCtx context.Context
		cancel context.CancelFunc
	)
	if limit > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, limit)
	} else {
		reqCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	target, err := e.downloadURL(size)
	if err != nil {
		return nil, errors.Wrap(err, "invalid download URL")
	}
	req, err := e.newRequest(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	start := e.now()
	transfer := &downloadTransfer{start: start}

	resp, err := e.client.Do(req)
	if err != nil {
		return transfer, errors.Wrap(err, "GET request failed")
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return transfer, err
	}

	var goodThru time.Time
	if cutoff > 0 {
		goodThru = start.Add(cutoff)
	}
	sampler := InitSamplingReader(resp.Body, size, goodThru, e.now)
	sampler.onRead = func(sizeRead int64, at time.Time) {
		progress.Report(Sample{Bytes: sizeRead, Elapsed: at.Sub(start)}.Mbps())
	}

	_, err = io.Copy(io.Discard, sampler)

	transfer.Sample = Sample{
		Bytes:   sampler.SizeRead,
		Elapsed: e.now().Sub(start),
	}
	transfer.events = sampler.Events

	if err != nil {
		cutOff := cutoff > 0 && errors.Is(reqCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
		if cutOff && transfer.Bytes > 0 {
			return transfer, nil
		}
		return transfer, errors.Wrap(err, "could not read response body")
	}

	return transfer, nil
}

// downloadFallback is the plain path: one request, body read in full, no progress.
func (e *Estimator) downloadFallback(ctx context.Context) (Sample, error) {
	cfg := e.cfg.Download

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	target, err := e.downloadURL(cfg.FallbackSize)
	if err != nil {
		return Sample{}, errors.Wrap(err, "invalid download URL")
	}
	req, err := e.newRequest(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Sample{}, err
	}

	start := e.now()
	resp, err := e.client.Do(req)
	if err != nil {
		return Sample{}, errors.Wrap(err, "GET request failed")
	}
	if err := checkStatus(resp); err != nil {
		_ = resp.Body.Close()
		return Sample{}, err
	}

	downloadedSize, err := flushHTTPResponse(resp)
	if err != nil {
		return Sample{}, errors.Wrap(err, "could not read response body")
	}
	sample := Sample{
		Bytes:   downloadedSize,
		Elapsed: e.now().Sub(start),
	}
	if sample.Bytes == 0 {
		return sample, errNoBytes
	}

	return sample, nil
}

package netgauge

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/pkg/errors"
)

// RunUploadProbe posts Upload.Chunks copies of a random payload and derives the rate from
// the acknowledged bytes over the time spent on every attempt, failed ones included.
// A chunk failing before any byte was acknowledged aborts the run in favour of one
// smaller single-shot upload.
func (e *Estimator) RunUploadProbe(ctx context.Context, onProgress ProgressSink) SpeedResult {
	cfg := e.cfg.Upload
	progress := newProgressReporter(onProgress, 0)

	result := SpeedResult{
		Direction: DirectionUplink,
		Samples:   []float64{},
	}

	payload, err := e.newPayload(max(cfg.ChunkSize, cfg.FallbackSize))
	if err != nil {
		result.Outcome = OutcomeUnmeasurable
		e.logger.Warn().Err(err).Msg("uplink is unmeasurable, could not build payload")
		return result
	}
	chunk := payload[:cfg.ChunkSize]

	for index := 0; index < cfg.Chunks; index++ {
		if ctx.Err() != nil {
			break
		}

		sample, err := e.upload(ctx, chunk)
		result.Duration += sample.Elapsed

		if err != nil {
			result.NFailed++
			e.logger.Debug().Err(err).Int("chunk", index+1).Msg("upload chunk failed")
			if result.TXSize == 0 {
				break
			}
			continue
		}

		result.TXSize += sample.Bytes
		result.NTX++
		result.Samples = append(result.Samples, sample.Mbps())
		progress.Flush(Sample{Bytes: result.TXSize, Elapsed: result.Duration}.Mbps())
	}

	if result.NTX > 0 {
		result.Mbps = Sample{Bytes: result.TXSize, Elapsed: result.Duration}.Mbps()
		result.Outcome = OutcomeMeasured
		result.Peak = getF64Stats(result.Samples)
		return result
	}

	e.logger.Debug().Int64("size", cfg.FallbackSize).Msg("upload aborted, trying fallback")
	sample, err := e.upload(ctx, payload[:cfg.FallbackSize])
	if err != nil {
		result.NFailed++
		result.Outcome = OutcomeUnmeasurable
		e.logger.Warn().Err(err).Msg("uplink is unmeasurable, fallback failed")
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

// newPayload draws size bytes from the entropy source so that no transparent
// compression along the path can shrink the transfer.
func (e *Estimator) newPayload(size int64) ([]byte, error) {
	payload := make([]byte, size)
	if _, err := io.ReadFull(e.random, payload); err != nil {
		return nil, errors.Wrap(err, "could not read random bytes")
	}
	return payload, nil
}

func newMultipartBody(fieldName string, payload []byte) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile(fieldName, "blob")
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(payload); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return body, writer.FormDataContentType(), nil
}

// upload times one POST from request start to response completion. The returned sample
// carries the elapsed time even on failure, with Bytes set only on success.
func (e *Estimator) upload(ctx context.Context, payload []byte) (Sample, error) {
	cfg := e.cfg.Upload

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	body, contentType, err := newMultipartBody(cfg.FieldName, payload)
	if err != nil {
		return Sample{}, errors.Wrap(err, "could not encode form")
	}
	req, err := e.newRequest(ctx, http.MethodPost, cfg.URL, body)
	if err != nil {
		return Sample{}, errors.Wrap(err, "invalid upload URL")
	}
	req.Header.Set("Content-Type", contentType)

	start := e.now()
	resp, err := e.client.Do(req)
	if err == nil {
		err = e.completeUpload(resp)
	} else {
		err = errors.Wrap(err, "POST request failed")
	}
	sample := Sample{Elapsed: e.now().Sub(start)}

	if err != nil {
		return sample, err
	}

	sample.Bytes = int64(len(payload))
	return sample, nil
}

func (e *Estimator) completeUpload(resp *http.Response) error {
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "could not read response body")
	}
	if e.cfg.Upload.RequireJSON && !json.Valid(data) {
		return errMalformedResponse
	}

	return nil
}

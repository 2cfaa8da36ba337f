package netgauge

import (
	"io"
	"time"
)

type IOEvent struct {
	Timestamp time.Time
	Size      int
}

// SamplingReader records every read of the wrapped body. Reading stops with io.EOF once
// Quota bytes have been read or GoodThru has passed; zero values disable either bound.
type SamplingReader struct {
	Reader   io.Reader
	SizeRead int64
	Events   []IOEvent
	Quota    int64
	GoodThru time.Time

	now    func() time.Time
	onRead func(sizeRead int64, at time.Time)
}

func (r *SamplingReader) Read(p []byte) (int, error) {
	if r.Quota > 0 {
		remaining := r.Quota - r.SizeRead
		if remaining <= 0 {
			return 0, io.EOF
		}
		if int64(len(p)) > remaining {
			p = p[:remaining]
		}
	}
	if !r.GoodThru.IsZero() && r.now().After(r.GoodThru) {
		return 0, io.EOF
	}

	size, err := r.Reader.Read(p)
	if size > 0 {
		at := r.now()
		r.Events = append(r.Events, IOEvent{
			Timestamp: at,
			Size:      size,
		})
		r.SizeRead += int64(size)

		if r.onRead != nil {
			r.onRead(r.SizeRead, at)
		}
	}

	return size, err
}

func InitSamplingReader(body io.Reader, quota int64, goodThru time.Time, now func() time.Time) *SamplingReader {
	if now == nil {
		now = time.Now
	}

	return &SamplingReader{
		Reader:   body,
		Events:   []IOEvent{},
		Quota:    quota,
		GoodThru: goodThru,
		now:      now,
	}
}

package netgauge

import (
	"context"
	"crypto/rand"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var (
	errHTTPRequestFailed = errors.New("http request failed")
	errNoBytes           = errors.New("no bytes transferred")
	errMalformedResponse = errors.New("malformed response")
)

// Estimator measures latency, downlink and uplink throughput against third-party HTTP
// endpoints. Its probes never fail: exhaustion is reported through Outcome.
type Estimator struct {
	client HTTPClient
	cfg    Config
	logger zerolog.Logger
	now    func() time.Time
	random io.Reader
}

type Option func(*Estimator)

// WithClock replaces the wall clock used to time transfers.
func WithClock(now func() time.Time) Option { return func(e *Estimator) { e.now = now } }

func WithLogger(l zerolog.Logger) Option { return func(e *Estimator) { e.logger = l } }

// WithRandom replaces the entropy source of upload payloads.
func WithRandom(r io.Reader) Option { return func(e *Estimator) { e.random = r } }

func NewEstimator(client HTTPClient, cfg *Config, opts ...Option) *Estimator {
	e := &Estimator{
		client: client,
		cfg:    *cfg,
		logger: logger,
		now:    time.Now,
		random: rand.Reader,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Estimator) newRequest(ctx context.Context, method, rawURL string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}
	if e.cfg.Network.UserAgent != "" {
		req.Header.Set("User-Agent", e.cfg.Network.UserAgent)
	}
	req.Header.Set("Cache-Control", "no-cache")
	return req, nil
}

// withQuery returns rawURL with the given parameters set, replacing existing ones.
func withQuery(rawURL string, params map[string]string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	query := u.Query()
	for k, v := range params {
		query.Set(k, v)
	}
	u.RawQuery = query.Encode()
	return u.String(), nil
}

// cacheBuster is a token, not a timing source, so it bypasses the injected clock.
func cacheBuster() string {
	return strconv.FormatInt(time.Now().UnixNano(), 10)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Wrapf(errHTTPRequestFailed, "status %d", resp.StatusCode)
	}
	return nil
}

func flushHTTPResponse(resp *http.Response) (int64, error) {
	flushedSize, err := io.Copy(io.Discard, resp.Body)
	if err != nil {
		return 0, err
	}
	err = resp.Body.Close()
	if err != nil {
		return 0, err
	}

	return flushedSize, nil
}

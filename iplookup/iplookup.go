// Package iplookup finds the public address of this host by walking an ordered chain of
// third-party endpoints until one returns a valid answer.
package iplookup

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

// NotAvailable marks a field the answering endpoint did not provide.
const NotAvailable = "N/A"

const defaultTimeout = 7 * time.Second

var (
	// ErrAllEndpointsFailed is returned, combined with every endpoint's error, when the
	// chain is exhausted.
	ErrAllEndpointsFailed = errors.New("iplookup: all endpoints failed")

	ErrHTTPRequestFailed     = errors.New("iplookup: http request failed")
	ErrEndpointReportedError = errors.New("iplookup: endpoint reported an error")
	ErrInvalidIPAddress      = errors.New("iplookup: invalid IP address")
	ErrNotIPv4               = errors.New("iplookup: not an IPv4 address")
)

type Info struct {
	IP       string `json:"ip"`
	City     string `json:"city"`
	Region   string `json:"region"`
	Country  string `json:"country"`
	ISP      string `json:"isp"`
	Timezone string `json:"timezone"`
	Colo     string `json:"colo"`
	Source   string `json:"source"`
}

func (i *Info) fillDefaults() {
	for _, field := range []*string{&i.IP, &i.City, &i.Region, &i.Country, &i.ISP, &i.Timezone, &i.Colo} {
		*field = strings.TrimSpace(*field)
		if *field == "" {
			*field = NotAvailable
		}
	}
}

// Client walks Endpoints in order. The first endpoint whose answer parses and validates
// wins; transport errors, non-2xx statuses and error payloads move on to the next one.
type Client struct {
	HTTP      *resty.Client
	Endpoints []Endpoint
	Logger    zerolog.Logger
	Timeout   time.Duration
}

func New(httpClient *http.Client, logger zerolog.Logger) *Client {
	restyClient := resty.NewWithClient(httpClient).
		SetHeader("Accept", "application/json, text/plain").
		SetLogger(restyLogger{logger})

	return &Client{
		HTTP:      restyClient,
		Endpoints: DefaultEndpoints(RequireIPv4),
		Logger:    logger,
		Timeout:   defaultTimeout,
	}
}

func (c *Client) Lookup(ctx context.Context) (*Info, error) {
	var errs error

	for _, endpoint := range c.Endpoints {
		info, err := c.lookupEndpoint(ctx, endpoint)
		if err == nil {
			c.Logger.Debug().Str("endpoint", endpoint.Name).Str("ip", info.IP).Msg("iplookup: resolved")
			return info, nil
		}

		c.Logger.Debug().Str("endpoint", endpoint.Name).Err(err).Msg("iplookup: endpoint failed")
		errs = multierr.Append(errs, errors.Wrap(err, endpoint.Name))

		if ctx.Err() != nil {
			break
		}
	}

	return nil, multierr.Append(ErrAllEndpointsFailed, errs)
}

func (c *Client) lookupEndpoint(ctx context.Context, endpoint Endpoint) (*Info, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	resp, err := c.HTTP.R().SetContext(ctx).Get(endpoint.URL)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, errors.Wrapf(ErrHTTPRequestFailed, "status %d", resp.StatusCode())
	}

	decoded := decodeResponse(resp.Header(), resp.Body())
	if err := decoded.reportedError(); err != nil {
		return nil, err
	}

	info := endpoint.Parse(decoded)
	if info == nil {
		return nil, ErrInvalidIPAddress
	}
	info.fillDefaults()
	info.Source = endpoint.Name

	validate := endpoint.Validate
	if validate == nil {
		validate = RequireIPv4
	}
	if err := validate(info); err != nil {
		return nil, err
	}

	return info, nil
}

// restyLogger routes resty's own diagnostics to zerolog.
type restyLogger struct {
	logger zerolog.Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) { l.logger.Error().Msgf(format, v...) }
func (l restyLogger) Warnf(format string, v ...interface{})  { l.logger.Warn().Msgf(format, v...) }
func (l restyLogger) Debugf(format string, v ...interface{}) { l.logger.Debug().Msgf(format, v...) }

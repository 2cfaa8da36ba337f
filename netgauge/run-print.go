package netgauge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/pkg/errors"

	"github.com/makotom/netgauge/iplookup"
)

var (
	labelColor        = color.New(color.Bold)
	unmeasurableColor = color.New(color.FgRed)
)

func printMetadata(printer io.Writer, info *iplookup.Info) {
	if info == nil {
		return
	}
	fmt.Fprintf(printer, "%s %s (via %s)\n", labelColor.Sprint("SrcIP:"), info.IP, info.Source)
	fmt.Fprintf(printer, "%s %s, %s, %s\n", labelColor.Sprint("SrcLocation:"), info.City, info.Region, info.Country)
	fmt.Fprintf(printer, "%s %s\n", labelColor.Sprint("SrcISP:"), info.ISP)
	fmt.Fprintf(printer, "%s %s\n", labelColor.Sprint("SrcTimezone:"), info.Timezone)
	if info.Colo != iplookup.NotAvailable {
		fmt.Fprintf(printer, "%s %s\n", labelColor.Sprint("DstColocation:"), info.Colo)
	}
}

func printRTTMeasurement(printer io.Writer, measurement LatencyResult) {
	if !measurement.Measured() {
		fmt.Fprintf(printer, "%s %s (%d/%d attempts failed)\n",
			labelColor.Sprint("RTT:"), unmeasurableColor.Sprint("unmeasurable"), measurement.NFailed, measurement.NAttempts)
		return
	}

	fmt.Fprintf(printer, "%s %d ms (%s)\n", labelColor.Sprint("RTT:"), measurement.Millis, measurement.Aggregate)
	if stats := measurement.Stats; stats != nil {
		fmt.Fprintf(printer, "RTT-min: %.3f ms\n", stats.Min)
		fmt.Fprintf(printer, "RTT-max: %.3f ms\n", stats.Max)
		fmt.Fprintf(printer, "RTT-stderr: %.3f ms\n", stats.StdErr)
	}
	fmt.Fprintf(printer, "RTT-n: %d\n", measurement.NAttempts-measurement.NFailed)
}

func printSpeedMeasurement(printer io.Writer, gauge GaugeConfig, measurement SpeedResult) {
	label := measurement.Direction.Label()

	if !measurement.Measured() {
		fmt.Fprintf(printer, "%s %s (%d attempts failed)\n",
			labelColor.Sprintf("%s:", label), unmeasurableColor.Sprint("unmeasurable"), measurement.NFailed)
		return
	}

	dial := MapGauge(measurement.Mbps, gauge.MaxMbps)
	fmt.Fprintf(printer, "%s %.2f Mbps (%.0f%% of %.0f Mbps scale)\n",
		labelColor.Sprintf("%s:", label), measurement.Mbps, dial.Fraction*100, gauge.MaxMbps)
	fmt.Fprintf(printer, "%s-gauge: %.1f deg, arc offset %.2f\n", label, dial.Angle, dial.ArcOffset(gauge.ArcLength))
	if measurement.Peak != nil {
		fmt.Fprintf(printer, "%s-max: %.3f Mbps\n", label, measurement.Peak.Max)
	}
	fmt.Fprintf(printer, "%s-tx: %s in %.3f s\n", label, humanize.IBytes(uint64(measurement.TXSize)), measurement.Duration.Seconds())
	fmt.Fprintf(printer, "%s-n: %d (failed %d)\n", label, measurement.NTX, measurement.NFailed)
	if measurement.Fallback {
		fmt.Fprintf(printer, "%s-fallback: true\n", label)
	}
}

// printingEmitter prints each result as soon as it is known and forwards progress to the
// wrapped emitter.
type printingEmitter struct {
	Emitter
	printer io.Writer
	gauge   GaugeConfig
}

func (e *printingEmitter) OnLatency(result LatencyResult) {
	e.Emitter.OnLatency(result)
	printRTTMeasurement(e.printer, result)
	fmt.Fprintln(e.printer)
}

func (e *printingEmitter) OnSpeed(result SpeedResult) {
	e.Emitter.OnSpeed(result)
	printSpeedMeasurement(e.printer, e.gauge, result)
	fmt.Fprintln(e.printer)
}

func newProgressEmitter(cfg *Config) Emitter {
	switch cfg.Progress.Style {
	case ProgressStyleBar:
		return NewBarEmitter(os.Stderr, cfg.Gauge)
	case ProgressStyleLog:
		return &LogEmitter{Logger: logger}
	default:
		return NopEmitter{}
	}
}

func LookupIP(ctx context.Context, client *http.Client, cfg *Config) (*iplookup.Info, error) {
	lookup := iplookup.New(client, logger)
	if cfg.IPLookup.AnyFamily {
		lookup.Endpoints = iplookup.DefaultEndpoints(iplookup.RequireIP)
	}
	lookup.Timeout = cfg.IPLookup.Timeout

	return lookup.Lookup(ctx)
}

type jsonReport struct {
	IP *iplookup.Info `json:"ip,omitempty"`
	*Report
}

func printJSON(printer io.Writer, v any) error {
	encoder := json.NewEncoder(printer)
	encoder.SetIndent("", "  ")
	return errors.Wrap(encoder.Encode(v), "could not encode report")
}

// RunAndPrint looks up the source address, then measures latency, downlink and uplink in
// sequence, printing each result as it completes (or one JSON document at the end).
func RunAndPrint(ctx context.Context, printer io.Writer, cfg *Config, asJSON bool) error {
	client := NewHTTPClient(cfg.Network)
	defer client.CloseIdleConnections()

	var info *iplookup.Info
	if !cfg.IPLookup.Skip {
		var err error
		info, err = LookupIP(ctx, client, cfg)
		if err != nil {
			logger.Warn().Err(err).Msg("could not look up source address")
		} else if !asJSON {
			printMetadata(printer, info)
			fmt.Fprintln(printer)
		}
	}

	emitter := newProgressEmitter(cfg)
	if !asJSON {
		emitter = &printingEmitter{Emitter: emitter, printer: printer, gauge: cfg.Gauge}
	}

	runner := NewRunner(NewEstimator(client, cfg, WithLogger(logger)))
	report, err := runner.Run(ctx, emitter)
	if err != nil {
		return errors.Wrap(err, "measurement run failed")
	}

	if asJSON {
		return printJSON(printer, jsonReport{IP: info, Report: report})
	}
	return nil
}

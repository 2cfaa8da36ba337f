package netgauge

import (
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	BuildName       = "dev"
	BuildAnnotation = "git"
)

type cmdOpts struct {
	configPath    string
	testIP4       bool
	testIP6       bool
	asJSON        bool
	skipIP        bool
	progressStyle string
	logLevel      string
	mode          string
	duration      time.Duration
	maxMbps       float64
}

// loadConfig applies the flags the user set explicitly on top of file and environment.
func (o *cmdOpts) loadConfig(flags *pflag.FlagSet) (*Config, error) {
	cfg, err := LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}

	if flags.Changed("skip-ip") {
		cfg.IPLookup.Skip = o.skipIP
	}
	if flags.Changed("progress") {
		cfg.Progress.Style = o.progressStyle
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if flags.Changed("mode") {
		cfg.Download.Mode = o.mode
	}
	if flags.Changed("duration") {
		cfg.Download.StreamDuration = o.duration
	}
	if flags.Changed("max-mbps") {
		cfg.Gauge.MaxMbps = o.maxMbps
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}

	level, err := ParseLogLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	SetLogLevel(level)

	return cfg, nil
}

// protocols mirrors -4/-6: neither flag keeps the configured protocol, both run twice.
func (o *cmdOpts) protocols(cfg *Config) []string {
	if !o.testIP4 && !o.testIP6 {
		return []string{cfg.Network.Protocol}
	}

	ret := []string{}
	if o.testIP4 {
		ret = append(ret, "tcp4")
	}
	if o.testIP6 {
		ret = append(ret, "tcp6")
	}
	return ret
}

func printBanner(printer io.Writer) {
	fmt.Fprintf(printer, "netgauge %s (%s)\n", BuildName, BuildAnnotation)
}

func printTimestamp(printer io.Writer) {
	fmt.Fprintln(printer)
	fmt.Fprintf(printer, "At: %s\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintln(printer)
}

func NewRootCommand() *cobra.Command {
	opts := &cmdOpts{}

	cmd := &cobra.Command{
		Use:           "netgauge",
		Short:         "Measure latency and throughput against public HTTP endpoints",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			printer := cmd.OutOrStdout()

			if !opts.asJSON {
				printBanner(printer)
			}
			for _, protocol := range opts.protocols(cfg) {
				runCfg := *cfg
				runCfg.Network.Protocol = protocol
				if protocol == "tcp6" {
					runCfg.IPLookup.AnyFamily = true
				}

				if !opts.asJSON {
					printTimestamp(printer)
				}
				if err := RunAndPrint(cmd.Context(), printer, &runCfg, opts.asJSON); err != nil {
					return errors.Wrapf(err, "over %s", protocol)
				}
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file")
	flags.BoolVarP(&opts.testIP4, "ip4", "4", false, "Ensure measurements over IPv4")
	flags.BoolVarP(&opts.testIP6, "ip6", "6", false, "Ensure measurements over IPv6")
	flags.BoolVar(&opts.asJSON, "json", false, "Print results as JSON")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.Flags().BoolVar(&opts.skipIP, "skip-ip", false, "Skip the source address lookup")
	cmd.Flags().StringVar(&opts.progressStyle, "progress", ProgressStyleBar, "Progress display (bar, log, none)")
	cmd.Flags().StringVar(&opts.mode, "mode", DownloadModeFixed, "Download policy (fixed, stream)")
	cmd.Flags().DurationVar(&opts.duration, "duration", 8*time.Second, "Duration cap of the streaming download")
	cmd.Flags().Float64Var(&opts.maxMbps, "max-mbps", defaultGaugeMaxMbps, "Full scale of the gauge in Mbps")

	cmd.AddCommand(newIPCommand(opts), newVersionCommand())

	return cmd
}

func newIPCommand(opts *cmdOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "ip",
		Short: "Look up the public source address only",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			printer := cmd.OutOrStdout()

			for _, protocol := range opts.protocols(cfg) {
				runCfg := *cfg
				runCfg.Network.Protocol = protocol
				if protocol == "tcp6" {
					runCfg.IPLookup.AnyFamily = true
				}

				client := NewHTTPClient(runCfg.Network)
				info, err := LookupIP(cmd.Context(), client, &runCfg)
				client.CloseIdleConnections()
				if err != nil {
					return errors.Wrapf(err, "could not look up source address over %s", protocol)
				}

				if opts.asJSON {
					if err := printJSON(printer, info); err != nil {
						return err
					}
					continue
				}
				printMetadata(printer, info)
			}
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information and exit",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printBanner(cmd.OutOrStdout())
		},
	}
}

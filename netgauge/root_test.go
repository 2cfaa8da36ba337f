package netgauge

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"gotest.tools/v3/assert"
)

func TestProtocols(t *testing.T) {
	cfg := DefaultConfig()

	assert.DeepEqual(t, (&cmdOpts{}).protocols(cfg), []string{"tcp"})
	assert.DeepEqual(t, (&cmdOpts{testIP4: true}).protocols(cfg), []string{"tcp4"})
	assert.DeepEqual(t, (&cmdOpts{testIP6: true}).protocols(cfg), []string{"tcp6"})
	assert.DeepEqual(t, (&cmdOpts{testIP4: true, testIP6: true}).protocols(cfg), []string{"tcp4", "tcp6"})

	cfg.Network.Protocol = "tcp6"
	assert.DeepEqual(t, (&cmdOpts{}).protocols(cfg), []string{"tcp6"})
}

func TestVersionCommand(t *testing.T) {
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetArgs([]string{"version"})

	assert.NilError(t, cmd.Execute())
	assert.Equal(t, out.String(), "netgauge "+BuildName+" ("+BuildAnnotation+")\n")
}

func TestLoadConfig_ChangedFlagsWin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netgauge.yaml")
	assert.NilError(t, os.WriteFile(path, []byte("download:\n  mode: stream\n  stream_duration: 4s\n"), 0o644))

	opts := &cmdOpts{configPath: path, logLevel: "info"}
	flags := pflag.NewFlagSet("netgauge", pflag.ContinueOnError)
	flags.StringVar(&opts.mode, "mode", DownloadModeFixed, "")
	flags.DurationVar(&opts.duration, "duration", 8*time.Second, "")
	flags.Float64Var(&opts.maxMbps, "max-mbps", defaultGaugeMaxMbps, "")
	assert.NilError(t, flags.Parse([]string{"--max-mbps", "500"}))

	cfg, err := opts.loadConfig(flags)

	assert.NilError(t, err)
	assert.Equal(t, cfg.Download.Mode, DownloadModeStream)
	assert.Equal(t, cfg.Download.StreamDuration, 4*time.Second)
	assert.Equal(t, cfg.Gauge.MaxMbps, 500.0)

	assert.NilError(t, flags.Parse([]string{"--mode", "fixed"}))
	cfg, err = opts.loadConfig(flags)

	assert.NilError(t, err)
	assert.Equal(t, cfg.Download.Mode, DownloadModeFixed)
}

func TestRootCommand_RejectsInvalidFlag(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--skip-ip", "--progress", "dial"})

	err := cmd.Execute()

	assert.ErrorContains(t, err, "progress.style")
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/makotom/netgauge/netgauge"
)

var (
	BuildName       = "\b"
	BuildAnnotation = "git"
)

func main() {
	netgauge.BuildName = BuildName
	netgauge.BuildAnnotation = BuildAnnotation

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := netgauge.NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

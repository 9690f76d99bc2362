package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/iudanet/camerannonces/internal/client/app"
	"github.com/iudanet/camerannonces/internal/client/cli"
	"github.com/iudanet/camerannonces/internal/client/iocli"
	"github.com/iudanet/camerannonces/internal/config"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	build := cli.BuildInfo{Version: Version, BuildDate: BuildDate, GitCommit: GitCommit}
	c := cli.New(iocli.NewStdio(), cfg, app.New, build)

	if err := c.Execute(ctx, os.Args[1:]); err != nil {
		stop()
		os.Exit(1)
	}
}

// Package main starts the crowdfund ledger daemon.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/blockberries/crowdfund/internal/cmd/crowdfundd"
	"github.com/blockberries/crowdfund/internal/config"
)

func main() {
	cfg, err := crowdfundd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := crowdfundd.Run(ctx, cfg); err != nil {
		config.Exitf("failed to serve: %v", err)
	}
}

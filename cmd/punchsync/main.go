// punchsync pulls attendance punches from the registered terminals, sends the
// daily first/last records to the collector and advances the watermark.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"axiapac.com/punchsync/app"
	"axiapac.com/punchsync/config"
	"axiapac.com/punchsync/core"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errors.Is(err, core.ErrConfig) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run() error {
	var configPath, configParam string
	var once, seed, noServer bool

	flagSet := pflag.NewFlagSet("punchsync", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "punchsync.yaml", "path to the YAML configuration")
	flagSet.StringVar(&configParam, "config-param", "", "read the configuration from this SSM parameter instead of --config")
	flagSet.BoolVar(&once, "once", false, "run a single sweep and exit")
	flagSet.BoolVar(&seed, "seed-watermark", false, "create the watermark at the start of today when it is missing")
	flagSet.BoolVar(&noServer, "no-server", false, "do not start the status server")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg *config.Config
	var err error
	if configParam != "" {
		cfg, err = config.LoadParameter(ctx, configParam)
	} else {
		cfg, err = config.Load(configPath)
	}
	if err != nil {
		return err
	}

	a, err := app.New(ctx, cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	if seed {
		if err := a.SeedWatermark(ctx); err != nil {
			return err
		}
	}

	if once {
		a.Scheduler.MaxSweeps = 1
	} else if !noServer {
		server, err := a.Server()
		if err != nil {
			return err
		}
		go func() {
			if err := server.Start(ctx); err != nil {
				a.Logger.Error("status server stopped", "error", err)
			}
		}()
	}

	a.Logger.Info("punchsync started", "devices", len(a.Devices), "interval", cfg.Sync.Interval, "offset", cfg.Sync.Offset)
	err = a.Scheduler.Run(ctx)
	if errors.Is(err, context.Canceled) {
		a.Logger.Info("punchsync stopped")
		return nil
	}
	return err
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"

	"github.com/dd0wney/cluso-graphpart/pkg/batch"
	"github.com/dd0wney/cluso-graphpart/pkg/config"
	"github.com/dd0wney/cluso-graphpart/pkg/dispatch"
	"github.com/dd0wney/cluso-graphpart/pkg/health"
	"github.com/dd0wney/cluso-graphpart/pkg/logging"
	"github.com/dd0wney/cluso-graphpart/pkg/metrics"
	"github.com/dd0wney/cluso-graphpart/pkg/server"
	"github.com/dd0wney/cluso-graphpart/pkg/transport"
)

func main() {
	configPath := flag.String("config", os.Getenv("GRAPHPART_CONFIG"), "YAML configuration file")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	nngAddr := flag.String("nng", "", "socket listen address, e.g. tcp://0.0.0.0:40899 (overrides config)")
	flag.Parse()

	if err := run(*configPath, *addr, *nngAddr); err != nil {
		fmt.Fprintf(os.Stderr, "graphpart-server: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, addr, nngAddr string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if nngAddr != "" {
		cfg.NNG.Addr = nngAddr
	}

	logger, closer, err := logging.Open(cfg.Logging.Output, cfg.LogLevel())
	if err != nil {
		return err
	}
	defer closer.Close()
	logging.SetDefaultLogger(logger)

	e, err := cfg.Engine.Open()
	if err != nil {
		return err
	}
	logger.Info("graphpart server starting",
		logging.Engine(e.Name()),
		logging.String("addr", cfg.Server.Addr),
		logging.Bool("auth", cfg.Auth.Enabled()))

	reg := metrics.NewRegistry()
	d := dispatch.New(e, dispatch.Config{Logger: logger, Metrics: reg})

	runner, err := batch.NewRunner(d, batch.Config{
		Workers:   cfg.Batch.Workers,
		QueueSize: cfg.Batch.QueueSize,
		Logger:    logger,
		Metrics:   reg,
	})
	if err != nil {
		return err
	}
	defer runner.Close()

	authn, err := cfg.Auth.Authenticator()
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	srv := server.New(d, runner, server.Config{
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Logger:       logger,
		Metrics:      reg,
		Auth:         authn,
	})
	gs := server.NewGracefulServer(cfg.Server, srv, logger)
	srv.Health().Register(health.Readiness, "drain", health.DrainCheck(gs.IsShuttingDown))
	gs.SetReloadFunc(func() error {
		next, err := config.Load(configPath)
		if err != nil {
			return err
		}
		logger.SetLevel(next.LogLevel())
		logger.Info("configuration reloaded", logging.String("log_level", next.Logging.Level))
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	if cfg.NNG.Addr != "" {
		ts, err := transport.NewServer(srv, transport.Config{
			Workers:       cfg.Batch.Workers,
			MaxFrameBytes: cfg.Server.MaxBodyBytes,
			Logger:        logger,
			Metrics:       reg,
			Auth:          authn,
		})
		if err != nil {
			return err
		}
		if err := ts.Listen(cfg.NNG.Addr); err != nil {
			ts.Close()
			return fmt.Errorf("listen %s: %w", cfg.NNG.Addr, err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ts.Serve(ctx); err != nil {
				logger.Error("transport stopped", logging.Error(err))
			}
		}()
	}

	err = gs.Run(ctx)
	cancel()
	wg.Wait()
	logger.Info("graphpart server stopped")
	return err
}

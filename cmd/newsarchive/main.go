package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"newsarchive/internal/app"
	"newsarchive/internal/config"
	"newsarchive/internal/logging"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML configuration")
		startDate  = flag.String("start", "", "first archive date (YYYY-MM-DD), overrides config")
		endDate    = flag.String("end", "", "last archive date (YYYY-MM-DD), overrides config")
		outputPath = flag.String("out", "", "output directory, overrides config")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.New("info").Error("configuration failed", "error", err)
		os.Exit(1)
	}
	if *startDate != "" {
		cfg.Crawl.StartDate = *startDate
	}
	if *endDate != "" {
		cfg.Crawl.EndDate = *endDate
	}
	if *outputPath != "" {
		cfg.Output.Path = *outputPath
	}

	logger := logging.New(cfg.Logging.Level)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		logger.Error("crawl stopped", "error", err)
		os.Exit(1)
	}
}

package app

import (
	"context"
	"fmt"
	"log/slog"

	"newsarchive/internal/config"
	"newsarchive/internal/infrastructure/fetch"
	"newsarchive/internal/infrastructure/parse"
	"newsarchive/internal/infrastructure/storage"
	"newsarchive/internal/logging"
	"newsarchive/internal/site"
	"newsarchive/internal/usecase"
)

// Application wires configuration to the crawl use case.
type Application struct {
	cfg     config.Config
	profile site.Profile
	logger  *slog.Logger
}

// New resolves the site profile and builds a runnable application.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	profile, err := site.DefaultRegistry().Resolve(cfg.Site.Profile)
	if err != nil {
		return nil, fmt.Errorf("configuration: %w", err)
	}
	if cfg.Site.BaseURL != "" {
		profile.BaseURL = cfg.Site.BaseURL
	}

	return &Application{cfg: cfg, profile: profile, logger: baseLogger}, nil
}

// Run executes one crawl over the configured date range. The error is
// nil when the range was walked to completion, even if individual dates
// or articles were skipped.
func (a *Application) Run(ctx context.Context) error {
	start, end, err := a.cfg.Crawl.Dates()
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}

	lock, err := storage.AcquireLock(a.cfg.Output.Path)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			a.logger.Warn("release lock", "error", err)
		}
	}()

	corpus, err := storage.OpenCorpus(a.cfg.Output.Path, a.logger.With("component", "corpus"))
	if err != nil {
		return err
	}
	defer func() {
		if err := corpus.Close(); err != nil {
			a.logger.Warn("close corpus", "error", err)
		}
	}()

	coordinator := usecase.NewCoordinator(usecase.CoordinatorDeps{
		Fetcher:         fetch.New(a.cfg.HTTP, a.profile, a.logger.With("component", "fetcher")),
		Listings:        parse.NewListingParser(a.profile, a.logger.With("component", "listing")),
		Articles:        parse.NewArticleParser(a.profile, a.logger.With("component", "article")),
		Corpus:          corpus,
		States:          storage.NewStateStore(a.cfg.Output.Path),
		ArchiveURL:      a.profile.ArchiveURL,
		CheckpointEvery: a.cfg.Crawl.CheckpointEvery,
		Logger:          a.logger.With("component", "coordinator"),
	})

	summary, err := coordinator.Run(ctx, start, end)
	a.logger.Info("run summary",
		"dates_completed", summary.DatesCompleted,
		"dates_failed", summary.DatesFailed,
		"articles_stored", summary.ArticlesStored,
		"articles_skipped", summary.ArticlesSkipped,
	)
	return err
}

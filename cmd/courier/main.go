// ABOUTME: Main entry point for the digest courier
// ABOUTME: Wires together all components and runs once or on a cron schedule

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"digest-courier/core/compose"
	"digest-courier/core/domain"
	"digest-courier/core/enrich"
	"digest-courier/core/feed"
	"digest-courier/core/interfaces"
	"digest-courier/core/pipeline"
	"digest-courier/infrastructure/campaign/listmonk"
	stdhttp "digest-courier/infrastructure/http/standard"
	logruslogger "digest-courier/infrastructure/logger/logrus"
	cronscheduler "digest-courier/infrastructure/scheduler/cron"
	filestore "digest-courier/infrastructure/store/file"
	memorystore "digest-courier/infrastructure/store/memory"
	redisstore "digest-courier/infrastructure/store/redis"
	sqlitestore "digest-courier/infrastructure/store/sqlite"
	"digest-courier/pkg/config"
	"digest-courier/pkg/retry"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	once := flag.Bool("once", false, "run a single digest cycle and exit")
	dryRun := flag.Bool("dry-run", false, "compose the digest but skip delivery and ledger commit")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *dryRun {
		cfg.DryRun = true
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Create logger
	logger := logruslogger.New(os.Stdout, cfg.LogLevel)
	logger.Info("Starting digest courier", map[string]interface{}{
		"feed":        cfg.Feed.URL,
		"ledger_type": cfg.Ledger.Type,
		"schedule":    cfg.Schedule,
		"dry_run":     cfg.DryRun,
	})

	// Create the deduplication ledger
	store, err := openStore(cfg, logger)
	if err != nil {
		logger.Error("Failed to open ledger", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	// Create HTTP client
	httpClient := stdhttp.NewStandardHTTPClient(time.Duration(cfg.Feed.HTTPTimeout) * time.Second)

	// Create dependencies container
	deps := interfaces.Dependencies{
		HTTPClient: httpClient,
		Logger:     logger,
	}

	// Create services
	source := feed.NewSource(deps)
	composer := compose.NewComposer(cfg.Digest.TemplatePath, logger)

	// A nil enricher skips article page fetches entirely.
	var enricher interfaces.Enricher
	if cfg.EnrichEnabled {
		enricher = enrich.NewService(deps)
	} else {
		logger.Info("Enrichment disabled: digests carry feed content only", nil)
	}

	// Create campaign client
	var client interfaces.CampaignClient
	if !cfg.DryRun {
		policy := retry.Default()
		policy.MaxAttempts = cfg.Listmonk.RetryMaxAttempts
		policy.BaseDelay = time.Duration(cfg.Listmonk.RetryBaseDelay) * time.Second
		policy.MaxDelay = time.Duration(cfg.Listmonk.RetryMaxDelay) * time.Second
		client, err = listmonk.NewClient(listmonk.Config{
			BaseURL:  cfg.Listmonk.URL,
			Username: cfg.Listmonk.Username,
			APIToken: cfg.Listmonk.APIToken,
			Timeout:  time.Duration(cfg.Listmonk.Timeout) * time.Second,
		}, policy, logger)
		if err != nil {
			logger.Error("Failed to create campaign client", map[string]interface{}{"error": err.Error()})
			os.Exit(1)
		}
	}

	sendAt, err := cfg.Listmonk.SendAtTime()
	if err != nil {
		logger.Error("Invalid send time", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	p := pipeline.New(source, store, enricher, composer, client, logger, pipeline.Options{
		FeedURL: cfg.Feed.URL,
		Metadata: domain.DigestMetadata{
			Title:   cfg.Digest.Title,
			Preface: cfg.Digest.Preface,
		},
		ListIDs:        cfg.Listmonk.Lists,
		TemplateID:     cfg.Listmonk.TemplateID,
		Tags:           cfg.Listmonk.Tags,
		SendAt:         sendAt,
		TestEmails:     cfg.Listmonk.TestEmails,
		FirstRunRecent: cfg.Digest.FirstRunRecent,
		DryRun:         cfg.DryRun,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once {
		err := p.Run(ctx)
		closeStore(store, logger)
		if err != nil {
			logger.Error("Digest run failed", map[string]interface{}{"error": err.Error()})
			os.Exit(1)
		}
		logger.Info("Digest run finished", nil)
		return
	}

	scheduler, err := cronscheduler.New(ctx, cfg.Schedule, p, logger)
	if err != nil {
		logger.Error("Failed to create scheduler", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	scheduler.Start()
	logger.Info("Scheduler started", map[string]interface{}{"schedule": cfg.Schedule})

	<-ctx.Done()

	logger.Info("Shutting down...", nil)
	scheduler.Stop()
	closeStore(store, logger)
	logger.Info("Courier stopped", nil)
}

// closeStore releases backend resources, including the file ledger's
// cross-process lock, on the ledgers that hold any.
func closeStore(store interfaces.LinkStore, logger interfaces.Logger) {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return
	}
	if err := closer.Close(); err != nil {
		logger.Warn("Failed to close ledger", map[string]interface{}{"error": err.Error()})
	}
}

// openStore builds the ledger backend named by the configuration
func openStore(cfg *config.Config, logger interfaces.Logger) (interfaces.LinkStore, error) {
	switch cfg.Ledger.Type {
	case "sqlite":
		return sqlitestore.Open(cfg.Ledger.Path)
	case "redis":
		return redisstore.Open(redisstore.Options{
			Address:  cfg.Ledger.Redis.Address,
			Password: cfg.Ledger.Redis.Password,
			DB:       cfg.Ledger.Redis.DB,
			Key:      cfg.Ledger.Redis.Key,
		})
	case "memory":
		logger.Warn("Using in-memory ledger: every restart is a first run", nil)
		return memorystore.New(), nil
	default:
		return filestore.Open(cfg.Ledger.Path)
	}
}

// Package infrastructure provides concrete implementations of the interfaces
// defined in the core package. These implementations handle external concerns
// such as durable storage, HTTP communication, scheduling, and logging.
//
// The infrastructure package is organized by technical concern:
//
// - store/file: Flat-file ledger, one canonical link per line
// - store/sqlite: SQLite-backed ledger with transactional commits
// - store/redis: Redis set ledger for multi-host deployments
// - store/memory: In-memory ledger for tests and throwaway runs
// - campaign/listmonk: Listmonk campaign API client
// - scheduler/cron: Cron-driven run trigger with overlap skipping
// - http/standard: Standard library HTTP client with retry logic
// - logger/logrus: Structured logger built on logrus
//
// # Design Philosophy
//
// Infrastructure components are designed to be:
// - Pluggable: Easy to swap implementations
// - Configurable: Accept configuration objects
// - Testable: Include both unit and integration tests
// - Production-ready: Include retries, timeouts, and error handling
//
// # Ledger Implementations
//
// File ledger example:
//
//	store, err := file.Open("processed_links.txt")
//	unseen, err := store.FilterUnseen(ctx, items)
//
// Redis ledger example:
//
//	store, err := redis.Open(redis.Options{
//	    Address: "localhost:6379",
//	})
//
// # HTTP Client
//
// The HTTP client includes automatic retry logic for transient failures:
//
//	client := standard.NewStandardHTTPClient(30 * time.Second)
//	resp, err := client.Get(ctx, "https://example.com/feed.xml")
//	if err != nil {
//	    // Handle error
//	}
//	defer resp.Body().Close()
//
// # Logger
//
// The logger supports structured logging with fields:
//
//	logger := logrus.New(os.Stdout, "info")
//	logger.Info("digest delivered", map[string]interface{}{
//	    "campaign_id": 42,
//	    "items":       3,
//	})
package infrastructure

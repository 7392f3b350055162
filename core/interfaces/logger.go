// ABOUTME: Logger abstraction for structured logging throughout the application
// ABOUTME: Keeps core packages independent of the concrete logging library

package interfaces

// Logger defines the interface for logging throughout the application.
// This abstraction allows for different logging implementations (logrus,
// zap, etc.) while maintaining a consistent interface.
//
// Example usage:
//
//	logger.Info("fetched feed", map[string]interface{}{
//		"url":   "https://example.com/feed.xml",
//		"items": 42,
//	})
type Logger interface {
	// Debug logs a debug level message with optional structured fields.
	Debug(msg string, fields map[string]interface{})

	// Info logs an info level message with optional structured fields.
	Info(msg string, fields map[string]interface{})

	// Warn logs a warning level message with optional structured fields.
	Warn(msg string, fields map[string]interface{})

	// Error logs an error level message with optional structured fields.
	Error(msg string, fields map[string]interface{})
}

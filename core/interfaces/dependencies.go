// ABOUTME: Dependencies container provides dependency injection for core services
// ABOUTME: Defines the contract for dependencies required by the digest pipeline

package interfaces

// Dependencies holds the external collaborators shared by the core
// services. Passing an explicit container instead of module-level
// singletons keeps every service testable with in-memory fakes.
type Dependencies struct {
	// HTTPClient provides HTTP request functionality
	HTTPClient HTTPClient

	// Logger provides structured logging
	Logger Logger
}

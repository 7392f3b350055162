// ABOUTME: HTTP client abstraction used by core services for outbound fetches
// ABOUTME: Allows swapping the transport and mocking network calls in tests

package interfaces

import (
	"context"
	"io"
)

// HTTPClient defines the interface for making HTTP requests from core
// services (feed fetches, article page fetches). The campaign API client
// owns its own transport because it layers auth, retry, and rate limiting
// on top.
type HTTPClient interface {
	// Get performs an HTTP GET request to the specified URL.
	// Returns a Response interface or an error if the request fails.
	Get(ctx context.Context, url string) (Response, error)
}

// Response defines the interface for HTTP responses.
type Response interface {
	// StatusCode returns the HTTP status code of the response.
	StatusCode() int

	// Body returns the response body as an io.ReadCloser.
	// The caller is responsible for closing the body when done.
	Body() io.ReadCloser

	// Header returns the value of the specified header.
	// Header names are case-insensitive.
	Header(key string) string
}

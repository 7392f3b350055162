// ABOUTME: DigestDocument domain model holds the rendered HTML artifact for one run
// ABOUTME: Ephemeral output of the composer, consumed by the campaign client

package domain

// DigestDocument is the rendered digest for a single pipeline run. The
// HTML has template variables expanded and stylesheet rules inlined, with
// the remote platform's own merge tags left untouched for the platform to
// resolve at send time.
type DigestDocument struct {
	// HTML is the fully rendered and inlined email body
	HTML string

	// AltText is the plain-text alternative body derived from HTML
	AltText string

	// ItemCount is the number of feed items rendered into the document
	ItemCount int
}

// DigestMetadata carries the run-level values substituted into the
// template alongside the item list.
type DigestMetadata struct {
	// Title is the digest headline, also used as the campaign subject
	Title string

	// Preface is optional introductory copy above the item list
	Preface string
}

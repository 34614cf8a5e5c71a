package serp

import "context"

// Provider abstracts a search engine that returns a results page for a query.
// Implementations may use scraping, official APIs, or other mechanisms.
//
// Search returns the raw HTML body of the first results page. A failed or
// refused request yields an empty body and a nil error; only caller
// cancellation is reported as an error.
type Provider interface {
	Search(ctx context.Context, query string) ([]byte, error)
}

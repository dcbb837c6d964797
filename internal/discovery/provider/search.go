package provider

import (
	"context"
	"time"
)

// Provider is a literature-discovery search backend: given a keyword
// derived from a resource's subjects, it returns candidate web results
// for the recommendation engine to score and surface (spec §4.10).
type Provider interface {
	Search(ctx context.Context, query string, config Config) ([]Result, error)
	GetName() string
}

// Config holds per-search parameters.
type Config struct {
	MaxResults int           // maximum number of results to return
	SinceTime  time.Duration // only return results newer than this duration
	Language   string        // language preference (e.g., "en", "es")
}

// Result is one provider hit, normalized across providers.
type Result struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Snippet     string    `json:"snippet"`
	Domain      string    `json:"domain"`
	PublishedAt time.Time `json:"published_at,omitempty"`
	Source      string    `json:"source"`
	Rank        int       `json:"rank"`
}

package citations

import (
	"context"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/core"
)

// ResourceLookup is the subset of a resource repository resolution
// needs: find a resource by its normalized source URL.
type ResourceLookup interface {
	FindBySourceURL(ctx context.Context, normalizedURL string) (*core.Resource, bool, error)
}

// NormalizeURL lowercases the scheme/host, strips a trailing slash and
// the "www." prefix, and drops the fragment, so citation targets and
// resource source_urls compare equal despite superficial differences.
func NormalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return strings.TrimSpace(raw)
	}
	u.Fragment = ""
	u.Host = strings.ToLower(strings.TrimPrefix(strings.ToLower(u.Host), "www."))
	u.Scheme = strings.ToLower(u.Scheme)
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}

// NewCitation builds a core.Citation from an Extracted link awaiting
// resolution.
func NewCitation(sourceResourceID string, e Extracted) core.Citation {
	return core.Citation{
		ID:               uuid.NewString(),
		SourceResourceID: sourceResourceID,
		TargetURL:        e.TargetURL,
		Type:             Classify(e.TargetURL),
		ContextSnippet:   e.ContextSnippet,
		Position:         e.Position,
	}
}

// Resolve looks up each citation's normalized target_url against the
// resource table, filling in target_resource_id on a match. It is the
// body of the periodic citation-resolution job (C11's
// CitationResolutionInterval).
func Resolve(ctx context.Context, lookup ResourceLookup, citations []core.Citation) ([]core.Citation, error) {
	out := make([]core.Citation, len(citations))
	copy(out, citations)

	for i := range out {
		if out[i].TargetResourceID != nil {
			continue
		}
		resource, found, err := lookup.FindBySourceURL(ctx, NormalizeURL(out[i].TargetURL))
		if err != nil {
			return nil, err
		}
		if found {
			id := resource.ID
			out[i].TargetResourceID = &id
		}
	}
	return out, nil
}

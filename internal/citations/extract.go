// Package citations implements in-text link extraction, citation-type
// classification, batch resolution against known resources, and
// PageRank-based importance scoring (spec §4.7).
package citations

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/core"
)

// MaxCitationsPerResource caps extraction per resource (spec §4.7).
const MaxCitationsPerResource = 50

// MaxContextSnippet bounds a citation's context snippet length
// (spec §4.7, "≤100 chars").
const MaxContextSnippet = 100

// contextWindow is the number of characters captured on each side of
// an in-text link (spec §4.7, "±50 chars").
const contextWindow = 50

// Extracted is a single extracted, not-yet-resolved citation.
type Extracted struct {
	TargetURL      string
	ContextSnippet string
	Position       int
}

var urlPattern = regexp.MustCompile(`https?://[^\s)\]"'<>]+`)
var markdownLinkPattern = regexp.MustCompile(`\[([^\]]*)\]\((https?://[^)\s]+)\)`)

// Extract pulls in-text links out of raw according to format-specific
// rules and caps the result at MaxCitationsPerResource.
func Extract(format core.Format, raw []byte) []Extracted {
	var out []Extracted
	switch format {
	case core.FormatHTML:
		out = extractHTML(raw)
	case core.FormatMarkdown:
		out = extractMarkdown(string(raw))
	case core.FormatPDF:
		out = extractURLScan(string(raw))
	default:
		out = extractURLScan(string(raw))
	}
	if len(out) > MaxCitationsPerResource {
		out = out[:MaxCitationsPerResource]
	}
	return out
}

func snippetAround(text string, start, end int) string {
	lo := start - contextWindow
	if lo < 0 {
		lo = 0
	}
	hi := end + contextWindow
	if hi > len(text) {
		hi = len(text)
	}
	snippet := strings.TrimSpace(text[lo:hi])
	if len(snippet) > MaxContextSnippet {
		snippet = snippet[:MaxContextSnippet]
	}
	return snippet
}

// extractHTML scans anchor elements for href targets, using the
// enclosing block element's text to build a ±50-char context window
// around the link text (spec §4.7 "HTML").
func extractHTML(raw []byte) []Extracted {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil
	}

	var out []Extracted
	position := 0
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || !strings.HasPrefix(href, "http") {
			return
		}
		linkText := s.Text()
		parentText := s.Parent().Text()
		idx := strings.Index(parentText, linkText)
		var snippet string
		if idx >= 0 {
			snippet = snippetAround(parentText, idx, idx+len(linkText))
		} else {
			snippet = strings.TrimSpace(linkText)
			if len(snippet) > MaxContextSnippet {
				snippet = snippet[:MaxContextSnippet]
			}
		}
		out = append(out, Extracted{TargetURL: href, ContextSnippet: snippet, Position: position})
		position++
	})
	return out
}

// extractMarkdown matches `[text](url)` link syntax plus bare URLs
// (spec §4.7 "Markdown").
func extractMarkdown(text string) []Extracted {
	var out []Extracted
	seen := make(map[string]bool)
	position := 0

	for _, m := range markdownLinkPattern.FindAllStringSubmatchIndex(text, -1) {
		url := text[m[4]:m[5]]
		snippet := snippetAround(text, m[0], m[1])
		out = append(out, Extracted{TargetURL: url, ContextSnippet: snippet, Position: position})
		seen[url] = true
		position++
	}

	for _, m := range urlPattern.FindAllStringIndex(text, -1) {
		url := text[m[0]:m[1]]
		if seen[url] {
			continue
		}
		snippet := snippetAround(text, m[0], m[1])
		out = append(out, Extracted{TargetURL: url, ContextSnippet: snippet, Position: position})
		position++
	}
	return out
}

// extractURLScan is a bare regex URL scan used for PDF text (spec
// §4.7 "PDF ... regex URL scan over text") and as the fallback for any
// other plain-text format. ledongthuc/pdf exposes no hyperlink
// annotation metadata, so the annotation half of spec §4.7's PDF rule
// degrades to this same regex scan.
func extractURLScan(text string) []Extracted {
	var out []Extracted
	for i, m := range urlPattern.FindAllStringIndex(text, -1) {
		url := text[m[0]:m[1]]
		out = append(out, Extracted{TargetURL: url, ContextSnippet: snippetAround(text, m[0], m[1]), Position: i})
	}
	return out
}

// Classify assigns a CitationType from target URL domain/path
// heuristics (spec §4.7).
func Classify(targetURL string) core.CitationType {
	lowered := strings.ToLower(targetURL)
	switch {
	case strings.Contains(lowered, "github.com") && strings.Contains(lowered, "/archive"):
		return core.CitationCode
	case strings.Contains(lowered, "github.com"):
		return core.CitationCode
	case strings.Contains(lowered, "zenodo.org") || strings.Contains(lowered, "dataset"):
		return core.CitationDataset
	case strings.Contains(lowered, "arxiv.org") || strings.Contains(lowered, "doi.org"):
		return core.CitationReference
	default:
		return core.CitationGeneral
	}
}

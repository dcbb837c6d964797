// Package fetch implements the content extractor (spec §4.2): it
// retrieves a URL's bytes, detects its format, and extracts clean text
// deterministically, regardless of which storage backend or AI
// adapter the caller is wired to.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/apperr"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/core"
)

// MaxExtractedBytes bounds extracted_text length (spec §4.2, default
// 5 MB); excess is truncated with TruncationMarker appended.
const MaxExtractedBytes = 5 * 1024 * 1024

// TruncationMarker is appended when extracted text is truncated at
// MaxExtractedBytes.
const TruncationMarker = "\n\n[... truncated ...]"

// MaxRedirects is the number of redirects the HTTP client follows
// before giving up (spec §4.2, default 5).
const MaxRedirects = 5

// perHostRate caps requests to a single host so a crawl of many
// resources from the same site doesn't hammer it or trip its own
// rate limiting (spec §4.2 polite fetching).
const perHostRate = 1 * time.Second

// Result is the content extractor's output (spec §4.2).
type Result struct {
	RawBytes      []byte
	ContentType   string
	ExtractedText string
	Format        core.Format
	FetchStatus   int
}

// Extractor fetches and extracts text from a URL with a bounded
// timeout and redirect count, pacing repeated requests to the same
// host via a per-host token bucket.
type Extractor struct {
	client *http.Client

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates an Extractor with the given per-request timeout
// (spec §4.2, default 15s).
func New(timeout time.Duration) *Extractor {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Extractor{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= MaxRedirects {
					return fmt.Errorf("stopped after %d redirects", MaxRedirects)
				}
				return nil
			},
		},
		limiters: make(map[string]*rate.Limiter),
	}
}

// hostLimiter returns the token bucket for host, creating one on
// first use.
func (e *Extractor) hostLimiter(host string) *rate.Limiter {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Every(perHostRate), 1)
		e.limiters[host] = l
	}
	return l
}

// Fetch retrieves url and extracts its text per the format-detection
// order and extraction rules of spec §4.2.
func (e *Extractor) Fetch(rawURL string) (*Result, error) {
	if parsed, err := url.Parse(rawURL); err == nil && parsed.Host != "" {
		if err := e.hostLimiter(parsed.Host).Wait(context.Background()); err != nil {
			return nil, apperr.Wrap(apperr.FetchError, "rate limit wait interrupted for "+rawURL, err)
		}
	}

	resp, err := e.client.Get(rawURL)
	if err != nil {
		return nil, apperr.Wrap(apperr.FetchError, "failed to fetch "+rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperr.New(apperr.FetchError, fmt.Sprintf("unexpected status %d fetching %s", resp.StatusCode, rawURL))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.FetchError, "failed to read response body for "+rawURL, err)
	}

	contentType := resp.Header.Get("Content-Type")
	format := detectFormat(contentType, rawURL, raw)

	text, err := extractText(format, raw)
	if err != nil {
		return nil, apperr.Wrap(apperr.ExtractionError, "failed to extract text from "+rawURL, err)
	}

	return &Result{
		RawBytes:      raw,
		ContentType:   contentType,
		ExtractedText: truncate(text),
		Format:        format,
		FetchStatus:   resp.StatusCode,
	}, nil
}

// detectFormat applies the spec's detection order: Content-Type, URL
// suffix, then magic bytes.
func detectFormat(contentType, url string, raw []byte) core.Format {
	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err == nil {
			switch {
			case strings.Contains(mediaType, "html"):
				return core.FormatHTML
			case strings.Contains(mediaType, "pdf"):
				return core.FormatPDF
			case strings.Contains(mediaType, "markdown"):
				return core.FormatMarkdown
			case strings.HasPrefix(mediaType, "text/"):
				return core.FormatText
			}
		}
	}

	lowered := strings.ToLower(url)
	switch {
	case strings.HasSuffix(lowered, ".pdf"):
		return core.FormatPDF
	case strings.HasSuffix(lowered, ".md") || strings.HasSuffix(lowered, ".markdown"):
		return core.FormatMarkdown
	case strings.HasSuffix(lowered, ".html") || strings.HasSuffix(lowered, ".htm"):
		return core.FormatHTML
	}

	if bytes.HasPrefix(raw, []byte("%PDF-")) {
		return core.FormatPDF
	}
	trimmed := bytes.TrimSpace(raw)
	if bytes.HasPrefix(bytes.ToLower(trimmed), []byte("<!doctype html")) || bytes.HasPrefix(bytes.ToLower(trimmed), []byte("<html")) {
		return core.FormatHTML
	}
	return core.FormatText
}

func extractText(format core.Format, raw []byte) (string, error) {
	switch format {
	case core.FormatHTML:
		return extractHTML(raw)
	case core.FormatPDF:
		return extractPDF(raw)
	case core.FormatMarkdown, core.FormatText:
		return normalizePlain(string(raw)), nil
	default:
		return normalizePlain(string(raw)), nil
	}
}

var boilerplateSelectors = "script, style, nav, footer, header, aside, form, iframe, noscript, .sidebar, #sidebar, .ad, .advertisement, .popup, .modal, .cookie-banner"

var mainContentSelectors = []string{
	"article", "main", ".main-content", ".entry-content", ".post-content", ".post-body", ".article-body",
	"[role='main']", ".content", "#content",
}

var collapseWhitespace = regexp.MustCompile(`\n{3,}`)

// extractHTML does readability-style extraction: drop boilerplate,
// keep article-body text, collapse whitespace (spec §4.2).
func extractHTML(raw []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	doc.Find(boilerplateSelectors).Remove()

	var b strings.Builder
	found := false
	for _, selector := range mainContentSelectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			s.Find("p, h1, h2, h3, h4, h5, h6, li, blockquote, pre").Each(func(_ int, item *goquery.Selection) {
				b.WriteString(strings.TrimSpace(item.Text()))
				b.WriteString("\n\n")
			})
		})
		if b.Len() > 0 {
			found = true
			break
		}
	}
	if !found {
		doc.Find("body").Find("p, h1, h2, h3, h4, h5, h6, li, blockquote, pre").Each(func(_ int, item *goquery.Selection) {
			b.WriteString(strings.TrimSpace(item.Text()))
			b.WriteString("\n\n")
		})
	}

	text := collapseWhitespace.ReplaceAllString(b.String(), "\n\n")
	return strings.TrimSpace(text), nil
}

func normalizePlain(raw string) string {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = collapseWhitespace.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func truncate(text string) string {
	if len(text) <= MaxExtractedBytes {
		return text
	}
	return text[:MaxExtractedBytes] + TruncationMarker
}

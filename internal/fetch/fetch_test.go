package fetch

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/apperr"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/core"
)

func TestFetchHTMLExtractsArticleBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>t</title></head><body>
			<nav>skip me</nav>
			<article><p>Real content here.</p><p>Second paragraph.</p></article>
			<footer>skip me too</footer>
		</body></html>`))
	}))
	defer server.Close()

	e := New(0)
	result, err := e.Fetch(server.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if result.Format != core.FormatHTML {
		t.Errorf("Expected FormatHTML, got %s", result.Format)
	}
	if strings.Contains(result.ExtractedText, "skip me") {
		t.Errorf("Expected boilerplate to be stripped, got %q", result.ExtractedText)
	}
	if !strings.Contains(result.ExtractedText, "Real content here.") {
		t.Errorf("Expected article text preserved, got %q", result.ExtractedText)
	}
}

func TestFetchDetectsFormatByURLSuffix(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# Title\n\nSome markdown text."))
	}))
	defer server.Close()

	e := New(0)
	result, err := e.Fetch(server.URL + "/doc.md")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if result.Format != core.FormatMarkdown {
		t.Errorf("Expected FormatMarkdown from URL suffix, got %s", result.Format)
	}
}

func TestFetchNonOKStatusReturnsFetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	e := New(0)
	_, err := e.Fetch(server.URL)
	if err == nil {
		t.Fatal("Expected error for 404 response")
	}
	if apperr.KindOf(err) != apperr.FetchError {
		t.Errorf("Expected FetchError kind, got %s", apperr.KindOf(err))
	}
}

func TestTruncateAppliesMarkerBeyondCap(t *testing.T) {
	text := strings.Repeat("a", MaxExtractedBytes+10)
	out := truncate(text)
	if !strings.HasSuffix(out, TruncationMarker) {
		t.Error("Expected truncated text to end with TruncationMarker")
	}
	if len(out) != MaxExtractedBytes+len(TruncationMarker) {
		t.Errorf("Expected truncated length %d, got %d", MaxExtractedBytes+len(TruncationMarker), len(out))
	}
}

func TestDeterministicExtraction(t *testing.T) {
	raw := []byte("Plain   text\r\nwith   spacing.")
	a := normalizePlain(string(raw))
	b := normalizePlain(string(raw))
	if a != b {
		t.Error("Expected deterministic extraction for identical input")
	}
}

func TestDetectFormatMagicBytesPDF(t *testing.T) {
	raw := []byte("%PDF-1.4\n...")
	format := detectFormat("", "https://example.com/unknown", raw)
	if format != core.FormatPDF {
		t.Errorf("Expected FormatPDF from magic bytes, got %s", format)
	}
}

func TestExtractPDFFallbackOnMalformedDocument(t *testing.T) {
	raw := []byte("not a real pdf structure BT (hello world) Tj ET")
	text, err := extractPDF(raw)
	if err != nil {
		t.Fatalf("extractPDF returned error: %v", err)
	}
	if !strings.Contains(text, "hello world") {
		t.Errorf("Expected fallback scan to recover text, got %q", text)
	}
}

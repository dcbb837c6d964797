package citations

import (
	"context"
	"testing"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/core"
)

func TestExtractHTMLCapturesContextWindow(t *testing.T) {
	html := `<html><body><p>See the paper at <a href="https://arxiv.org/abs/1234">this link</a> for details.</p></body></html>`
	got := Extract(core.FormatHTML, []byte(html))
	if len(got) != 1 {
		t.Fatalf("Expected 1 citation, got %d", len(got))
	}
	if got[0].TargetURL != "https://arxiv.org/abs/1234" {
		t.Errorf("Expected target URL extracted, got %q", got[0].TargetURL)
	}
	if got[0].ContextSnippet == "" {
		t.Error("Expected non-empty context snippet")
	}
}

func TestExtractMarkdownLinkAndBareURL(t *testing.T) {
	md := "Check [the repo](https://github.com/acme/widget) and also https://zenodo.org/record/1 directly."
	got := Extract(core.FormatMarkdown, []byte(md))
	if len(got) != 2 {
		t.Fatalf("Expected 2 citations, got %d", len(got))
	}
}

func TestExtractCapsAtMax(t *testing.T) {
	var md string
	for i := 0; i < MaxCitationsPerResource+10; i++ {
		md += "https://example.com/a "
	}
	got := Extract(core.FormatMarkdown, []byte(md))
	if len(got) != MaxCitationsPerResource {
		t.Errorf("Expected cap at %d, got %d", MaxCitationsPerResource, len(got))
	}
}

func TestClassifyHeuristics(t *testing.T) {
	cases := map[string]core.CitationType{
		"https://github.com/acme/widget":      core.CitationCode,
		"https://zenodo.org/record/42":         core.CitationDataset,
		"https://arxiv.org/abs/1234":           core.CitationReference,
		"https://doi.org/10.1/xyz":             core.CitationReference,
		"https://example.com/blog/post":        core.CitationGeneral,
	}
	for url, want := range cases {
		if got := Classify(url); got != want {
			t.Errorf("Classify(%q) = %q, want %q", url, got, want)
		}
	}
}

func TestNormalizeURLStripsWwwAndTrailingSlash(t *testing.T) {
	a := NormalizeURL("https://WWW.Example.com/path/")
	b := NormalizeURL("https://example.com/path")
	if a != b {
		t.Errorf("Expected equivalent URLs to normalize identically, got %q vs %q", a, b)
	}
}

type fakeLookup struct {
	byURL map[string]*core.Resource
}

func (f *fakeLookup) FindBySourceURL(ctx context.Context, normalizedURL string) (*core.Resource, bool, error) {
	r, ok := f.byURL[normalizedURL]
	return r, ok, nil
}

func TestResolveFillsTargetResourceID(t *testing.T) {
	lookup := &fakeLookup{byURL: map[string]*core.Resource{
		"https://example.com/target": {ID: "r-target"},
	}}
	citations := []core.Citation{{ID: "c1", SourceResourceID: "r1", TargetURL: "https://example.com/target"}}

	got, err := Resolve(context.Background(), lookup, citations)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].TargetResourceID == nil || *got[0].TargetResourceID != "r-target" {
		t.Errorf("Expected resolved target_resource_id, got %v", got[0].TargetResourceID)
	}
}

func TestResolveLeavesUnmatchedNil(t *testing.T) {
	lookup := &fakeLookup{byURL: map[string]*core.Resource{}}
	citations := []core.Citation{{ID: "c1", SourceResourceID: "r1", TargetURL: "https://nowhere.example/x"}}

	got, err := Resolve(context.Background(), lookup, citations)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].TargetResourceID != nil {
		t.Error("Expected nil target_resource_id for unmatched citation")
	}
}

func TestImportanceRanksCitedResourceHigher(t *testing.T) {
	target := "r2"
	citations := []core.Citation{
		{SourceResourceID: "r1", TargetResourceID: &target},
		{SourceResourceID: "r3", TargetResourceID: &target},
	}
	ranks := Importance(citations)
	if ranks["r2"] <= ranks["r1"] {
		t.Errorf("Expected cited resource r2 to outrank citing resource r1: %v", ranks)
	}
}

func TestImportanceEmptyInput(t *testing.T) {
	ranks := Importance(nil)
	if len(ranks) != 0 {
		t.Errorf("Expected empty ranks for no citations, got %v", ranks)
	}
}

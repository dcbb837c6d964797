package fetch

import (
	"bytes"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF runs the primary PDF text-extraction engine
// (github.com/ledongthuc/pdf) page by page. If the primary engine
// fails or yields no text, it falls back to a secondary,
// lower-fidelity raw-stream scan so ingestion still gets plain text
// instead of failing outright (spec §4.2 "falls back to a secondary
// engine").
func extractPDF(raw []byte) (string, error) {
	text, err := extractPDFPrimary(raw)
	if err == nil && strings.TrimSpace(text) != "" {
		return cleanPDFText(text), nil
	}
	return cleanPDFText(extractPDFFallback(raw)), nil
}

func extractPDFPrimary(raw []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue // skip unreadable pages, keep the rest
		}
		b.WriteString(pageText)
		b.WriteString("\n\n")
	}
	return b.String(), nil
}

// extractPDFFallback does a best-effort scan for text shown between
// PDF "BT"/"ET" text-object markers when the primary engine cannot
// even parse the document structure (e.g. a malformed xref table).
// It is deliberately crude: a best-effort degraded path, not a second
// full parser, since no second third-party PDF library is available.
func extractPDFFallback(raw []byte) string {
	var b strings.Builder
	for _, seg := range bytes.Split(raw, []byte("BT")) {
		etIdx := bytes.Index(seg, []byte("ET"))
		if etIdx < 0 {
			continue
		}
		block := seg[:etIdx]
		for _, tok := range bytes.Split(block, []byte("(")) {
			closeIdx := bytes.IndexByte(tok, ')')
			if closeIdx < 0 {
				continue
			}
			b.Write(tok[:closeIdx])
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func cleanPDFText(raw string) string {
	lines := strings.Split(raw, "\n")
	clean := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) > 2 {
			clean = append(clean, trimmed)
		}
	}
	return strings.TrimSpace(strings.Join(clean, "\n"))
}

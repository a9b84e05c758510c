package utils

import (
	"strings"
	"testing"
)

func TestPreviewText_StripsMarkupAndScripts(t *testing.T) {
	html := `<div><script>var x = 1;</script><p>Hello   <b>world</b></p><style>p{}</style></div>`
	got := PreviewText(html, 120)
	if got != "Hello world" {
		t.Errorf("got %q", got)
	}
}

func TestPreviewText_CollapsesWhitespace(t *testing.T) {
	got := PreviewText("<p>a\n\n  b\t\tc</p>", 120)
	if got != "a b c" {
		t.Errorf("got %q", got)
	}
}

func TestPreviewText_Truncates(t *testing.T) {
	got := PreviewText("<p>"+strings.Repeat("x", 200)+"</p>", 10)
	if got != strings.Repeat("x", 10)+"…" {
		t.Errorf("got %q", got)
	}
}

func TestPreviewText_TruncatesOnRuneBoundary(t *testing.T) {
	got := PreviewText(strings.Repeat("é", 100), 5)
	if strings.Contains(got, "�") {
		t.Errorf("truncation split a rune: %q", got)
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("missing ellipsis: %q", got)
	}
}

func TestPreviewText_DefaultLength(t *testing.T) {
	got := PreviewText(strings.Repeat("y", 500), 0)
	if len([]rune(strings.TrimSuffix(got, "…"))) != 120 {
		t.Errorf("default cap not applied: %d chars", len(got))
	}
}

package utils

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var collapseWhitespace = regexp.MustCompile(`\s+`)

// PreviewText extracts a short plain-text preview from an HTML message
// body. Script and style subtrees are removed before text extraction;
// whitespace is collapsed. On parse failure the raw input is truncated
// instead.
func PreviewText(html string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = 120
	}

	text := html
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err == nil {
		doc.Find("script, style, head").Remove()
		text = doc.Text()
	}

	text = strings.TrimSpace(collapseWhitespace.ReplaceAllString(text, " "))
	if len(text) > maxLen {
		cut := maxLen
		for cut > 0 && text[cut]&0xC0 == 0x80 {
			cut--
		}
		text = text[:cut] + "…"
	}
	return text
}

package sanitize

import (
	"bytes"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// ProxyFunc rewrites a resource URL so third-party content is fetched
// through a trusted proxy instead of directly by the viewer.
type ProxyFunc func(url string) string

// Engine converts untrusted message markup into markup that is safe to
// inject into the live document. It runs two stages: a generic
// allowlist pass (bluemonday) followed by a visitor pass over the
// parsed tree that applies tag-aware attribute refinement, style
// property filtering and image source rewriting.
type Engine struct {
	allowlist  *bluemonday.Policy
	proxy      ProxyFunc
	tagAttrs   map[string]map[string]bool
	wildcard   map[string]bool
	styleProps map[string]bool
}

// NewEngine builds an engine for the given policy. A nil policy uses
// MessagePolicy; a nil proxy leaves image URLs unchanged.
func NewEngine(policy *Policy, proxy ProxyFunc) *Engine {
	if policy == nil {
		policy = MessagePolicy()
	}
	if proxy == nil {
		proxy = func(u string) string { return u }
	}

	bm := bluemonday.NewPolicy()
	bm.AllowElements(policy.Tags...)
	for tag, names := range policy.Attributes {
		if tag == "*" {
			bm.AllowAttrs(names...).Globally()
		} else {
			bm.AllowAttrs(names...).OnElements(tag)
		}
	}
	bm.RequireParseableURLs(true)
	bm.AllowURLSchemes(policy.URLSchemes...)
	bm.AllowRelativeURLs(false)

	e := &Engine{
		allowlist:  bm,
		proxy:      proxy,
		tagAttrs:   make(map[string]map[string]bool),
		wildcard:   make(map[string]bool),
		styleProps: make(map[string]bool),
	}
	for tag, names := range policy.Attributes {
		set := make(map[string]bool, len(names))
		for _, name := range names {
			set[strings.ToLower(name)] = true
		}
		if tag == "*" {
			e.wildcard = set
		} else {
			e.tagAttrs[strings.ToLower(tag)] = set
		}
	}
	for _, prop := range policy.StyleProperties {
		e.styleProps[strings.ToLower(prop)] = true
	}
	return e
}

// SanitizeThemed resolves theme-conditional placeholders for the given
// mode and sanitizes the result.
func (e *Engine) SanitizeThemed(raw string, mode ThemeMode) string {
	return e.Sanitize(ResolveThemePlaceholders(raw, mode))
}

// Sanitize returns markup containing no tag, attribute or style
// property outside the configured policy. Malformed fragments are
// stripped, never cause an error; output is deterministic for a fixed
// input and policy.
func (e *Engine) Sanitize(raw string) string {
	clean := e.allowlist.Sanitize(raw)

	doc, err := html.Parse(strings.NewReader(clean))
	if err != nil {
		// Parse failure on already-allowlisted markup: degrade to
		// escaped text rather than failing the render.
		return html.EscapeString(clean)
	}
	body := findBody(doc)
	if body == nil {
		return clean
	}
	e.visit(body)

	var buf bytes.Buffer
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return html.EscapeString(clean)
		}
	}
	return buf.String()
}

// RenderPlain renders a plain-text body as literal, pre-formatted
// text. Markup inside it stays visible text and is never interpreted.
func (e *Engine) RenderPlain(text string) string {
	return "<pre>" + html.EscapeString(text) + "</pre>"
}

// visit applies the refinement pass to an element subtree: attributes
// outside the effective per-tag set are dropped, style values are
// filtered, image sources go through the proxy transform.
func (e *Engine) visit(n *html.Node) {
	if n.Type == html.ElementNode {
		tag := strings.ToLower(n.Data)
		allowed := e.tagAttrs[tag]

		kept := n.Attr[:0]
		for _, attr := range n.Attr {
			key := strings.ToLower(attr.Key)
			if !allowed[key] && !e.wildcard[key] {
				continue
			}
			if key == "style" {
				attr.Val = e.refineStyle(attr.Val)
				if attr.Val == "" {
					continue
				}
			}
			if tag == "img" && key == "src" {
				attr.Val = e.proxy(attr.Val)
			}
			kept = append(kept, attr)
		}
		n.Attr = kept
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		e.visit(c)
	}
}

// findBody locates the body element html.Parse wraps fragments in.
func findBody(doc *html.Node) *html.Node {
	var find func(*html.Node) *html.Node
	find = func(n *html.Node) *html.Node {
		if n.Type == html.ElementNode && n.Data == "body" {
			return n
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if r := find(c); r != nil {
				return r
			}
		}
		return nil
	}
	return find(doc)
}

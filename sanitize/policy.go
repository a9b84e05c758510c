package sanitize

// Policy declares everything that may survive sanitization. Anything
// not listed here is removed from the output.
type Policy struct {
	// Tags is the set of permitted element names.
	Tags []string

	// Attributes maps a tag name to the attribute names permitted on
	// it. The key "*" declares attributes permitted on every tag; the
	// effective set for an element is the union of its tag entry and
	// the wildcard entry.
	Attributes map[string][]string

	// StyleProperties is the set of CSS property names permitted
	// inside a style attribute.
	StyleProperties []string

	// URLSchemes lists the schemes allowed in href and src values.
	URLSchemes []string
}

// MessagePolicy returns the policy used for rendering email message
// bodies: block and inline formatting, lists, tables, links and
// images, with a bounded set of inline style properties.
func MessagePolicy() *Policy {
	return &Policy{
		Tags: []string{
			"p", "br", "hr", "div", "span",
			"h1", "h2", "h3", "h4", "h5", "h6",
			"strong", "em", "b", "i", "u", "s", "code", "pre",
			"ul", "ol", "li",
			"blockquote",
			"a", "img",
			"table", "thead", "tbody", "tr", "th", "td",
		},
		Attributes: map[string][]string{
			"a":    {"href", "title"},
			"img":  {"src", "alt", "title", "width", "height"},
			"td":   {"colspan", "rowspan", "style"},
			"th":   {"colspan", "rowspan"},
			"span": {"style"},
			"div":  {"style"},
			"p":    {"style"},
			"*":    {"class", "id"},
		},
		StyleProperties: []string{
			"color", "background-color",
			"font-size", "font-weight", "font-style", "font-family",
			"text-align", "text-decoration",
			"padding", "margin",
			"border", "border-width", "border-color", "border-style",
			"border-radius",
			"width", "max-width",
		},
		URLSchemes: []string{"http", "https", "mailto"},
	}
}

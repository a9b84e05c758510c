package sanitize

import (
	"regexp"
	"strconv"
	"strings"
)

// Numeric length components of border declarations are clamped to
// [0, maxBorderLength].
const maxBorderLength = 20

// lengthToken matches a whole value token that is a number with an
// optional CSS length unit. Matching whole tokens only keeps hex
// colors like #333 out of reach.
var lengthToken = regexp.MustCompile(`^(-?\d+(?:\.\d+)?)(px|em|rem|ex|ch|pt|pc|cm|mm|in|%)?$`)

// refineStyle filters a raw style attribute value down to the policy's
// permitted properties. Declarations are split on ';', each on its
// first ':'; entries missing a property or value are dropped, values
// are trimmed and unquoted, and numeric length components of border
// properties are clamped to [0, maxBorderLength]. Surviving
// declarations are rejoined in their original order. Nothing here ever
// fails: bad declarations are dropped silently.
func (e *Engine) refineStyle(raw string) string {
	var kept []string
	for _, decl := range strings.Split(raw, ";") {
		prop, val, found := strings.Cut(decl, ":")
		if !found {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		val = unquote(strings.TrimSpace(val))
		if prop == "" || val == "" {
			continue
		}
		if !e.styleProps[prop] {
			continue
		}
		if prop == "border" || strings.HasPrefix(prop, "border-") {
			val = clampLengths(val)
		}
		kept = append(kept, prop+": "+val)
	}
	return strings.Join(kept, "; ")
}

// clampLengths clamps every numeric length token in a value to
// [0, maxBorderLength], keeping its unit.
func clampLengths(val string) string {
	tokens := strings.Fields(val)
	for i, tok := range tokens {
		m := lengthToken.FindStringSubmatch(tok)
		if m == nil {
			continue
		}
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		if n < 0 {
			tokens[i] = "0" + m[2]
		} else if n > maxBorderLength {
			tokens[i] = strconv.Itoa(maxBorderLength) + m[2]
		}
	}
	return strings.Join(tokens, " ")
}

// unquote strips one matching pair of surrounding single or double
// quotes.
func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '\'' || first == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

package sanitize

import (
	"regexp"
	"strings"
)

// ThemeMode selects which branch of a theme-conditional placeholder is
// kept when a message body is resolved for display.
type ThemeMode int

const (
	ThemeLight ThemeMode = iota
	ThemeDark
)

// ParseThemeMode maps a user setting string to a ThemeMode. Anything
// other than "dark" resolves to light.
func ParseThemeMode(s string) ThemeMode {
	if strings.EqualFold(strings.TrimSpace(s), "dark") {
		return ThemeDark
	}
	return ThemeLight
}

func (m ThemeMode) String() string {
	if m == ThemeDark {
		return "dark"
	}
	return "light"
}

// themePlaceholder matches the literal authoring pattern
// { $LIGHT ? lightExpr : darkExpr }, whitespace-insensitive around the
// tokens. Malformed or unterminated placeholders simply do not match.
var themePlaceholder = regexp.MustCompile(`\{\s*\$LIGHT\s*\?([^:}]*):([^}]*)\}`)

// ResolveThemePlaceholders replaces every theme-conditional placeholder
// in html with its light or dark branch. Branch expressions are taken
// verbatim apart from trimming; the result is expected to pass through
// sanitization afterwards. Input without placeholders is returned
// unchanged.
func ResolveThemePlaceholders(html string, mode ThemeMode) string {
	return themePlaceholder.ReplaceAllStringFunc(html, func(match string) string {
		groups := themePlaceholder.FindStringSubmatch(match)
		if mode == ThemeLight {
			return strings.TrimSpace(groups[1])
		}
		return strings.TrimSpace(groups[2])
	})
}

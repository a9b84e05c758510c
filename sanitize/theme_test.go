package sanitize

import "testing"

func TestResolveThemePlaceholders_Light(t *testing.T) {
	in := `<div style="color: {$LIGHT ? #112233 : #eeddcc}">hi</div>`
	got := ResolveThemePlaceholders(in, ThemeLight)
	want := `<div style="color: #112233">hi</div>`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveThemePlaceholders_Dark(t *testing.T) {
	in := `<div style="color: {$LIGHT ? #112233 : #eeddcc}">hi</div>`
	got := ResolveThemePlaceholders(in, ThemeDark)
	want := `<div style="color: #eeddcc">hi</div>`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveThemePlaceholders_WhitespaceInsensitive(t *testing.T) {
	in := `{  $LIGHT  ?  white  :  black  }`
	if got := ResolveThemePlaceholders(in, ThemeLight); got != "white" {
		t.Errorf("light branch: got %q", got)
	}
	if got := ResolveThemePlaceholders(in, ThemeDark); got != "black" {
		t.Errorf("dark branch: got %q", got)
	}
}

func TestResolveThemePlaceholders_MultipleOccurrences(t *testing.T) {
	in := `a {$LIGHT ? 1 : 2} b {$LIGHT ? 3 : 4} c`
	if got := ResolveThemePlaceholders(in, ThemeDark); got != "a 2 b 4 c" {
		t.Errorf("got %q", got)
	}
}

func TestResolveThemePlaceholders_NoPlaceholderUnchanged(t *testing.T) {
	in := `<p>plain { braces } and $LIGHT alone</p>`
	if got := ResolveThemePlaceholders(in, ThemeLight); got != in {
		t.Errorf("input without placeholders changed: %q", got)
	}
}

func TestResolveThemePlaceholders_UnterminatedIgnored(t *testing.T) {
	in := `{$LIGHT ? white : black`
	if got := ResolveThemePlaceholders(in, ThemeDark); got != in {
		t.Errorf("unterminated placeholder should not match: %q", got)
	}
}

func TestParseThemeMode(t *testing.T) {
	if ParseThemeMode("dark") != ThemeDark {
		t.Error("dark should parse to ThemeDark")
	}
	if ParseThemeMode(" DARK ") != ThemeDark {
		t.Error("parsing should trim and ignore case")
	}
	for _, s := range []string{"light", "", "anything"} {
		if ParseThemeMode(s) != ThemeLight {
			t.Errorf("%q should parse to ThemeLight", s)
		}
	}
}

package sanitize

import "testing"

func TestRefineStyle_DropsUnknownAndClampsBorder(t *testing.T) {
	e := NewEngine(nil, nil)
	got := e.refineStyle("color: red; unknown-prop: 1; border-width: 25px")
	want := "color: red; border-width: 20px"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRefineStyle_ClampNegativeToZero(t *testing.T) {
	e := NewEngine(nil, nil)
	got := e.refineStyle("border-width: -5px")
	if got != "border-width: 0px" {
		t.Errorf("got %q", got)
	}
}

func TestRefineStyle_ClampShorthandComponents(t *testing.T) {
	e := NewEngine(nil, nil)
	got := e.refineStyle("border: 30px solid red")
	if got != "border: 20px solid red" {
		t.Errorf("got %q", got)
	}
}

func TestRefineStyle_BorderColorHexUntouched(t *testing.T) {
	e := NewEngine(nil, nil)
	got := e.refineStyle("border-color: #333")
	if got != "border-color: #333" {
		t.Errorf("hex color must not be clamped: got %q", got)
	}
}

func TestRefineStyle_InRangeUnchanged(t *testing.T) {
	e := NewEngine(nil, nil)
	got := e.refineStyle("border-width: 3px")
	if got != "border-width: 3px" {
		t.Errorf("got %q", got)
	}
}

func TestRefineStyle_NonBorderLengthNotClamped(t *testing.T) {
	e := NewEngine(nil, nil)
	got := e.refineStyle("font-size: 42px")
	if got != "font-size: 42px" {
		t.Errorf("clamp applies to border properties only: got %q", got)
	}
}

func TestRefineStyle_UnquotesValues(t *testing.T) {
	e := NewEngine(nil, nil)
	got := e.refineStyle(`font-family: "Georgia"`)
	if got != "font-family: Georgia" {
		t.Errorf("got %q", got)
	}
}

func TestRefineStyle_MalformedDeclarationsDropped(t *testing.T) {
	e := NewEngine(nil, nil)
	got := e.refineStyle("color; : red; color:; ;; color: blue")
	if got != "color: blue" {
		t.Errorf("got %q", got)
	}
}

func TestRefineStyle_AllDroppedYieldsEmpty(t *testing.T) {
	e := NewEngine(nil, nil)
	if got := e.refineStyle("position: absolute; z-index: 99"); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

package models

import "testing"

func TestLocalPart(t *testing.T) {
	cases := []struct {
		from string
		want string
	}{
		{"alice@example.com", "alice"},
		{"bob@sub.example.com", "bob"},
		{"noat", "noat"},
		{"", ""},
	}
	for _, tc := range cases {
		m := Message{From: tc.from}
		if got := m.LocalPart(); got != tc.want {
			t.Errorf("LocalPart(%q) = %q, want %q", tc.from, got, tc.want)
		}
	}
}

func TestExpansionState(t *testing.T) {
	s := ExpansionState{}
	if s.IsExpanded("m1") {
		t.Error("fresh state should have nothing expanded")
	}
	s.Expand("m1")
	s.Expand("m2")
	if !s.IsExpanded("m1") || !s.IsExpanded("m2") {
		t.Error("expanded ids not reported")
	}
	if len(s.IDs()) != 2 {
		t.Errorf("IDs() = %v", s.IDs())
	}
}

package services

import "testing"

func TestMatchRegion(t *testing.T) {
	cases := []struct {
		configured string
		label      string
		want       bool
	}{
		// District match on the last component.
		{"Setúbal", "Corroios, Seixal, Setúbal", true},
		{"setúbal", "Corroios, Seixal, SETÚBAL", true},
		// Substring anywhere in the label.
		{"Seixal", "Corroios, Seixal, Setúbal", true},
		{"Corroios", "Corroios, Seixal, Setúbal", true},
		// No relation.
		{"Porto", "Corroios, Seixal, Setúbal", false},
		{"Lisboa", "Faro", false},
		// Whitespace handling.
		{"  seixal ", "Corroios, Seixal, Setúbal", true},
		// Empty sides never match.
		{"", "Faro", false},
		{"Faro", "", false},
	}
	for _, c := range cases {
		if got := MatchRegion(c.configured, c.label); got != c.want {
			t.Errorf("MatchRegion(%q, %q) = %v, want %v", c.configured, c.label, got, c.want)
		}
	}
}

func TestMatchesAnyRegion(t *testing.T) {
	label := "Corroios, Seixal, Setúbal"

	if !MatchesAnyRegion(nil, label) {
		t.Error("empty region list should cover all regions")
	}
	if !MatchesAnyRegion([]string{"Porto", "Seixal"}, label) {
		t.Error("one matching region should suffice")
	}
	if MatchesAnyRegion([]string{"Porto", "Braga"}, label) {
		t.Error("no matching region should fail")
	}
}

package utils

import "testing"

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"Continental Resources, Inc.", "continental resources inc"},
		{"CONTINENTAL RESOURCES INC", "continental resources inc"},
		{"  XTO   Energy  ", "xto energy"},
		{"Hess Corp.", "hess corp"},
		{"A&B Oil Co.", "ab oil co"},
		{"", ""},
		{"---", ""},
		{"Slawson Exploration Co #2", "slawson exploration co 2"},
	}
	for _, tc := range cases {
		if got := NormalizeName(tc.in); got != tc.expected {
			t.Fatalf("NormalizeName(%q) expected %q, got %q", tc.in, tc.expected, got)
		}
	}
}

func TestNormalizeNameIdempotent(t *testing.T) {
	inputs := []string{"Continental Resources, Inc.", "XTO   Energy", "hess corp"}
	for _, in := range inputs {
		once := NormalizeName(in)
		if twice := NormalizeName(once); twice != once {
			t.Fatalf("NormalizeName not idempotent for %q: %q vs %q", in, once, twice)
		}
	}
}

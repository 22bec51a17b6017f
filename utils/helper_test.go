package utils

import (
	"testing"
	"time"
)

func TestParseAmountCell(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"1234.56", "1234.56"},
		{"$1,234.56", "1234.56"},
		{" $ 12,345 ", "12345"},
		{"1,000,000.00", "1000000"},
		{"-45.10", "-45.1"},
	}
	for _, tc := range cases {
		d, err := ParseAmountCell(tc.in)
		if err != nil {
			t.Fatalf("ParseAmountCell(%q) error: %v", tc.in, err)
		}
		if d.String() != tc.expected {
			t.Fatalf("ParseAmountCell(%q) expected %s, got %s", tc.in, tc.expected, d.String())
		}
	}
}

func TestParseAmountCellRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "n/a", "--", "TOTAL"} {
		if _, err := ParseAmountCell(in); err == nil {
			t.Fatalf("ParseAmountCell(%q) expected error", in)
		}
	}
}

func TestExcelSerialDate(t *testing.T) {
	// 2026-09-01 is serial 46266 in the 1900 date system.
	got := ExcelSerialDate(46266)
	expected := time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(expected) {
		t.Fatalf("ExcelSerialDate(46266) expected %s, got %s", expected, got)
	}
}

func TestParseDateCell(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"2026-09-01", "2026-09-01"},
		{"09/01/2026", "2026-09-01"},
		{"9/1/2026", "2026-09-01"},
		{"46266", "2026-09-01"},
		{"Sep 1, 2026", "2026-09-01"},
	}
	for _, tc := range cases {
		got, ok := ParseDateCell(tc.in)
		if !ok {
			t.Fatalf("ParseDateCell(%q) expected ok", tc.in)
		}
		if got.Format("2006-01-02") != tc.expected {
			t.Fatalf("ParseDateCell(%q) expected %s, got %s", tc.in, tc.expected, got.Format("2006-01-02"))
		}
	}
	if _, ok := ParseDateCell("not a date"); ok {
		t.Fatal("ParseDateCell expected failure for junk input")
	}
	if _, ok := ParseDateCell(""); ok {
		t.Fatal("ParseDateCell expected failure for empty input")
	}
}

func TestStripNonDigits(t *testing.T) {
	if got := StripNonDigits("103-900-036 "); got != "103900036" {
		t.Fatalf("StripNonDigits expected 103900036, got %q", got)
	}
}

func TestValidatePhoneNumber(t *testing.T) {
	for _, in := range []string{"(212) 555-0123", "212-555-0123", "+1 212 555 0123"} {
		if err := ValidatePhoneNumber(in, CountryCode); err != nil {
			t.Fatalf("ValidatePhoneNumber(%q) unexpected error: %v", in, err)
		}
	}
	for _, in := range []string{"12345", "not a phone", "212-555"} {
		if err := ValidatePhoneNumber(in, CountryCode); err == nil {
			t.Fatalf("ValidatePhoneNumber(%q) expected error", in)
		}
	}
}

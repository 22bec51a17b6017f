package models

import "testing"

func testOperators() []Operator {
	return []Operator{
		{ID: 1, OperatorName: "Continental Resources", LegalEntityName: "Continental Resources, Inc."},
		{ID: 2, OperatorName: "XTO Energy", Aliases: AliasList{"XTO", "XTO Energy Inc"}},
		{ID: 3, OperatorName: "Hess Corporation", Aliases: AliasList{"Hess"}},
	}
}

func TestMatchOperatorExactName(t *testing.T) {
	operators := testOperators()
	cases := []struct {
		raw        string
		expectedId int
	}{
		{"Continental Resources", 1},
		{"CONTINENTAL RESOURCES", 1},
		{"continental   resources", 1},
		{"XTO Energy", 2},
	}
	for _, tc := range cases {
		got := MatchOperator(operators, tc.raw)
		if got == nil || got.ID != tc.expectedId {
			t.Fatalf("MatchOperator(%q) expected operator %d, got %v", tc.raw, tc.expectedId, got)
		}
	}
}

func TestMatchOperatorAlias(t *testing.T) {
	operators := testOperators()
	got := MatchOperator(operators, "xto")
	if got == nil || got.ID != 2 {
		t.Fatalf("alias match expected operator 2, got %v", got)
	}
	got = MatchOperator(operators, "XTO ENERGY INC.")
	if got == nil || got.ID != 2 {
		t.Fatalf("alias match expected operator 2, got %v", got)
	}
}

func TestMatchOperatorNoFuzzy(t *testing.T) {
	operators := testOperators()
	// Close but not normalized-equal spellings must not match.
	for _, raw := range []string{"Continental Res", "XTO Energi", "Hess Corp", "Unknown Operator LLC", ""} {
		if got := MatchOperator(operators, raw); got != nil {
			t.Fatalf("MatchOperator(%q) expected no match, got operator %d", raw, got.ID)
		}
	}
}

func TestMatchOperatorNamePrecedesAlias(t *testing.T) {
	operators := []Operator{
		{ID: 1, OperatorName: "Apache", Aliases: AliasList{"Marathon Oil"}},
		{ID: 2, OperatorName: "Marathon Oil"},
	}
	// A name match on any operator beats an alias match on an earlier one.
	got := MatchOperator(operators, "Marathon Oil")
	if got == nil || got.ID != 2 {
		t.Fatalf("expected name match on operator 2, got %v", got)
	}
}

func TestAchEligible(t *testing.T) {
	cases := []struct {
		op       Operator
		expected bool
	}{
		{Operator{HasAch: true, RoutingNumber: "103900036", AccountNumber: "210045678"}, true},
		{Operator{HasAch: false, RoutingNumber: "103900036", AccountNumber: "210045678"}, false},
		{Operator{HasAch: true, RoutingNumber: "", AccountNumber: "210045678"}, false},
		{Operator{HasAch: true, RoutingNumber: "103900036", AccountNumber: ""}, false},
	}
	for i, tc := range cases {
		if got := tc.op.AchEligible(); got != tc.expected {
			t.Fatalf("case %d: AchEligible expected %v, got %v", i, tc.expected, got)
		}
	}
}

func TestAppendAlias(t *testing.T) {
	op := Operator{OperatorName: "XTO Energy", Aliases: AliasList{"XTO"}}
	if appendAlias(&op, "xto") {
		t.Fatal("duplicate alias should not be added")
	}
	if appendAlias(&op, "XTO ENERGY") {
		t.Fatal("alias matching the canonical name should not be added")
	}
	if !appendAlias(&op, "XTO Energy Inc") {
		t.Fatal("new alias should be added")
	}
	if len(op.Aliases) != 2 {
		t.Fatalf("expected 2 aliases, got %d", len(op.Aliases))
	}
}

func TestShouldLearnAlias(t *testing.T) {
	op := Operator{OperatorName: "Continental Resources", LegalEntityName: "Continental Resources, Inc."}
	cases := []struct {
		raw      string
		expected bool
	}{
		{"Continental Res", true},
		{"Continental Resources", false},
		{"CONTINENTAL RESOURCES INC", false},
		{"CR", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := shouldLearnAlias(op, tc.raw); got != tc.expected {
			t.Fatalf("shouldLearnAlias(%q) expected %v, got %v", tc.raw, tc.expected, got)
		}
	}
}

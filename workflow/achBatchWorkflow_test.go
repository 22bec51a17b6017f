package workflow

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rossperleberg/jib-payments/models"
	"github.com/rossperleberg/jib-payments/utils"
	"github.com/shopspring/decimal"
)

func amt(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func intPtr(v int) *int { return &v }

func TestBuildAchFileRow(t *testing.T) {
	account := models.Account{ID: 1, AccountName: "GPG"}
	operators := map[int]models.Operator{
		4: {
			ID:              4,
			OperatorName:    "Continental Resources",
			LegalEntityName: "Continental Res Inc",
			RoutingNumber:   "103-900-036",
			AccountNumber:   "210045678",
		},
	}
	payments := []models.Payment{
		{
			ID:           10,
			OperatorId:   intPtr(4),
			OperatorName: "Continental Resources",
			OwnerNumber:  "12345",
			DocNum:       "INV-001",
			Amount:       amt("1250.5"),
		},
	}

	content := BuildAchFile(account, payments, operators)
	lines := strings.Split(content, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	if lines[0] != "Name,Routing transit,Account number,Transaction code,Amount,Payment information" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	expected := `Continental Res Inc,103900036,"210045678",27,1250.50,Continental - GPG #12345 - Invoice #INV-001`
	if lines[1] != expected {
		t.Fatalf("unexpected row:\n  got  %q\n  want %q", lines[1], expected)
	}
	if strings.HasSuffix(content, "\n") {
		t.Fatal("file should not end with a trailing newline")
	}
}

func TestAchRecipientName(t *testing.T) {
	cases := []struct {
		operator *models.Operator
		captured string
		expected string
	}{
		// Legal entity name wins; commas stripped; capped at 22 chars.
		{&models.Operator{LegalEntityName: "Continental Resources, Inc."}, "ignored", "Continental Resources "},
		{&models.Operator{LegalEntityName: "XTO Energy Inc."}, "ignored", "XTO Energy Inc."},
		{&models.Operator{}, "Hess Corporation", "Hess Corporation"},
		{nil, "Some Captured Name", "Some Captured Name"},
		{nil, "", "Unknown"},
		// The cap counts characters, not bytes; accented names stay intact.
		{&models.Operator{LegalEntityName: "Société Générale Énergie SA"}, "ignored", "Société Générale Énerg"},
	}
	for i, tc := range cases {
		got := achRecipientName(tc.operator, tc.captured)
		if got != tc.expected {
			t.Fatalf("case %d: expected %q, got %q", i, tc.expected, got)
		}
		if utf8.RuneCountInString(got) > achNameMaxLen {
			t.Fatalf("case %d: name longer than %d chars: %q", i, achNameMaxLen, got)
		}
		if !utf8.ValidString(got) {
			t.Fatalf("case %d: truncation broke the encoding: %q", i, got)
		}
		if strings.Contains(got, ",") {
			t.Fatalf("case %d: name contains a comma: %q", i, got)
		}
	}
}

func TestAccountNumberQuoting(t *testing.T) {
	if got := csvQuote("00210045678"); got != `"00210045678"` {
		t.Fatalf("expected quoted field, got %s", got)
	}
	// Embedded quotes are doubled, not escaped Go-style.
	if got := csvQuote(`21"004`); got != `"21""004"` {
		t.Fatalf("expected doubled quote, got %s", got)
	}

	account := models.Account{ID: 1, AccountName: "GPG"}
	operators := map[int]models.Operator{
		4: {ID: 4, OperatorName: "Hess", RoutingNumber: "103900036", AccountNumber: `21"004`},
	}
	payments := []models.Payment{
		{ID: 10, OperatorId: intPtr(4), OperatorName: "Hess", OwnerNumber: "1", DocNum: "D1", Amount: amt("10")},
	}
	content := BuildAchFile(account, payments, operators)
	if !strings.Contains(content, `"21""004"`) {
		t.Fatalf("account number not CSV-quoted: %q", content)
	}
	if strings.Contains(content, `\"`) {
		t.Fatalf("account number uses backslash escaping: %q", content)
	}
}

func TestAchPaymentInfo(t *testing.T) {
	payment := models.Payment{OperatorName: "Continental Resources", OwnerNumber: "12345", DocNum: "INV-001"}
	got := achPaymentInfo(payment, "GPG")
	if got != "Continental - GPG #12345 - Invoice #INV-001" {
		t.Fatalf("unexpected payment info: %q", got)
	}
	// Single-word payee stays whole.
	payment.OperatorName = "Hess"
	if got := achPaymentInfo(payment, "WEC"); got != "Hess - WEC #12345 - Invoice #INV-001" {
		t.Fatalf("unexpected payment info: %q", got)
	}
}

func TestBatchAndFileNames(t *testing.T) {
	now := time.Date(2026, time.September, 1, 10, 30, 0, 0, time.UTC)
	if got := BatchName("GPG", now); got != "GPG_SEP2026" {
		t.Fatalf("BatchName expected GPG_SEP2026, got %q", got)
	}
	if got := AchFileName("Great Plains Gas", now); got != "Great Plains Gas_ACH_2026-09-01.csv" {
		t.Fatalf("AchFileName unexpected: %q", got)
	}
}

func TestValidateAchEligibilityCollectsAllProblems(t *testing.T) {
	operators := map[int]models.Operator{
		1: {ID: 1, OperatorName: "Good Operator", HasAch: true, RoutingNumber: "103-900-036", AccountNumber: "210045678"},
		2: {ID: 2, OperatorName: "Short Routing", HasAch: true, RoutingNumber: "12345", AccountNumber: "111"},
		3: {ID: 3, OperatorName: "No Account", HasAch: true, RoutingNumber: "103900036"},
	}
	payments := []models.Payment{
		{ID: 10, OperatorId: intPtr(1), OperatorName: "Good Operator", Amount: amt("100")},
		{ID: 11, OperatorId: intPtr(2), OperatorName: "Short Routing", Amount: amt("200")},
		{ID: 12, OperatorId: intPtr(3), OperatorName: "No Account", Amount: amt("250")},
		{ID: 13, OperatorName: "Unmatched Payee", Amount: amt("300")},
		{ID: 14, OperatorId: intPtr(99), OperatorName: "Gone Operator", Amount: amt("400")},
	}

	err := validateAchEligibility(payments, operators)
	if err == nil {
		t.Fatal("expected validation error")
	}
	bre, ok := err.(*utils.BusinessRuleError)
	if !ok {
		t.Fatalf("expected BusinessRuleError, got %T", err)
	}
	if len(bre.Details) != 4 {
		t.Fatalf("expected 4 problems reported together, got %d: %v", len(bre.Details), bre.Details)
	}
	if !strings.Contains(bre.Details[0], "5 digits") {
		t.Fatalf("routing problem should name the digit count: %q", bre.Details[0])
	}

	// All-valid set passes; dashes in the routing number are fine.
	if err := validateAchEligibility(payments[:1], operators); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

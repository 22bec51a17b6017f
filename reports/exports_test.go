package reports

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/rossperleberg/jib-payments/models"
	"github.com/shopspring/decimal"
)

func TestWritePaymentsCSV(t *testing.T) {
	operatorId := 4
	payments := []models.Payment{
		{
			ID:           1,
			AccountId:    1,
			OperatorId:   &operatorId,
			OperatorName: "continental res",
			Amount:       decimal.NewFromFloat(1234.5),
			PaymentDate:  time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
			Status:       models.PaymentStatusReady,
		},
		{
			ID:           2,
			AccountId:    1,
			OperatorName: "Unknown Payee",
			Amount:       decimal.NewFromFloat(99),
			PaymentDate:  time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC),
			Status:       models.PaymentStatusPending,
		},
	}
	operators := map[int]models.Operator{
		4: {ID: 4, OperatorName: "Continental Resources"},
	}

	var buf bytes.Buffer
	if err := WritePaymentsCSV(&buf, payments, operators); err != nil {
		t.Fatalf("WritePaymentsCSV error: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(records))
	}
	// Matched payment shows the canonical operator name; unmatched keeps the
	// captured spelling.
	if records[1][2] != "Continental Resources" {
		t.Fatalf("expected canonical name, got %q", records[1][2])
	}
	if records[2][2] != "Unknown Payee" {
		t.Fatalf("expected captured name, got %q", records[2][2])
	}
	if records[1][4] != "1234.50" {
		t.Fatalf("expected fixed-point amount, got %q", records[1][4])
	}
}

func TestWriteImportTemplateCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteImportTemplateCSV(&buf); err != nil {
		t.Fatalf("WriteImportTemplateCSV error: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header + example row, got %d", len(records))
	}
	header := strings.Join(records[0], ",")
	for _, required := range []string{"Operator", "Owner Number", "Amount", "Doc Number", "Received Date"} {
		if !strings.Contains(header, required) {
			t.Fatalf("template header missing %q: %s", required, header)
		}
	}
}

func TestBuildImportTemplate(t *testing.T) {
	f, err := BuildImportTemplate()
	if err != nil {
		t.Fatalf("BuildImportTemplate error: %v", err)
	}
	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatalf("GetRows error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header + example row, got %d", len(rows))
	}
	header := strings.Join(rows[0], ",")
	for _, required := range []string{"Operator", "Amount"} {
		if !strings.Contains(header, required) {
			t.Fatalf("template header missing %q: %s", required, header)
		}
	}
}

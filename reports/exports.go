package reports

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rossperleberg/jib-payments/models"
	"github.com/xuri/excelize/v2"
)

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatDatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatDate(*t)
}

// WritePaymentsCSV streams the payment register as CSV. Used by the export
// endpoint; amounts are plain decimal strings so the file reconciles against
// bank statements without float noise.
func WritePaymentsCSV(w io.Writer, payments []models.Payment, operatorsById map[int]models.Operator) error {
	writer := csv.NewWriter(w)
	header := []string{
		"ID", "Account", "Operator", "Owner Number", "Amount", "Original Amount",
		"Payment Date", "Doc Number", "Method", "Status", "Batch", "Check Number",
		"Processed Date", "Credit Applied", "Paid By Credit", "Notes",
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, p := range payments {
		operatorName := p.OperatorName
		if p.OperatorId != nil {
			if op, ok := operatorsById[*p.OperatorId]; ok {
				operatorName = op.OperatorName
			}
		}
		original := ""
		if p.OriginalAmount != nil {
			original = p.OriginalAmount.StringFixed(2)
		}
		checkNumber := ""
		if p.CheckNumber != nil {
			checkNumber = strconv.Itoa(*p.CheckNumber)
		}
		row := []string{
			strconv.Itoa(p.ID),
			strconv.Itoa(p.AccountId),
			operatorName,
			p.OwnerNumber,
			p.Amount.StringFixed(2),
			original,
			formatDate(p.PaymentDate),
			p.DocNum,
			string(p.PaymentMethod),
			string(p.Status),
			p.BatchName,
			checkNumber,
			formatDatePtr(p.ProcessedDate),
			p.CreditApplied.StringFixed(2),
			strconv.FormatBool(p.PaidByCredit),
			p.Notes,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteOperatorsCSV streams the operator directory as CSV. Account numbers
// are included; the export is for the back office, not for distribution.
func WriteOperatorsCSV(w io.Writer, operators []models.Operator) error {
	writer := csv.NewWriter(w)
	header := []string{
		"ID", "Operator Name", "Legal Entity Name", "Aliases", "Has ACH",
		"Bank Name", "Routing Number", "Account Number",
		"Remittance Email", "Contact Name", "Contact Phone", "Contact Email", "Notes",
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, op := range operators {
		row := []string{
			strconv.Itoa(op.ID),
			op.OperatorName,
			op.LegalEntityName,
			strings.Join(op.Aliases, "; "),
			strconv.FormatBool(op.HasAch),
			op.BankName,
			op.RoutingNumber,
			op.AccountNumber,
			op.RemittanceEmail,
			op.ContactName,
			op.ContactPhone,
			op.ContactEmail,
			op.Notes,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

var importTemplateHeaders = []string{"Operator", "Owner Number", "Amount", "Doc Number", "Received Date"}

var importTemplateExample = []string{"Continental Resources Inc", "12345", "1250.50", "INV-001", "2026-09-01"}

// WriteImportTemplateCSV writes a CSV skeleton whose headers the import
// column mapper recognizes, with one example row.
func WriteImportTemplateCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(importTemplateHeaders); err != nil {
		return err
	}
	if err := writer.Write(importTemplateExample); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// BuildImportTemplate produces a blank .xlsx whose headers the import
// column mapper recognizes, with one example row.
func BuildImportTemplate() (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, header := range importTemplateHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, err
		}
	}
	example := []interface{}{importTemplateExample[0], importTemplateExample[1], 1250.50, importTemplateExample[3], importTemplateExample[4]}
	for i, value := range example {
		cell, err := excelize.CoordinatesToCellName(i+1, 2)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			return nil, err
		}
	}
	return f, nil
}

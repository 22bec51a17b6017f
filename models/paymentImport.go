package models

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rossperleberg/jib-payments/config"
	"github.com/rossperleberg/jib-payments/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Column discovery is heuristic: for each semantic field the first header
// (in file order) containing any of the patterns (in pattern order) wins.
// Pattern lists cover the common JIB statement formats, including Bakken
// Clarity exports.
var (
	operatorColumnPatterns = []string{"operator", "payee", "company", "vendor"}
	amountColumnPatterns   = []string{"amtoriginal", "amount", "amt", "net", "total", "payment", "check amount"}
	ownerColumnPatterns    = []string{"opownernum", "owner", "interest", "account", "owner number", "owner no"}
	docNumColumnPatterns   = []string{"docnum", "doc", "document", "invoice", "reference", "ref", "check"}
	dateColumnPatterns     = []string{"receiveddate", "date", "due", "payment date"}
)

// ColumnMap holds resolved header indexes; -1 means the column is absent.
type ColumnMap struct {
	Operator int
	Amount   int
	Owner    int
	DocNum   int
	Date     int
}

func findColumn(headers []string, patterns []string) int {
	for i, header := range headers {
		lower := strings.ToLower(header)
		for _, pattern := range patterns {
			if strings.Contains(lower, pattern) {
				return i
			}
		}
	}
	return -1
}

// MapColumns locates the semantic columns in a header row. Operator and
// amount are mandatory; owner, doc number and date fall back to absent.
func MapColumns(headers []string) (ColumnMap, error) {
	cm := ColumnMap{
		Operator: findColumn(headers, operatorColumnPatterns),
		Amount:   findColumn(headers, amountColumnPatterns),
		Owner:    findColumn(headers, ownerColumnPatterns),
		DocNum:   findColumn(headers, docNumColumnPatterns),
		Date:     findColumn(headers, dateColumnPatterns),
	}
	if cm.Operator < 0 {
		return cm, &utils.ParseError{
			Message: "could not find operator/payee column; expected a header containing 'operator', 'payee', 'company' or 'vendor'",
			Headers: headers,
		}
	}
	if cm.Amount < 0 {
		return cm, &utils.ParseError{
			Message: "could not find amount column; expected a header containing 'amount', 'net', 'total' or 'payment'",
			Headers: headers,
		}
	}
	return cm, nil
}

// parseTabular reads the first sheet of an .xlsx upload, or a CSV, into a
// header row plus data rows of strings.
func parseTabular(fileName string, r io.Reader) (headers []string, rows [][]string, err error) {
	var records [][]string
	if strings.HasSuffix(strings.ToLower(fileName), ".xlsx") {
		f, oerr := excelize.OpenReader(r)
		if oerr != nil {
			return nil, nil, &utils.ParseError{Message: "could not parse file, please upload a valid Excel or CSV file"}
		}
		defer f.Close()
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil, &utils.ParseError{Message: "file contains no sheets"}
		}
		records, oerr = f.GetRows(sheets[0])
		if oerr != nil {
			return nil, nil, &utils.ParseError{Message: "unable to read sheet"}
		}
	} else {
		reader := csv.NewReader(r)
		reader.FieldsPerRecord = -1
		var rerr error
		records, rerr = reader.ReadAll()
		if rerr != nil {
			return nil, nil, &utils.ParseError{Message: "could not parse file, please upload a valid Excel or CSV file"}
		}
	}
	if len(records) < 2 {
		return nil, nil, &utils.ParseError{Message: "file contains no data"}
	}
	return records[0], records[1:], nil
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// ImportedPayment is the per-row summary returned to the caller.
type ImportedPayment struct {
	ID                   int             `json:"id"`
	OperatorName         string          `json:"operator_name"`
	Amount               decimal.Decimal `json:"amount"`
	Status               PaymentStatus   `json:"status"`
	IsPotentialDuplicate bool            `json:"is_potential_duplicate"`
	HasAvailableCredit   bool            `json:"has_available_credit"`
}

type ImportStats struct {
	Total                int               `json:"total"`
	ReadyForAch          int               `json:"ready_for_ach"`
	UnknownOperators     int               `json:"unknown_operators"`
	MarkedForCheck       int               `json:"marked_for_check"`
	PossibleDuplicates   int               `json:"possible_duplicates"`
	WithAvailableCredits int               `json:"with_available_credits"`
	Payments             []ImportedPayment `json:"payments"`
}

// classifyRow decides status and method for a matched (or unmatched)
// operator: matched + ACH-eligible goes straight to ready/ACH, everything
// else starts as pending/Check.
func classifyRow(matched *Operator) (PaymentStatus, PaymentMethod) {
	if matched != nil && matched.AchEligible() {
		return PaymentStatusReady, PaymentMethodACH
	}
	return PaymentStatusPending, PaymentMethodCheck
}

// ImportPayments runs the reconciliation pipeline over an uploaded statement:
// locate columns, then per row parse -> match -> duplicate-check -> resolve
// credit -> classify -> persist. Bad rows are skipped, not fatal; each row's
// persistence is independent. Duplicate checks compare only against payments
// that existed before the import started.
func ImportPayments(ctx context.Context, accountId int, fileName string, r io.Reader) (*ImportStats, error) {
	logger := config.GetLogger()

	account, err := GetAccountById(ctx, accountId)
	if err != nil {
		return nil, err
	}
	operators, err := GetOperators(ctx)
	if err != nil {
		return nil, err
	}
	existingPayments, err := GetPayments(ctx, PaymentFilter{})
	if err != nil {
		return nil, err
	}
	credits, err := GetCredits(ctx)
	if err != nil {
		return nil, err
	}

	headers, rows, err := parseTabular(fileName, r)
	if err != nil {
		return nil, err
	}
	columns, err := MapColumns(headers)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	cutoff := duplicateCutoff(today)
	importDate := now

	stats := &ImportStats{Payments: []ImportedPayment{}}
	db := config.GetDB()

	for _, row := range rows {
		operatorName := cellAt(row, columns.Operator)
		amount, aerr := utils.ParseAmountCell(cellAt(row, columns.Amount))
		if operatorName == "" || aerr != nil || amount.IsZero() {
			continue
		}

		paymentDate := today
		if parsed, ok := utils.ParseDateCell(cellAt(row, columns.Date)); ok {
			paymentDate = parsed
		}

		matched := MatchOperator(operators, operatorName)

		duplicate := FindDuplicate(existingPayments, operatorName, amount, cutoff)
		var duplicateOfId *int
		if duplicate != nil {
			id := duplicate.ID
			duplicateOfId = &id
			stats.PossibleDuplicates++
		}

		var operatorId *int
		matchedId := 0
		if matched != nil {
			id := matched.ID
			operatorId = &id
			matchedId = id
		}
		hasCredit, creditAmount := AvailableCredit(credits, matchedId)
		if hasCredit {
			stats.WithAvailableCredits++
		}

		status, method := classifyRow(matched)
		switch {
		case matched == nil:
			stats.UnknownOperators++
		case method == PaymentMethodACH:
			stats.ReadyForAch++
		default:
			stats.MarkedForCheck++
		}

		payment := Payment{
			AccountId:            accountId,
			OperatorId:           operatorId,
			OperatorName:         operatorName,
			OwnerNumber:          cellAt(row, columns.Owner),
			Amount:               amount,
			PaymentDate:          paymentDate,
			DocNum:               cellAt(row, columns.DocNum),
			PaymentMethod:        method,
			Status:               status,
			ImportFileName:       fileName,
			ImportDate:           &importDate,
			IsPotentialDuplicate: duplicate != nil,
			DuplicateOfId:        duplicateOfId,
			HasAvailableCredit:   hasCredit,
		}
		if hasCredit {
			payment.AvailableCreditAmount = &creditAmount
		}
		if err := db.WithContext(ctx).Create(&payment).Error; err != nil {
			config.LogError(logger, "paymentImport.go", "ImportPayments", "create payment row", operatorName, err)
			return stats, err
		}

		stats.Payments = append(stats.Payments, ImportedPayment{
			ID:                   payment.ID,
			OperatorName:         payment.OperatorName,
			Amount:               payment.Amount,
			Status:               payment.Status,
			IsPotentialDuplicate: payment.IsPotentialDuplicate,
			HasAvailableCredit:   payment.HasAvailableCredit,
		})
		stats.Total++
	}

	if err := LogActivity(db.WithContext(ctx), "import",
		fmt.Sprintf("Imported %d payments for %s", stats.Total, account.AccountPrefix),
		&account.ID); err != nil {
		config.LogError(logger, "paymentImport.go", "ImportPayments", "log activity", account.ID, err)
	}
	return stats, nil
}

// Historical import column patterns; these files describe already-completed
// payments, so the set differs slightly from the live import.
var (
	historyMethodPatterns = []string{"method", "type", "payment method"}
	historyCheckPatterns  = []string{"check", "check number", "check #"}
)

type HistoryImportStats struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Total    int `json:"total"`
}

// ImportHistoricalPayments loads already-processed payments (e.g. from the
// spreadsheet era before this system). Rows land directly in processed status
// and skip duplicate/credit annotation.
func ImportHistoricalPayments(ctx context.Context, accountId int, fileName string, r io.Reader) (*HistoryImportStats, error) {
	logger := config.GetLogger()

	account, err := GetAccountById(ctx, accountId)
	if err != nil {
		return nil, err
	}
	operators, err := GetOperators(ctx)
	if err != nil {
		return nil, err
	}

	headers, rows, err := parseTabular(fileName, r)
	if err != nil {
		return nil, err
	}
	columns, err := MapColumns(headers)
	if err != nil {
		return nil, err
	}
	methodCol := findColumn(headers, historyMethodPatterns)
	checkCol := findColumn(headers, historyCheckPatterns)

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	stats := &HistoryImportStats{}
	db := config.GetDB()

	for _, row := range rows {
		operatorName := cellAt(row, columns.Operator)
		amount, aerr := utils.ParseAmountCell(cellAt(row, columns.Amount))
		if operatorName == "" || aerr != nil || amount.IsZero() {
			stats.Skipped++
			continue
		}

		paymentDate := today
		if parsed, ok := utils.ParseDateCell(cellAt(row, columns.Date)); ok {
			paymentDate = parsed
		}

		method := PaymentMethodACH
		if raw := cellAt(row, methodCol); raw != "" && !strings.Contains(strings.ToLower(raw), "ach") {
			method = PaymentMethodCheck
		}

		var checkNumber *int
		if raw := utils.StripNonDigits(cellAt(row, checkCol)); raw != "" {
			var n int
			if _, serr := fmt.Sscanf(raw, "%d", &n); serr == nil && n > 0 {
				checkNumber = &n
			}
		}

		matched := MatchOperator(operators, operatorName)
		var operatorId *int
		if matched != nil {
			id := matched.ID
			operatorId = &id
		}

		processedDate := paymentDate
		payment := Payment{
			AccountId:      accountId,
			OperatorId:     operatorId,
			OperatorName:   operatorName,
			OwnerNumber:    cellAt(row, columns.Owner),
			Amount:         amount,
			PaymentDate:    paymentDate,
			DocNum:         cellAt(row, columns.DocNum),
			PaymentMethod:  method,
			Status:         PaymentStatusProcessed,
			CheckNumber:    checkNumber,
			ProcessedDate:  &processedDate,
			ImportFileName: fileName,
			IsHistorical:   true,
		}
		if err := db.WithContext(ctx).Create(&payment).Error; err != nil {
			config.LogError(logger, "paymentImport.go", "ImportHistoricalPayments", "create payment row", operatorName, err)
			return stats, err
		}
		stats.Imported++
	}
	stats.Total = stats.Imported + stats.Skipped

	if err := LogActivity(db.WithContext(ctx), "import",
		fmt.Sprintf("Imported %d historical payments for %s", stats.Imported, account.AccountPrefix),
		&account.ID); err != nil {
		config.LogError(logger, "paymentImport.go", "ImportHistoricalPayments", "log activity", account.ID, err)
	}
	return stats, nil
}

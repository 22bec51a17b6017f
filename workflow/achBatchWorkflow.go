package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rossperleberg/jib-payments/config"
	"github.com/rossperleberg/jib-payments/models"
	"github.com/rossperleberg/jib-payments/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const achFileHeader = "Name,Routing transit,Account number,Transaction code,Amount,Payment information"

// achTransactionCode 27 is a checking-account debit in the bank's upload
// format.
const achTransactionCode = "27"

const achNameMaxLen = 22

// achRecipientName picks the bank-facing payee name: legal entity name when
// one is on file, otherwise the captured spelling. Commas would shift the
// CSV columns, so they are stripped, and the bank caps the field at 22
// characters.
func achRecipientName(operator *models.Operator, capturedName string) string {
	name := ""
	if operator != nil && operator.LegalEntityName != "" {
		name = operator.LegalEntityName
	} else if capturedName != "" {
		name = capturedName
	} else {
		name = "Unknown"
	}
	name = strings.ReplaceAll(name, ",", "")
	if runes := []rune(name); len(runes) > achNameMaxLen {
		name = string(runes[:achNameMaxLen])
	}
	return name
}

// csvQuote wraps a field in double quotes, doubling any embedded quotes per
// RFC 4180.
func csvQuote(field string) string {
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

// achPaymentInfo builds the remittance memo: first word of the payee plus the
// account, owner number and invoice reference.
func achPaymentInfo(payment models.Payment, accountName string) string {
	firstWord := payment.OperatorName
	if idx := strings.IndexAny(firstWord, " \t"); idx > 0 {
		firstWord = firstWord[:idx]
	}
	return fmt.Sprintf("%s - %s #%s - Invoice #%s", firstWord, accountName, payment.OwnerNumber, payment.DocNum)
}

// BuildAchFile renders the bank upload CSV for a set of payments. The account
// number is quoted so spreadsheet tools keep leading zeros. Operators are
// looked up by id; every payment must already have passed eligibility
// validation.
func BuildAchFile(account models.Account, payments []models.Payment, operatorsById map[int]models.Operator) string {
	lines := make([]string, 0, len(payments)+1)
	lines = append(lines, achFileHeader)
	for _, p := range payments {
		var operator *models.Operator
		if p.OperatorId != nil {
			if op, ok := operatorsById[*p.OperatorId]; ok {
				operator = &op
			}
		}
		routing := ""
		accountNumber := ""
		if operator != nil {
			routing = utils.StripNonDigits(operator.RoutingNumber)
			accountNumber = operator.AccountNumber
		}
		line := fmt.Sprintf("%s,%s,%s,%s,%s,%s",
			achRecipientName(operator, p.OperatorName),
			routing,
			csvQuote(accountNumber),
			achTransactionCode,
			p.Amount.StringFixed(2),
			achPaymentInfo(p, account.AccountName),
		)
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// BatchName derives the period-stamped batch name, e.g. GPG_SEP2026.
func BatchName(prefix string, now time.Time) string {
	return fmt.Sprintf("%s_%s", prefix, strings.ToUpper(now.Format("Jan2006")))
}

// AchFileName derives the download file name, e.g. Great Plains_ACH_2026-09-01.csv.
func AchFileName(accountName string, now time.Time) string {
	return fmt.Sprintf("%s_ACH_%s.csv", accountName, now.Format("2006-01-02"))
}

type GenerateAchBatchInput struct {
	AccountId   int    `json:"account_id" binding:"required"`
	PaymentIds  []int  `json:"payment_ids"`
	GeneratedBy string `json:"generated_by"`
}

type GenerateAchBatchResult struct {
	Batch       *models.AchBatch `json:"batch"`
	FileName    string           `json:"file_name"`
	FileContent string           `json:"file_content"`
}

// collectBatchPayments resolves the payments going into a batch: the explicit
// id list (filtered down to ACH payments) when given, otherwise every ready
// ACH payment on the account. Every payment must belong to the batch's
// account; mixing accounts into one bank file is rejected outright, as is
// re-batching a payment that already left ready.
func collectBatchPayments(ctx context.Context, accountId int, paymentIds []int) ([]models.Payment, error) {
	if len(paymentIds) == 0 {
		return models.GetPayments(ctx, models.PaymentFilter{
			AccountId: accountId,
			Status:    models.PaymentStatusReady,
			Method:    models.PaymentMethodACH,
		})
	}
	var details []string
	payments := make([]models.Payment, 0, len(paymentIds))
	for _, id := range utils.UniqueSlice(paymentIds) {
		payment, err := models.GetPaymentById(ctx, id)
		if err != nil {
			if err == utils.ErrorRecordNotFound {
				details = append(details, fmt.Sprintf("payment %d not found", id))
				continue
			}
			return nil, err
		}
		if payment.PaymentMethod != models.PaymentMethodACH {
			continue
		}
		switch {
		case payment.AccountId != accountId:
			details = append(details, fmt.Sprintf("payment %d belongs to a different account", id))
		case payment.Status != models.PaymentStatusReady:
			details = append(details, fmt.Sprintf("payment %d is %s, not ready", id, payment.Status))
		default:
			payments = append(payments, *payment)
		}
	}
	if len(details) > 0 {
		return nil, utils.NewBusinessRuleError("some payments cannot be included in the batch", details...)
	}
	return payments, nil
}

// validateAchEligibility checks every payment's operator banking details in
// one pass and reports all problems together, so the user fixes the file
// once instead of replaying failures one by one. Routing numbers are judged
// on their digits only (statements arrive with dashes and spaces) and must
// be exactly 9 of them. Nothing is mutated here.
func validateAchEligibility(payments []models.Payment, operatorsById map[int]models.Operator) error {
	var details []string
	for _, p := range payments {
		if p.OperatorId == nil {
			details = append(details, fmt.Sprintf("payment %d (%s) has no assigned operator", p.ID, p.OperatorName))
			continue
		}
		operator, ok := operatorsById[*p.OperatorId]
		if !ok {
			details = append(details, fmt.Sprintf("payment %d (%s) references a missing operator", p.ID, p.OperatorName))
			continue
		}
		routing := utils.StripNonDigits(operator.RoutingNumber)
		if len(routing) != 9 {
			details = append(details, fmt.Sprintf("payment %d (%s): routing number has %d digits, expected 9", p.ID, operator.OperatorName, len(routing)))
			continue
		}
		if operator.AccountNumber == "" {
			details = append(details, fmt.Sprintf("payment %d (%s): operator has no account number", p.ID, operator.OperatorName))
		}
	}
	if len(details) > 0 {
		return utils.NewBusinessRuleError("cannot generate ACH file", details...)
	}
	return nil
}

func operatorIndex(ctx context.Context) (map[int]models.Operator, error) {
	operators, err := models.GetOperators(ctx)
	if err != nil {
		return nil, err
	}
	byId := make(map[int]models.Operator, len(operators))
	for _, op := range operators {
		byId[op.ID] = op
	}
	return byId, nil
}

// GenerateAchBatch builds one bank upload file from the account's ready ACH
// payments: validate everything up front, then in a single transaction create
// the batch record, move the payments into the entry tracker and write the
// audit entry. The file content is returned, not stored; downloads re-render
// it from the batch's payments.
func GenerateAchBatch(ctx context.Context, input *GenerateAchBatchInput) (*GenerateAchBatchResult, error) {
	logger := config.GetLogger()

	release, err := utils.AccountLock(ctx, input.AccountId, "AchBatch", "achBatchWorkflow.go", "GenerateAchBatch")
	if err != nil {
		return nil, err
	}
	defer release()

	account, err := models.GetAccountById(ctx, input.AccountId)
	if err != nil {
		return nil, err
	}
	payments, err := collectBatchPayments(ctx, input.AccountId, input.PaymentIds)
	if err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return nil, utils.NewBusinessRuleError("no ACH payments ready for this account")
	}
	operatorsById, err := operatorIndex(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateAchEligibility(payments, operatorsById); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	batchName := BatchName(account.AccountPrefix, now)
	fileName := AchFileName(account.AccountName, now)
	fileContent := BuildAchFile(*account, payments, operatorsById)

	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}

	batch := models.AchBatch{
		AccountId:     account.ID,
		BatchName:     batchName,
		FileName:      fileName,
		PaymentPeriod: now.Format("Jan 2006"),
		TotalAmount:   total,
		PaymentCount:  len(payments),
		GeneratedBy:   input.GeneratedBy,
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&batch).Error; err != nil {
			return err
		}
		for i := range payments {
			updates := map[string]interface{}{
				"status":     models.PaymentStatusInEntryTracker,
				"batch_id":   batch.ID,
				"batch_name": batchName,
			}
			if err := tx.Model(&models.Payment{}).Where("id = ?", payments[i].ID).Updates(updates).Error; err != nil {
				return err
			}
		}
		return models.LogActivity(tx, "generate_ach",
			fmt.Sprintf("Generated ACH batch %s with %d payments totaling $%s", batchName, len(payments), total.StringFixed(2)),
			&account.ID)
	})
	if err != nil {
		config.LogError(logger, "achBatchWorkflow.go", "GenerateAchBatch", "persist batch", input.AccountId, err)
		return nil, err
	}

	return &GenerateAchBatchResult{Batch: &batch, FileName: fileName, FileContent: fileContent}, nil
}

// RegenerateBatchFile re-renders the CSV for an existing batch from its
// current payments.
func RegenerateBatchFile(ctx context.Context, batchId int) (*GenerateAchBatchResult, error) {
	batch, err := models.GetBatchById(ctx, batchId)
	if err != nil {
		return nil, err
	}
	account, err := models.GetAccountById(ctx, batch.AccountId)
	if err != nil {
		return nil, err
	}
	payments, err := models.GetPayments(ctx, models.PaymentFilter{BatchId: batch.ID})
	if err != nil {
		return nil, err
	}
	operatorsById, err := operatorIndex(ctx)
	if err != nil {
		return nil, err
	}
	return &GenerateAchBatchResult{
		Batch:       batch,
		FileName:    batch.FileName,
		FileContent: BuildAchFile(*account, payments, operatorsById),
	}, nil
}

// DeleteAchBatch unwinds a generated batch: its payments go back to ready
// with batch linkage and entry flags cleared, then the batch row is removed.
func DeleteAchBatch(ctx context.Context, batchId int) error {
	logger := config.GetLogger()
	batch, err := models.GetBatchById(ctx, batchId)
	if err != nil {
		return err
	}

	release, err := utils.AccountLock(ctx, batch.AccountId, "AchBatch", "achBatchWorkflow.go", "DeleteAchBatch")
	if err != nil {
		return err
	}
	defer release()

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":          models.PaymentStatusReady,
			"batch_id":        nil,
			"batch_name":      "",
			"entry_edited":    false,
			"entry_edited_at": nil,
			"entry_sent":      false,
			"entry_sent_at":   nil,
		}
		if err := tx.Model(&models.Payment{}).Where("batch_id = ?", batch.ID).Updates(updates).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.AchBatch{}, batch.ID).Error; err != nil {
			return err
		}
		return models.LogActivity(tx, "delete_batch",
			fmt.Sprintf("Deleted ACH batch %s; its payments returned to ready", batch.BatchName),
			&batch.AccountId)
	})
	if err != nil {
		config.LogError(logger, "achBatchWorkflow.go", "DeleteAchBatch", "unwind batch", batchId, err)
	}
	return err
}

// MarkBatchProcessed settles every payment in the batch at once.
func MarkBatchProcessed(ctx context.Context, batchId int) (int, error) {
	batch, err := models.GetBatchById(ctx, batchId)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	db := config.GetDB()
	var updated int64
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Payment{}).
			Where("batch_id = ? AND status <> ?", batch.ID, models.PaymentStatusProcessed).
			Updates(map[string]interface{}{
				"status":         models.PaymentStatusProcessed,
				"processed_date": now,
			})
		if result.Error != nil {
			return result.Error
		}
		updated = result.RowsAffected
		return models.LogActivity(tx, "batch_processed",
			fmt.Sprintf("Marked batch %s processed (%d payments)", batch.BatchName, updated),
			&batch.AccountId)
	})
	return int(updated), err
}

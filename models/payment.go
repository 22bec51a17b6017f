package models

import (
	"context"
	"errors"
	"time"

	"github.com/rossperleberg/jib-payments/config"
	"github.com/rossperleberg/jib-payments/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment is the central mutable entity. OperatorId is nil while the payee is
// unmatched; OperatorName keeps the spelling captured from the source file
// even after matching. Amount can shrink when credit is applied, with the
// pre-credit value preserved in OriginalAmount.
type Payment struct {
	ID                    int              `gorm:"primary_key" json:"id"`
	AccountId             int              `gorm:"index;not null" json:"account_id"`
	OperatorId            *int             `gorm:"index" json:"operator_id"`
	OperatorName          string           `gorm:"size:255;not null" json:"operator_name"`
	OwnerNumber           string           `gorm:"size:100" json:"owner_number"`
	Amount                decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"amount"`
	OriginalAmount        *decimal.Decimal `gorm:"type:decimal(12,2)" json:"original_amount"`
	PaymentDate           time.Time        `gorm:"not null" json:"payment_date"`
	DocNum                string           `gorm:"size:100" json:"doc_num"`
	PaymentMethod         PaymentMethod    `gorm:"size:10;default:'ACH'" json:"payment_method"`
	Status                PaymentStatus    `gorm:"size:20;index;default:'pending'" json:"status"`
	BatchId               *int             `gorm:"index" json:"batch_id"`
	BatchName             string           `gorm:"size:100" json:"batch_name"`
	CheckNumber           *int             `json:"check_number"`
	ProcessedDate         *time.Time       `json:"processed_date"`
	FailedReason          string           `gorm:"size:255" json:"failed_reason"`
	CreditApplied         decimal.Decimal  `gorm:"type:decimal(12,2);default:0" json:"credit_applied"`
	PaidByCredit          bool             `gorm:"default:false" json:"paid_by_credit"`
	ImportFileName        string           `gorm:"size:255" json:"import_file_name"`
	ImportDate            *time.Time       `json:"import_date"`
	Notes                 string           `gorm:"type:text" json:"notes"`
	IsPotentialDuplicate  bool             `gorm:"default:false" json:"is_potential_duplicate"`
	DuplicateOfId         *int             `json:"duplicate_of_id"`
	HasAvailableCredit    bool             `gorm:"default:false" json:"has_available_credit"`
	AvailableCreditAmount *decimal.Decimal `gorm:"type:decimal(12,2)" json:"available_credit_amount"`
	EntryEdited           bool             `gorm:"default:false" json:"entry_edited"`
	EntryEditedAt         *time.Time       `json:"entry_edited_at"`
	EntrySent             bool             `gorm:"default:false" json:"entry_sent"`
	EntrySentAt           *time.Time       `json:"entry_sent_at"`
	IsHistorical          bool             `gorm:"default:false" json:"is_historical"`
	CreatedAt             time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPayment struct {
	AccountId     int             `json:"account_id" binding:"required" validate:"required"`
	OperatorId    *int            `json:"operator_id"`
	OperatorName  string          `json:"operator_name" binding:"required" validate:"required"`
	OwnerNumber   string          `json:"owner_number"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	PaymentDate   time.Time       `json:"payment_date"`
	DocNum        string          `json:"doc_num"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Status        PaymentStatus   `json:"status"`
	CheckNumber   *int            `json:"check_number"`
	ProcessedDate *time.Time      `json:"processed_date"`
	Notes         string          `json:"notes"`
	IsHistorical  bool            `json:"is_historical"`
}

// UpdatePaymentInput is a partial update; nil fields are left untouched.
type UpdatePaymentInput struct {
	OperatorName  *string          `json:"operator_name"`
	OwnerNumber   *string          `json:"owner_number"`
	Amount        *decimal.Decimal `json:"amount"`
	PaymentDate   *time.Time       `json:"payment_date"`
	DocNum        *string          `json:"doc_num"`
	PaymentMethod *PaymentMethod   `json:"payment_method"`
	Status        *PaymentStatus   `json:"status"`
	FailedReason  *string          `json:"failed_reason"`
	Notes         *string          `json:"notes"`
	EntryEdited   *bool            `json:"entry_edited"`
	EntrySent     *bool            `json:"entry_sent"`
}

type PaymentFilter struct {
	Status    PaymentStatus
	AccountId int
	BatchId   int
	Method    PaymentMethod
}

// centTolerance is the duplicate-detection amount tolerance.
var centTolerance = decimal.New(1, -2)

// FindDuplicate flags a candidate (operatorName, amount) against the existing
// payment set: first payment (in list order, any status) whose normalized name
// matches and whose amount differs by less than a cent. A non-zero cutoff
// restricts the comparison to payments dated on or after it. Advisory only.
func FindDuplicate(existing []Payment, operatorName string, amount decimal.Decimal, cutoff time.Time) *Payment {
	normalized := utils.NormalizeName(operatorName)
	if normalized == "" {
		return nil
	}
	for i := range existing {
		if !cutoff.IsZero() && existing[i].PaymentDate.Before(cutoff) {
			continue
		}
		if utils.NormalizeName(existing[i].OperatorName) != normalized {
			continue
		}
		if existing[i].Amount.Sub(amount).Abs().LessThan(centTolerance) {
			return &existing[i]
		}
	}
	return nil
}

// duplicateCutoff derives the comparison cutoff from the configured window.
func duplicateCutoff(now time.Time) time.Time {
	days := config.DuplicateWindowDays()
	if days <= 0 {
		return time.Time{}
	}
	return now.AddDate(0, 0, -days)
}

// entryFlagUpdate applies the entry-tracker sub-state rules:
// entrySent may only become true while entryEdited is true, and clearing
// entryEdited forces entrySent false.
func entryFlagUpdate(current Payment, edited, sent *bool, now time.Time) (Payment, error) {
	next := current
	if edited != nil {
		next.EntryEdited = *edited
		if *edited {
			t := now
			next.EntryEditedAt = &t
		} else {
			next.EntryEditedAt = nil
			next.EntrySent = false
			next.EntrySentAt = nil
		}
	}
	if sent != nil {
		if *sent && !next.EntryEdited {
			return current, utils.NewBusinessRuleError("payment must be marked edited before it can be marked sent")
		}
		next.EntrySent = *sent
		if *sent {
			t := now
			next.EntrySentAt = &t
		} else {
			next.EntrySentAt = nil
		}
	}
	return next, nil
}

func GetPayments(ctx context.Context, filter PaymentFilter) ([]Payment, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&Payment{})
	if filter.Status != "" {
		dbCtx = dbCtx.Where("status = ?", filter.Status)
	}
	if filter.AccountId != 0 {
		dbCtx = dbCtx.Where("account_id = ?", filter.AccountId)
	}
	if filter.BatchId != 0 {
		dbCtx = dbCtx.Where("batch_id = ?", filter.BatchId)
	}
	if filter.Method != "" {
		dbCtx = dbCtx.Where("payment_method = ?", filter.Method)
	}
	var payments []Payment
	if err := dbCtx.Order("id").Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func GetPaymentById(ctx context.Context, id int) (*Payment, error) {
	var payment Payment
	db := config.GetDB()
	err := db.WithContext(ctx).Where("id = ?", id).Take(&payment).Error
	if err == gorm.ErrRecordNotFound {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func CreatePayment(ctx context.Context, input *NewPayment) (*Payment, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if _, err := GetAccountById(ctx, input.AccountId); err != nil {
		return nil, errors.New("account not found")
	}
	if input.OperatorId != nil {
		if _, err := GetOperatorById(ctx, *input.OperatorId); err != nil {
			return nil, errors.New("operator not found")
		}
	}
	status := input.Status
	if status == "" {
		status = PaymentStatusPending
	}
	if !status.IsValid() {
		return nil, errors.New("invalid payment status")
	}
	method := input.PaymentMethod
	if method == "" {
		method = PaymentMethodCheck
	}
	if !method.IsValid() {
		return nil, errors.New("invalid payment method")
	}
	paymentDate := input.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = time.Now().UTC()
	}
	payment := Payment{
		AccountId:     input.AccountId,
		OperatorId:    input.OperatorId,
		OperatorName:  input.OperatorName,
		OwnerNumber:   input.OwnerNumber,
		Amount:        input.Amount,
		PaymentDate:   paymentDate,
		DocNum:        input.DocNum,
		PaymentMethod: method,
		Status:        status,
		CheckNumber:   input.CheckNumber,
		ProcessedDate: input.ProcessedDate,
		Notes:         input.Notes,
		IsHistorical:  input.IsHistorical,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// UpdatePayment applies a partial update, guarding the status transition
// table and the entry-tracker invariant. Workflow operations (batching,
// dispatch, credit application) have their own dedicated paths.
func UpdatePayment(ctx context.Context, id int, input *UpdatePaymentInput) (*Payment, error) {
	payment, err := GetPaymentById(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, errors.New("invalid payment status")
		}
		if !CanTransition(payment.Status, *input.Status) {
			return nil, utils.NewBusinessRuleError("cannot move payment from " + string(payment.Status) + " to " + string(*input.Status))
		}
		payment.Status = *input.Status
	}
	if input.PaymentMethod != nil {
		if !input.PaymentMethod.IsValid() {
			return nil, errors.New("invalid payment method")
		}
		payment.PaymentMethod = *input.PaymentMethod
	}
	if input.OperatorName != nil {
		payment.OperatorName = *input.OperatorName
	}
	if input.OwnerNumber != nil {
		payment.OwnerNumber = *input.OwnerNumber
	}
	if input.Amount != nil {
		if input.Amount.IsNegative() {
			return nil, errors.New("amount cannot be negative")
		}
		payment.Amount = *input.Amount
	}
	if input.PaymentDate != nil {
		payment.PaymentDate = *input.PaymentDate
	}
	if input.DocNum != nil {
		payment.DocNum = *input.DocNum
	}
	if input.FailedReason != nil {
		payment.FailedReason = *input.FailedReason
	}
	if input.Notes != nil {
		payment.Notes = *input.Notes
	}
	if input.EntryEdited != nil || input.EntrySent != nil {
		next, ferr := entryFlagUpdate(*payment, input.EntryEdited, input.EntrySent, time.Now().UTC())
		if ferr != nil {
			return nil, ferr
		}
		*payment = next
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Save(payment).Error; err != nil {
		return nil, err
	}
	return payment, nil
}

func DeletePayment(ctx context.Context, id int) error {
	db := config.GetDB()
	result := db.WithContext(ctx).Where("id = ?", id).Delete(&Payment{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}

func BulkDeletePayments(ctx context.Context, ids []int) (int, error) {
	uniqueIds := utils.UniqueSlice(ids)
	db := config.GetDB()
	result := db.WithContext(ctx).Where("id IN ?", uniqueIds).Delete(&Payment{})
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}

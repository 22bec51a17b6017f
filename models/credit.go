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

// Credit is a balance an operator owes back to an account (overpayment, cash
// call refund, ...). OriginalAmount is immutable once set; RemainingBalance is
// drawn down as the credit is applied to payments and stays within
// [0, OriginalAmount].
type Credit struct {
	ID               int             `gorm:"primary_key" json:"id"`
	AccountId        int             `gorm:"index;not null" json:"account_id" binding:"required"`
	OperatorId       int             `gorm:"index;not null" json:"operator_id" binding:"required"`
	OriginalAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"original_amount" binding:"required"`
	RemainingBalance decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"remaining_balance"`
	Source           CreditSource    `gorm:"size:50;not null" json:"source" binding:"required"`
	Reference        string          `gorm:"size:255" json:"reference"`
	DateReceived     time.Time       `gorm:"not null" json:"date_received"`
	CreatedBy        string          `gorm:"size:100" json:"created_by"`
	Notes            string          `gorm:"type:text" json:"notes"`
	IsActive         bool            `gorm:"default:true" json:"is_active"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCredit struct {
	AccountId        int             `json:"account_id" binding:"required" validate:"required"`
	OperatorId       int             `json:"operator_id" binding:"required" validate:"required"`
	OriginalAmount   decimal.Decimal `json:"original_amount" binding:"required"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	Source           CreditSource    `json:"source" binding:"required"`
	Reference        string          `json:"reference"`
	DateReceived     time.Time       `json:"date_received"`
	CreatedBy        string          `json:"created_by"`
	Notes            string          `json:"notes"`
	IsActive         *bool           `json:"is_active"`
}

// AvailableCredit sums the remaining balance of active credits with a
// positive balance for one operator. operatorId 0 means unmatched: no credit.
func AvailableCredit(credits []Credit, operatorId int) (hasCredit bool, amount decimal.Decimal) {
	amount = decimal.Zero
	if operatorId == 0 {
		return false, amount
	}
	for _, c := range credits {
		if c.OperatorId == operatorId && c.IsActive && c.RemainingBalance.IsPositive() {
			amount = amount.Add(c.RemainingBalance)
		}
	}
	return amount.IsPositive(), amount
}

func GetCredits(ctx context.Context) ([]Credit, error) {
	var credits []Credit
	db := config.GetDB()
	if err := db.WithContext(ctx).Order("id").Find(&credits).Error; err != nil {
		return nil, err
	}
	return credits, nil
}

func GetCreditById(ctx context.Context, id int) (*Credit, error) {
	var credit Credit
	db := config.GetDB()
	err := db.WithContext(ctx).Where("id = ?", id).Take(&credit).Error
	if err == gorm.ErrRecordNotFound {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &credit, nil
}

func (input *NewCredit) validate(ctx context.Context) error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if !input.Source.IsValid() {
		return errors.New("invalid credit source")
	}
	if !input.OriginalAmount.IsPositive() {
		return errors.New("original amount must be positive")
	}
	if input.RemainingBalance.IsNegative() || input.RemainingBalance.GreaterThan(input.OriginalAmount) {
		return errors.New("remaining balance must be between 0 and the original amount")
	}
	if _, err := GetAccountById(ctx, input.AccountId); err != nil {
		return errors.New("account not found")
	}
	if _, err := GetOperatorById(ctx, input.OperatorId); err != nil {
		return errors.New("operator not found")
	}
	return nil
}

func CreateCredit(ctx context.Context, input *NewCredit) (*Credit, error) {
	if input.RemainingBalance.IsZero() {
		input.RemainingBalance = input.OriginalAmount
	}
	if err := input.validate(ctx); err != nil {
		return nil, err
	}
	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	dateReceived := input.DateReceived
	if dateReceived.IsZero() {
		dateReceived = time.Now().UTC()
	}
	credit := Credit{
		AccountId:        input.AccountId,
		OperatorId:       input.OperatorId,
		OriginalAmount:   input.OriginalAmount,
		RemainingBalance: input.RemainingBalance,
		Source:           input.Source,
		Reference:        input.Reference,
		DateReceived:     dateReceived,
		CreatedBy:        input.CreatedBy,
		Notes:            input.Notes,
		IsActive:         isActive,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&credit).Error; err != nil {
		return nil, err
	}
	return &credit, nil
}

func UpdateCredit(ctx context.Context, id int, input *NewCredit) (*Credit, error) {
	credit, err := GetCreditById(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx); err != nil {
		return nil, err
	}
	// OriginalAmount is immutable once set.
	if !credit.OriginalAmount.Equal(input.OriginalAmount) {
		return nil, errors.New("original amount cannot be changed")
	}
	credit.RemainingBalance = input.RemainingBalance
	credit.Source = input.Source
	credit.Reference = input.Reference
	if !input.DateReceived.IsZero() {
		credit.DateReceived = input.DateReceived
	}
	credit.Notes = input.Notes
	if input.IsActive != nil {
		credit.IsActive = *input.IsActive
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Save(credit).Error; err != nil {
		return nil, err
	}
	return credit, nil
}

func DeleteCredit(ctx context.Context, id int) error {
	db := config.GetDB()
	result := db.WithContext(ctx).Where("id = ?", id).Delete(&Credit{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}

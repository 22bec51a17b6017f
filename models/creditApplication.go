package models

import (
	"context"
	"time"

	"github.com/rossperleberg/jib-payments/config"
	"github.com/shopspring/decimal"
)

// CreditApplication records one draw of a credit against a payment, so that
// removing an applied credit can restore the exact balances.
type CreditApplication struct {
	ID            int             `gorm:"primary_key" json:"id"`
	CreditId      int             `gorm:"index;not null" json:"credit_id"`
	PaymentId     int             `gorm:"index;not null" json:"payment_id"`
	AmountApplied decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount_applied"`
	AppliedDate   time.Time       `gorm:"not null" json:"applied_date"`
	AppliedBy     string          `gorm:"size:100" json:"applied_by"`
	Notes         string          `gorm:"type:text" json:"notes"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func GetCreditApplicationsForPayment(ctx context.Context, paymentId int) ([]CreditApplication, error) {
	var applications []CreditApplication
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("payment_id = ?", paymentId).Order("id").Find(&applications).Error; err != nil {
		return nil, err
	}
	return applications, nil
}

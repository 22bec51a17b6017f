package models

import (
	"context"
	"time"

	"github.com/rossperleberg/jib-payments/config"
	"github.com/rossperleberg/jib-payments/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AchBatch is the immutable record of one generated bank file.
type AchBatch struct {
	ID            int             `gorm:"primary_key" json:"id"`
	AccountId     int             `gorm:"index;not null" json:"account_id"`
	BatchName     string          `gorm:"size:100;not null" json:"batch_name"`
	FileName      string          `gorm:"size:255;not null" json:"file_name"`
	PaymentPeriod string          `gorm:"size:50" json:"payment_period"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	PaymentCount  int             `gorm:"not null" json:"payment_count"`
	GeneratedBy   string          `gorm:"size:100" json:"generated_by"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func GetBatches(ctx context.Context) ([]AchBatch, error) {
	var batches []AchBatch
	db := config.GetDB()
	if err := db.WithContext(ctx).Order("id DESC").Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

func GetBatchById(ctx context.Context, id int) (*AchBatch, error) {
	var batch AchBatch
	db := config.GetDB()
	err := db.WithContext(ctx).Where("id = ?", id).Take(&batch).Error
	if err == gorm.ErrRecordNotFound {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

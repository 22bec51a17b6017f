package models

import (
	"context"
	"time"

	"github.com/rossperleberg/jib-payments/config"
	"gorm.io/gorm"
)

// ActivityLog is the append-only audit trail; the core only ever writes it.
type ActivityLog struct {
	ID          int       `gorm:"primary_key" json:"id"`
	Action      string    `gorm:"size:50;not null" json:"action" binding:"required"`
	Description string    `gorm:"type:text;not null" json:"description" binding:"required"`
	AccountId   *int      `gorm:"index" json:"account_id"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type NewActivityLog struct {
	Action      string `json:"action" binding:"required"`
	Description string `json:"description" binding:"required"`
	AccountId   *int   `json:"account_id"`
}

// LogActivity writes an audit entry inside the caller's transaction so the
// entry commits (or rolls back) with the mutation it describes.
func LogActivity(tx *gorm.DB, action string, description string, accountId *int) error {
	entry := ActivityLog{
		Action:      action,
		Description: description,
		AccountId:   accountId,
	}
	return tx.Create(&entry).Error
}

func GetActivityLog(ctx context.Context, limit int) ([]ActivityLog, error) {
	if limit <= 0 {
		limit = 10
	}
	var entries []ActivityLog
	db := config.GetDB()
	if err := db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func CreateActivity(ctx context.Context, input *NewActivityLog) (*ActivityLog, error) {
	entry := ActivityLog{
		Action:      input.Action,
		Description: input.Description,
		AccountId:   input.AccountId,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

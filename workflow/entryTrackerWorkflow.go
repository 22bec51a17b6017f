package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/rossperleberg/jib-payments/config"
	"github.com/rossperleberg/jib-payments/models"
	"github.com/rossperleberg/jib-payments/utils"
	"gorm.io/gorm"
)

// MoveToEntryTracker moves ready payments into the entry tracker without
// generating a bank file (used for ACH payments handled outside a batch).
func MoveToEntryTracker(ctx context.Context, paymentIds []int) (int, error) {
	var details []string
	payments := make([]models.Payment, 0, len(paymentIds))
	for _, id := range utils.UniqueSlice(paymentIds) {
		payment, err := models.GetPaymentById(ctx, id)
		if err != nil {
			if err == utils.ErrorRecordNotFound {
				details = append(details, fmt.Sprintf("payment %d not found", id))
				continue
			}
			return 0, err
		}
		if payment.Status != models.PaymentStatusReady {
			details = append(details, fmt.Sprintf("payment %d is %s, not ready", id, payment.Status))
			continue
		}
		payments = append(payments, *payment)
	}
	if len(details) > 0 {
		return 0, utils.NewBusinessRuleError("some payments cannot be moved to the entry tracker", details...)
	}
	if len(payments) == 0 {
		return 0, utils.NewBusinessRuleError("no payments to move")
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range payments {
			if err := tx.Model(&models.Payment{}).Where("id = ?", p.ID).
				Update("status", models.PaymentStatusInEntryTracker).Error; err != nil {
				return err
			}
		}
		return models.LogActivity(tx, "move_to_entry",
			fmt.Sprintf("Moved %d payments to the entry tracker", len(payments)), nil)
	})
	if err != nil {
		return 0, err
	}
	return len(payments), nil
}

type EntryFlagsInput struct {
	EntryEdited *bool `json:"entry_edited"`
	EntrySent   *bool `json:"entry_sent"`
}

// SetEntryFlags updates the accounting sub-state of one tracked payment. The
// flags only mean anything while the payment sits in the entry tracker.
func SetEntryFlags(ctx context.Context, paymentId int, input *EntryFlagsInput) (*models.Payment, error) {
	payment, err := models.GetPaymentById(ctx, paymentId)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentStatusInEntryTracker {
		return nil, utils.NewBusinessRuleError("payment is not in the entry tracker")
	}
	return models.UpdatePayment(ctx, paymentId, &models.UpdatePaymentInput{
		EntryEdited: input.EntryEdited,
		EntrySent:   input.EntrySent,
	})
}

// MarkComplete settles one tracked payment. The accounting entry must have
// been sent first.
func MarkComplete(ctx context.Context, paymentId int) (*models.Payment, error) {
	payment, err := models.GetPaymentById(ctx, paymentId)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentStatusInEntryTracker {
		return nil, utils.NewBusinessRuleError("payment is not in the entry tracker")
	}
	if !payment.EntrySent {
		return nil, utils.NewBusinessRuleError("accounting entry has not been sent for this payment")
	}
	now := time.Now().UTC()
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":         models.PaymentStatusProcessed,
			"processed_date": now,
		}
		if err := tx.Model(&models.Payment{}).Where("id = ?", payment.ID).Updates(updates).Error; err != nil {
			return err
		}
		return models.LogActivity(tx, "mark_complete",
			fmt.Sprintf("Completed payment to %s for $%s", payment.OperatorName, payment.Amount.StringFixed(2)),
			&payment.AccountId)
	})
	if err != nil {
		return nil, err
	}
	payment.Status = models.PaymentStatusProcessed
	payment.ProcessedDate = &now
	return payment, nil
}

// MarkAllSentComplete settles every tracked payment whose entry has been
// sent, in one sweep.
func MarkAllSentComplete(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	db := config.GetDB()
	var updated int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Payment{}).
			Where("status = ? AND entry_sent = ?", models.PaymentStatusInEntryTracker, true).
			Updates(map[string]interface{}{
				"status":         models.PaymentStatusProcessed,
				"processed_date": now,
			})
		if result.Error != nil {
			return result.Error
		}
		updated = result.RowsAffected
		if updated == 0 {
			return nil
		}
		return models.LogActivity(tx, "mark_complete",
			fmt.Sprintf("Completed %d payments with sent entries", updated), nil)
	})
	return int(updated), err
}

// MarkPaymentsProcessed force-settles a set of payments regardless of entry
// flags (bulk action from the tracker screen).
func MarkPaymentsProcessed(ctx context.Context, paymentIds []int) (int, error) {
	ids := utils.UniqueSlice(paymentIds)
	if len(ids) == 0 {
		return 0, utils.NewBusinessRuleError("no payments given")
	}
	now := time.Now().UTC()
	db := config.GetDB()
	var updated int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Payment{}).
			Where("id IN ? AND status IN ?", ids,
				[]models.PaymentStatus{models.PaymentStatusInEntryTracker, models.PaymentStatusInBillPay}).
			Updates(map[string]interface{}{
				"status":         models.PaymentStatusProcessed,
				"processed_date": now,
			})
		if result.Error != nil {
			return result.Error
		}
		updated = result.RowsAffected
		return models.LogActivity(tx, "mark_processed",
			fmt.Sprintf("Marked %d payments processed", updated), nil)
	})
	return int(updated), err
}

// SendBackToEntry reverses a settled payment into its working state: ACH
// payments return to the entry tracker, checks to Bill Pay. The processed
// date and entry flags are cleared so the payment is reworked from scratch.
func SendBackToEntry(ctx context.Context, paymentId int) (*models.Payment, error) {
	payment, err := models.GetPaymentById(ctx, paymentId)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentStatusProcessed {
		return nil, utils.NewBusinessRuleError("only processed payments can be sent back")
	}

	target := models.PaymentStatusInEntryTracker
	if payment.PaymentMethod == models.PaymentMethodCheck {
		target = models.PaymentStatusInBillPay
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":          target,
			"processed_date":  nil,
			"entry_edited":    false,
			"entry_edited_at": nil,
			"entry_sent":      false,
			"entry_sent_at":   nil,
		}
		if err := tx.Model(&models.Payment{}).Where("id = ?", payment.ID).Updates(updates).Error; err != nil {
			return err
		}
		return models.LogActivity(tx, "send_back",
			fmt.Sprintf("Sent payment to %s back to %s", payment.OperatorName, target),
			&payment.AccountId)
	})
	if err != nil {
		return nil, err
	}
	return models.GetPaymentById(ctx, paymentId)
}

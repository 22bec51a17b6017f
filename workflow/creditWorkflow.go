package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/rossperleberg/jib-payments/config"
	"github.com/rossperleberg/jib-payments/models"
	"github.com/rossperleberg/jib-payments/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ApplyCreditInput struct {
	AppliedBy string `json:"applied_by"`
	Notes     string `json:"notes"`
}

type ApplyCreditResult struct {
	Payment       *models.Payment `json:"payment"`
	AmountApplied decimal.Decimal `json:"amount_applied"`
	FullyCovered  bool            `json:"fully_covered"`
}

// ApplyCredit draws the operator's open credits down against one payment,
// oldest credit first. The pre-credit amount is preserved in OriginalAmount
// and every draw gets a CreditApplication row, so the operation can be
// reversed exactly. A fully covered payment settles immediately as paid by
// credit. Balances only ever move here, inside one transaction; nothing is
// adjusted client-side.
func ApplyCredit(ctx context.Context, paymentId int, input *ApplyCreditInput) (*ApplyCreditResult, error) {
	logger := config.GetLogger()

	payment, err := models.GetPaymentById(ctx, paymentId)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentStatusPending && payment.Status != models.PaymentStatusReady {
		return nil, utils.NewBusinessRuleError("credit can only be applied to pending or ready payments")
	}
	if payment.CreditApplied.IsPositive() {
		return nil, utils.NewBusinessRuleError("credit is already applied to this payment; remove it first")
	}
	if payment.OperatorId == nil {
		return nil, utils.NewBusinessRuleError("payment has no assigned operator")
	}
	if !payment.Amount.IsPositive() {
		return nil, utils.NewBusinessRuleError("payment amount must be positive")
	}

	now := time.Now().UTC()
	result := &ApplyCreditResult{AmountApplied: decimal.Zero}
	db := config.GetDB()

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var credits []models.Credit
		if err := tx.Where("operator_id = ? AND is_active = ? AND remaining_balance > 0", *payment.OperatorId, true).
			Order("id").Find(&credits).Error; err != nil {
			return err
		}
		if len(credits) == 0 {
			return utils.NewBusinessRuleError("operator has no available credit")
		}

		remaining := payment.Amount
		applied := decimal.Zero
		for i := range credits {
			if !remaining.IsPositive() {
				break
			}
			draw := decimal.Min(credits[i].RemainingBalance, remaining)
			application := models.CreditApplication{
				CreditId:      credits[i].ID,
				PaymentId:     payment.ID,
				AmountApplied: draw,
				AppliedDate:   now,
				AppliedBy:     input.AppliedBy,
				Notes:         input.Notes,
			}
			if err := tx.Create(&application).Error; err != nil {
				return err
			}
			newBalance := credits[i].RemainingBalance.Sub(draw)
			if err := tx.Model(&models.Credit{}).Where("id = ?", credits[i].ID).
				Update("remaining_balance", newBalance).Error; err != nil {
				return err
			}
			remaining = remaining.Sub(draw)
			applied = applied.Add(draw)
		}

		original := payment.Amount
		updates := map[string]interface{}{
			"original_amount":         original,
			"amount":                  remaining,
			"credit_applied":          applied,
			"has_available_credit":    false,
			"available_credit_amount": nil,
		}
		if remaining.IsZero() {
			updates["paid_by_credit"] = true
			updates["status"] = models.PaymentStatusProcessed
			updates["processed_date"] = now
			result.FullyCovered = true
		}
		if err := tx.Model(&models.Payment{}).Where("id = ?", payment.ID).Updates(updates).Error; err != nil {
			return err
		}
		result.AmountApplied = applied

		return models.LogActivity(tx, "apply_credit",
			fmt.Sprintf("Applied $%s credit to payment for %s", applied.StringFixed(2), payment.OperatorName),
			&payment.AccountId)
	})
	if err != nil {
		if _, ok := err.(*utils.BusinessRuleError); !ok {
			config.LogError(logger, "creditWorkflow.go", "ApplyCredit", "apply credit", paymentId, err)
		}
		return nil, err
	}

	result.Payment, err = models.GetPaymentById(ctx, paymentId)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RemoveAppliedCredit reverses ApplyCredit: every recorded draw is returned
// to its credit, the payment's pre-credit amount is restored, and a payment
// that had settled by credit goes back to its working status.
func RemoveAppliedCredit(ctx context.Context, paymentId int) (*models.Payment, error) {
	payment, err := models.GetPaymentById(ctx, paymentId)
	if err != nil {
		return nil, err
	}
	applications, err := models.GetCreditApplicationsForPayment(ctx, paymentId)
	if err != nil {
		return nil, err
	}
	if len(applications) == 0 {
		return nil, utils.NewBusinessRuleError("no credit is applied to this payment")
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		restored := decimal.Zero
		for _, app := range applications {
			var credit models.Credit
			if err := tx.Where("id = ?", app.CreditId).Take(&credit).Error; err != nil {
				return err
			}
			newBalance := credit.RemainingBalance.Add(app.AmountApplied)
			if newBalance.GreaterThan(credit.OriginalAmount) {
				newBalance = credit.OriginalAmount
			}
			if err := tx.Model(&models.Credit{}).Where("id = ?", credit.ID).
				Update("remaining_balance", newBalance).Error; err != nil {
				return err
			}
			restored = restored.Add(app.AmountApplied)
		}
		if err := tx.Where("payment_id = ?", paymentId).Delete(&models.CreditApplication{}).Error; err != nil {
			return err
		}

		amount := payment.Amount
		if payment.OriginalAmount != nil {
			amount = *payment.OriginalAmount
		}
		updates := map[string]interface{}{
			"amount":          amount,
			"original_amount": nil,
			"credit_applied":  decimal.Zero,
			"paid_by_credit":  false,
		}
		if payment.PaidByCredit && payment.Status == models.PaymentStatusProcessed {
			target := models.PaymentStatusPending
			if payment.PaymentMethod == models.PaymentMethodACH {
				target = models.PaymentStatusReady
			}
			updates["status"] = target
			updates["processed_date"] = nil
		}
		if err := tx.Model(&models.Payment{}).Where("id = ?", payment.ID).Updates(updates).Error; err != nil {
			return err
		}

		return models.LogActivity(tx, "remove_credit",
			fmt.Sprintf("Removed $%s applied credit from payment for %s", restored.StringFixed(2), payment.OperatorName),
			&payment.AccountId)
	})
	if err != nil {
		return nil, err
	}
	return models.GetPaymentById(ctx, paymentId)
}

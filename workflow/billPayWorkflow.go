package workflow

import (
	"context"
	"fmt"

	"github.com/rossperleberg/jib-payments/config"
	"github.com/rossperleberg/jib-payments/models"
	"github.com/rossperleberg/jib-payments/utils"
	"gorm.io/gorm"
)

type SendChecksInput struct {
	PaymentIds []int  `json:"payment_ids"`
	AccountId  int    `json:"account_id"`
	SentBy     string `json:"sent_by"`
}

type SendChecksResult struct {
	Sent           int         `json:"sent"`
	CheckNumbers   map[int]int `json:"check_numbers"`
	NextCheckStart map[int]int `json:"next_check_start"`
}

// collectCheckPayments resolves which check payments are being dispatched:
// the explicit id list when given, otherwise every pending/ready check
// payment on the account. All selection problems are reported together.
func collectCheckPayments(ctx context.Context, input *SendChecksInput) ([]models.Payment, error) {
	if len(input.PaymentIds) == 0 {
		if input.AccountId == 0 {
			return nil, utils.NewBusinessRuleError("either payment_ids or account_id is required")
		}
		all, err := models.GetPayments(ctx, models.PaymentFilter{
			AccountId: input.AccountId,
			Method:    models.PaymentMethodCheck,
		})
		if err != nil {
			return nil, err
		}
		payments := make([]models.Payment, 0, len(all))
		for _, p := range all {
			if p.Status == models.PaymentStatusPending || p.Status == models.PaymentStatusReady {
				payments = append(payments, p)
			}
		}
		return payments, nil
	}

	var details []string
	payments := make([]models.Payment, 0, len(input.PaymentIds))
	for _, id := range utils.UniqueSlice(input.PaymentIds) {
		payment, err := models.GetPaymentById(ctx, id)
		if err != nil {
			if err == utils.ErrorRecordNotFound {
				details = append(details, fmt.Sprintf("payment %d not found", id))
				continue
			}
			return nil, err
		}
		switch {
		case payment.PaymentMethod != models.PaymentMethodCheck:
			details = append(details, fmt.Sprintf("payment %d is not a check payment", id))
		case payment.Status != models.PaymentStatusPending && payment.Status != models.PaymentStatusReady:
			details = append(details, fmt.Sprintf("payment %d is %s and cannot be sent to Bill Pay", id, payment.Status))
		default:
			payments = append(payments, *payment)
		}
	}
	if len(details) > 0 {
		return nil, utils.NewBusinessRuleError("some payments cannot be sent to Bill Pay", details...)
	}
	return payments, nil
}

// SendChecksToBillPay dispatches check payments: each account's payments get
// sequential check numbers continuing from that account's counter, move to
// in_bill_pay, and the counter advances past the last number used. Each
// account is processed under its own lock in one transaction, so concurrent
// dispatches can never hand out the same check number twice.
func SendChecksToBillPay(ctx context.Context, input *SendChecksInput) (*SendChecksResult, error) {
	logger := config.GetLogger()

	payments, err := collectCheckPayments(ctx, input)
	if err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return nil, utils.NewBusinessRuleError("no check payments to send")
	}

	byAccount := make(map[int][]models.Payment)
	for _, p := range payments {
		byAccount[p.AccountId] = append(byAccount[p.AccountId], p)
	}

	result := &SendChecksResult{
		CheckNumbers:   make(map[int]int, len(payments)),
		NextCheckStart: make(map[int]int, len(byAccount)),
	}
	db := config.GetDB()

	for accountId, accountPayments := range byAccount {
		release, err := utils.AccountLock(ctx, accountId, "BillPay", "billPayWorkflow.go", "SendChecksToBillPay")
		if err != nil {
			return nil, err
		}

		err = func() error {
			defer release()
			account, err := models.GetAccountById(ctx, accountId)
			if err != nil {
				return err
			}
			next := account.NextCheckNumber()
			return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				for _, p := range accountPayments {
					note := fmt.Sprintf("Check #%d sent via Bill Pay", next)
					if p.Notes != "" {
						note = p.Notes + "; " + note
					}
					updates := map[string]interface{}{
						"status":       models.PaymentStatusInBillPay,
						"check_number": next,
						"notes":        note,
					}
					if err := tx.Model(&models.Payment{}).Where("id = ?", p.ID).Updates(updates).Error; err != nil {
						return err
					}
					result.CheckNumbers[p.ID] = next
					next++
				}
				if err := tx.Model(&models.Account{}).Where("id = ?", accountId).
					Update("current_check_number", next).Error; err != nil {
					return err
				}
				result.NextCheckStart[accountId] = next
				result.Sent += len(accountPayments)
				return models.LogActivity(tx, "send_checks",
					fmt.Sprintf("Sent %d checks to Bill Pay for %s (next check #%d)", len(accountPayments), account.AccountPrefix, next),
					&account.ID)
			})
		}()
		if err != nil {
			config.LogError(logger, "billPayWorkflow.go", "SendChecksToBillPay", "dispatch checks", accountId, err)
			return nil, err
		}
	}
	return result, nil
}

type MarkCheckSentInput struct {
	CheckNumber int `json:"check_number" binding:"required"`
}

// MarkCheckSent records a check written by hand outside a dispatch run: the
// supplied number is stamped on the payment, the payment moves to
// in_bill_pay, and the account counter advances past the number so a later
// dispatch cannot hand it out again.
func MarkCheckSent(ctx context.Context, paymentId int, input *MarkCheckSentInput) (*models.Payment, error) {
	if input.CheckNumber <= 0 {
		return nil, utils.NewBusinessRuleError("check number must be positive")
	}
	payment, err := models.GetPaymentById(ctx, paymentId)
	if err != nil {
		return nil, err
	}
	if payment.PaymentMethod != models.PaymentMethodCheck {
		return nil, utils.NewBusinessRuleError("payment is not a check payment")
	}
	if payment.Status != models.PaymentStatusPending && payment.Status != models.PaymentStatusReady {
		return nil, utils.NewBusinessRuleError("payment is " + string(payment.Status) + " and cannot be marked check-sent")
	}

	release, err := utils.AccountLock(ctx, payment.AccountId, "BillPay", "billPayWorkflow.go", "MarkCheckSent")
	if err != nil {
		return nil, err
	}
	defer release()

	account, err := models.GetAccountById(ctx, payment.AccountId)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		note := fmt.Sprintf("Check #%d sent manually", input.CheckNumber)
		if payment.Notes != "" {
			note = payment.Notes + "; " + note
		}
		updates := map[string]interface{}{
			"status":       models.PaymentStatusInBillPay,
			"check_number": input.CheckNumber,
			"notes":        note,
		}
		if err := tx.Model(&models.Payment{}).Where("id = ?", payment.ID).Updates(updates).Error; err != nil {
			return err
		}
		if input.CheckNumber >= account.NextCheckNumber() {
			if err := tx.Model(&models.Account{}).Where("id = ?", account.ID).
				Update("current_check_number", input.CheckNumber+1).Error; err != nil {
				return err
			}
		}
		return models.LogActivity(tx, "check_sent",
			fmt.Sprintf("Recorded check #%d to %s", input.CheckNumber, payment.OperatorName),
			&payment.AccountId)
	})
	if err != nil {
		return nil, err
	}
	return models.GetPaymentById(ctx, paymentId)
}

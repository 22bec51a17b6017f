package workflow

import (
	"context"
	"fmt"

	"github.com/rossperleberg/jib-payments/config"
	"github.com/rossperleberg/jib-payments/models"
	"github.com/rossperleberg/jib-payments/utils"
	"gorm.io/gorm"
)

type AssignOperatorInput struct {
	OperatorId int  `json:"operator_id" binding:"required"`
	LearnAlias bool `json:"learn_alias"`
}

// AssignOperator links an unmatched payment to an operator and reclassifies
// it: an ACH-eligible operator promotes a pending payment to ready/ACH.
// The captured spelling is learned as an alias whenever it normalizes
// differently from the operator's names, so the next import matches it
// automatically; learn_alias forces the save even for spellings the gate
// would skip. Credit availability is re-annotated against the newly known
// operator.
func AssignOperator(ctx context.Context, paymentId int, input *AssignOperatorInput) (*models.Payment, error) {
	payment, err := models.GetPaymentById(ctx, paymentId)
	if err != nil {
		return nil, err
	}
	operator, err := models.GetOperatorById(ctx, input.OperatorId)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentStatusPending && payment.Status != models.PaymentStatusReady {
		return nil, utils.NewBusinessRuleError("operator can only be assigned while the payment is pending or ready")
	}

	credits, err := models.GetCredits(ctx)
	if err != nil {
		return nil, err
	}
	hasCredit, creditAmount := models.AvailableCredit(credits, operator.ID)

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"operator_id":          operator.ID,
			"has_available_credit": hasCredit,
		}
		if hasCredit {
			updates["available_credit_amount"] = creditAmount
		} else {
			updates["available_credit_amount"] = nil
		}
		if payment.Status == models.PaymentStatusPending && operator.AchEligible() {
			updates["status"] = models.PaymentStatusReady
			updates["payment_method"] = models.PaymentMethodACH
		}
		if err := tx.Model(&models.Payment{}).Where("id = ?", payment.ID).Updates(updates).Error; err != nil {
			return err
		}
		return models.LogActivity(tx, "assign_operator",
			fmt.Sprintf("Assigned %q to operator %s", payment.OperatorName, operator.OperatorName),
			&payment.AccountId)
	})
	if err != nil {
		return nil, err
	}

	if _, err := models.LearnAlias(ctx, operator.ID, payment.OperatorName, input.LearnAlias); err != nil {
		config.LogError(config.GetLogger(), "operatorAssignment.go", "AssignOperator", "learn alias", payment.OperatorName, err)
	}
	return models.GetPaymentById(ctx, paymentId)
}

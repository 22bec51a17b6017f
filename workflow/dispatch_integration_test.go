package workflow_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rossperleberg/jib-payments/config"
	"github.com/rossperleberg/jib-payments/models"
	"github.com/rossperleberg/jib-payments/workflow"
	"github.com/shopspring/decimal"
)

// Requires a running MySQL and Redis; point DB_* and REDIS_ADDRESS at them.
func integrationSetup(t *testing.T) context.Context {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires mysql + redis)")
	}
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	if err := models.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	ctx := context.Background()
	db := config.GetDB()
	for _, table := range []string{"payments", "ach_batches", "credit_applications", "credits", "activity_logs", "operators", "accounts"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			t.Fatalf("clean %s: %v", table, err)
		}
	}
	return ctx
}

func TestSendChecksAllocatesSequentialNumbers(t *testing.T) {
	ctx := integrationSetup(t)

	account, err := models.CreateAccount(ctx, &models.NewAccount{
		AccountName: "Great Plains Gas", AccountPrefix: "GPG", CurrentCheckNumber: 1005,
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	var ids []int
	for _, name := range []string{"Hess Corporation", "Slawson Exploration", "Whiting Petroleum"} {
		p, err := models.CreatePayment(ctx, &models.NewPayment{
			AccountId:     account.ID,
			OperatorName:  name,
			Amount:        decimal.NewFromFloat(250.00),
			PaymentMethod: models.PaymentMethodCheck,
		})
		if err != nil {
			t.Fatalf("create payment: %v", err)
		}
		ids = append(ids, p.ID)
	}

	result, err := workflow.SendChecksToBillPay(ctx, &workflow.SendChecksInput{PaymentIds: ids, SentBy: "test"})
	if err != nil {
		t.Fatalf("send checks: %v", err)
	}
	if result.Sent != 3 {
		t.Fatalf("expected 3 sent, got %d", result.Sent)
	}
	for i, id := range ids {
		expected := 1005 + i
		if got := result.CheckNumbers[id]; got != expected {
			t.Fatalf("payment %d expected check #%d, got #%d", id, expected, got)
		}
		p, err := models.GetPaymentById(ctx, id)
		if err != nil {
			t.Fatalf("reload payment: %v", err)
		}
		if p.Status != models.PaymentStatusInBillPay || p.CheckNumber == nil || *p.CheckNumber != expected {
			t.Fatalf("payment %d not dispatched correctly: %+v", id, p)
		}
	}

	reloaded, err := models.GetAccountById(ctx, account.ID)
	if err != nil {
		t.Fatalf("reload account: %v", err)
	}
	if reloaded.CurrentCheckNumber != 1008 {
		t.Fatalf("expected counter 1008, got %d", reloaded.CurrentCheckNumber)
	}
}

func TestAchBatchRoundTrip(t *testing.T) {
	ctx := integrationSetup(t)

	account, err := models.CreateAccount(ctx, &models.NewAccount{
		AccountName: "Western Energy Co", AccountPrefix: "WEC",
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	operator, err := models.CreateOperator(ctx, &models.NewOperator{
		OperatorName:  "Continental Resources",
		HasAch:        true,
		RoutingNumber: "103900036",
		AccountNumber: "210045678",
	})
	if err != nil {
		t.Fatalf("create operator: %v", err)
	}

	var ids []int
	for range [2]struct{}{} {
		p, err := models.CreatePayment(ctx, &models.NewPayment{
			AccountId:     account.ID,
			OperatorId:    &operator.ID,
			OperatorName:  "Continental Resources",
			Amount:        decimal.NewFromFloat(1000.00),
			PaymentMethod: models.PaymentMethodACH,
			Status:        models.PaymentStatusReady,
		})
		if err != nil {
			t.Fatalf("create payment: %v", err)
		}
		ids = append(ids, p.ID)
	}

	result, err := workflow.GenerateAchBatch(ctx, &workflow.GenerateAchBatchInput{
		AccountId: account.ID, GeneratedBy: "test",
	})
	if err != nil {
		t.Fatalf("generate batch: %v", err)
	}
	if result.Batch.PaymentCount != 2 || !result.Batch.TotalAmount.Equal(decimal.NewFromFloat(2000.00)) {
		t.Fatalf("unexpected batch: %+v", result.Batch)
	}
	if !strings.Contains(result.FileContent, "103900036") {
		t.Fatal("file content missing routing number")
	}
	if expected := time.Now().UTC().Format("Jan 2006"); result.Batch.PaymentPeriod != expected {
		t.Fatalf("expected payment period %q, got %q", expected, result.Batch.PaymentPeriod)
	}
	for _, id := range ids {
		p, err := models.GetPaymentById(ctx, id)
		if err != nil {
			t.Fatalf("reload payment: %v", err)
		}
		if p.Status != models.PaymentStatusInEntryTracker || p.BatchId == nil || *p.BatchId != result.Batch.ID {
			t.Fatalf("payment %d not moved into batch: %+v", id, p)
		}
	}

	// Deleting the batch unwinds everything.
	if err := workflow.DeleteAchBatch(ctx, result.Batch.ID); err != nil {
		t.Fatalf("delete batch: %v", err)
	}
	for _, id := range ids {
		p, err := models.GetPaymentById(ctx, id)
		if err != nil {
			t.Fatalf("reload payment: %v", err)
		}
		if p.Status != models.PaymentStatusReady || p.BatchId != nil || p.BatchName != "" {
			t.Fatalf("payment %d not unwound: %+v", id, p)
		}
	}
	if _, err := models.GetBatchById(ctx, result.Batch.ID); err == nil {
		t.Fatal("batch should be gone")
	}
}

func TestAssignOperatorLearnsCapturedSpelling(t *testing.T) {
	ctx := integrationSetup(t)

	account, err := models.CreateAccount(ctx, &models.NewAccount{
		AccountName: "Great Plains Gas", AccountPrefix: "GPG",
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	operator, err := models.CreateOperator(ctx, &models.NewOperator{OperatorName: "Continental Resources"})
	if err != nil {
		t.Fatalf("create operator: %v", err)
	}
	payment, err := models.CreatePayment(ctx, &models.NewPayment{
		AccountId:    account.ID,
		OperatorName: "Continental Res. Inc",
		Amount:       decimal.NewFromFloat(500.00),
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}

	// No learn_alias flag: a spelling that differs from the operator's names
	// is still saved.
	if _, err := workflow.AssignOperator(ctx, payment.ID, &workflow.AssignOperatorInput{OperatorId: operator.ID}); err != nil {
		t.Fatalf("assign operator: %v", err)
	}
	reloaded, err := models.GetOperatorById(ctx, operator.ID)
	if err != nil {
		t.Fatalf("reload operator: %v", err)
	}
	found := false
	for _, alias := range reloaded.Aliases {
		if alias == "Continental Res. Inc" {
			found = true
		}
	}
	if !found {
		t.Fatalf("captured spelling not learned, aliases: %v", reloaded.Aliases)
	}

	// An exact-name spelling adds nothing.
	exact, err := models.CreatePayment(ctx, &models.NewPayment{
		AccountId:    account.ID,
		OperatorName: "Continental Resources",
		Amount:       decimal.NewFromFloat(100.00),
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if _, err := workflow.AssignOperator(ctx, exact.ID, &workflow.AssignOperatorInput{OperatorId: operator.ID}); err != nil {
		t.Fatalf("assign operator: %v", err)
	}
	reloaded, err = models.GetOperatorById(ctx, operator.ID)
	if err != nil {
		t.Fatalf("reload operator: %v", err)
	}
	if len(reloaded.Aliases) != 1 {
		t.Fatalf("expected 1 alias, got %v", reloaded.Aliases)
	}
}

func TestMarkCheckSentRecordsManualCheck(t *testing.T) {
	ctx := integrationSetup(t)

	account, err := models.CreateAccount(ctx, &models.NewAccount{
		AccountName: "Great Plains Gas", AccountPrefix: "GPG", CurrentCheckNumber: 1005,
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	payment, err := models.CreatePayment(ctx, &models.NewPayment{
		AccountId:     account.ID,
		OperatorName:  "Hess Corporation",
		Amount:        decimal.NewFromFloat(250.00),
		PaymentMethod: models.PaymentMethodCheck,
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}

	updated, err := workflow.MarkCheckSent(ctx, payment.ID, &workflow.MarkCheckSentInput{CheckNumber: 2001})
	if err != nil {
		t.Fatalf("mark check sent: %v", err)
	}
	if updated.Status != models.PaymentStatusInBillPay {
		t.Fatalf("expected in_bill_pay, got %s", updated.Status)
	}
	if updated.CheckNumber == nil || *updated.CheckNumber != 2001 {
		t.Fatalf("check number not recorded: %+v", updated)
	}

	// The counter advances past the manual number so a later dispatch cannot
	// reuse it.
	reloaded, err := models.GetAccountById(ctx, account.ID)
	if err != nil {
		t.Fatalf("reload account: %v", err)
	}
	if reloaded.CurrentCheckNumber != 2002 {
		t.Fatalf("expected counter 2002, got %d", reloaded.CurrentCheckNumber)
	}

	// A number below the counter never moves it backwards.
	second, err := models.CreatePayment(ctx, &models.NewPayment{
		AccountId:     account.ID,
		OperatorName:  "Slawson Exploration",
		Amount:        decimal.NewFromFloat(75.00),
		PaymentMethod: models.PaymentMethodCheck,
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if _, err := workflow.MarkCheckSent(ctx, second.ID, &workflow.MarkCheckSentInput{CheckNumber: 50}); err != nil {
		t.Fatalf("mark check sent: %v", err)
	}
	reloaded, err = models.GetAccountById(ctx, account.ID)
	if err != nil {
		t.Fatalf("reload account: %v", err)
	}
	if reloaded.CurrentCheckNumber != 2002 {
		t.Fatalf("counter moved backwards: %d", reloaded.CurrentCheckNumber)
	}
}

func TestDashboardSummaryAggregates(t *testing.T) {
	ctx := integrationSetup(t)

	account, err := models.CreateAccount(ctx, &models.NewAccount{
		AccountName: "Great Plains Gas", AccountPrefix: "GPG",
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	for _, tc := range []struct {
		amount float64
		status models.PaymentStatus
	}{
		{100, models.PaymentStatusPending},
		{200, models.PaymentStatusPending},
		{300, models.PaymentStatusReady},
	} {
		if _, err := models.CreatePayment(ctx, &models.NewPayment{
			AccountId:    account.ID,
			OperatorName: "Hess Corporation",
			Amount:       decimal.NewFromFloat(tc.amount),
			Status:       tc.status,
		}); err != nil {
			t.Fatalf("create payment: %v", err)
		}
	}

	summary, err := models.GetDashboardSummary(ctx)
	if err != nil {
		t.Fatalf("dashboard summary: %v", err)
	}
	if summary.StatusCounts[models.PaymentStatusPending] != 2 {
		t.Fatalf("expected 2 pending, got %d", summary.StatusCounts[models.PaymentStatusPending])
	}
	if !summary.StatusAmounts[models.PaymentStatusPending].Equal(decimal.NewFromFloat(300.00)) {
		t.Fatalf("expected 300.00 pending, got %s", summary.StatusAmounts[models.PaymentStatusPending])
	}
	if summary.TotalCount != 3 || !summary.TotalAmount.Equal(decimal.NewFromFloat(600.00)) {
		t.Fatalf("unexpected totals: %d / %s", summary.TotalCount, summary.TotalAmount)
	}
}

func TestApplyCreditDrawsOldestFirst(t *testing.T) {
	ctx := integrationSetup(t)

	account, err := models.CreateAccount(ctx, &models.NewAccount{
		AccountName: "Great Plains Gas", AccountPrefix: "GPG",
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	operator, err := models.CreateOperator(ctx, &models.NewOperator{OperatorName: "XTO Energy"})
	if err != nil {
		t.Fatalf("create operator: %v", err)
	}
	for _, amount := range []float64{100, 500} {
		if _, err := models.CreateCredit(ctx, &models.NewCredit{
			AccountId:      account.ID,
			OperatorId:     operator.ID,
			OriginalAmount: decimal.NewFromFloat(amount),
			Source:         models.CreditSourceOverpayment,
		}); err != nil {
			t.Fatalf("create credit: %v", err)
		}
	}
	payment, err := models.CreatePayment(ctx, &models.NewPayment{
		AccountId:    account.ID,
		OperatorId:   &operator.ID,
		OperatorName: "XTO Energy",
		Amount:       decimal.NewFromFloat(250.00),
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}

	result, err := workflow.ApplyCredit(ctx, payment.ID, &workflow.ApplyCreditInput{AppliedBy: "test"})
	if err != nil {
		t.Fatalf("apply credit: %v", err)
	}
	if !result.FullyCovered {
		t.Fatal("payment should be fully covered")
	}
	if !result.AmountApplied.Equal(decimal.NewFromFloat(250.00)) {
		t.Fatalf("expected 250.00 applied, got %s", result.AmountApplied)
	}
	if result.Payment.Status != models.PaymentStatusProcessed || !result.Payment.PaidByCredit {
		t.Fatalf("payment should settle by credit: %+v", result.Payment)
	}

	// Oldest credit drained first: 100 then 150 of the 500.
	credits, err := models.GetCredits(ctx)
	if err != nil {
		t.Fatalf("list credits: %v", err)
	}
	if !credits[0].RemainingBalance.IsZero() {
		t.Fatalf("first credit should be drained, has %s", credits[0].RemainingBalance)
	}
	if !credits[1].RemainingBalance.Equal(decimal.NewFromFloat(350.00)) {
		t.Fatalf("second credit expected 350.00, has %s", credits[1].RemainingBalance)
	}

	// Removing the credit restores everything.
	restored, err := workflow.RemoveAppliedCredit(ctx, payment.ID)
	if err != nil {
		t.Fatalf("remove credit: %v", err)
	}
	if !restored.Amount.Equal(decimal.NewFromFloat(250.00)) || restored.PaidByCredit {
		t.Fatalf("payment not restored: %+v", restored)
	}
	credits, _ = models.GetCredits(ctx)
	if !credits[0].RemainingBalance.Equal(decimal.NewFromFloat(100.00)) ||
		!credits[1].RemainingBalance.Equal(decimal.NewFromFloat(500.00)) {
		t.Fatalf("credit balances not restored: %s / %s", credits[0].RemainingBalance, credits[1].RemainingBalance)
	}
}

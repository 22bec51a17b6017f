// seed-demo loads a small working data set: two paying accounts, a handful of
// operators (some ACH-ready, some not) and one open credit, so the import and
// batch flows can be exercised against a fresh database.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-demo
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rossperleberg/jib-payments/config"
	"github.com/rossperleberg/jib-payments/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var accounts = []models.Account{
	{AccountName: "Great Plains Gas", AccountPrefix: "GPG", BankName: "First Interstate", CurrentCheckNumber: 1000},
	{AccountName: "Western Energy Co", AccountPrefix: "WEC", BankName: "First Interstate", CurrentCheckNumber: 2500},
}

var operators = []models.Operator{
	{
		OperatorName:    "Continental Resources",
		LegalEntityName: "Continental Resources, Inc.",
		Aliases:         models.AliasList{"Continental Res"},
		HasAch:          true,
		BankName:        "Bank of Oklahoma",
		RoutingNumber:   "103900036",
		AccountNumber:   "210045678",
	},
	{
		OperatorName:    "XTO Energy",
		LegalEntityName: "XTO Energy Inc.",
		Aliases:         models.AliasList{"XTO", "XTO Energy Inc"},
		HasAch:          true,
		BankName:        "JPMorgan Chase",
		RoutingNumber:   "021000021",
		AccountNumber:   "884412345",
	},
	{
		OperatorName: "Hess Corporation",
		Aliases:      models.AliasList{"Hess"},
		HasAch:       false,
	},
	{
		OperatorName: "Slawson Exploration",
		HasAch:       false,
	},
}

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	if err := models.Migrate(); err != nil {
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}

	for i := range accounts {
		if err := upsertAccount(ctx, db, &accounts[i]); err != nil {
			fmt.Fprintf(os.Stderr, "failed to seed account %s: %v\n", accounts[i].AccountPrefix, err)
			os.Exit(1)
		}
	}
	for i := range operators {
		if err := upsertOperator(ctx, db, &operators[i]); err != nil {
			fmt.Fprintf(os.Stderr, "failed to seed operator %s: %v\n", operators[i].OperatorName, err)
			os.Exit(1)
		}
	}

	// One open credit against XTO so apply-credit has something to draw from.
	var xto models.Operator
	if err := db.WithContext(ctx).Where("operator_name = ?", "XTO Energy").Take(&xto).Error; err == nil {
		var count int64
		db.WithContext(ctx).Model(&models.Credit{}).Where("operator_id = ?", xto.ID).Count(&count)
		if count == 0 {
			credit := models.Credit{
				AccountId:        1,
				OperatorId:       xto.ID,
				OriginalAmount:   decimal.NewFromFloat(500),
				RemainingBalance: decimal.NewFromFloat(500),
				Source:           models.CreditSourceOverpayment,
				Reference:        "SEED-001",
				CreatedBy:        "seed-demo",
				IsActive:         true,
			}
			if err := db.WithContext(ctx).Create(&credit).Error; err != nil {
				fmt.Fprintf(os.Stderr, "failed to seed credit: %v\n", err)
				os.Exit(1)
			}
		}
	}

	fmt.Println("seed-demo: done")
}

func upsertAccount(ctx context.Context, db *gorm.DB, account *models.Account) error {
	var existing models.Account
	err := db.WithContext(ctx).Where("account_prefix = ?", account.AccountPrefix).Take(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return db.WithContext(ctx).Create(account).Error
	}
	if err != nil {
		return err
	}
	existing.AccountName = account.AccountName
	existing.BankName = account.BankName
	return db.WithContext(ctx).Save(&existing).Error
}

func upsertOperator(ctx context.Context, db *gorm.DB, operator *models.Operator) error {
	var existing models.Operator
	err := db.WithContext(ctx).Where("operator_name = ?", operator.OperatorName).Take(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return db.WithContext(ctx).Create(operator).Error
	}
	return err
}

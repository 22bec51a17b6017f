package models

import (
	"github.com/rossperleberg/jib-payments/config"
)

// Migrate runs gorm auto-migration for every table the service owns.
func Migrate() error {
	db := config.GetDB()
	return db.AutoMigrate(
		&Account{},
		&Operator{},
		&Payment{},
		&Credit{},
		&CreditApplication{},
		&AchBatch{},
		&ActivityLog{},
	)
}

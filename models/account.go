package models

import (
	"context"
	"time"

	"github.com/rossperleberg/jib-payments/config"
	"github.com/rossperleberg/jib-payments/utils"
	"gorm.io/gorm"
)

// Account is a paying company entity (GPG, WEC, ...). CurrentCheckNumber is
// the monotonic counter check dispatch allocates from.
type Account struct {
	ID                 int       `gorm:"primary_key" json:"id"`
	AccountName        string    `gorm:"size:255;not null" json:"account_name" binding:"required"`
	AccountPrefix      string    `gorm:"size:20;not null" json:"account_prefix" binding:"required"`
	BankName           string    `gorm:"size:255" json:"bank_name"`
	CurrentCheckNumber int       `gorm:"default:0" json:"current_check_number"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewAccount struct {
	AccountName        string `json:"account_name" binding:"required" validate:"required"`
	AccountPrefix      string `json:"account_prefix" binding:"required" validate:"required"`
	BankName           string `json:"bank_name"`
	CurrentCheckNumber int    `json:"current_check_number"`
}

// NextCheckNumber is where this account's check sequence continues from.
func (a Account) NextCheckNumber() int {
	if a.CurrentCheckNumber <= 0 {
		return config.DefaultCheckNumber()
	}
	return a.CurrentCheckNumber
}

func GetAccounts(ctx context.Context) ([]Account, error) {
	var accounts []Account
	db := config.GetDB()
	if err := db.WithContext(ctx).Order("id").Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

func GetAccountById(ctx context.Context, id int) (*Account, error) {
	var account Account
	db := config.GetDB()
	err := db.WithContext(ctx).Where("id = ?", id).Take(&account).Error
	if err == gorm.ErrRecordNotFound {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func CreateAccount(ctx context.Context, input *NewAccount) (*Account, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	account := Account{
		AccountName:        input.AccountName,
		AccountPrefix:      input.AccountPrefix,
		BankName:           input.BankName,
		CurrentCheckNumber: input.CurrentCheckNumber,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func UpdateAccount(ctx context.Context, id int, input *NewAccount) (*Account, error) {
	account, err := GetAccountById(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	account.AccountName = input.AccountName
	account.AccountPrefix = input.AccountPrefix
	account.BankName = input.BankName
	account.CurrentCheckNumber = input.CurrentCheckNumber
	db := config.GetDB()
	if err := db.WithContext(ctx).Save(account).Error; err != nil {
		return nil, err
	}
	return account, nil
}

func DeleteAccount(ctx context.Context, id int) error {
	db := config.GetDB()
	result := db.WithContext(ctx).Where("id = ?", id).Delete(&Account{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}

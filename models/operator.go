package models

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/rossperleberg/jib-payments/config"
	"github.com/rossperleberg/jib-payments/utils"
	"gorm.io/gorm"
)

// AliasList is an append-only dedup set of alternate operator spellings,
// stored as a JSON text column.
type AliasList []string

func (a AliasList) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *AliasList) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("unsupported alias list column type")
	}
	if len(raw) == 0 {
		*a = nil
		return nil
	}
	return json.Unmarshal(raw, a)
}

// Operator is a payee. A payment may only be classified ACH-eligible when
// HasAch is set AND both RoutingNumber and AccountNumber are present.
type Operator struct {
	ID              int       `gorm:"primary_key" json:"id"`
	OperatorName    string    `gorm:"size:255;not null;index" json:"operator_name" binding:"required"`
	LegalEntityName string    `gorm:"size:255" json:"legal_entity_name"`
	Aliases         AliasList `gorm:"type:text" json:"aliases"`
	HasAch          bool      `gorm:"default:false" json:"has_ach"`
	BankName        string    `gorm:"size:255" json:"bank_name"`
	BankAddress     string    `gorm:"type:text" json:"bank_address"`
	RoutingNumber   string    `gorm:"size:50" json:"routing_number"`
	AccountNumber   string    `gorm:"size:50" json:"account_number"`
	WireRouting     string    `gorm:"size:50" json:"wire_routing"`
	SwiftCode       string    `gorm:"size:20" json:"swift_code"`
	RemittanceEmail string    `gorm:"size:255" json:"remittance_email"`
	ContactName     string    `gorm:"size:255" json:"contact_name"`
	ContactPhone    string    `gorm:"size:50" json:"contact_phone"`
	ContactEmail    string    `gorm:"size:255" json:"contact_email"`
	Notes           string    `gorm:"type:text" json:"notes"`
	AchAddedBy      string    `gorm:"size:100" json:"ach_added_by"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewOperator struct {
	OperatorName    string   `json:"operator_name" binding:"required" validate:"required"`
	LegalEntityName string   `json:"legal_entity_name"`
	Aliases         []string `json:"aliases"`
	HasAch          bool     `json:"has_ach"`
	BankName        string   `json:"bank_name"`
	BankAddress     string   `json:"bank_address"`
	RoutingNumber   string   `json:"routing_number"`
	AccountNumber   string   `json:"account_number"`
	WireRouting     string   `json:"wire_routing"`
	SwiftCode       string   `json:"swift_code"`
	RemittanceEmail string   `json:"remittance_email" validate:"omitempty,email"`
	ContactName     string   `json:"contact_name"`
	ContactPhone    string   `json:"contact_phone"`
	ContactEmail    string   `json:"contact_email" validate:"omitempty,email"`
	Notes           string   `json:"notes"`
	AchAddedBy      string   `json:"ach_added_by"`
}

// AchEligible reports whether payments matched to this operator may be routed
// through ACH.
func (o Operator) AchEligible() bool {
	return o.HasAch && o.RoutingNumber != "" && o.AccountNumber != ""
}

// MatchOperator resolves a raw payee string against the operator list:
// exact normalized-name match first, then aliases; first match wins in list
// order; no fuzzy matching. Returns nil for an unknown operator.
func MatchOperator(operators []Operator, rawName string) *Operator {
	normalized := utils.NormalizeName(rawName)
	if normalized == "" {
		return nil
	}
	for i := range operators {
		if utils.NormalizeName(operators[i].OperatorName) == normalized {
			return &operators[i]
		}
	}
	for i := range operators {
		for _, alias := range operators[i].Aliases {
			if utils.NormalizeName(alias) == normalized {
				return &operators[i]
			}
		}
	}
	return nil
}

// appendAlias adds rawName to aliases unless an existing alias (or the name
// itself) already normalizes to it.
func appendAlias(operator *Operator, rawName string) (added bool) {
	normalized := utils.NormalizeName(rawName)
	if normalized == "" {
		return false
	}
	if utils.NormalizeName(operator.OperatorName) == normalized {
		return false
	}
	for _, alias := range operator.Aliases {
		if utils.NormalizeName(alias) == normalized {
			return false
		}
	}
	operator.Aliases = append(operator.Aliases, rawName)
	return true
}

// shouldLearnAlias decides whether a captured payee spelling is worth saving:
// it must differ (normalized) from both the canonical and legal names and be
// longer than two characters.
func shouldLearnAlias(operator Operator, rawName string) bool {
	normalized := utils.NormalizeName(rawName)
	if len(rawName) <= 2 || normalized == "" {
		return false
	}
	return normalized != utils.NormalizeName(operator.OperatorName) &&
		normalized != utils.NormalizeName(operator.LegalEntityName)
}

const operatorCacheKey = "Operators:all"

// GetOperators returns the full operator list, cached in redis; import-time
// matching reads this list once per file.
func GetOperators(ctx context.Context) ([]Operator, error) {
	var operators []Operator
	if found, err := config.GetRedisObject(operatorCacheKey, &operators); err == nil && found {
		return operators, nil
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Order("id").Find(&operators).Error; err != nil {
		return nil, err
	}
	_ = config.SetRedisObject(operatorCacheKey, operators, 5*time.Minute)
	return operators, nil
}

func invalidateOperatorCache() {
	_ = config.RemoveRedisKey(operatorCacheKey)
}

func GetOperatorById(ctx context.Context, id int) (*Operator, error) {
	var operator Operator
	db := config.GetDB()
	err := db.WithContext(ctx).Where("id = ?", id).Take(&operator).Error
	if err == gorm.ErrRecordNotFound {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &operator, nil
}

func validateOperatorInput(input *NewOperator) error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if input.ContactPhone != "" {
		if err := utils.ValidatePhoneNumber(input.ContactPhone, utils.CountryCode); err != nil {
			return utils.NewBusinessRuleError("contact phone is not a valid phone number")
		}
	}
	return nil
}

func CreateOperator(ctx context.Context, input *NewOperator) (*Operator, error) {
	if err := validateOperatorInput(input); err != nil {
		return nil, err
	}
	operator := Operator{
		OperatorName:    input.OperatorName,
		LegalEntityName: input.LegalEntityName,
		Aliases:         dedupAliases(input.Aliases),
		HasAch:          input.HasAch,
		BankName:        input.BankName,
		BankAddress:     input.BankAddress,
		RoutingNumber:   input.RoutingNumber,
		AccountNumber:   input.AccountNumber,
		WireRouting:     input.WireRouting,
		SwiftCode:       input.SwiftCode,
		RemittanceEmail: input.RemittanceEmail,
		ContactName:     input.ContactName,
		ContactPhone:    input.ContactPhone,
		ContactEmail:    input.ContactEmail,
		Notes:           input.Notes,
		AchAddedBy:      input.AchAddedBy,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&operator).Error; err != nil {
		return nil, err
	}
	invalidateOperatorCache()
	return &operator, nil
}

func UpdateOperator(ctx context.Context, id int, input *NewOperator) (*Operator, error) {
	operator, err := GetOperatorById(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateOperatorInput(input); err != nil {
		return nil, err
	}
	operator.OperatorName = input.OperatorName
	operator.LegalEntityName = input.LegalEntityName
	operator.Aliases = dedupAliases(input.Aliases)
	operator.HasAch = input.HasAch
	operator.BankName = input.BankName
	operator.BankAddress = input.BankAddress
	operator.RoutingNumber = input.RoutingNumber
	operator.AccountNumber = input.AccountNumber
	operator.WireRouting = input.WireRouting
	operator.SwiftCode = input.SwiftCode
	operator.RemittanceEmail = input.RemittanceEmail
	operator.ContactName = input.ContactName
	operator.ContactPhone = input.ContactPhone
	operator.ContactEmail = input.ContactEmail
	operator.Notes = input.Notes
	operator.AchAddedBy = input.AchAddedBy
	db := config.GetDB()
	if err := db.WithContext(ctx).Save(operator).Error; err != nil {
		return nil, err
	}
	invalidateOperatorCache()
	return operator, nil
}

func DeleteOperator(ctx context.Context, id int) error {
	db := config.GetDB()
	result := db.WithContext(ctx).Where("id = ?", id).Delete(&Operator{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	invalidateOperatorCache()
	return nil
}

// LearnAlias persists rawName as an alias of the operator. It is the explicit
// second step of operator assignment; matching itself never mutates. By
// default only spellings worth keeping are saved (shouldLearnAlias); force
// skips that gate, though duplicates are still dropped.
func LearnAlias(ctx context.Context, operatorId int, rawName string, force bool) (*Operator, error) {
	operator, err := GetOperatorById(ctx, operatorId)
	if err != nil {
		return nil, err
	}
	if !force && !shouldLearnAlias(*operator, rawName) {
		return operator, nil
	}
	if !appendAlias(operator, rawName) {
		return operator, nil
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(operator).Update("aliases", operator.Aliases).Error; err != nil {
		return nil, err
	}
	invalidateOperatorCache()
	return operator, nil
}

func dedupAliases(raw []string) AliasList {
	var out AliasList
	seen := make(map[string]struct{}, len(raw))
	for _, alias := range raw {
		normalized := utils.NormalizeName(alias)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, alias)
	}
	return out
}

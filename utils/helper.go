package utils

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/rossperleberg/jib-payments/config"
	"github.com/shopspring/decimal"
	"github.com/ttacon/libphonenumber"
)

// CountryCode is the default region for phone number validation.
var CountryCode = "US"

func ValidatePhoneNumber(phoneNumber, countryCode string) error {
	p, err := libphonenumber.Parse(phoneNumber, countryCode)
	if err != nil {
		return err
	}
	if !libphonenumber.IsValidNumber(p) {
		return fmt.Errorf("phone number is not valid")
	}
	return nil
}

// ParseDecimal converts a string to a decimal.Decimal value.
func ParseDecimal(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, errors.New("empty decimal string")
	}
	dec, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, err
	}
	return dec, nil
}

// ParseAmountCell parses a spreadsheet amount cell: currency symbol, thousands
// separators and whitespace are stripped before parsing.
func ParseAmountCell(raw string) (decimal.Decimal, error) {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "", "\t", "").Replace(strings.TrimSpace(raw))
	return ParseDecimal(cleaned)
}

// excelEpoch is the zero day of Excel's 1900 date system.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// ExcelSerialDate converts an Excel serial day count (days since 1899-12-30)
// to a UTC calendar date.
func ExcelSerialDate(serial float64) time.Time {
	d := excelEpoch.Add(time.Duration(serial * float64(24*time.Hour)))
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
	time.RFC3339,
}

// ParseDateCell interprets a spreadsheet date cell. Numeric cells are Excel
// serial dates; anything else is tried against common calendar layouts.
// ok is false when the cell cannot be interpreted.
func ParseDateCell(raw string) (t time.Time, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		return ExcelSerialDate(serial), true
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// StripNonDigits keeps only [0-9] from s. Routing and account numbers arrive
// with dashes and spaces in real statements.
func StripNonDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func UniqueSlice[T comparable](values []T) []T {
	seen := make(map[T]struct{}, len(values))
	out := make([]T, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func GenerateUniqueFilename() string {
	timestamp := time.Now().UnixNano()
	random := rand.Intn(1000)
	return fmt.Sprintf("%d_%d", timestamp, random)
}

// AccountLock obtains a redis lock scoped to one account so that concurrent
// check dispatches or batch generations cannot interleave. The caller must
// invoke the returned release func when its transaction is done; the lock is
// held for the duration of the critical section, not just this call.
func AccountLock(ctx context.Context, accountId int, lockType string, moduleName string, functionName string) (release func(), err error) {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		config.LogError(logger, moduleName, functionName, "Redis lock not initialized", accountId, errors.New("redis lock is nil"))
		return nil, errors.New("service not ready (redis lock not initialized)")
	}
	lockKey := fmt.Sprintf("%s:%d", lockType, accountId)
	lock, err := locker.Obtain(ctx, lockKey, 30*time.Second, nil)
	if err == redislock.ErrNotObtained {
		config.LogError(logger, moduleName, functionName, "Could not obtain lock for account", accountId, err)
		return nil, errors.New("another operation is running for this account, try again")
	} else if err != nil {
		config.LogError(logger, moduleName, functionName, "Error obtaining lock for account", accountId, err)
		return nil, err
	}
	return func() { _ = lock.Release(ctx) }, nil
}

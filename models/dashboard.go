package models

import (
	"context"

	"github.com/rossperleberg/jib-payments/config"
	"github.com/shopspring/decimal"
)

// DashboardSummary is the landing-page aggregate: payment counts and amounts
// by status, grand totals, and the latest audit entries.
type DashboardSummary struct {
	StatusCounts   map[PaymentStatus]int64           `json:"status_counts"`
	StatusAmounts  map[PaymentStatus]decimal.Decimal `json:"status_amounts"`
	TotalCount     int64                             `json:"total_count"`
	TotalAmount    decimal.Decimal                   `json:"total_amount"`
	RecentActivity []ActivityLog                     `json:"recent_activity"`
}

type statusAggregate struct {
	Status PaymentStatus
	Count  int64
	Total  decimal.Decimal
}

func GetDashboardSummary(ctx context.Context) (*DashboardSummary, error) {
	db := config.GetDB()

	var rows []statusAggregate
	err := db.WithContext(ctx).Model(&Payment{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	summary := &DashboardSummary{
		StatusCounts:  make(map[PaymentStatus]int64, len(rows)),
		StatusAmounts: make(map[PaymentStatus]decimal.Decimal, len(rows)),
		TotalAmount:   decimal.Zero,
	}
	for _, row := range rows {
		summary.StatusCounts[row.Status] = row.Count
		summary.StatusAmounts[row.Status] = row.Total
		summary.TotalCount += row.Count
		summary.TotalAmount = summary.TotalAmount.Add(row.Total)
	}

	summary.RecentActivity, err = GetActivityLog(ctx, 10)
	if err != nil {
		return nil, err
	}
	return summary, nil
}

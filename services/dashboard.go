package services

import (
	"context"
	"fmt"
	"time"

	"meal-admin/db"
	"meal-admin/models"
)

const (
	DefaultRevenueDays = 7
	recentOrdersLimit  = 5
)

// DashboardStats gathers the overview totals, a daily revenue series over the
// last days and the newest orders.
func DashboardStats(ctx context.Context, days int) (*models.DashboardStats, error) {
	var s models.DashboardStats
	err := db.Pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM orders),
			(SELECT COALESCE(SUM(total_amount), 0)::float8 FROM orders),
			(SELECT COUNT(*) FROM profiles),
			(SELECT COUNT(*) FROM meals)`,
	).Scan(&s.TotalOrders, &s.TotalRevenue, &s.ActiveUsers, &s.TotalMeals)
	if err != nil {
		return nil, fmt.Errorf("fetch stats: %w", err)
	}

	s.Revenue, err = RevenueSeries(ctx, time.Now(), days)
	if err != nil {
		return nil, err
	}
	s.RecentOrders, err = RecentOrders(ctx, recentOrdersLimit)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// RevenueSeries sums order totals per UTC day for the n days ending at now.
func RevenueSeries(ctx context.Context, now time.Time, days int) ([]models.RevenuePoint, error) {
	if days <= 0 {
		days = DefaultRevenueDays
	}
	r := LastDays(now, days)
	rows, err := db.Pool.Query(ctx, `
		SELECT to_char((created_at AT TIME ZONE 'UTC')::date, 'YYYY-MM-DD'), COALESCE(SUM(total_amount), 0)::float8
		FROM orders
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY 1`,
		r.Start, r.End.AddDate(0, 0, 1),
	)
	if err != nil {
		return nil, fmt.Errorf("fetch revenue: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]float64)
	for rows.Next() {
		var day string
		var revenue float64
		if err := rows.Scan(&day, &revenue); err != nil {
			return nil, fmt.Errorf("fetch revenue: %w", err)
		}
		totals[day] = revenue
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch revenue: %w", err)
	}
	return FillRevenue(r, totals), nil
}

// FillRevenue returns one point per day of r, zero where totals has no entry.
func FillRevenue(r DateRange, totals map[string]float64) []models.RevenuePoint {
	points := []models.RevenuePoint{}
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		points = append(points, models.RevenuePoint{
			Date:    key,
			Name:    d.Format("Jan 2"),
			Revenue: totals[key],
		})
	}
	return points
}

package models

type DashboardStats struct {
	TotalOrders  int64          `json:"total_orders"`
	TotalRevenue float64        `json:"total_revenue"`
	ActiveUsers  int64          `json:"active_users"`
	TotalMeals   int64          `json:"total_meals"`
	Revenue      []RevenuePoint `json:"revenue"`
	RecentOrders []Order        `json:"recent_orders"`
}

// RevenuePoint is one day of the revenue chart.
type RevenuePoint struct {
	Date    string  `json:"date"`
	Name    string  `json:"name"`
	Revenue float64 `json:"revenue"`
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"meal-admin/csvexport"
	"meal-admin/db"
	"meal-admin/models"

	"github.com/jackc/pgx/v5"
)

var ErrInvalidStatus = errors.New("invalid order status")

// ValidStatus reports whether status is one an admin may set. Any known status
// may follow any other; the backend owns the workflow.
func ValidStatus(status string) bool {
	for _, s := range models.OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

const orderColumns = `
	o.id::text, o.order_number, o.user_id::text,
	o.subtotal::float8, COALESCE(o.delivery_fee, 0)::float8,
	COALESCE(o.discount_amount, 0)::float8, o.total_amount::float8,
	COALESCE(o.status, ''), COALESCE(o.payment_status, ''), COALESCE(o.payment_method, ''),
	o.delivery_address, o.delivery_date, COALESCE(o.delivery_time_slot, ''),
	COALESCE(o.notes, ''), o.meal_plan_id::text, COALESCE(o.created_at, 'epoch'::timestamptz),
	COALESCE(p.first_name, ''), COALESCE(p.last_name, '')
	FROM orders o
	LEFT JOIN profiles p ON p.id = o.user_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (models.Order, error) {
	var o models.Order
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID,
		&o.Subtotal, &o.DeliveryFee,
		&o.DiscountAmount, &o.TotalAmount,
		&o.Status, &o.PaymentStatus, &o.PaymentMethod,
		&o.DeliveryAddress, &o.DeliveryDate, &o.DeliveryTimeSlot,
		&o.Notes, &o.MealPlanID, &o.CreatedAt,
		&o.Customer.FirstName, &o.Customer.LastName,
	)
	return o, err
}

func queryOrders(ctx context.Context, sql string, args ...any) ([]models.Order, error) {
	rows, err := db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// ListOrders returns every order, newest first, with its resolved items.
func ListOrders(ctx context.Context) ([]models.Order, error) {
	orders, err := queryOrders(ctx, `SELECT `+orderColumns+` ORDER BY o.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("fetch orders: %w", err)
	}
	if err := attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// RecentOrders returns the newest orders without their items.
func RecentOrders(ctx context.Context, limit int) ([]models.Order, error) {
	orders, err := queryOrders(ctx, `SELECT `+orderColumns+` ORDER BY o.created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch recent orders: %w", err)
	}
	return orders, nil
}

// GetOrder returns one order with its items. pgx.ErrNoRows is returned for an
// unknown id.
func GetOrder(ctx context.Context, id string) (*models.Order, error) {
	o, err := scanOrder(db.Pool.QueryRow(ctx, `SELECT `+orderColumns+` WHERE o.id = $1::uuid`, id))
	if err != nil {
		return nil, err
	}
	orders := []models.Order{o}
	if err := attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// UpdateOrderStatus sets the status of an order.
func UpdateOrderStatus(ctx context.Context, id, status string) error {
	if !ValidStatus(status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	tag, err := db.Pool.Exec(ctx, `
		UPDATE orders SET status = $1, updated_at = now()
		WHERE id = $2::uuid`,
		status, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// attachItems loads the meal plan items of orders and the meals they
// reference, then resolves them onto the orders.
func attachItems(ctx context.Context, orders []models.Order) error {
	planIDs := mealPlanIDs(orders)
	if len(planIDs) == 0 {
		ResolveOrderItems(orders, nil, nil)
		return nil
	}
	items, err := fetchMealPlanItems(ctx, planIDs)
	if err != nil {
		return fmt.Errorf("fetch meal plan items: %w", err)
	}
	meals, err := fetchMealRefs(ctx, referencedMealIDs(items))
	if err != nil {
		return fmt.Errorf("fetch meals: %w", err)
	}
	ResolveOrderItems(orders, items, meals)
	return nil
}

func fetchMealPlanItems(ctx context.Context, planIDs []string) ([]models.MealPlanItem, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id::text, meal_plan_id::text, meal_id::text, half_meal_1_id::text, half_meal_2_id::text,
			is_half_half, quantity, unit_price::float8, meal_type, delivery_date, delivery_time_slot
		FROM meal_plan_items
		WHERE meal_plan_id = ANY($1::uuid[])
		ORDER BY delivery_date, created_at`,
		planIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.MealPlanItem
	for rows.Next() {
		var it models.MealPlanItem
		if err := rows.Scan(
			&it.ID, &it.MealPlanID, &it.MealID, &it.HalfMeal1ID, &it.HalfMeal2ID,
			&it.IsHalfHalf, &it.Quantity, &it.UnitPrice, &it.MealType, &it.DeliveryDate, &it.DeliveryTimeSlot,
		); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func fetchMealRefs(ctx context.Context, ids []string) (map[string]models.MealRef, error) {
	meals := make(map[string]models.MealRef, len(ids))
	if len(ids) == 0 {
		return meals, nil
	}
	rows, err := db.Pool.Query(ctx, `
		SELECT id::text, name, COALESCE(image_url, '')
		FROM meals
		WHERE id = ANY($1::uuid[])`,
		ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var m models.MealRef
		if err := rows.Scan(&m.ID, &m.Name, &m.ImageURL); err != nil {
			return nil, err
		}
		meals[m.ID] = m
	}
	return meals, rows.Err()
}

// FilterOrders keeps orders whose number contains q, ignoring case.
func FilterOrders(orders []models.Order, q string) []models.Order {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return orders
	}
	out := []models.Order{}
	for _, o := range orders {
		if strings.Contains(strings.ToLower(o.OrderNumber), q) {
			out = append(out, o)
		}
	}
	return out
}

// ExportTimeLayout formats timestamps in exported files.
const ExportTimeLayout = "2006-01-02 15:04:05"

var OrderExportFields = []string{"order_number", "customer_name", "total_amount", "status", "payment_status", "created_at"}

// OrderExportRows flattens orders into export records.
func OrderExportRows(orders []models.Order) []csvexport.Record {
	records := make([]csvexport.Record, 0, len(orders))
	for _, o := range orders {
		records = append(records, csvexport.Record{
			"order_number":   o.OrderNumber,
			"customer_name":  strings.TrimSpace(o.Customer.FirstName + " " + o.Customer.LastName),
			"total_amount":   o.TotalAmount,
			"status":         o.Status,
			"payment_status": o.PaymentStatus,
			"created_at":     formatExportTime(&o.CreatedAt),
		})
	}
	return records
}

func formatExportTime(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.Format(ExportTimeLayout)
}

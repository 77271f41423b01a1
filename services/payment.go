package services

import (
	"context"
	"fmt"
	"strings"

	"meal-admin/csvexport"
	"meal-admin/db"
	"meal-admin/models"
)

const paymentColumns = `
	p.id::text, p.order_id::text, o.order_number, o.user_id::text,
	p.amount::float8, COALESCE(p.currency, ''), p.payment_method, COALESCE(p.status, ''),
	p.external_transaction_id, p.commission_eligible, p.commission_calculated,
	p.referral_id::text, p.processed_at, COALESCE(p.created_at, 'epoch'::timestamptz)
	FROM payments p
	JOIN orders o ON o.id = p.order_id`

func scanPayment(row rowScanner) (models.Payment, error) {
	var p models.Payment
	err := row.Scan(
		&p.ID, &p.OrderID, &p.OrderNumber, &p.UserID,
		&p.Amount, &p.Currency, &p.PaymentMethod, &p.Status,
		&p.ExternalTransactionID, &p.CommissionEligible, &p.CommissionCalculated,
		&p.ReferralID, &p.ProcessedAt, &p.CreatedAt,
	)
	return p, err
}

// ListPayments returns every payment, newest first, with its order number and
// the paying customer's name.
func ListPayments(ctx context.Context) ([]models.Payment, error) {
	rows, err := db.Pool.Query(ctx, `SELECT `+paymentColumns+` ORDER BY p.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("fetch payments: %w", err)
	}
	defer rows.Close()

	payments := []models.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("fetch payments: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch payments: %w", err)
	}
	rows.Close()

	if err := attachPaymentCustomers(ctx, payments); err != nil {
		return nil, err
	}
	return payments, nil
}

// GetPayment returns one payment. pgx.ErrNoRows is returned for an unknown id.
func GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	p, err := scanPayment(db.Pool.QueryRow(ctx, `SELECT `+paymentColumns+` WHERE p.id = $1::uuid`, id))
	if err != nil {
		return nil, err
	}
	payments := []models.Payment{p}
	if err := attachPaymentCustomers(ctx, payments); err != nil {
		return nil, err
	}
	return &payments[0], nil
}

func attachPaymentCustomers(ctx context.Context, payments []models.Payment) error {
	ids := make([]string, 0, len(payments))
	for _, p := range payments {
		if p.UserID != "" {
			ids = append(ids, p.UserID)
		}
	}
	names, err := fetchProfileNames(ctx, ids)
	if err != nil {
		return fmt.Errorf("fetch payment customers: %w", err)
	}
	AttachCustomers(payments, names)
	return nil
}

// AttachCustomers sets the customer of each payment whose user has a profile.
func AttachCustomers(payments []models.Payment, names map[string]models.PersonName) {
	for i := range payments {
		if n, ok := names[payments[i].UserID]; ok {
			payments[i].Customer = &n
		}
	}
}

// fetchProfileNames loads the names of the given profiles in one query.
func fetchProfileNames(ctx context.Context, ids []string) (map[string]models.PersonName, error) {
	names := make(map[string]models.PersonName)
	if len(ids) == 0 {
		return names, nil
	}
	rows, err := db.Pool.Query(ctx, `
		SELECT id::text, COALESCE(first_name, ''), COALESCE(last_name, '')
		FROM profiles
		WHERE id = ANY($1::uuid[])`,
		ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var n models.PersonName
		if err := rows.Scan(&id, &n.FirstName, &n.LastName); err != nil {
			return nil, err
		}
		names[id] = n
	}
	return names, rows.Err()
}

// FilterPayments keeps payments whose order number or payment method contains
// q, ignoring case.
func FilterPayments(payments []models.Payment, q string) []models.Payment {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return payments
	}
	out := []models.Payment{}
	for _, p := range payments {
		if strings.Contains(strings.ToLower(p.OrderNumber), q) ||
			strings.Contains(strings.ToLower(p.PaymentMethod), q) {
			out = append(out, p)
		}
	}
	return out
}

var PaymentExportFields = []string{"order_number", "customer_name", "amount", "currency", "payment_method", "status", "created_at", "processed_at"}

// PaymentExportRows flattens payments into export records.
func PaymentExportRows(payments []models.Payment) []csvexport.Record {
	records := make([]csvexport.Record, 0, len(payments))
	for _, p := range payments {
		customer := ""
		if p.Customer != nil {
			customer = p.Customer.FirstName + " " + p.Customer.LastName
		}
		records = append(records, csvexport.Record{
			"order_number":   p.OrderNumber,
			"customer_name":  customer,
			"amount":         p.Amount,
			"currency":       p.Currency,
			"payment_method": p.PaymentMethod,
			"status":         p.Status,
			"created_at":     formatExportTime(&p.CreatedAt),
			"processed_at":   formatExportTime(p.ProcessedAt),
		})
	}
	return records
}

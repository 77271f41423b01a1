package models

import "time"

const (
	PaymentStatusCompleted = "completed"
	PaymentStatusPending   = "pending"
	PaymentStatusFailed    = "failed"
)

type Payment struct {
	ID                    string      `json:"id"`
	OrderID               string      `json:"order_id"`
	OrderNumber           string      `json:"order_number"`
	UserID                string      `json:"user_id"`
	Amount                float64     `json:"amount"`
	Currency              string      `json:"currency"`
	PaymentMethod         string      `json:"payment_method"`
	Status                string      `json:"status"`
	ExternalTransactionID *string     `json:"external_transaction_id"`
	CommissionEligible    *bool       `json:"commission_eligible"`
	CommissionCalculated  *bool       `json:"commission_calculated"`
	ReferralID            *string     `json:"referral_id"`
	ProcessedAt           *time.Time  `json:"processed_at"`
	CreatedAt             time.Time   `json:"created_at"`
	Customer              *PersonName `json:"customer"`
}

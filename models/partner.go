package models

import "time"

const (
	ReferralStatusPending   = "pending"
	ReferralStatusConverted = "converted"
	ReferralStatusExpired   = "expired"

	CommissionStatusPending = "pending"
)

type Partner struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	PartnerCode    string    `json:"partner_code"`
	ContactEmail   string    `json:"contact_email"`
	CommissionRate float64   `json:"commission_rate"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

type Referral struct {
	ID            string      `json:"id"`
	PartnerID     string      `json:"partner_id"`
	ReferralToken string      `json:"referral_token"`
	Status        string      `json:"status"`
	UserID        *string     `json:"user_id"`
	CreatedAt     time.Time   `json:"created_at"`
	ConvertedAt   *time.Time  `json:"converted_at"`
	ExpiresAt     *time.Time  `json:"expires_at"`
	PartnerName   string      `json:"partner_name"`
	PartnerCode   string      `json:"partner_code"`
	ReferredUser  *PersonName `json:"referred_user"`
}

type PartnerCommission struct {
	ID                  string     `json:"id"`
	PartnerID           string     `json:"partner_id"`
	PaymentID           string     `json:"payment_id"`
	ReferralID          *string    `json:"referral_id"`
	PaymentAmount       float64    `json:"payment_amount"`
	CommissionRate      float64    `json:"commission_rate"`
	CommissionAmount    float64    `json:"commission_amount"`
	Status              string     `json:"status"`
	SettlementDate      *time.Time `json:"settlement_date"`
	SettlementReference *string    `json:"settlement_reference"`
	CreatedAt           time.Time  `json:"created_at"`
}

// CommissionMetrics is the result of get_partner_commission_metrics.
type CommissionMetrics struct {
	TotalPayments         int64   `json:"total_payments"`
	TotalPaymentAmount    float64 `json:"total_payment_amount"`
	TotalCommissionAmount float64 `json:"total_commission_amount"`
	PendingCommission     float64 `json:"pending_commission"`
	ApprovedCommission    float64 `json:"approved_commission"`
	PaidCommission        float64 `json:"paid_commission"`
	ReversedCommission    float64 `json:"reversed_commission"`
}

// ReferralMetrics is the result of get_partner_referral_metrics.
type ReferralMetrics struct {
	TotalReferrals     int64 `json:"total_referrals"`
	ConvertedReferrals int64 `json:"converted_referrals"`
	PendingReferrals   int64 `json:"pending_referrals"`
	ExpiredReferrals   int64 `json:"expired_referrals"`
}

// LedgerEntry is one row of get_partner_commission_ledger.
type LedgerEntry struct {
	ID                  string     `json:"id"`
	PaymentDate         *time.Time `json:"payment_date"`
	PaymentAmount       float64    `json:"payment_amount"`
	CommissionRate      float64    `json:"commission_rate"`
	CommissionAmount    float64    `json:"commission_amount"`
	Status              string     `json:"status"`
	SettlementDate      *time.Time `json:"settlement_date"`
	SettlementReference *string    `json:"settlement_reference"`
}

type PartnerStats struct {
	TotalReferrals     int     `json:"total_referrals"`
	ConvertedReferrals int     `json:"converted_referrals"`
	TotalCommissions   float64 `json:"total_commissions"`
	PendingCommissions float64 `json:"pending_commissions"`
}

// PartnerDashboard is the partner-facing view.
type PartnerDashboard struct {
	Partner         Partner             `json:"partner"`
	RecentReferrals []Referral          `json:"recent_referrals"`
	Commissions     []PartnerCommission `json:"commissions"`
	Stats           PartnerStats        `json:"stats"`
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"meal-admin/db"
	"meal-admin/models"

	"github.com/jackc/pgx/v5"
)

var ErrPartnerNotFound = errors.New("partner account not found")

const (
	PartnerStatusActive = "active"

	recentReferralLimit = 10
	DefaultLedgerLimit  = 50
)

// DateRange bounds the partner metrics RPCs, both ends inclusive.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// LastDays returns the range covering the n days up to and including now.
func LastDays(now time.Time, n int) DateRange {
	end := now.UTC().Truncate(24 * time.Hour)
	return DateRange{Start: end.AddDate(0, 0, -(n - 1)), End: end}
}

const partnerColumns = `
	id::text, name, partner_code, COALESCE(contact_email, ''),
	commission_rate::float8, COALESCE(status, ''), COALESCE(created_at, 'epoch'::timestamptz)
	FROM partners`

func scanPartner(row rowScanner) (models.Partner, error) {
	var p models.Partner
	err := row.Scan(&p.ID, &p.Name, &p.PartnerCode, &p.ContactEmail, &p.CommissionRate, &p.Status, &p.CreatedAt)
	return p, err
}

func ListPartners(ctx context.Context) ([]models.Partner, error) {
	rows, err := db.Pool.Query(ctx, `SELECT `+partnerColumns+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("fetch partners: %w", err)
	}
	defer rows.Close()

	partners := []models.Partner{}
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, fmt.Errorf("fetch partners: %w", err)
		}
		partners = append(partners, p)
	}
	return partners, rows.Err()
}

func GetPartner(ctx context.Context, id string) (*models.Partner, error) {
	p, err := scanPartner(db.Pool.QueryRow(ctx, `SELECT `+partnerColumns+` WHERE id = $1::uuid`, id))
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetActivePartnerByEmail resolves the partner account of a signed-in user.
func GetActivePartnerByEmail(ctx context.Context, email string) (*models.Partner, error) {
	if email == "" {
		return nil, ErrPartnerNotFound
	}
	p, err := scanPartner(db.Pool.QueryRow(ctx, `SELECT `+partnerColumns+`
		WHERE contact_email = $1 AND status = $2
		LIMIT 1`,
		email, PartnerStatusActive,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPartnerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch partner: %w", err)
	}
	return &p, nil
}

// FilterPartners keeps partners whose name or code contains q, ignoring case.
func FilterPartners(partners []models.Partner, q string) []models.Partner {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return partners
	}
	out := []models.Partner{}
	for _, p := range partners {
		if strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.PartnerCode), q) {
			out = append(out, p)
		}
	}
	return out
}

// PartnerDashboard assembles the partner-facing view: recent referrals, all
// commissions and the totals over them.
func PartnerDashboard(ctx context.Context, partner models.Partner) (*models.PartnerDashboard, error) {
	recent, err := queryReferrals(ctx, `SELECT `+referralColumns+`
		WHERE r.partner_id = $1::uuid
		ORDER BY r.created_at DESC
		LIMIT $2`,
		partner.ID, recentReferralLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch partner referrals: %w", err)
	}

	var total, converted int
	err = db.Pool.QueryRow(ctx, `
		SELECT COUNT(*)::int, COUNT(*) FILTER (WHERE status = $2)::int
		FROM referrals
		WHERE partner_id = $1::uuid`,
		partner.ID, models.ReferralStatusConverted,
	).Scan(&total, &converted)
	if err != nil {
		return nil, fmt.Errorf("count partner referrals: %w", err)
	}

	commissions, err := ListPartnerCommissions(ctx, partner.ID)
	if err != nil {
		return nil, err
	}

	return &models.PartnerDashboard{
		Partner:         partner,
		RecentReferrals: recent,
		Commissions:     commissions,
		Stats:           SummarizePartner(total, converted, commissions),
	}, nil
}

// SummarizePartner totals commissions and carries the referral counts.
func SummarizePartner(totalReferrals, convertedReferrals int, commissions []models.PartnerCommission) models.PartnerStats {
	s := models.PartnerStats{TotalReferrals: totalReferrals, ConvertedReferrals: convertedReferrals}
	for _, c := range commissions {
		s.TotalCommissions += c.CommissionAmount
		if c.Status == models.CommissionStatusPending {
			s.PendingCommissions += c.CommissionAmount
		}
	}
	return s
}

const commissionColumns = `
	id::text, partner_id::text, payment_id::text, referral_id::text,
	payment_amount::float8, commission_rate::float8, commission_amount::float8,
	COALESCE(status, ''), settlement_date, settlement_reference, COALESCE(created_at, 'epoch'::timestamptz)
	FROM partner_commissions`

// ListPartnerCommissions returns the commissions of a partner, newest first.
func ListPartnerCommissions(ctx context.Context, partnerID string) ([]models.PartnerCommission, error) {
	rows, err := db.Pool.Query(ctx, `SELECT `+commissionColumns+`
		WHERE partner_id = $1::uuid
		ORDER BY created_at DESC`,
		partnerID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch partner commissions: %w", err)
	}
	defer rows.Close()

	commissions := []models.PartnerCommission{}
	for rows.Next() {
		var c models.PartnerCommission
		if err := rows.Scan(
			&c.ID, &c.PartnerID, &c.PaymentID, &c.ReferralID,
			&c.PaymentAmount, &c.CommissionRate, &c.CommissionAmount,
			&c.Status, &c.SettlementDate, &c.SettlementReference, &c.CreatedAt,
		); err != nil {
			return nil, err
		}
		commissions = append(commissions, c)
	}
	return commissions, rows.Err()
}

// CommissionMetrics calls get_partner_commission_metrics. A partner without
// payments in the range gets zero metrics.
func CommissionMetrics(ctx context.Context, partnerID string, r DateRange) (models.CommissionMetrics, error) {
	var m models.CommissionMetrics
	err := db.Pool.QueryRow(ctx, `
		SELECT COALESCE(total_payments, 0)::bigint, COALESCE(total_payment_amount, 0)::float8,
			COALESCE(total_commission_amount, 0)::float8, COALESCE(pending_commission, 0)::float8,
			COALESCE(approved_commission, 0)::float8, COALESCE(paid_commission, 0)::float8,
			COALESCE(reversed_commission, 0)::float8
		FROM get_partner_commission_metrics(p_partner_id => $1::uuid, p_start_date => $2::date, p_end_date => $3::date)`,
		partnerID, r.Start, r.End,
	).Scan(
		&m.TotalPayments, &m.TotalPaymentAmount,
		&m.TotalCommissionAmount, &m.PendingCommission,
		&m.ApprovedCommission, &m.PaidCommission,
		&m.ReversedCommission,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.CommissionMetrics{}, nil
	}
	if err != nil {
		return m, fmt.Errorf("commission metrics: %w", err)
	}
	return m, nil
}

// ReferralMetrics calls get_partner_referral_metrics.
func ReferralMetrics(ctx context.Context, partnerID string, r DateRange) (models.ReferralMetrics, error) {
	var m models.ReferralMetrics
	err := db.Pool.QueryRow(ctx, `
		SELECT COALESCE(total_referrals, 0)::bigint, COALESCE(converted_referrals, 0)::bigint,
			COALESCE(pending_referrals, 0)::bigint, COALESCE(expired_referrals, 0)::bigint
		FROM get_partner_referral_metrics(p_partner_id => $1::uuid, p_start_date => $2::date, p_end_date => $3::date)`,
		partnerID, r.Start, r.End,
	).Scan(&m.TotalReferrals, &m.ConvertedReferrals, &m.PendingReferrals, &m.ExpiredReferrals)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ReferralMetrics{}, nil
	}
	if err != nil {
		return m, fmt.Errorf("referral metrics: %w", err)
	}
	return m, nil
}

// CommissionLedger calls get_partner_commission_ledger for one page of entries.
func CommissionLedger(ctx context.Context, partnerID string, r DateRange, limit, offset int) ([]models.LedgerEntry, error) {
	if limit <= 0 {
		limit = DefaultLedgerLimit
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := db.Pool.Query(ctx, `
		SELECT id::text, payment_date::timestamptz, payment_amount::float8, commission_rate::float8,
			commission_amount::float8, COALESCE(status, ''), settlement_date::timestamptz, settlement_reference
		FROM get_partner_commission_ledger(
			p_partner_id => $1::uuid, p_start_date => $2::date, p_end_date => $3::date,
			p_limit => $4, p_offset => $5)`,
		partnerID, r.Start, r.End, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("commission ledger: %w", err)
	}
	defer rows.Close()

	entries := []models.LedgerEntry{}
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(
			&e.ID, &e.PaymentDate, &e.PaymentAmount, &e.CommissionRate,
			&e.CommissionAmount, &e.Status, &e.SettlementDate, &e.SettlementReference,
		); err != nil {
			return nil, fmt.Errorf("commission ledger: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SettlementMonth returns the first day of the month of t.
func SettlementMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// PreviousMonth returns the first day of the month before the one containing t.
func PreviousMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()-1, 1, 0, 0, 0, 0, time.UTC)
}

// GenerateMonthlySettlement asks the backend to settle a partner's month and
// returns the settlement reference it produced.
func GenerateMonthlySettlement(ctx context.Context, partnerID string, month time.Time) (string, error) {
	var ref *string
	err := db.Pool.QueryRow(ctx, `
		SELECT generate_monthly_settlement(p_partner_id => $1::uuid, p_settlement_month => $2::date)::text`,
		partnerID, SettlementMonth(month),
	).Scan(&ref)
	if err != nil {
		return "", fmt.Errorf("generate settlement: %w", err)
	}
	if ref == nil {
		return "", nil
	}
	return *ref, nil
}

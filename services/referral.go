package services

import (
	"context"
	"fmt"
	"strings"

	"meal-admin/db"
	"meal-admin/models"
)

const referralColumns = `
	r.id::text, r.partner_id::text, r.referral_token, COALESCE(r.status, ''),
	r.user_id::text, COALESCE(r.created_at, 'epoch'::timestamptz), r.converted_at, r.expires_at,
	COALESCE(pa.name, ''), COALESCE(pa.partner_code, ''),
	pr.id IS NOT NULL, COALESCE(pr.first_name, ''), COALESCE(pr.last_name, '')
	FROM referrals r
	LEFT JOIN partners pa ON pa.id = r.partner_id
	LEFT JOIN profiles pr ON pr.id = r.user_id`

func queryReferrals(ctx context.Context, sql string, args ...any) ([]models.Referral, error) {
	rows, err := db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	referrals := []models.Referral{}
	for rows.Next() {
		var r models.Referral
		var hasProfile bool
		var name models.PersonName
		if err := rows.Scan(
			&r.ID, &r.PartnerID, &r.ReferralToken, &r.Status,
			&r.UserID, &r.CreatedAt, &r.ConvertedAt, &r.ExpiresAt,
			&r.PartnerName, &r.PartnerCode,
			&hasProfile, &name.FirstName, &name.LastName,
		); err != nil {
			return nil, err
		}
		if hasProfile {
			r.ReferredUser = &name
		}
		referrals = append(referrals, r)
	}
	return referrals, rows.Err()
}

// ListReferrals returns every referral, newest first, with its partner and
// referred user.
func ListReferrals(ctx context.Context) ([]models.Referral, error) {
	referrals, err := queryReferrals(ctx, `SELECT `+referralColumns+` ORDER BY r.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("fetch referrals: %w", err)
	}
	return referrals, nil
}

// FilterReferrals keeps referrals whose token or partner name contains q,
// ignoring case.
func FilterReferrals(referrals []models.Referral, q string) []models.Referral {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return referrals
	}
	out := []models.Referral{}
	for _, r := range referrals {
		if strings.Contains(strings.ToLower(r.ReferralToken), q) ||
			strings.Contains(strings.ToLower(r.PartnerName), q) {
			out = append(out, r)
		}
	}
	return out
}

// ExpireOldReferrals asks the backend to expire referrals past their window.
func ExpireOldReferrals(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, `SELECT expire_old_referrals()`); err != nil {
		return fmt.Errorf("expire old referrals: %w", err)
	}
	return nil
}

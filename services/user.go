package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"meal-admin/db"
	"meal-admin/models"

	"github.com/jackc/pgx/v5"
)

const DefaultAdminRole = "admin"

const profileColumns = `
	id::text, COALESCE(first_name, ''), COALESCE(last_name, ''), COALESCE(phone_number, ''),
	COALESCE(role, ''), referral_partner_id::text, COALESCE(created_at, 'epoch'::timestamptz)
	FROM profiles`

// ListProfiles returns every user profile, newest first.
func ListProfiles(ctx context.Context) ([]models.Profile, error) {
	rows, err := db.Pool.Query(ctx, `SELECT `+profileColumns+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("fetch users: %w", err)
	}
	defer rows.Close()

	profiles := []models.Profile{}
	for rows.Next() {
		var p models.Profile
		if err := rows.Scan(&p.ID, &p.FirstName, &p.LastName, &p.PhoneNumber, &p.Role, &p.ReferralPartnerID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("fetch users: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// FilterProfiles keeps profiles whose "first last" name or phone number
// contains q, ignoring case.
func FilterProfiles(profiles []models.Profile, q string) []models.Profile {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return profiles
	}
	out := []models.Profile{}
	for _, p := range profiles {
		name := strings.ToLower(p.FirstName + " " + p.LastName)
		if strings.Contains(name, q) || strings.Contains(strings.ToLower(p.PhoneNumber), q) {
			out = append(out, p)
		}
	}
	return out
}

// IsActiveAdmin reports whether userID has an active admin_users row.
func IsActiveAdmin(ctx context.Context, userID string) (bool, error) {
	var one int
	err := db.Pool.QueryRow(ctx, `
		SELECT 1 FROM admin_users
		WHERE id = $1::uuid AND is_active = true`,
		userID,
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// PromoteUserToAdmin calls promote_user_to_admin and returns its result.
func PromoteUserToAdmin(ctx context.Context, userID, role string) (bool, error) {
	if role == "" {
		role = DefaultAdminRole
	}
	var ok *bool
	err := db.Pool.QueryRow(ctx, `
		SELECT promote_user_to_admin(target_user_id => $1::uuid, admin_role => $2)`,
		userID, role,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("promote user: %w", err)
	}
	return ok != nil && *ok, nil
}

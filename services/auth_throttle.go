package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"meal-admin/db"

	"github.com/jackc/pgx/v5"
)

const (
	AuthCooldownCapSeconds = 30
	// AuthFailureWindow is how long a client's failure count survives without new failures.
	AuthFailureWindow = 15 * time.Minute
)

// AuthThrottleWaitSeconds returns how many seconds the client must wait before
// its next token is considered (0 if no cooldown).
func AuthThrottleWaitSeconds(ctx context.Context, clientKey string) (int, error) {
	var cooldownUntil *time.Time
	err := db.Pool.QueryRow(ctx, `
		SELECT cooldown_until FROM auth_throttle WHERE client_key = $1`,
		clientKey,
	).Scan(&cooldownUntil)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("auth throttle: %w", err)
	}
	if cooldownUntil == nil {
		return 0, nil
	}
	if until := *cooldownUntil; time.Now().Before(until) {
		return int(time.Until(until).Seconds()) + 1, nil // round up
	}
	return 0, nil
}

// NextAuthFailCount returns the fail count after a new failure at now. A
// count whose last failure is older than AuthFailureWindow starts over.
func NextAuthFailCount(prev int, lastFailed *time.Time, now time.Time) int {
	if prev <= 0 || lastFailed == nil || now.Sub(*lastFailed) > AuthFailureWindow {
		return 1
	}
	return prev + 1
}

// RecordAuthFailure bumps the client's fail count (see NextAuthFailCount) and
// sets cooldown_until to now + AuthCooldownSeconds(count).
func RecordAuthFailure(ctx context.Context, clientKey string) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("record auth failure: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		prev       int
		lastFailed *time.Time
	)
	err = tx.QueryRow(ctx, `
		SELECT fail_count, last_failed_at FROM auth_throttle WHERE client_key = $1 FOR UPDATE`,
		clientKey,
	).Scan(&prev, &lastFailed)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("record auth failure: %w", err)
	}

	now := time.Now()
	count := NextAuthFailCount(prev, lastFailed, now)
	until := now.Add(time.Duration(AuthCooldownSeconds(count)) * time.Second)
	_, err = tx.Exec(ctx, `
		INSERT INTO auth_throttle (client_key, fail_count, last_failed_at, cooldown_until, updated_at)
		VALUES ($1, $2, $3, $4, $3)
		ON CONFLICT (client_key) DO UPDATE SET
			fail_count = EXCLUDED.fail_count,
			last_failed_at = EXCLUDED.last_failed_at,
			cooldown_until = EXCLUDED.cooldown_until,
			updated_at = EXCLUDED.updated_at`,
		clientKey, count, now, until,
	)
	if err != nil {
		return fmt.Errorf("record auth failure: %w", err)
	}
	return tx.Commit(ctx)
}

// ClearAuthFailures resets the client's failure count.
func ClearAuthFailures(ctx context.Context, clientKey string) error {
	_, err := db.Pool.Exec(ctx, `DELETE FROM auth_throttle WHERE client_key = $1`, clientKey)
	return err
}

// AuthCooldownSeconds returns min(30, 2^failCount).
func AuthCooldownSeconds(failCount int) int {
	s := int(math.Pow(2, float64(failCount)))
	if s > AuthCooldownCapSeconds {
		return AuthCooldownCapSeconds
	}
	return s
}

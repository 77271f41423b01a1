package services

import (
	"context"
	"testing"
	"time"

	"meal-admin/db"
)

func TestAuthCooldownSeconds(t *testing.T) {
	tests := []struct {
		failCount int
		want      int
	}{
		{0, 1},
		{1, 2},
		{2, 4},
		{3, 8},
		{4, 16},
		{5, 30}, // 32 capped
		{6, 30},
		{10, 30},
	}
	for _, tt := range tests {
		got := AuthCooldownSeconds(tt.failCount)
		if got != tt.want {
			t.Errorf("AuthCooldownSeconds(%d) = %d, want %d", tt.failCount, got, tt.want)
		}
	}
}

func TestNextAuthFailCount(t *testing.T) {
	now := time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)
	ago := func(d time.Duration) *time.Time {
		ts := now.Add(-d)
		return &ts
	}
	tests := []struct {
		name       string
		prev       int
		lastFailed *time.Time
		want       int
	}{
		{"first failure", 0, nil, 1},
		{"no previous time", 3, nil, 1},
		{"within window", 1, ago(time.Minute), 2},
		{"within window keeps counting", 4, ago(14 * time.Minute), 5},
		{"at window edge", 4, ago(AuthFailureWindow), 5},
		{"past window starts over", 6, ago(AuthFailureWindow + time.Second), 1},
		{"long ago starts over", 9, ago(24 * time.Hour), 1},
	}
	for _, tt := range tests {
		got := NextAuthFailCount(tt.prev, tt.lastFailed, now)
		if got != tt.want {
			t.Errorf("%s: NextAuthFailCount(%d) = %d, want %d", tt.name, tt.prev, got, tt.want)
		}
	}
}

// Requires a migrated database.
func TestAuthThrottle_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping throttle integration test in short mode")
	}
	if db.Pool == nil {
		t.Skip("skipping throttle integration test: no DB pool")
	}
	ctx := context.Background()
	const key = "test-client-203.0.113.9"
	defer func() { _ = ClearAuthFailures(ctx, key) }()

	_ = ClearAuthFailures(ctx, key)
	wait, err := AuthThrottleWaitSeconds(ctx, key)
	if err != nil {
		t.Fatalf("AuthThrottleWaitSeconds after clear: %v", err)
	}
	if wait != 0 {
		t.Errorf("after clear: wait = %d, want 0", wait)
	}

	if err := RecordAuthFailure(ctx, key); err != nil {
		t.Fatalf("RecordAuthFailure: %v", err)
	}
	wait, err = AuthThrottleWaitSeconds(ctx, key)
	if err != nil {
		t.Fatalf("AuthThrottleWaitSeconds after fail: %v", err)
	}
	if wait <= 0 || wait > AuthCooldownCapSeconds {
		t.Errorf("after one fail: wait = %d, want 1..%d", wait, AuthCooldownCapSeconds)
	}

	for i := 0; i < 8; i++ {
		_ = RecordAuthFailure(ctx, key)
	}
	wait, _ = AuthThrottleWaitSeconds(ctx, key)
	if wait > AuthCooldownCapSeconds {
		t.Errorf("after 9 fails: wait = %d, want <= %d (cap)", wait, AuthCooldownCapSeconds)
	}
}

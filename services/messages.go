package services

import (
	"context"
	"fmt"
	"time"

	"meal-admin/db"

	jsoniter "github.com/json-iterator/go"
)

// NotifyDedupWindow is how long an identical admin notification is suppressed.
const NotifyDedupWindow = 30 * time.Second

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SaveOutboundMessage records a notification sent to a Telegram chat. meta
// carries "kind" and "key" so repeats can be detected.
func SaveOutboundMessage(ctx context.Context, chatID int64, content string, meta map[string]any) error {
	metaJSON := "{}"
	if len(meta) > 0 {
		b, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("marshal meta: %w", err)
		}
		metaJSON = string(b)
	}
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO outbound_messages (chat_id, content, meta)
		VALUES ($1, $2, $3::jsonb)`,
		chatID, content, metaJSON,
	)
	return err
}

// SentWithin returns true if a notification with the same kind and key was
// recorded in the last window.
func SentWithin(ctx context.Context, kind, key string, window time.Duration) (bool, error) {
	var count int
	err := db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM outbound_messages
		WHERE meta->>'kind' = $1 AND meta->>'key' = $2
		  AND created_at > now() - make_interval(secs => $3)`,
		kind, key, window.Seconds(),
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Package bot sends Telegram notifications about new orders and payment
// status changes to the admin chat.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"meal-admin/config"
	"meal-admin/realtime"
	"meal-admin/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

var logger = log.With().Str("pkg", "bot").Logger()

var ErrDisabled = errors.New("telegram notifications are not configured")

const (
	kindNewOrder      = "new_order"
	kindPaymentStatus = "payment_status"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// outbox remembers sent notifications so repeated change events do not
// produce repeated messages.
type outbox interface {
	SentWithin(ctx context.Context, kind, key string, window time.Duration) (bool, error)
	Save(ctx context.Context, chatID int64, content string, meta map[string]any) error
}

type dbOutbox struct{}

func (dbOutbox) SentWithin(ctx context.Context, kind, key string, window time.Duration) (bool, error) {
	return services.SentWithin(ctx, kind, key, window)
}

func (dbOutbox) Save(ctx context.Context, chatID int64, content string, meta map[string]any) error {
	return services.SaveOutboundMessage(ctx, chatID, content, meta)
}

type Notifier struct {
	api    sender
	chatID int64
	outbox outbox
}

// NewNotifier connects the message bot. ErrDisabled is returned when no token
// or admin chat is configured.
func NewNotifier(cfg config.TelegramConfig) (*Notifier, error) {
	if cfg.MessageToken == "" || cfg.AdminChatID == 0 {
		return nil, ErrDisabled
	}
	api, err := tgbotapi.NewBotAPI(cfg.MessageToken)
	if err != nil {
		return nil, fmt.Errorf("init message bot: %w", err)
	}
	return &Notifier{api: api, chatID: cfg.AdminChatID, outbox: dbOutbox{}}, nil
}

// Filters are the change events the notifier reacts to.
func Filters() []realtime.Filter {
	return []realtime.Filter{
		{Table: "orders", Kind: realtime.Insert},
		{Table: "payments", Kind: realtime.Update},
	}
}

// Run handles events until ctx is done or events is closed.
func (n *Notifier) Run(ctx context.Context, events <-chan realtime.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := n.Handle(ctx, e); err != nil {
				logger.Error().Err(err).Str("table", e.Table).Str("id", e.ID).Msg("admin notify failed")
			}
		}
	}
}

// Handle sends the admin message for e, if it warrants one and the same
// message was not sent within services.NotifyDedupWindow.
func (n *Notifier) Handle(ctx context.Context, e realtime.Event) error {
	text, kind, key, ok := MessageFor(e)
	if !ok {
		return nil
	}
	dup, err := n.outbox.SentWithin(ctx, kind, key, services.NotifyDedupWindow)
	if err != nil {
		logger.Warn().Err(err).Msg("dedup lookup failed, sending anyway")
	}
	if dup {
		return nil
	}
	if _, err := n.api.Send(tgbotapi.NewMessage(n.chatID, text)); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	if err := n.outbox.Save(ctx, n.chatID, text, map[string]any{
		"channel": "telegram",
		"kind":    kind,
		"key":     key,
	}); err != nil {
		logger.Warn().Err(err).Msg("save outbound message")
	}
	return nil
}

// MessageFor returns the admin message for an event along with its dedup
// kind and key. ok is false for events that need no message.
func MessageFor(e realtime.Event) (text, kind, key string, ok bool) {
	switch {
	case e.Table == "orders" && e.Kind == realtime.Insert:
		return FormatNewOrder(e), kindNewOrder, e.ID, true
	case e.Table == "payments" && e.Kind == realtime.Update:
		status := e.Record["status"]
		if status == nil || status == e.OldRecord["status"] {
			return "", "", "", false
		}
		s := e.Field("status")
		return FormatPaymentStatus(e), kindPaymentStatus, e.ID + ":" + s, true
	}
	return "", "", "", false
}

func FormatNewOrder(e realtime.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🆕 New order %s\n", orDash(e.Field("order_number")))
	fmt.Fprintf(&b, "Total: ETB %s\n", money(e.Field("total_amount")))
	fmt.Fprintf(&b, "Payment: %s", orDash(e.Field("payment_status")))
	if m := e.Field("payment_method"); m != "" {
		fmt.Fprintf(&b, " (%s)", m)
	}
	if d := e.Field("delivery_date"); d != "" {
		fmt.Fprintf(&b, "\nDelivery: %s", d)
		if slot := e.Field("delivery_time_slot"); slot != "" {
			fmt.Fprintf(&b, " %s", slot)
		}
	}
	if notes := e.Field("notes"); notes != "" {
		fmt.Fprintf(&b, "\nNotes: %s", notes)
	}
	return b.String()
}

func FormatPaymentStatus(e realtime.Event) string {
	icon := "💳"
	switch e.Field("status") {
	case "completed":
		icon = "✅"
	case "failed":
		icon = "❌"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s Payment %s\n", icon, e.Field("status"))
	fmt.Fprintf(&b, "Amount: %s %s\n", orDefault(e.Field("currency"), "ETB"), money(e.Field("amount")))
	fmt.Fprintf(&b, "Method: %s", orDash(e.Field("payment_method")))
	if ref := e.Field("external_transaction_id"); ref != "" {
		fmt.Fprintf(&b, "\nRef: %s", ref)
	}
	return b.String()
}

func money(s string) string {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return orDash(s)
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func orDash(s string) string {
	return orDefault(s, "-")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

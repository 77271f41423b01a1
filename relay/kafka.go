// Package relay forwards database change events to a Kafka topic so other
// services can follow orders, payments and partner activity.
package relay

import (
	"context"
	"fmt"
	"time"

	"meal-admin/config"
	"meal-admin/realtime"

	"github.com/IBM/sarama"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
)

var logger = log.With().Str("pkg", "relay").Logger()

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Tables whose changes are relayed.
var Tables = []string{"orders", "payments", "referrals", "partners", "partner_commissions", "meals", "profiles"}

type Relay struct {
	producer sarama.SyncProducer
	topic    string
}

// NewSaramaConfig returns the producer settings the relay uses.
func NewSaramaConfig() *sarama.Config {
	c := sarama.NewConfig()
	c.Producer.RequiredAcks = sarama.WaitForAll
	c.Producer.Retry.Max = 5
	c.Producer.Retry.Backoff = 100 * time.Millisecond
	c.Producer.Return.Successes = true // required by SyncProducer
	c.Net.DialTimeout = 30 * time.Second
	c.Net.ReadTimeout = 30 * time.Second
	c.Net.WriteTimeout = 30 * time.Second
	return c
}

func New(cfg config.KafkaConfig) (*Relay, error) {
	producer, err := sarama.NewSyncProducer(cfg.Brokers, NewSaramaConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create Sarama producer: %w", err)
	}
	logger.Info().Strs("brokers", cfg.Brokers).Str("topic", cfg.Topic).Msg("kafka relay connected")
	return NewWithProducer(producer, cfg.Topic), nil
}

func NewWithProducer(p sarama.SyncProducer, topic string) *Relay {
	return &Relay{producer: p, topic: topic}
}

// Filters selects every change of the relayed tables.
func Filters() []realtime.Filter {
	fs := make([]realtime.Filter, 0, len(Tables))
	for _, t := range Tables {
		fs = append(fs, realtime.Filter{Table: t, Kind: realtime.Any})
	}
	return fs
}

// Forward publishes e keyed by "{table}:{id}" so changes of one row stay ordered.
func (r *Relay) Forward(e realtime.Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, _, err = r.producer.SendMessage(&sarama.ProducerMessage{
		Topic: r.topic,
		Key:   sarama.StringEncoder(e.Table + ":" + e.ID),
		Value: sarama.ByteEncoder(b),
		Headers: []sarama.RecordHeader{
			{Key: []byte("table"), Value: []byte(e.Table)},
			{Key: []byte("type"), Value: []byte(e.Kind)},
		},
	})
	if err != nil {
		return fmt.Errorf("send to %s: %w", r.topic, err)
	}
	return nil
}

// Run forwards events until ctx is done or events is closed. Send failures
// are logged; the event is not retried.
func (r *Relay) Run(ctx context.Context, events <-chan realtime.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := r.Forward(e); err != nil {
				logger.Error().Err(err).Str("table", e.Table).Str("id", e.ID).Msg("relay failed")
			}
		}
	}
}

func (r *Relay) Close() error {
	if r.producer != nil {
		return r.producer.Close()
	}
	return nil
}

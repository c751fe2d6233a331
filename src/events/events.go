// Package events publishes bill lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/livefire2015/ez-rent/src/config"
	"github.com/livefire2015/ez-rent/src/metrics"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Event types
const (
	TypeBillGenerated = "bill.generated"
	TypeBillFailed    = "bill.failed"
	TypeLateFee       = "bill.late_fee"
)

// BillEvent is the message body for every bill event
type BillEvent struct {
	Type         string           `json:"type"`
	Period       string           `json:"period"`
	TenantID     uuid.UUID        `json:"tenant_id"`
	RoomID       uuid.UUID        `json:"room_id"`
	BillID       *uuid.UUID       `json:"bill_id,omitempty"`
	TotalDue     *decimal.Decimal `json:"total_due,omitempty"`
	CarryForward *decimal.Decimal `json:"carry_forward,omitempty"`
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	FailureKind  string           `json:"failure_kind,omitempty"`
	Error        string           `json:"error,omitempty"`
	OccurredAt   time.Time        `json:"occurred_at"`
}

// Publisher delivers bill events
type Publisher interface {
	Publish(ctx context.Context, events ...BillEvent) error
	Close() error
}

// NopPublisher discards every event
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ...BillEvent) error { return nil }
func (NopPublisher) Close() error                                  { return nil }

// KafkaPublisher sends events synchronously, keyed by tenant so a tenant's
// events stay ordered within a partition
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

// NewKafkaPublisher wraps an existing producer
func NewKafkaPublisher(producer sarama.SyncProducer, topic string, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaPublisher{producer: producer, topic: topic, logger: logger}
}

// New builds a publisher from configuration. A disabled producer yields a NopPublisher.
func New(cfg config.KafkaConfig, logger *zap.Logger) (Publisher, error) {
	if !cfg.Enabled {
		return NopPublisher{}, nil
	}

	saramaConfig, err := producerConfig(cfg)
	if err != nil {
		return nil, err
	}
	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("error creating Sarama SyncProducer: %w", err)
	}
	logger.Info("Kafka publisher ready",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.Topic),
	)
	return NewKafkaPublisher(producer, cfg.Topic, logger), nil
}

func producerConfig(cfg config.KafkaConfig) (*sarama.Config, error) {
	acks, err := parseRequiredAcks(cfg.RequiredAcks)
	if err != nil {
		return nil, err
	}
	c := sarama.NewConfig()
	if cfg.ClientID != "" {
		c.ClientID = cfg.ClientID
	}
	c.Producer.RequiredAcks = acks
	c.Producer.Retry.Max = cfg.RetryMax
	// SyncProducer requires both
	c.Producer.Return.Successes = true
	c.Producer.Return.Errors = true
	return c, nil
}

func parseRequiredAcks(v string) (sarama.RequiredAcks, error) {
	switch strings.ToLower(v) {
	case "none", "no_response", "0":
		return sarama.NoResponse, nil
	case "leader", "local", "wait_for_local", "1":
		return sarama.WaitForLocal, nil
	case "", "all", "wait_for_all", "-1":
		return sarama.WaitForAll, nil
	default:
		return sarama.WaitForAll, fmt.Errorf("invalid kafka required_acks: %s", v)
	}
}

// Publish sends events in order. It stops at the first failure.
func (p *KafkaPublisher) Publish(ctx context.Context, events ...BillEvent) error {
	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("failed to encode %s event: %w", ev.Type, err)
		}
		msg := &sarama.ProducerMessage{
			Topic: p.topic,
			Key:   sarama.StringEncoder(ev.TenantID.String()),
			Value: sarama.ByteEncoder(payload),
			Headers: []sarama.RecordHeader{
				{Key: []byte("event_type"), Value: []byte(ev.Type)},
			},
		}
		partition, offset, err := p.producer.SendMessage(msg)
		metrics.ObserveEvent(ev.Type, err)
		if err != nil {
			p.logger.Error("Failed to publish bill event",
				zap.String("type", ev.Type),
				zap.String("tenant_id", ev.TenantID.String()),
				zap.Error(err),
			)
			return fmt.Errorf("failed to publish %s event: %w", ev.Type, err)
		}
		p.logger.Debug("Published bill event",
			zap.String("type", ev.Type),
			zap.Int32("partition", partition),
			zap.Int64("offset", offset),
		)
	}
	return nil
}

// Close flushes and closes the producer
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

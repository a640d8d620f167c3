package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-coupon/pkg/kafka"
)

// KafkaPublisher writes signals to TopicIssuerListChanged as CloudEvents.
type KafkaPublisher struct {
	producer *kafka.Producer
	source   string
}

// NewKafkaPublisher creates a KafkaPublisher that stamps events with source.
func NewKafkaPublisher(producer *kafka.Producer, source string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, source: source}
}

// Publish sends one CloudEvent.
func (p *KafkaPublisher) Publish(ctx context.Context, s Signal) error {
	ce, err := kafka.NewCloudEvent(p.source, s.Type, s)
	if err != nil {
		return err
	}
	return p.producer.PublishEvent(ctx, TopicIssuerListChanged, ce)
}

// KafkaSubscriber gives every Subscribe call its own consumer group so each
// subscriber sees every signal published after it joined.
type KafkaSubscriber struct {
	brokers     []string
	groupPrefix string
	logger      *zap.Logger
}

// NewKafkaSubscriber creates a KafkaSubscriber.
func NewKafkaSubscriber(brokers []string, groupPrefix string, logger *zap.Logger) *KafkaSubscriber {
	return &KafkaSubscriber{brokers: brokers, groupPrefix: groupPrefix, logger: logger}
}

// Subscribe starts a consumer that lives until ctx ends.
func (s *KafkaSubscriber) Subscribe(ctx context.Context) (<-chan Signal, error) {
	if len(s.brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}

	groupID := s.groupPrefix + "couponctl-" + uuid.NewString()[:8]
	consumer := kafka.NewConsumer(s.brokers, groupID, TopicIssuerListChanged, s.logger)
	ch := make(chan Signal, subscriberBuffer)

	go func() {
		defer close(ch)
		defer consumer.Close() //nolint:errcheck

		err := consumer.Consume(ctx, func(ctx context.Context, msg kafkago.Message) error {
			sig, err := decodeSignal(msg.Value)
			if err != nil {
				return err
			}
			select {
			case ch <- sig:
			case <-ctx.Done():
			}
			return nil
		})
		if err != nil && ctx.Err() == nil {
			s.logger.Error("issuer signal subscription stopped", zap.Error(err))
		}
	}()
	return ch, nil
}

// IssuerEventRelay consumes TopicIssuerListChanged and republishes remote
// signals locally, so SSE clients of every replica hear about changes made on
// another one. Events stamped with this replica's own source are skipped.
type IssuerEventRelay struct {
	consumer *kafka.Consumer
	local    Publisher
	source   string
	logger   *zap.Logger
}

// NewIssuerEventRelay creates a relay consuming with groupID.
func NewIssuerEventRelay(brokers []string, groupID, source string, local Publisher, logger *zap.Logger) *IssuerEventRelay {
	return &IssuerEventRelay{
		consumer: kafka.NewConsumer(brokers, groupID, TopicIssuerListChanged, logger),
		local:    local,
		source:   source,
		logger:   logger,
	}
}

// Start blocks until ctx is cancelled.
func (r *IssuerEventRelay) Start(ctx context.Context) error {
	return r.consumer.Consume(ctx, r.handleMessage)
}

func (r *IssuerEventRelay) handleMessage(ctx context.Context, msg kafkago.Message) error {
	ce, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		r.logger.Error("failed to parse issuer event", zap.Error(err))
		return err
	}
	if ce.Source == r.source {
		return nil
	}

	switch {
	case strings.EqualFold(ce.Type, TypeIssuerCreated),
		strings.EqualFold(ce.Type, TypeIssuerUpdated),
		strings.EqualFold(ce.Type, TypeIssuerDeleted):
		r.logger.Debug("relaying issuer event", zap.String("type", ce.Type), zap.String("source", ce.Source))
		return r.local.Publish(ctx, Signal{Type: ce.Type, At: ce.Time})
	default:
		r.logger.Debug("ignoring issuer event type", zap.String("type", ce.Type))
		return nil
	}
}

// Close closes the consumer.
func (r *IssuerEventRelay) Close() error {
	return r.consumer.Close()
}

func decodeSignal(raw []byte) (Signal, error) {
	ce, err := kafka.ParseCloudEvent(raw)
	if err != nil {
		return Signal{}, err
	}
	var sig Signal
	if err := ce.ParseData(&sig); err != nil || sig.Type == "" {
		sig = Signal{Type: ce.Type, At: ce.Time}
	}
	return sig, nil
}

package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/arklim/book-buyback/internal/infra/config"
)

// MessageHandler processes one consumed message.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error
}

// ConsumerGroup runs a MessageHandler over a sarama consumer group.
type ConsumerGroup struct {
	group   sarama.ConsumerGroup
	topics  []string
	handler MessageHandler
	logger  *zap.Logger
}

// NewConsumerGroup joins groupID on the configured brokers.
func NewConsumerGroup(cfg config.KafkaSettings, groupID string, topics []string, handler MessageHandler, logger *zap.Logger) (*ConsumerGroup, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("create kafka consumer group: no brokers configured")
	}

	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_5_0_0
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRange()}
	saramaConfig.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(cfg.Brokers, groupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer group: %w", err)
	}

	return newConsumerGroup(group, topics, handler, logger), nil
}

func newConsumerGroup(group sarama.ConsumerGroup, topics []string, handler MessageHandler, logger *zap.Logger) *ConsumerGroup {
	return &ConsumerGroup{group: group, topics: topics, handler: handler, logger: logger}
}

// Run consumes until ctx is cancelled, rejoining after every rebalance.
func (g *ConsumerGroup) Run(ctx context.Context) error {
	go func() {
		for err := range g.group.Errors() {
			g.logger.Warn("Kafka consumer error", zap.Error(err))
		}
	}()

	for {
		if err := g.group.Consume(ctx, g.topics, &groupHandler{handler: g.handler, logger: g.logger}); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			g.logger.Error("Kafka consume failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// Close leaves the group.
func (g *ConsumerGroup) Close() error {
	if err := g.group.Close(); err != nil {
		return fmt.Errorf("close kafka consumer group: %w", err)
	}
	return nil
}

type groupHandler struct {
	handler MessageHandler
	logger  *zap.Logger
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim marks every message, including ones the handler rejects, so a
// malformed message cannot stall the partition.
func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := h.handler.HandleMessage(session.Context(), msg); err != nil {
				h.logger.Error("handle kafka message failed",
					zap.String("topic", msg.Topic),
					zap.Int32("partition", msg.Partition),
					zap.Int64("offset", msg.Offset),
					zap.Error(err),
				)
			}
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

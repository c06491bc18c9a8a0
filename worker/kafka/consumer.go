package kafka

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

type MessageHandler func(ctx context.Context, msg *JobMessage) error

type JobMessage struct {
	JobID   string `json:"job_id"`
	TraceID string `json:"trace_id"`
}

type Consumer struct {
	consumer sarama.ConsumerGroup
	logger   *zap.Logger
}

func NewConsumer(brokers []string, groupID string, logger *zap.Logger) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	config.Consumer.Offsets.Initial = sarama.OffsetOldest

	c, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, err
	}

	return &Consumer{consumer: c, logger: logger}, nil
}

type consumerHandler struct {
	fn     MessageHandler
	ctx    context.Context
	logger *zap.Logger
}

func (h *consumerHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *consumerHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim always marks messages: processing failures terminate inside
// the handler as failed jobs, so redelivering here would only produce
// duplicate no-op dispatches.
func (h *consumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		var jobMsg JobMessage
		if err := json.Unmarshal(msg.Value, &jobMsg); err != nil {
			h.logger.Warn("Dropping malformed job message", zap.Error(err))
			session.MarkMessage(msg, "")
			continue
		}

		if err := h.fn(h.ctx, &jobMsg); err != nil {
			h.logger.Error("Job dispatch failed",
				zap.String("job_id", jobMsg.JobID),
				zap.String("trace_id", jobMsg.TraceID),
				zap.Error(err),
			)
		}
		session.MarkMessage(msg, "")
	}
	return nil
}

func (c *Consumer) Consume(ctx context.Context, topic string, handler MessageHandler) error {
	h := &consumerHandler{fn: handler, ctx: ctx, logger: c.logger}
	return c.consumer.Consume(ctx, []string{topic}, h)
}

func (c *Consumer) Close() error {
	return c.consumer.Close()
}

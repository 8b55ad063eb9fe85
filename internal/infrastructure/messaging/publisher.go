// Package messaging publishes gateway events to Kafka.
package messaging

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/safee-analytics/odoo/internal/infrastructure/config"
)

// Publisher sends keyed messages to a single topic
type Publisher interface {
	Publish(ctx context.Context, key, value []byte, headers map[string]string) error
	Topic() string
	Close() error
}

// noopPublisher is used when Kafka is disabled
type noopPublisher struct {
	topic string
}

func (n noopPublisher) Publish(context.Context, []byte, []byte, map[string]string) error { return nil }
func (n noopPublisher) Topic() string { return n.topic }
func (n noopPublisher) Close() error { return nil }

// messageWriter is the part of *kafka.Writer the publisher needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaPublisher struct {
	writer messageWriter
	topic  string
	logger *zap.Logger
}

func (k *kafkaPublisher) Publish(ctx context.Context, key, value []byte, headers map[string]string) error {
	msg := kafka.Message{Key: key, Value: value, Time: time.Now().UTC()}
	for name, v := range headers {
		msg.Headers = append(msg.Headers, kafka.Header{Key: name, Value: []byte(v)})
	}
	return k.writer.WriteMessages(ctx, msg)
}

func (k *kafkaPublisher) Topic() string { return k.topic }

func (k *kafkaPublisher) Close() error {
	k.logger.Info("Closing kafka publisher", zap.String("topic", k.topic))
	return k.writer.Close()
}

// NewPublisher builds a publisher from configuration. A disabled config
// yields a no-op publisher.
func NewPublisher(cfg config.KafkaConfig, logger *zap.Logger) Publisher {
	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		logger.Info("Kafka disabled; using noop publisher")
		return noopPublisher{topic: cfg.Topic}
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		Transport:              &kafka.Transport{ClientID: cfg.ClientID},
		Logger:                 kafkaLogger{logger: logger},
		ErrorLogger:            kafkaErrorLogger{logger: logger},
	}
	return newKafkaPublisher(writer, cfg.Topic, logger)
}

func newKafkaPublisher(w messageWriter, topic string, logger *zap.Logger) *kafkaPublisher {
	return &kafkaPublisher{writer: w, topic: topic, logger: logger}
}

type kafkaLogger struct {
	logger *zap.Logger
}

func (k kafkaLogger) Printf(msg string, args ...any) {
	k.logger.Sugar().Debugf(msg, args...)
}

type kafkaErrorLogger struct {
	logger *zap.Logger
}

func (k kafkaErrorLogger) Printf(msg string, args ...any) {
	k.logger.Sugar().Warnf(msg, args...)
}

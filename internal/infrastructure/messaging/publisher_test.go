package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/safee-analytics/odoo/internal/infrastructure/config"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestNewPublisher_Disabled(t *testing.T) {
	p := NewPublisher(config.KafkaConfig{Topic: "odoo.mutations"}, zap.NewNop())
	assert.Equal(t, "odoo.mutations", p.Topic())
	assert.NoError(t, p.Publish(context.Background(), []byte("k"), []byte("v"), nil))
	assert.NoError(t, p.Close())
}

func TestNewPublisher_Enabled(t *testing.T) {
	p := NewPublisher(config.KafkaConfig{Enabled: true, Brokers: []string{"localhost:9092"}, Topic: "odoo.mutations"}, zap.NewNop())
	kp, ok := p.(*kafkaPublisher)
	require.True(t, ok)
	w, ok := kp.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "odoo.mutations", w.Topic)
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &recordingWriter{}
	p := newKafkaPublisher(w, "odoo.mutations", zap.NewNop())

	err := p.Publish(context.Background(), []byte("res.partner:7"), []byte(`{"event":"created"}`),
		map[string]string{"X-Odoo-Signature": "abc"})
	require.NoError(t, err)

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, "res.partner:7", string(msg.Key))
	assert.Equal(t, `{"event":"created"}`, string(msg.Value))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "X-Odoo-Signature", msg.Headers[0].Key)
	assert.Equal(t, "abc", string(msg.Headers[0].Value))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_PublishError(t *testing.T) {
	w := &recordingWriter{err: errors.New("leader not available")}
	p := newKafkaPublisher(w, "odoo.mutations", zap.NewNop())

	err := p.Publish(context.Background(), nil, []byte("{}"), nil)
	assert.ErrorContains(t, err, "leader not available")
}

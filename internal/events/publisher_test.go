package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &recordingWriter{}
	p := NewKafkaPublisherWithWriter(w, zap.NewNop())

	err := p.Publish(context.Background(), FreightPublished, "f-1", map[string]string{"origin": "Montes Claros, MG"})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "f-1", string(msg.Key))
	assert.Equal(t, "type", msg.Headers[0].Key)
	assert.Equal(t, FreightPublished, string(msg.Headers[0].Value))

	var env struct {
		Type string            `json:"type"`
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(msg.Value, &env))
	assert.Equal(t, FreightPublished, env.Type)
	assert.Equal(t, "Montes Claros, MG", env.Data["origin"])

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	p := NewKafkaPublisherWithWriter(w, zap.NewNop())
	err := p.Publish(context.Background(), ReferralRecorded, "k", nil)
	assert.ErrorContains(t, err, "broker down")
}

func TestKafkaPublisher_MarshalError(t *testing.T) {
	p := NewKafkaPublisherWithWriter(&recordingWriter{}, zap.NewNop())
	err := p.Publish(context.Background(), ReferralRecorded, "k", make(chan int))
	assert.Error(t, err)
}

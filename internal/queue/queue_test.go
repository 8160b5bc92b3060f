package queue

import (
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/config"
)

func TestCalculateBackoffDelay(t *testing.T) {
	assert.Equal(t, 10*time.Second, calculateBackoffDelay(0))
	assert.Equal(t, 20*time.Second, calculateBackoffDelay(1))
	assert.Equal(t, 160*time.Second, calculateBackoffDelay(4))
	assert.Equal(t, 10*time.Minute, calculateBackoffDelay(12))
}

func TestRetryCount(t *testing.T) {
	assert.Equal(t, 0, retryCount(nil))
	assert.Equal(t, 0, retryCount(amqp.Table{retryCountHeader: "three"}))
	assert.Equal(t, 3, retryCount(amqp.Table{retryCountHeader: int32(3)}))
	assert.Equal(t, 4, retryCount(amqp.Table{retryCountHeader: int64(4)}))
}

func TestDecodeEvent(t *testing.T) {
	ev, err := decodeEvent([]byte(`{"record_id":"rec-1","kind":"karaoke","saved_at":"2026-10-17T10:00:00Z"}`))
	require.NoError(t, err)
	assert.Equal(t, "rec-1", ev.RecordID)
	assert.Equal(t, "karaoke", string(ev.Kind))

	_, err = decodeEvent([]byte(`{"kind":"karaoke"}`))
	assert.Error(t, err)

	_, err = decodeEvent([]byte(`not json`))
	assert.Error(t, err)
}

func TestNewUnreachableBroker(t *testing.T) {
	_, err := New(config.QueueConfig{Host: "127.0.0.1", Port: 1, User: "guest", Password: "guest", Vhost: "/"}, nil)
	assert.Error(t, err)
}

package mq

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmaksimov/homesense/internal/common"
	"github.com/vmaksimov/homesense/internal/logging"
	"github.com/vmaksimov/homesense/internal/server/models"
)

type stubAppender struct {
	appendFn func(ctx context.Context, tenantID string, reading *models.Reading) (int64, error)
}

func (s *stubAppender) Append(ctx context.Context, tenantID string, reading *models.Reading) (int64, error) {
	return s.appendFn(ctx, tenantID, reading)
}

// stubAcknowledger records the single outcome of one delivery.
type stubAcknowledger struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (s *stubAcknowledger) Ack(tag uint64, multiple bool) error {
	s.acked = true
	return nil
}

func (s *stubAcknowledger) Nack(tag uint64, multiple bool, requeue bool) error {
	s.nacked = true
	s.requeue = requeue
	return nil
}

func (s *stubAcknowledger) Reject(tag uint64, requeue bool) error {
	s.nacked = true
	s.requeue = requeue
	return nil
}

func testConsumer(a Appender) *Consumer {
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewConsumer("amqp://localhost", "homesense.readings", logger, a)
}

func delivery(body string) (amqp.Delivery, *stubAcknowledger) {
	ack := &stubAcknowledger{}
	return amqp.Delivery{Acknowledger: ack, Body: []byte(body)}, ack
}

func TestHandleDelivery_AcksAfterSuccessfulAppend(t *testing.T) {
	var gotTenant string
	var gotReading *models.Reading
	c := testConsumer(&stubAppender{
		appendFn: func(ctx context.Context, tenantID string, reading *models.Reading) (int64, error) {
			gotTenant = tenantID
			gotReading = reading
			return 1, nil
		},
	})

	msg, ack := delivery(`{"tenant_id":"t1","device_id":"d1","energy_usage":2.5}`)
	c.handleDelivery(context.Background(), msg)

	assert.True(t, ack.acked)
	assert.False(t, ack.nacked)
	assert.Equal(t, "t1", gotTenant)
	require.NotNil(t, gotReading)
	assert.Equal(t, "d1", gotReading.DeviceID)
	assert.Equal(t, 2.5, gotReading.EnergyUsage)
}

func TestHandleDelivery_MalformedBodyDroppedWithoutRequeue(t *testing.T) {
	c := testConsumer(&stubAppender{
		appendFn: func(ctx context.Context, tenantID string, reading *models.Reading) (int64, error) {
			t.Fatal("malformed message must not reach the service")
			return 0, nil
		},
	})

	msg, ack := delivery(`{broken`)
	c.handleDelivery(context.Background(), msg)

	assert.True(t, ack.nacked)
	assert.False(t, ack.requeue)
}

func TestHandleDelivery_MissingTenantDropped(t *testing.T) {
	c := testConsumer(&stubAppender{
		appendFn: func(ctx context.Context, tenantID string, reading *models.Reading) (int64, error) {
			t.Fatal("message without tenant must not reach the service")
			return 0, nil
		},
	})

	msg, ack := delivery(`{"device_id":"d1","energy_usage":1}`)
	c.handleDelivery(context.Background(), msg)

	assert.True(t, ack.nacked)
	assert.False(t, ack.requeue)
}

func TestHandleDelivery_MissingEnergyUsageDropped(t *testing.T) {
	c := testConsumer(&stubAppender{
		appendFn: func(ctx context.Context, tenantID string, reading *models.Reading) (int64, error) {
			t.Fatal("message without energy usage must not reach the service")
			return 0, nil
		},
	})

	msg, ack := delivery(`{"tenant_id":"t1","device_id":"d1","temperature":21.5}`)
	c.handleDelivery(context.Background(), msg)

	assert.True(t, ack.nacked)
	assert.False(t, ack.requeue)
}

func TestHandleDelivery_ExplicitZeroUsageAccepted(t *testing.T) {
	var gotUsage float64 = -1
	c := testConsumer(&stubAppender{
		appendFn: func(ctx context.Context, tenantID string, reading *models.Reading) (int64, error) {
			gotUsage = reading.EnergyUsage
			return 1, nil
		},
	})

	msg, ack := delivery(`{"tenant_id":"t1","device_id":"d1","energy_usage":0}`)
	c.handleDelivery(context.Background(), msg)

	assert.True(t, ack.acked)
	assert.Equal(t, 0.0, gotUsage)
}

func TestHandleDelivery_InvalidReadingDroppedWithoutRequeue(t *testing.T) {
	c := testConsumer(&stubAppender{
		appendFn: func(ctx context.Context, tenantID string, reading *models.Reading) (int64, error) {
			return 0, common.ErrorInvalidArgument
		},
	})

	msg, ack := delivery(`{"tenant_id":"t1","device_id":"d1","energy_usage":-1}`)
	c.handleDelivery(context.Background(), msg)

	assert.True(t, ack.nacked)
	assert.False(t, ack.requeue, "poison messages must not cycle forever")
}

func TestHandleDelivery_TransientStoreFailureRequeues(t *testing.T) {
	c := testConsumer(&stubAppender{
		appendFn: func(ctx context.Context, tenantID string, reading *models.Reading) (int64, error) {
			return 0, errors.Join(common.ErrorUnavailable, errors.New("connection refused"))
		},
	})

	msg, ack := delivery(`{"tenant_id":"t1","device_id":"d1","energy_usage":1}`)
	c.handleDelivery(context.Background(), msg)

	assert.True(t, ack.nacked)
	assert.True(t, ack.requeue)
}

func TestRun_BrokerUnreachable(t *testing.T) {
	orig := amqpDial
	amqpDial = func(url string) (*amqp.Connection, error) {
		return nil, errors.New("dial tcp: connection refused")
	}
	t.Cleanup(func() { amqpDial = orig })

	c := testConsumer(&stubAppender{})
	err := c.Run(context.Background())
	assert.ErrorIs(t, err, common.ErrorUnavailable)
}

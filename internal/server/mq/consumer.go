// Package mq ingests readings from the fleet message queue. The queue
// path is optional; when no broker URL is configured the server runs
// HTTP-only.
package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/vmaksimov/homesense/internal/common"
	"github.com/vmaksimov/homesense/internal/logging"
	"github.com/vmaksimov/homesense/internal/server/models"
)

// amqpDial is a seam for tests.
var amqpDial = amqp.Dial

// Appender is the slice of the telemetry service the consumer needs.
type Appender interface {
	Append(ctx context.Context, tenantID string, reading *models.Reading) (int64, error)
}

// queuedReading is the wire format the ingestion fleet publishes. Unlike
// the HTTP path there is no per-request principal, so the tenant id
// travels in the message; the broker is inside the trust boundary.
// EnergyUsage shadows the embedded field as a pointer so a message
// without the measurement is rejected instead of recorded as zero usage.
type queuedReading struct {
	TenantID    string   `json:"tenant_id"`
	EnergyUsage *float64 `json:"energy_usage"`
	models.Reading
}

type Consumer struct {
	url      string
	queue    string
	logger   logging.Logger
	appender Appender
}

func NewConsumer(url, queue string, l logging.Logger, a Appender) *Consumer {
	return &Consumer{
		url:      url,
		queue:    queue,
		logger:   l.With("module", "mq_consumer"),
		appender: a,
	}
}

// Run consumes until the context is cancelled. Messages are acked only
// after a successful append; malformed or invalid ones are rejected
// without requeue, transient store failures are requeued.
func (c *Consumer) Run(ctx context.Context) error {

	conn, err := amqpDial(c.url)
	if err != nil {
		return fmt.Errorf("%w: connecting to broker: %v", common.ErrorUnavailable, err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("opening channel: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declaring queue %q: %w", c.queue, err)
	}

	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("starting consume: %w", err)
	}

	c.logger.Info(ctx, "Consuming readings", "queue", c.queue)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info(ctx, "Stopping consumer...")
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("%w: delivery channel closed", common.ErrorUnavailable)
			}
			c.handleDelivery(ctx, msg)
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, msg amqp.Delivery) {

	var queued queuedReading
	if err := json.Unmarshal(msg.Body, &queued); err != nil {
		c.logger.Warn(ctx, "Dropping malformed message", "error", err)
		c.nack(ctx, msg, false)
		return
	}

	if queued.TenantID == "" {
		c.logger.Warn(ctx, "Dropping message without tenant id", "device_id", queued.DeviceID)
		c.nack(ctx, msg, false)
		return
	}

	if queued.EnergyUsage == nil {
		c.logger.Warn(ctx, "Dropping message without energy usage", "device_id", queued.DeviceID)
		c.nack(ctx, msg, false)
		return
	}
	queued.Reading.EnergyUsage = *queued.EnergyUsage

	_, err := c.appender.Append(ctx, queued.TenantID, &queued.Reading)
	switch {
	case err == nil:
		if err := msg.Ack(false); err != nil {
			c.logger.Error(ctx, "Ack failed", "error", err)
		}
	case errors.Is(err, common.ErrorInvalidArgument):
		c.logger.Warn(ctx, "Dropping invalid reading", "device_id", queued.DeviceID, "error", err)
		c.nack(ctx, msg, false)
	default:
		c.logger.Error(ctx, "Append failed, requeueing", "device_id", queued.DeviceID, "error", err)
		c.nack(ctx, msg, true)
	}
}

func (c *Consumer) nack(ctx context.Context, msg amqp.Delivery, requeue bool) {
	if err := msg.Nack(false, requeue); err != nil {
		c.logger.Error(ctx, "Nack failed", "error", err)
	}
}

// Package service holds outbound integrations used after a request has
// been served, such as publishing property lifecycle events.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/lodging-listings/internal/logger"
	"github.com/iliyamo/lodging-listings/internal/queue"
)

// EventPublisher sends PropertyEvents to the property.events queue.  Each
// publish opens its own connection: writes are infrequent and this keeps
// the publisher free of reconnect state.
type EventPublisher struct {
	url     string
	timeout time.Duration
}

// NewEventPublisher returns nil when url is empty; a nil *EventPublisher
// is valid and publishes nothing.
func NewEventPublisher(url string) *EventPublisher {
	if url == "" {
		return nil
	}
	return &EventPublisher{url: url, timeout: 3 * time.Second}
}

// Publish marks messages persistent and never panics.  Errors are logged
// and returned so the caller may ignore them; a committed write is never
// undone because its event could not be sent.
func (p *EventPublisher) Publish(ctx context.Context, ev queue.PropertyEvent) error {
	if p == nil {
		return nil
	}
	log := logger.FromContext(ctx).With("event_id", ev.EventID, "event_type", ev.Type)

	body, err := json.Marshal(ev)
	if err != nil {
		log.Error("marshal property event failed", "err", err)
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(p.timeout)})
	if err != nil {
		log.Warn("rabbitmq dial failed", "err", err)
		return fmt.Errorf("dial broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Warn("rabbitmq channel open failed", "err", err)
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queue.PropertyQueueName, true, false, false, false, nil); err != nil {
		log.Warn("rabbitmq queue declare failed", "err", err)
		return fmt.Errorf("declare queue: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.EventID,
		Type:         string(ev.Type),
		Timestamp:    ev.OccurredAt,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue.PropertyQueueName, false, false, msg); err != nil {
		log.Warn("rabbitmq publish failed", "err", err)
		return fmt.Errorf("publish: %w", err)
	}
	log.Debug("property event published", "property_id", ev.PropertyID)
	return nil
}

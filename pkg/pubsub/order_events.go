package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
)

type OrderEventType string

const (
	OrderPlaced        OrderEventType = "order.placed"
	PaymentConfirmed   OrderEventType = "payment.confirmed"
	PaymentUnconfirmed OrderEventType = "payment.unconfirmed"
	PaymentFailed      OrderEventType = "payment.failed"
	OrderCancelled     OrderEventType = "order.cancelled"
)

// OrderEvent is published whenever the storefront moves an order or its payment.
type OrderEvent struct {
	Type          OrderEventType `json:"type"`
	OrderID       int64          `json:"order_id"`
	OrderNumber   string         `json:"order_number,omitempty"`
	UserID        int64          `json:"user_id,omitempty"`
	PaymentMethod string         `json:"payment_method,omitempty"`
	Total         string         `json:"total,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	OccurredAt    time.Time      `json:"occurred_at"`
}

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

type publisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) publishResult
}

type v2Publisher struct {
	p *pubsub.Publisher
}

func (v v2Publisher) Publish(ctx context.Context, msg *pubsub.Message) publishResult {
	return v.p.Publish(ctx, msg)
}

// OrderEvents publishes OrderEvent messages. A nil *OrderEvents drops events.
type OrderEvents struct {
	pub publisher
}

func NewOrderEvents(p *pubsub.Publisher) *OrderEvents {
	if p == nil {
		return nil
	}
	return &OrderEvents{pub: v2Publisher{p: p}}
}

// Publish blocks until the server acknowledges the message.
func (o *OrderEvents) Publish(ctx context.Context, event OrderEvent) error {
	if o == nil || o.pub == nil {
		return nil
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}
	msg := &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_type": string(event.Type),
			"order_id":   fmt.Sprintf("%d", event.OrderID),
		},
	}
	if _, err := o.pub.Publish(ctx, msg).Get(ctx); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

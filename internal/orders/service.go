package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/gheehive-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/gheehive-storefront/pkg/errors"
	"github.com/angelmondragon/gheehive-storefront/pkg/logger"
	"github.com/angelmondragon/gheehive-storefront/pkg/pubsub"
	"github.com/angelmondragon/gheehive-storefront/pkg/strapi"
)

type orderAPI interface {
	GetOrder(ctx context.Context, token string, id int64) (*strapi.Order, error)
	UpdateOrder(ctx context.Context, token string, id int64, update strapi.OrderUpdate) (*strapi.Order, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, event pubsub.OrderEvent) error
}

// Service exposes the visitor's view of placed orders.
type Service interface {
	Get(ctx context.Context, token string, id int64) (*strapi.Order, error)
	Cancel(ctx context.Context, token string, userID, id int64) (*strapi.Order, error)
}

type service struct {
	api    orderAPI
	events eventPublisher
	logg   *logger.Logger
	now    func() time.Time
}

// NewService builds the order service. events and logg may be nil.
func NewService(api orderAPI, events eventPublisher, logg *logger.Logger) (Service, error) {
	if api == nil {
		return nil, fmt.Errorf("order api required")
	}
	return &service{api: api, events: events, logg: logg, now: time.Now}, nil
}

func (s *service) Get(ctx context.Context, token string, id int64) (*strapi.Order, error) {
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to view orders")
	}
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id")
	}
	return s.api.GetOrder(ctx, token, id)
}

// Cancel moves a pending or confirmed order to cancelled. Other statuses are final
// from the storefront's point of view.
func (s *service) Cancel(ctx context.Context, token string, userID, id int64) (*strapi.Order, error) {
	order, err := s.Get(ctx, token, id)
	if err != nil {
		return nil, err
	}
	if !order.OrderStatus.Cancellable() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be cancelled").
			WithDetails(map[string]string{"orderStatus": order.OrderStatus.String()})
	}

	cancelled := enums.OrderStatusCancelled
	updated, err := s.api.UpdateOrder(ctx, token, id, strapi.OrderUpdate{OrderStatus: &cancelled})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, pubsub.OrderEvent{
		Type:        pubsub.OrderCancelled,
		OrderID:     id,
		OrderNumber: order.OrderNumber,
		UserID:      userID,
		OccurredAt:  s.now().UTC(),
	})
	return updated, nil
}

// publish is best effort; the backend already holds the change.
func (s *service) publish(ctx context.Context, event pubsub.OrderEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithOrderID(ctx, event.OrderID), "publish order event", err)
	}
}

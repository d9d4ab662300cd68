package orders

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/angelmondragon/gheehive-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/gheehive-storefront/pkg/errors"
	"github.com/angelmondragon/gheehive-storefront/pkg/logger"
	"github.com/angelmondragon/gheehive-storefront/pkg/pubsub"
	"github.com/angelmondragon/gheehive-storefront/pkg/strapi"
)

type stubAPI struct {
	order   strapi.Order
	updates []strapi.OrderUpdate
}

func (s *stubAPI) GetOrder(_ context.Context, _ string, id int64) (*strapi.Order, error) {
	o := s.order
	o.ID = id
	return &o, nil
}

func (s *stubAPI) UpdateOrder(_ context.Context, _ string, id int64, update strapi.OrderUpdate) (*strapi.Order, error) {
	s.updates = append(s.updates, update)
	o := s.order
	o.ID = id
	o.OrderStatus = *update.OrderStatus
	return &o, nil
}

type stubEvents struct {
	events []pubsub.OrderEvent
}

func (s *stubEvents) Publish(_ context.Context, e pubsub.OrderEvent) error {
	s.events = append(s.events, e)
	return nil
}

func TestCancelAllowedStatuses(t *testing.T) {
	for _, status := range []enums.OrderStatus{enums.OrderStatusPending, enums.OrderStatusConfirmed} {
		api := &stubAPI{order: strapi.Order{OrderStatus: status}}
		events := &stubEvents{}
		svc, err := NewService(api, events, nil)
		if err != nil {
			t.Fatalf("new service: %v", err)
		}
		got, err := svc.Cancel(context.Background(), "jwt", 5, 12)
		if err != nil {
			t.Fatalf("%s: cancel: %v", status, err)
		}
		if got.OrderStatus != enums.OrderStatusCancelled {
			t.Fatalf("%s: expected cancelled, got %s", status, got.OrderStatus)
		}
		if len(events.events) != 1 || events.events[0].Type != pubsub.OrderCancelled {
			t.Fatalf("%s: expected cancel event, got %+v", status, events.events)
		}
	}
}

func TestCancelRejectsLaterStatuses(t *testing.T) {
	for _, status := range []enums.OrderStatus{enums.OrderStatusProcessing, enums.OrderStatusShipped, enums.OrderStatusDelivered, enums.OrderStatusCancelled} {
		api := &stubAPI{order: strapi.Order{OrderStatus: status}}
		svc, _ := NewService(api, nil, nil)
		_, err := svc.Cancel(context.Background(), "jwt", 5, 12)
		if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
			t.Fatalf("%s: expected state conflict, got %v", status, err)
		}
		if len(api.updates) != 0 {
			t.Fatalf("%s: must not update", status)
		}
	}
}

func TestGetRequiresSession(t *testing.T) {
	svc, _ := NewService(&stubAPI{}, nil, nil)
	if _, err := svc.Get(context.Background(), "", 1); pkgerrors.As(err).Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

type failingEvents struct{}

func (failingEvents) Publish(context.Context, pubsub.OrderEvent) error {
	return errors.New("topic unavailable")
}

func TestCancelLogsPublishFailure(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "orders-test", Output: &buf})
	api := &stubAPI{order: strapi.Order{OrderStatus: enums.OrderStatusPending}}
	svc, err := NewService(api, failingEvents{}, logg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	got, err := svc.Cancel(context.Background(), "jwt", 5, 12)
	if err != nil {
		t.Fatalf("cancel should not fail on a publish error: %v", err)
	}
	if got.OrderStatus != enums.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", got.OrderStatus)
	}
	if out := buf.String(); !strings.Contains(out, "publish order event") || !strings.Contains(out, "topic unavailable") {
		t.Fatalf("expected the publish failure to be logged, got %q", out)
	}
}

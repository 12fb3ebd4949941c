package order

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/comanda-labs/comanda/internal/entity"
)

// Lifecycle event names carried in the event envelope.
const (
	EventOrderCreated   = "order.created"
	EventOrderPaid      = "order.paid"
	EventOrderCancelled = "order.cancelled"
)

// LifecycleEvent is emitted after an order transaction commits.
type LifecycleEvent struct {
	Event      string    `json:"event"`
	TenantID   int64     `json:"tenant_id"`
	OrderID    int64     `json:"order_id"`
	Number     int64     `json:"number"`
	Channel    string    `json:"channel"`
	Status     string    `json:"status"`
	Total      float64   `json:"total"`
	OccurredAt time.Time `json:"occurred_at"`
}

// publishLifecycle emits a lifecycle event best-effort. The transaction has
// already committed; a publish failure is logged, never surfaced.
func (s *Service) publishLifecycle(ctx context.Context, event string, order *entity.Order) {
	if !s.messaging.enabled || s.publisher == nil {
		return
	}
	payload, err := json.Marshal(LifecycleEvent{
		Event:      event,
		TenantID:   order.TenantID,
		OrderID:    order.ID,
		Number:     order.Number,
		Channel:    string(order.Channel),
		Status:     string(order.Status),
		Total:      order.Total,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		if s.logger != nil {
			s.logger.Error("marshal lifecycle event", zap.String("event", event), zap.Error(err))
		}
		return
	}
	key := []byte(fmt.Sprintf("tenant-%d-order-%d", order.TenantID, order.ID))
	if err := s.publisher.Publish(ctx, key, payload); err != nil {
		if s.logger != nil {
			s.logger.Error("publish lifecycle event", zap.String("event", event), zap.Error(err))
		}
	}
}

package order

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/comanda-labs/comanda/internal/config"
	"github.com/comanda-labs/comanda/internal/messaging"
	ordersvc "github.com/comanda-labs/comanda/internal/service/order"
	"github.com/comanda-labs/comanda/internal/worker"
)

var workerTracer = otel.Tracer("github.com/comanda-labs/comanda/worker/order")

// Module registers order-related worker handlers.
var Module = fx.Module("worker_order",
	fx.Provide(
		fx.Annotate(
			NewLifecycleHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewLifecycleHandler sets up a worker handler for order lifecycle events.
// Created orders surface as kitchen tickets; settlements and cancellations
// are logged for the floor.
func NewLifecycleHandler(logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.orders.process", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var event ordersvc.LifecycleEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("failed to decode lifecycle event", zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}

		fields := []zap.Field{
			zap.Int64("tenant_id", event.TenantID),
			zap.Int64("order_id", event.OrderID),
			zap.Int64("number", event.Number),
			zap.String("channel", event.Channel),
			zap.Float64("total", event.Total),
		}

		switch event.Event {
		case ordersvc.EventOrderCreated:
			logger.Info("kitchen ticket: new order", fields...)
		case ordersvc.EventOrderPaid:
			logger.Info("order settled", fields...)
		case ordersvc.EventOrderCancelled:
			logger.Info("order cancelled", fields...)
		default:
			logger.Warn("unknown lifecycle event", zap.String("event", event.Event))
		}

		return nil
	}

	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: handler,
	}
}

package order_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/comanda-labs/comanda/internal/config"
	"github.com/comanda-labs/comanda/internal/messaging"
	ordersvc "github.com/comanda-labs/comanda/internal/service/order"
	workerorder "github.com/comanda-labs/comanda/internal/worker/order"
)

func TestLifecycleHandler(t *testing.T) {
	var cfg config.Config
	cfg.Messaging.Kafka.Topic = "orders.lifecycle"

	registration := workerorder.NewLifecycleHandler(zap.NewNop(), cfg)
	assert.Equal(t, "orders.lifecycle", registration.Topic)

	payload, err := json.Marshal(ordersvc.LifecycleEvent{
		Event:      ordersvc.EventOrderCreated,
		TenantID:   1,
		OrderID:    42,
		Number:     7,
		Channel:    "dine_in",
		Status:     "pending",
		Total:      18.50,
		OccurredAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	msg := messaging.Message{Topic: "orders.lifecycle", Value: payload}
	assert.NoError(t, registration.Handler(context.Background(), msg))

	// Unknown events are logged and committed, never retried.
	unknown, err := json.Marshal(ordersvc.LifecycleEvent{Event: "order.reopened"})
	require.NoError(t, err)
	assert.NoError(t, registration.Handler(context.Background(), messaging.Message{Value: unknown}))

	// Malformed payloads are surfaced so the message is not committed.
	assert.Error(t, registration.Handler(context.Background(), messaging.Message{Value: []byte("{not json")}))
}

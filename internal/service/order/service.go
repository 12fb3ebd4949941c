package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/comanda-labs/comanda/internal/cache"
	"github.com/comanda-labs/comanda/internal/config"
	"github.com/comanda-labs/comanda/internal/dto"
	"github.com/comanda-labs/comanda/internal/entity"
	"github.com/comanda-labs/comanda/internal/messaging"
	"github.com/comanda-labs/comanda/internal/payment"
	repo "github.com/comanda-labs/comanda/internal/repository/order"
	"github.com/comanda-labs/comanda/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/comanda-labs/comanda/service/order")

// Service is the order lifecycle engine. Every mutating operation runs as
// one atomic unit of work: reads and validations first, then writes to
// order, items, and table occupancy, committed or aborted together.
type Service struct {
	uow       repo.UnitOfWork
	reader    repo.Reader
	cache     cache.Store
	cacheTTL  time.Duration
	logger    *zap.Logger
	publisher messaging.Client
	messaging messagingConfig
}

// messagingConfig contains messaging specific knobs we care about.
type messagingConfig struct {
	enabled bool
	topic   string
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	UnitOfWork repo.UnitOfWork
	Reader     repo.Reader
	Cache      cache.Store
	Config     config.Config
	Logger     *zap.Logger
	Publisher  messaging.Client
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		uow:       p.UnitOfWork,
		reader:    p.Reader,
		cache:     p.Cache,
		cacheTTL:  p.Config.Cache.DefaultTTL,
		logger:    p.Logger,
		publisher: p.Publisher,
		messaging: messagingConfig{
			enabled: p.Config.Messaging.Enabled,
			topic:   p.Config.Messaging.Kafka.Topic,
		},
	}
}

// Get retrieves an order by id within the tenant, consulting cache first.
func (s *Service) Get(ctx context.Context, tenantID, orderID int64) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Get", trace.WithAttributes(
		attribute.Int64("tenant.id", tenantID),
		attribute.Int64("order.id", orderID),
	))
	defer span.End()

	if order, err := s.getFromCache(ctx, tenantID, orderID); err == nil {
		return order, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		if s.logger != nil {
			s.logger.Warn("orders cache read failed", zap.Int64("order_id", orderID), zap.Error(err))
		}
	}

	order, err := s.reader.GetOrder(ctx, tenantID, orderID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}

	if err := s.storeInCache(ctx, order); err != nil && s.logger != nil {
		s.logger.Warn("orders cache write failed", zap.Int64("order_id", orderID), zap.Error(err))
	}
	return order, nil
}

// CreateOrder opens a new order for the tenant. Dine-in orders require a
// table, which is marked occupied in the same transaction that persists
// the order and its number.
func (s *Service) CreateOrder(ctx context.Context, tenantID int64, req dto.CreateOrderRequest) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.CreateOrder", trace.WithAttributes(
		attribute.Int64("tenant.id", tenantID),
		attribute.String("order.channel", req.Channel),
	))
	defer span.End()

	channel, ok := entity.ParseChannel(req.Channel)
	if !ok {
		return nil, errorbank.BadRequest(fmt.Sprintf("unknown channel %q", req.Channel))
	}
	if channel == entity.ChannelDineIn && req.TableID == nil {
		return nil, errorbank.BadRequest("table is required for dine-in orders")
	}
	if err := validateNewItems(req.Items); err != nil {
		return nil, err
	}

	var order *entity.Order
	err := s.uow.RunInTx(ctx, func(ctx context.Context, tx repo.Tx) error {
		if req.TableID != nil {
			if _, err := tx.Tables().Find(ctx, tenantID, *req.TableID); err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					return errorbank.NotFound("table not found", errorbank.WithDetail("table_id", *req.TableID))
				}
				return err
			}
		}

		items, total, err := buildItems(ctx, tx, tenantID, req.Items)
		if err != nil {
			return err
		}

		number, err := tx.Orders().NextNumber(ctx, tenantID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return errorbank.NotFound("tenant not found")
			}
			return err
		}

		now := time.Now().UTC()
		order = &entity.Order{
			TenantID:  tenantID,
			Number:    number,
			Channel:   channel,
			Status:    entity.OrderStatusPending,
			TableID:   req.TableID,
			Subtotal:  total,
			Total:     total,
			Notes:     req.Notes,
			CreatedAt: now,
			UpdatedAt: now,
			Items:     items,
		}
		if err := tx.Orders().Insert(ctx, order); err != nil {
			return err
		}

		if order.DineIn() {
			return tx.Tables().SetStatus(ctx, tenantID, *order.TableID, entity.TableStatusOccupied)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create order failed")
		return nil, err
	}

	if err := s.storeInCache(ctx, order); err != nil && s.logger != nil {
		s.logger.Warn("orders cache write failed", zap.Int64("order_id", order.ID), zap.Error(err))
	}
	s.publishLifecycle(ctx, EventOrderCreated, order)
	return order, nil
}

// AddItems appends items to an open order and increments its totals by the
// added amount, never recomputing them from scratch.
func (s *Service) AddItems(ctx context.Context, tenantID, orderID int64, newItems []dto.NewOrderItem) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.AddItems", trace.WithAttributes(
		attribute.Int64("tenant.id", tenantID),
		attribute.Int64("order.id", orderID),
	))
	defer span.End()

	if len(newItems) == 0 {
		return nil, errorbank.BadRequest("at least one item is required")
	}
	if err := validateNewItems(newItems); err != nil {
		return nil, err
	}

	var order *entity.Order
	err := s.uow.RunInTx(ctx, func(ctx context.Context, tx repo.Tx) error {
		var err error
		order, err = s.loadForUpdate(ctx, tx, tenantID, orderID)
		if err != nil {
			return err
		}
		if order.Status.Terminal() {
			return errorbank.Conflict("order is closed", errorbank.WithDetail("status", string(order.Status)))
		}

		items, delta, err := buildItems(ctx, tx, tenantID, newItems)
		if err != nil {
			return err
		}
		for _, item := range items {
			item.OrderID = order.ID
		}
		if err := tx.Orders().InsertItems(ctx, items); err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := tx.Orders().AddToTotals(ctx, tenantID, orderID, delta, now); err != nil {
			return err
		}

		order.Items = append(order.Items, items...)
		order.Subtotal += delta
		order.Total += delta
		order.UpdatedAt = now
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "add items failed")
		return nil, err
	}

	s.invalidateCache(ctx, tenantID, orderID)
	return order, nil
}

// UpdateOrderStatus applies a status transition from the order transition
// table. Occupancy is untouched here; only settlement and cancellation
// move tables.
func (s *Service) UpdateOrderStatus(ctx context.Context, tenantID, orderID int64, rawStatus string) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.UpdateOrderStatus", trace.WithAttributes(
		attribute.Int64("tenant.id", tenantID),
		attribute.Int64("order.id", orderID),
		attribute.String("order.requested_status", rawStatus),
	))
	defer span.End()

	next, ok := entity.ParseOrderStatus(rawStatus)
	if !ok {
		return nil, errorbank.BadRequest(fmt.Sprintf("unknown order status %q", rawStatus))
	}

	var order *entity.Order
	err := s.uow.RunInTx(ctx, func(ctx context.Context, tx repo.Tx) error {
		var err error
		order, err = s.loadForUpdate(ctx, tx, tenantID, orderID)
		if err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(next) {
			return errorbank.InvalidTransition(string(order.Status), string(next))
		}

		now := time.Now().UTC()
		if err := tx.Orders().UpdateStatus(ctx, tenantID, orderID, next, now); err != nil {
			return err
		}
		order.Status = next
		order.UpdatedAt = now
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "status update failed")
		return nil, err
	}

	s.invalidateCache(ctx, tenantID, orderID)
	return order, nil
}

// UpdateItemStatus applies an item status transition. The item must belong
// to the order, and the order to the tenant.
func (s *Service) UpdateItemStatus(ctx context.Context, tenantID, orderID, itemID int64, rawStatus string) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.UpdateItemStatus", trace.WithAttributes(
		attribute.Int64("tenant.id", tenantID),
		attribute.Int64("order.id", orderID),
		attribute.Int64("item.id", itemID),
	))
	defer span.End()

	next, ok := entity.ParseItemStatus(rawStatus)
	if !ok {
		return nil, errorbank.BadRequest(fmt.Sprintf("unknown item status %q", rawStatus))
	}

	var order *entity.Order
	err := s.uow.RunInTx(ctx, func(ctx context.Context, tx repo.Tx) error {
		var err error
		order, err = s.loadForUpdate(ctx, tx, tenantID, orderID)
		if err != nil {
			return err
		}

		var item *entity.OrderItem
		for _, candidate := range order.Items {
			if candidate.ID == itemID {
				item = candidate
				break
			}
		}
		if item == nil {
			return errorbank.NotFound("item not found", errorbank.WithDetail("item_id", itemID))
		}
		if !item.Status.CanTransitionTo(next) {
			return errorbank.InvalidTransition(string(item.Status), string(next))
		}

		if err := tx.Orders().UpdateItemStatus(ctx, orderID, itemID, next); err != nil {
			return err
		}
		item.Status = next
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "item status update failed")
		return nil, err
	}

	s.invalidateCache(ctx, tenantID, orderID)
	return order, nil
}

// PayOrder settles an order. Paying again is a conflict, not bad input; a
// cancelled order is simply closed. For mixed payments the splits must
// cover the total. Settling the last active dine-in order on a table sends
// the table to cleaning.
func (s *Service) PayOrder(ctx context.Context, tenantID, orderID int64, req dto.PayOrderRequest) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.PayOrder", trace.WithAttributes(
		attribute.Int64("tenant.id", tenantID),
		attribute.Int64("order.id", orderID),
		attribute.String("payment.method", req.Method),
	))
	defer span.End()

	method, ok := payment.ParseMethod(req.Method)
	if !ok {
		return nil, errorbank.BadRequest(fmt.Sprintf("unknown payment method %q", req.Method))
	}
	splits := make([]payment.Split, 0, len(req.Splits))
	for _, split := range req.Splits {
		splits = append(splits, payment.Split{Method: payment.Method(split.Method), Amount: split.Amount})
	}

	var order *entity.Order
	err := s.uow.RunInTx(ctx, func(ctx context.Context, tx repo.Tx) error {
		var err error
		order, err = s.loadForUpdate(ctx, tx, tenantID, orderID)
		if err != nil {
			return err
		}
		if order.Status == entity.OrderStatusPaid {
			return errorbank.Conflict("order already paid")
		}
		if order.Status == entity.OrderStatusCancelled {
			return errorbank.Conflict("order is closed", errorbank.WithDetail("status", string(order.Status)))
		}

		if err := payment.Reconcile(order.Total, method, splits); err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := tx.Orders().SetPaid(ctx, tenantID, orderID, string(method), now); err != nil {
			return err
		}

		if order.DineIn() {
			if err := s.releaseTable(ctx, tx, order, entity.TableStatusCleaning); err != nil {
				return err
			}
		}

		order.Status = entity.OrderStatusPaid
		order.PaymentMethod = string(method)
		order.PaidAt = &now
		order.UpdatedAt = now
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "payment failed")
		return nil, err
	}

	s.invalidateCache(ctx, tenantID, orderID)
	s.publishLifecycle(ctx, EventOrderPaid, order)
	return order, nil
}

// CancelOrder cancels a non-terminal order. Items already served stay
// served; everything else is bulk-cancelled. The reason is appended to the
// existing notes. Cancelling the last active dine-in order frees the table.
func (s *Service) CancelOrder(ctx context.Context, tenantID, orderID int64, reason string) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.CancelOrder", trace.WithAttributes(
		attribute.Int64("tenant.id", tenantID),
		attribute.Int64("order.id", orderID),
	))
	defer span.End()

	var order *entity.Order
	err := s.uow.RunInTx(ctx, func(ctx context.Context, tx repo.Tx) error {
		var err error
		order, err = s.loadForUpdate(ctx, tx, tenantID, orderID)
		if err != nil {
			return err
		}
		if order.Status.Terminal() {
			return errorbank.Conflict("order is closed", errorbank.WithDetail("status", string(order.Status)))
		}

		if err := tx.Orders().CancelActiveItems(ctx, orderID); err != nil {
			return err
		}

		now := time.Now().UTC()
		notes := appendCancelReason(order.Notes, reason)
		if err := tx.Orders().SetCancelled(ctx, tenantID, orderID, notes, now); err != nil {
			return err
		}

		if order.DineIn() {
			if err := s.releaseTable(ctx, tx, order, entity.TableStatusAvailable); err != nil {
				return err
			}
		}

		for _, item := range order.Items {
			if item.Status != entity.ItemStatusServed && item.Status != entity.ItemStatusCancelled {
				item.Status = entity.ItemStatusCancelled
			}
		}
		order.Status = entity.OrderStatusCancelled
		order.Notes = notes
		order.UpdatedAt = now
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancel failed")
		return nil, err
	}

	s.invalidateCache(ctx, tenantID, orderID)
	s.publishLifecycle(ctx, EventOrderCancelled, order)
	return order, nil
}

// releaseTable frees the order's table when no other active order still
// holds it. The count is read in the same transaction as the write.
func (s *Service) releaseTable(ctx context.Context, tx repo.Tx, order *entity.Order, freed entity.TableStatus) error {
	active, err := tx.Tables().CountActiveOrders(ctx, order.TenantID, *order.TableID, order.ID)
	if err != nil {
		return err
	}
	if active > 0 {
		return nil
	}
	return tx.Tables().SetStatus(ctx, order.TenantID, *order.TableID, freed)
}

// loadForUpdate fetches the order row-locked and maps absence (including
// cross-tenant ids) onto a not_found error.
func (s *Service) loadForUpdate(ctx context.Context, tx repo.Tx, tenantID, orderID int64) (*entity.Order, error) {
	order, err := tx.Orders().GetForUpdate(ctx, tenantID, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, errorbank.NotFound("order not found", errorbank.WithDetail("order_id", orderID))
	}
	return order, err
}

// buildItems resolves catalog products for the submitted lines and builds
// order items with name and price snapshotted at add-time.
func buildItems(ctx context.Context, tx repo.Tx, tenantID int64, newItems []dto.NewOrderItem) ([]*entity.OrderItem, float64, error) {
	ids := make([]int64, 0, len(newItems))
	seen := make(map[int64]struct{}, len(newItems))
	for _, item := range newItems {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}

	products, err := tx.Catalog().FindProductsByIDs(ctx, tenantID, ids)
	if err != nil {
		return nil, 0, err
	}
	byID := make(map[int64]*entity.Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}

	items := make([]*entity.OrderItem, 0, len(newItems))
	var total float64
	for _, newItem := range newItems {
		product, ok := byID[newItem.ProductID]
		if !ok || !product.IsActive {
			return nil, 0, errorbank.NotFound("product not found", errorbank.WithDetail("product_id", newItem.ProductID))
		}
		if !product.IsAvailable {
			return nil, 0, errorbank.Unprocessable("product is not available", errorbank.WithDetail("product_id", newItem.ProductID))
		}

		item := &entity.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  newItem.Quantity,
			Modifiers: newItem.Modifiers,
			Status:    entity.ItemStatusPending,
			Notes:     newItem.Notes,
		}
		items = append(items, item)
		total += item.LineTotal()
	}
	return items, total, nil
}

func validateNewItems(items []dto.NewOrderItem) error {
	for _, item := range items {
		if item.Quantity <= 0 {
			return errorbank.BadRequest("item quantity must be positive", errorbank.WithDetail("product_id", item.ProductID))
		}
	}
	return nil
}

func appendCancelReason(notes, reason string) string {
	if reason == "" {
		return notes
	}
	if notes == "" {
		return "cancelled: " + reason
	}
	return notes + "\ncancelled: " + reason
}

func (s *Service) cacheKey(tenantID, orderID int64) string {
	return fmt.Sprintf("tenants:%d:orders:%d", tenantID, orderID)
}

func (s *Service) getFromCache(ctx context.Context, tenantID, orderID int64) (*entity.Order, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	bytes, err := s.cache.Get(ctx, s.cacheKey(tenantID, orderID))
	if err != nil {
		return nil, err
	}
	var order entity.Order
	if err := json.Unmarshal(bytes, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) storeInCache(ctx context.Context, order *entity.Order) error {
	if s.cache == nil || order == nil {
		return nil
	}
	bytes, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, s.cacheKey(order.TenantID, order.ID), bytes, s.cacheTTL)
}

func (s *Service) invalidateCache(ctx context.Context, tenantID, orderID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, s.cacheKey(tenantID, orderID)); err != nil && s.logger != nil {
		s.logger.Warn("orders cache invalidation failed", zap.Int64("order_id", orderID), zap.Error(err))
	}
}

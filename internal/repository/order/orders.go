package order

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/comanda-labs/comanda/internal/database"
	"github.com/comanda-labs/comanda/internal/entity"
)

// orderStore is the transactional order/item store.
type orderStore struct {
	db bun.IDB
}

// NextNumber locks the tenant row and returns max(number)+1 for that
// tenant. The row lock serializes concurrent creates per tenant; the number
// only becomes visible if the surrounding transaction commits.
func (s *orderStore) NextNumber(ctx context.Context, tenantID int64) (int64, error) {
	ctx, span := repoTracer.Start(ctx, "OrderStore.NextNumber", trace.WithAttributes(attribute.Int64("tenant.id", tenantID)))
	defer span.End()

	tenant := new(entity.Tenant)
	err := s.db.NewSelect().Model(tenant).Where("t.id = ?", tenantID).For("UPDATE").Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "tenant not found")
		return 0, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	var max int64
	err = s.db.NewSelect().
		Model((*entity.Order)(nil)).
		ColumnExpr("COALESCE(MAX(o.number), 0)").
		Where("o.tenant_id = ?", tenantID).
		Scan(ctx, &max)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	return max + 1, nil
}

// Insert persists the order together with its items.
func (s *orderStore) Insert(ctx context.Context, order *entity.Order) error {
	ctx, span := repoTracer.Start(ctx, "OrderStore.Insert", trace.WithAttributes(
		attribute.Int64("tenant.id", order.TenantID),
		attribute.Int64("order.number", order.Number),
	))
	defer span.End()

	if _, err := s.db.NewInsert().Model(order).Exec(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert order failed")
		return err
	}
	for _, item := range order.Items {
		item.OrderID = order.ID
	}
	if len(order.Items) > 0 {
		if _, err := s.db.NewInsert().Model(&order.Items).Exec(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "insert items failed")
			return err
		}
	}
	return nil
}

// GetForUpdate loads the order row with a row lock, then its items. The
// lock keeps concurrent transitions and settlements from interleaving.
func (s *orderStore) GetForUpdate(ctx context.Context, tenantID, orderID int64) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderStore.GetForUpdate", trace.WithAttributes(
		attribute.Int64("tenant.id", tenantID),
		attribute.Int64("order.id", orderID),
	))
	defer span.End()

	order := new(entity.Order)
	err := s.db.NewSelect().
		Model(order).
		Where("o.id = ? AND o.tenant_id = ?", orderID, tenantID).
		For("UPDATE").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	err = s.db.NewSelect().
		Model(&order.Items).
		Where("oi.order_id = ?", order.ID).
		Order("oi.id ASC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return order, nil
}

func (s *orderStore) InsertItems(ctx context.Context, items []*entity.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	_, err := s.db.NewInsert().Model(&items).Exec(ctx)
	return err
}

func (s *orderStore) AddToTotals(ctx context.Context, tenantID, orderID int64, delta float64, at time.Time) error {
	res, err := s.db.NewUpdate().
		Model((*entity.Order)(nil)).
		Set("subtotal = subtotal + ?", delta).
		Set("total = total + ?", delta).
		Set("updated_at = ?", at).
		Where("id = ? AND tenant_id = ?", orderID, tenantID).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *orderStore) UpdateStatus(ctx context.Context, tenantID, orderID int64, status entity.OrderStatus, at time.Time) error {
	res, err := s.db.NewUpdate().
		Model((*entity.Order)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", at).
		Where("id = ? AND tenant_id = ?", orderID, tenantID).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *orderStore) UpdateItemStatus(ctx context.Context, orderID, itemID int64, status entity.ItemStatus) error {
	res, err := s.db.NewUpdate().
		Model((*entity.OrderItem)(nil)).
		Set("status = ?", status).
		Where("id = ? AND order_id = ?", itemID, orderID).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *orderStore) CancelActiveItems(ctx context.Context, orderID int64) error {
	_, err := s.db.NewUpdate().
		Model((*entity.OrderItem)(nil)).
		Set("status = ?", entity.ItemStatusCancelled).
		Where("order_id = ?", orderID).
		Where("status NOT IN (?)", bun.In([]entity.ItemStatus{entity.ItemStatusServed, entity.ItemStatusCancelled})).
		Exec(ctx)
	return err
}

func (s *orderStore) SetPaid(ctx context.Context, tenantID, orderID int64, method string, paidAt time.Time) error {
	res, err := s.db.NewUpdate().
		Model((*entity.Order)(nil)).
		Set("status = ?", entity.OrderStatusPaid).
		Set("payment_method = ?", method).
		Set("paid_at = ?", paidAt).
		Set("updated_at = ?", paidAt).
		Where("id = ? AND tenant_id = ?", orderID, tenantID).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *orderStore) SetCancelled(ctx context.Context, tenantID, orderID int64, notes string, at time.Time) error {
	res, err := s.db.NewUpdate().
		Model((*entity.Order)(nil)).
		Set("status = ?", entity.OrderStatusCancelled).
		Set("notes = ?", notes).
		Set("updated_at = ?", at).
		Where("id = ? AND tenant_id = ?", orderID, tenantID).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// bunReader serves reads outside any transaction from the read replica.
type bunReader struct {
	db *bun.DB
}

// NewReader wires the read path against the reader connection.
func NewReader(conns *database.Connections) Reader {
	return &bunReader{db: conns.Reader}
}

// GetOrder fetches an order with its items, scoped by tenant.
func (r *bunReader) GetOrder(ctx context.Context, tenantID, orderID int64) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderReader.GetOrder", trace.WithAttributes(
		attribute.Int64("tenant.id", tenantID),
		attribute.Int64("order.id", orderID),
	))
	defer span.End()

	order := new(entity.Order)
	err := r.db.NewSelect().
		Model(order).
		Relation("Items", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("oi.id ASC")
		}).
		Where("o.id = ? AND o.tenant_id = ?", orderID, tenantID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}

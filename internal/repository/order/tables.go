package order

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"github.com/comanda-labs/comanda/internal/entity"
)

// tableStore reads tables and writes their occupancy inside the transaction.
type tableStore struct {
	db bun.IDB
}

func (s *tableStore) Find(ctx context.Context, tenantID, tableID int64) (*entity.RestaurantTable, error) {
	table := new(entity.RestaurantTable)
	err := s.db.NewSelect().
		Model(table).
		Where("rt.id = ? AND rt.tenant_id = ?", tableID, tenantID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return table, nil
}

func (s *tableStore) SetStatus(ctx context.Context, tenantID, tableID int64, status entity.TableStatus) error {
	res, err := s.db.NewUpdate().
		Model((*entity.RestaurantTable)(nil)).
		Set("status = ?", status).
		Where("id = ? AND tenant_id = ?", tableID, tenantID).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// CountActiveOrders counts non-terminal orders on the table other than
// excludeOrderID. Read inside the same transaction as the occupancy write
// so two concurrent settlements cannot both decide they are last.
func (s *tableStore) CountActiveOrders(ctx context.Context, tenantID, tableID, excludeOrderID int64) (int, error) {
	return s.db.NewSelect().
		Model((*entity.Order)(nil)).
		Where("o.tenant_id = ?", tenantID).
		Where("o.table_id = ?", tableID).
		Where("o.id != ?", excludeOrderID).
		Where("o.status NOT IN (?)", bun.In([]entity.OrderStatus{entity.OrderStatusPaid, entity.OrderStatusCancelled})).
		Count(ctx)
}

package order

import (
	"context"
	"errors"
	"time"

	"github.com/comanda-labs/comanda/internal/entity"
)

// ErrNotFound is returned when a tenant-scoped row is missing. A row that
// exists under another tenant is indistinguishable from one that does not
// exist at all.
var ErrNotFound = errors.New("not found")

// UnitOfWork runs a function inside a single atomic transaction. Either
// every write made through the Tx commits, or none of them do.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx exposes the stores bound to one open transaction.
type Tx interface {
	Orders() OrderStore
	Catalog() CatalogReader
	Tables() TableStore
}

// OrderStore is tenant-scoped order and order-item access within a
// transaction. Every method takes the tenant id explicitly; omitting it is
// a compile error, not a runtime leak.
type OrderStore interface {
	// NextNumber allocates the next sequential order number for the tenant.
	// It serializes concurrent allocations for the same tenant and must only
	// be called inside the transaction that persists the order.
	NextNumber(ctx context.Context, tenantID int64) (int64, error)

	Insert(ctx context.Context, order *entity.Order) error
	GetForUpdate(ctx context.Context, tenantID, orderID int64) (*entity.Order, error)
	InsertItems(ctx context.Context, items []*entity.OrderItem) error

	// AddToTotals increments subtotal and total in place so concurrent
	// appends never overwrite each other.
	AddToTotals(ctx context.Context, tenantID, orderID int64, delta float64, at time.Time) error

	UpdateStatus(ctx context.Context, tenantID, orderID int64, status entity.OrderStatus, at time.Time) error
	UpdateItemStatus(ctx context.Context, orderID, itemID int64, status entity.ItemStatus) error

	// CancelActiveItems bulk-cancels every item that is neither served nor
	// already cancelled.
	CancelActiveItems(ctx context.Context, orderID int64) error

	SetPaid(ctx context.Context, tenantID, orderID int64, method string, paidAt time.Time) error
	SetCancelled(ctx context.Context, tenantID, orderID int64, notes string, at time.Time) error
}

// CatalogReader resolves products for the tenant adding them to an order.
type CatalogReader interface {
	FindProductsByIDs(ctx context.Context, tenantID int64, ids []int64) ([]*entity.Product, error)
}

// TableStore reads tables and writes their derived occupancy status.
type TableStore interface {
	Find(ctx context.Context, tenantID, tableID int64) (*entity.RestaurantTable, error)
	SetStatus(ctx context.Context, tenantID, tableID int64, status entity.TableStatus) error

	// CountActiveOrders counts non-terminal orders referencing the table,
	// excluding the given order id.
	CountActiveOrders(ctx context.Context, tenantID, tableID, excludeOrderID int64) (int, error)
}

// Reader serves the non-transactional read path, preferring the read
// replica when one is configured.
type Reader interface {
	GetOrder(ctx context.Context, tenantID, orderID int64) (*entity.Order, error)
}

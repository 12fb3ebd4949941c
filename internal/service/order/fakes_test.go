package order_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/comanda-labs/comanda/internal/entity"
	"github.com/comanda-labs/comanda/internal/messaging"
	repo "github.com/comanda-labs/comanda/internal/repository/order"
	"github.com/comanda-labs/comanda/pkg/errorbank"
)

// fakeStore is an in-memory stand-in for the relational store. A single
// mutex plays the role of row locks: every unit of work holds it for its
// whole duration, so transactions are serialized just like the database
// would serialize conflicting row-locked transactions.
type fakeStore struct {
	mu sync.Mutex

	tenants  map[int64]bool
	products map[int64]*entity.Product
	tables   map[int64]*entity.RestaurantTable
	orders   map[int64]*entity.Order

	nextOrderID int64
	nextItemID  int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tenants:  make(map[int64]bool),
		products: make(map[int64]*entity.Product),
		tables:   make(map[int64]*entity.RestaurantTable),
		orders:   make(map[int64]*entity.Order),
	}
}

func (s *fakeStore) addTenant(id int64) {
	s.tenants[id] = true
}

func (s *fakeStore) addProduct(p *entity.Product) {
	s.products[p.ID] = p
}

func (s *fakeStore) addTable(t *entity.RestaurantTable) {
	s.tables[t.ID] = t
}

func (s *fakeStore) order(id int64) *entity.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[id]
}

func (s *fakeStore) table(id int64) *entity.RestaurantTable {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tables[id]
}

func cloneOrder(o *entity.Order) *entity.Order {
	cp := *o
	if o.TableID != nil {
		v := *o.TableID
		cp.TableID = &v
	}
	if o.PaidAt != nil {
		v := *o.PaidAt
		cp.PaidAt = &v
	}
	cp.Items = make([]*entity.OrderItem, len(o.Items))
	for i, item := range o.Items {
		c := *item
		cp.Items[i] = &c
	}
	sort.Slice(cp.Items, func(i, j int) bool { return cp.Items[i].ID < cp.Items[j].ID })
	return &cp
}

func (s *fakeStore) snapshot() map[int64]*entity.Order {
	orders := make(map[int64]*entity.Order, len(s.orders))
	for id, o := range s.orders {
		orders[id] = cloneOrder(o)
	}
	return orders
}

func (s *fakeStore) snapshotTables() map[int64]*entity.RestaurantTable {
	tables := make(map[int64]*entity.RestaurantTable, len(s.tables))
	for id, t := range s.tables {
		c := *t
		tables[id] = &c
	}
	return tables
}

// fakeUnitOfWork serializes transactions and rolls state back when fn fails.
type fakeUnitOfWork struct {
	store *fakeStore
}

func (u *fakeUnitOfWork) RunInTx(ctx context.Context, fn func(ctx context.Context, tx repo.Tx) error) error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	orders := u.store.snapshot()
	tables := u.store.snapshotTables()
	nextOrderID, nextItemID := u.store.nextOrderID, u.store.nextItemID

	if err := fn(ctx, &fakeTx{store: u.store}); err != nil {
		u.store.orders = orders
		u.store.tables = tables
		u.store.nextOrderID, u.store.nextItemID = nextOrderID, nextItemID

		var appErr *errorbank.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return errorbank.TransactionFailed("order transaction failed", errorbank.WithCause(err))
	}
	return nil
}

type fakeTx struct {
	store *fakeStore
}

func (t *fakeTx) Orders() repo.OrderStore     { return &fakeOrders{store: t.store} }
func (t *fakeTx) Catalog() repo.CatalogReader { return &fakeCatalog{store: t.store} }
func (t *fakeTx) Tables() repo.TableStore     { return &fakeTables{store: t.store} }

type fakeOrders struct {
	store *fakeStore
}

func (f *fakeOrders) NextNumber(ctx context.Context, tenantID int64) (int64, error) {
	if !f.store.tenants[tenantID] {
		return 0, repo.ErrNotFound
	}
	var max int64
	for _, o := range f.store.orders {
		if o.TenantID == tenantID && o.Number > max {
			max = o.Number
		}
	}
	return max + 1, nil
}

func (f *fakeOrders) Insert(ctx context.Context, order *entity.Order) error {
	f.store.nextOrderID++
	order.ID = f.store.nextOrderID
	for _, item := range order.Items {
		f.store.nextItemID++
		item.ID = f.store.nextItemID
		item.OrderID = order.ID
	}
	f.store.orders[order.ID] = cloneOrder(order)
	return nil
}

func (f *fakeOrders) GetForUpdate(ctx context.Context, tenantID, orderID int64) (*entity.Order, error) {
	o, ok := f.store.orders[orderID]
	if !ok || o.TenantID != tenantID {
		return nil, repo.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (f *fakeOrders) InsertItems(ctx context.Context, items []*entity.OrderItem) error {
	for _, item := range items {
		o, ok := f.store.orders[item.OrderID]
		if !ok {
			return repo.ErrNotFound
		}
		f.store.nextItemID++
		item.ID = f.store.nextItemID
		c := *item
		o.Items = append(o.Items, &c)
	}
	return nil
}

func (f *fakeOrders) AddToTotals(ctx context.Context, tenantID, orderID int64, delta float64, at time.Time) error {
	o, ok := f.store.orders[orderID]
	if !ok || o.TenantID != tenantID {
		return repo.ErrNotFound
	}
	o.Subtotal += delta
	o.Total += delta
	o.UpdatedAt = at
	return nil
}

func (f *fakeOrders) UpdateStatus(ctx context.Context, tenantID, orderID int64, status entity.OrderStatus, at time.Time) error {
	o, ok := f.store.orders[orderID]
	if !ok || o.TenantID != tenantID {
		return repo.ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = at
	return nil
}

func (f *fakeOrders) UpdateItemStatus(ctx context.Context, orderID, itemID int64, status entity.ItemStatus) error {
	o, ok := f.store.orders[orderID]
	if !ok {
		return repo.ErrNotFound
	}
	for _, item := range o.Items {
		if item.ID == itemID {
			item.Status = status
			return nil
		}
	}
	return repo.ErrNotFound
}

func (f *fakeOrders) CancelActiveItems(ctx context.Context, orderID int64) error {
	o, ok := f.store.orders[orderID]
	if !ok {
		return repo.ErrNotFound
	}
	for _, item := range o.Items {
		if item.Status != entity.ItemStatusServed && item.Status != entity.ItemStatusCancelled {
			item.Status = entity.ItemStatusCancelled
		}
	}
	return nil
}

func (f *fakeOrders) SetPaid(ctx context.Context, tenantID, orderID int64, method string, paidAt time.Time) error {
	o, ok := f.store.orders[orderID]
	if !ok || o.TenantID != tenantID {
		return repo.ErrNotFound
	}
	o.Status = entity.OrderStatusPaid
	o.PaymentMethod = method
	at := paidAt
	o.PaidAt = &at
	o.UpdatedAt = paidAt
	return nil
}

func (f *fakeOrders) SetCancelled(ctx context.Context, tenantID, orderID int64, notes string, at time.Time) error {
	o, ok := f.store.orders[orderID]
	if !ok || o.TenantID != tenantID {
		return repo.ErrNotFound
	}
	o.Status = entity.OrderStatusCancelled
	o.Notes = notes
	o.UpdatedAt = at
	return nil
}

type fakeCatalog struct {
	store *fakeStore
}

func (f *fakeCatalog) FindProductsByIDs(ctx context.Context, tenantID int64, ids []int64) ([]*entity.Product, error) {
	var products []*entity.Product
	for _, id := range ids {
		if p, ok := f.store.products[id]; ok && p.TenantID == tenantID {
			products = append(products, p)
		}
	}
	return products, nil
}

type fakeTables struct {
	store *fakeStore
}

func (f *fakeTables) Find(ctx context.Context, tenantID, tableID int64) (*entity.RestaurantTable, error) {
	t, ok := f.store.tables[tableID]
	if !ok || t.TenantID != tenantID {
		return nil, repo.ErrNotFound
	}
	c := *t
	return &c, nil
}

func (f *fakeTables) SetStatus(ctx context.Context, tenantID, tableID int64, status entity.TableStatus) error {
	t, ok := f.store.tables[tableID]
	if !ok || t.TenantID != tenantID {
		return repo.ErrNotFound
	}
	t.Status = status
	return nil
}

func (f *fakeTables) CountActiveOrders(ctx context.Context, tenantID, tableID, excludeOrderID int64) (int, error) {
	count := 0
	for _, o := range f.store.orders {
		if o.TenantID != tenantID || o.ID == excludeOrderID {
			continue
		}
		if o.TableID == nil || *o.TableID != tableID {
			continue
		}
		if !o.Status.Terminal() {
			count++
		}
	}
	return count, nil
}

// fakeReader serves the non-transactional read path.
type fakeReader struct {
	store *fakeStore
}

func (f *fakeReader) GetOrder(ctx context.Context, tenantID, orderID int64) (*entity.Order, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	o, ok := f.store.orders[orderID]
	if !ok || o.TenantID != tenantID {
		return nil, repo.ErrNotFound
	}
	return cloneOrder(o), nil
}

// capturingPublisher records lifecycle events published after commits.
type capturingPublisher struct {
	mu       sync.Mutex
	messages [][]byte
}

func (p *capturingPublisher) Publish(ctx context.Context, key, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, append([]byte(nil), value...))
	return nil
}

func (p *capturingPublisher) Consume(ctx context.Context, handler messaging.Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (p *capturingPublisher) Topic() string { return "orders.lifecycle" }

func (p *capturingPublisher) published() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]byte(nil), p.messages...)
}

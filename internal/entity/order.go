package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Order is a restaurant order owned by a single tenant. Number is sequential
// and unique within the tenant. Total always equals the sum of
// unit_price*quantity over the items; it only ever grows.
type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID            int64       `bun:",pk,autoincrement"`
	TenantID      int64       `bun:"tenant_id,notnull"`
	Number        int64       `bun:"number,notnull"`
	Channel       Channel     `bun:"channel,notnull"`
	Status        OrderStatus `bun:"status,notnull"`
	TableID       *int64      `bun:"table_id"`
	Subtotal      float64     `bun:"subtotal,notnull"`
	Total         float64     `bun:"total,notnull"`
	PaymentMethod string      `bun:"payment_method,nullzero"`
	PaidAt        *time.Time  `bun:"paid_at"`
	Notes         string      `bun:"notes,nullzero"`
	CreatedAt     time.Time   `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time   `bun:"updated_at,nullzero"`

	Items []*OrderItem `bun:"rel:has-many,join:id=order_id"`
}

// DineIn reports whether the order occupies a table.
func (o *Order) DineIn() bool {
	return o.Channel == ChannelDineIn && o.TableID != nil
}

package entity

import (
	"github.com/uptrace/bun"
)

// OrderItem is a single line on an order. Name and unit price are captured
// from the catalog at add-time so later price changes never alter historical
// totals. Modifiers are opaque to the order service.
type OrderItem struct {
	bun.BaseModel `bun:"table:order_items,alias:oi"`

	ID        int64      `bun:",pk,autoincrement"`
	OrderID   int64      `bun:"order_id,notnull"`
	ProductID int64      `bun:"product_id,notnull"`
	Name      string     `bun:"name,notnull"`
	UnitPrice float64    `bun:"unit_price,notnull"`
	Quantity  int        `bun:"quantity,notnull"`
	Modifiers []string   `bun:"modifiers,array"`
	Status    ItemStatus `bun:"status,notnull"`
	Notes     string     `bun:"notes,nullzero"`
}

// LineTotal is the item's contribution to the order total.
func (i *OrderItem) LineTotal() float64 {
	return i.UnitPrice * float64(i.Quantity)
}

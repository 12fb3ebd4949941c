package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// RestaurantTable is a physical table. Status is derived from the set of
// active orders referencing the table and must only be written inside the
// same transaction that moves those orders.
type RestaurantTable struct {
	bun.BaseModel `bun:"table:restaurant_tables,alias:rt"`

	ID        int64       `bun:",pk,autoincrement"`
	TenantID  int64       `bun:"tenant_id,notnull"`
	Zone      string      `bun:"zone,nullzero"`
	Number    int         `bun:"number,notnull"`
	Capacity  int         `bun:"capacity,notnull"`
	Status    TableStatus `bun:"status,notnull"`
	CreatedAt time.Time   `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
}

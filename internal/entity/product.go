package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Product is a catalog entry. The order service only reads products to
// resolve prices and availability when items are added.
type Product struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID          int64     `bun:",pk,autoincrement"`
	TenantID    int64     `bun:"tenant_id,notnull"`
	Name        string    `bun:"name,notnull"`
	Price       float64   `bun:"price,notnull"`
	IsActive    bool      `bun:"is_active,notnull,default:true"`
	IsAvailable bool      `bun:"is_available,notnull,default:true"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
}

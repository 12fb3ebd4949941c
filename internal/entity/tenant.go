package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Tenant is an isolated restaurant account. Every other row in the schema
// is partitioned by tenant id; the tenant row doubles as the lock target
// when order numbers are allocated.
type Tenant struct {
	bun.BaseModel `bun:"table:tenants,alias:t"`

	ID        int64     `bun:",pk,autoincrement"`
	Name      string    `bun:"name,notnull"`
	Slug      string    `bun:"slug,notnull,unique"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
}

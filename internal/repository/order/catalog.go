package order

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/comanda-labs/comanda/internal/entity"
)

// catalogReader resolves products inside the transaction.
type catalogReader struct {
	db bun.IDB
}

// FindProductsByIDs returns the tenant's products matching ids. Products
// owned by other tenants are simply absent from the result.
func (c *catalogReader) FindProductsByIDs(ctx context.Context, tenantID int64, ids []int64) ([]*entity.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []*entity.Product
	err := c.db.NewSelect().
		Model(&products).
		Where("p.tenant_id = ?", tenantID).
		Where("p.id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return products, nil
}

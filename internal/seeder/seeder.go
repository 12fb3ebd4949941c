package seeder

import (
	"context"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/comanda-labs/comanda/internal/database"
	"github.com/comanda-labs/comanda/internal/entity"
)

// Module provides the seeder to Fx.
var Module = fx.Provide(New)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, logger: logger}
}

// Demo seeds a demo tenant with a small catalog and a handful of tables.
func (s *Seeder) Demo(ctx context.Context) error {
	now := time.Now().UTC()

	tenant := entity.Tenant{Name: "Trattoria Demo", Slug: "trattoria-demo", CreatedAt: now}
	_, err := s.db.NewInsert().Model(&tenant).
		On("CONFLICT (slug) DO UPDATE").
		Set("name = EXCLUDED.name").
		Returning("id").
		Exec(ctx)
	if err != nil {
		return err
	}

	products := []entity.Product{
		{TenantID: tenant.ID, Name: "Margherita", Price: 9.50, IsActive: true, IsAvailable: true, CreatedAt: now},
		{TenantID: tenant.ID, Name: "Carbonara", Price: 12.00, IsActive: true, IsAvailable: true, CreatedAt: now},
		{TenantID: tenant.ID, Name: "Tiramisu", Price: 5.50, IsActive: true, IsAvailable: true, CreatedAt: now},
		{TenantID: tenant.ID, Name: "House Wine", Price: 4.00, IsActive: true, IsAvailable: false, CreatedAt: now},
	}
	for _, sample := range products {
		product := sample
		_, err := s.db.NewInsert().Model(&product).
			On("CONFLICT DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
	}

	for number := 1; number <= 6; number++ {
		table := entity.RestaurantTable{
			TenantID:  tenant.ID,
			Zone:      "main",
			Number:    number,
			Capacity:  4,
			Status:    entity.TableStatusAvailable,
			CreatedAt: now,
		}
		_, err := s.db.NewInsert().Model(&table).
			On("CONFLICT (tenant_id, number) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
	}

	if s.logger != nil {
		s.logger.Info("seeded demo tenant",
			zap.Int64("tenant_id", tenant.ID),
			zap.Int("products", len(products)),
		)
	}
	return nil
}

package order

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/comanda-labs/comanda/internal/database"
	"github.com/comanda-labs/comanda/pkg/errorbank"
)

var repoTracer = otel.Tracer("github.com/comanda-labs/comanda/repository/order")

// BunUnitOfWork implements UnitOfWork over the primary bun connection.
type BunUnitOfWork struct {
	db *bun.DB
}

// NewUnitOfWork wires a unit of work backed by the writer connection.
func NewUnitOfWork(conns *database.Connections) UnitOfWork {
	return &BunUnitOfWork{db: conns.Writer}
}

// RunInTx opens a transaction, hands tx-bound stores to fn, and commits or
// rolls back as a whole. Application errors pass through untouched; any
// infrastructure failure surfaces as a transaction_failed error since the
// whole operation is safe to retry.
func (u *BunUnitOfWork) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	ctx, span := repoTracer.Start(ctx, "OrderUnitOfWork.RunInTx")
	defer span.End()

	err := u.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &bunTx{db: tx})
	})
	if err == nil {
		return nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, "transaction aborted")

	var appErr *errorbank.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return errorbank.TransactionFailed("order transaction failed", errorbank.WithCause(err))
}

// bunTx binds the stores to one open transaction.
type bunTx struct {
	db bun.IDB
}

func (t *bunTx) Orders() OrderStore     { return &orderStore{db: t.db} }
func (t *bunTx) Catalog() CatalogReader { return &catalogReader{db: t.db} }
func (t *bunTx) Tables() TableStore     { return &tableStore{db: t.db} }

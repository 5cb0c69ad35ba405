package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager executes a function within a database transaction,
// passing the transaction handle to repositories via the `tx` argument.
//
// Repositories accept `tx Tx` and fall back to their pooled connection when
// it is nil, so the same method serves both transactional and plain paths.
// The concrete type of the handle is infra-defined (pgx.Tx for Postgres).
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}

package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
)

// Connect returns a live *pgxpool.Pool for the given DSN.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return pgxpool.Connect(ctx, dsn)
}

// PurgeAll wipes every table. Test and reset tooling only.
func PurgeAll(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		TRUNCATE users, payments, conversation_states
		RESTART IDENTITY CASCADE;
	`)
	return err
}

// ReportPoolStats pushes pool gauges to the metrics registry every interval
// until ctx is done.
func ReportPoolStats(ctx context.Context, pool *pgxpool.Pool, interval time.Duration, report func(total, idle, inUse int32)) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s := pool.Stat()
			report(s.TotalConns(), s.IdleConns(), s.AcquiredConns())
		}
	}
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-storefront-bot/internal/domain"
	"telegram-storefront-bot/internal/domain/model"
	"telegram-storefront-bot/internal/domain/ports/repository"
)

var _ repository.StateRepository = (*stateRepo)(nil)

type stateRepo struct{ pool *pgxpool.Pool }

func NewStateRepo(pool *pgxpool.Pool) *stateRepo {
	return &stateRepo{pool: pool}
}

func (r *stateRepo) Set(ctx context.Context, tx repository.Tx, s *model.ConversationState) error {
	if !s.Consistent() {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO conversation_states (chat_id, step, pending_period, pending_amount, updated_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (chat_id) DO UPDATE SET
  step=$2, pending_period=$3, pending_amount=$4, updated_at=$5;`

	_, err := execSQL(ctx, r.pool, tx, q, s.ChatID, s.Step, s.PendingPeriod, s.PendingAmount, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("set state for %d: %w", s.ChatID, err)
	}
	return nil
}

func (r *stateRepo) Get(ctx context.Context, tx repository.Tx, chatID int64) (*model.ConversationState, error) {
	const q = `
SELECT chat_id, step, pending_period, pending_amount, updated_at
  FROM conversation_states WHERE chat_id=$1;`

	row, err := pickRow(ctx, r.pool, tx, q, chatID)
	if err != nil {
		return nil, err
	}
	var s model.ConversationState
	if err := row.Scan(&s.ChatID, &s.Step, &s.PendingPeriod, &s.PendingAmount, &s.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &s, nil
}

func (r *stateRepo) Delete(ctx context.Context, tx repository.Tx, chatID int64) error {
	_, err := execSQL(ctx, r.pool, tx, `DELETE FROM conversation_states WHERE chat_id=$1;`, chatID)
	if err != nil {
		return fmt.Errorf("delete state for %d: %w", chatID, err)
	}
	return nil
}

func (r *stateRepo) ListStale(ctx context.Context, tx repository.Tx, maxAgeSeconds int64) ([]int64, error) {
	const q = `
SELECT chat_id FROM conversation_states
 WHERE step='waiting_payment_screenshot'
   AND updated_at < $1
 ORDER BY chat_id;`

	cutoff := time.Now().Add(-time.Duration(maxAgeSeconds) * time.Second)
	rows, err := querySQL(ctx, r.pool, tx, q, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

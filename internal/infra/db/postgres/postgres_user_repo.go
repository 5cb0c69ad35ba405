package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-storefront-bot/internal/domain"
	"telegram-storefront-bot/internal/domain/model"
	"telegram-storefront-bot/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*PostgresUserRepo)(nil)

type PostgresUserRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{pool: pool}
}

func (r *PostgresUserRepo) Upsert(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (chat_id, username, first_name, last_name, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (chat_id) DO UPDATE SET
  username=$2, first_name=$3, last_name=$4, updated_at=$6;`

	_, err := execSQL(ctx, r.pool, tx, q, u.ChatID, u.Username, u.FirstName, u.LastName, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert user %d: %w", u.ChatID, err)
	}
	return nil
}

func (r *PostgresUserRepo) FindByChatID(ctx context.Context, tx repository.Tx, chatID int64) (*model.User, error) {
	const q = `
SELECT chat_id, username, first_name, last_name, created_at, updated_at
  FROM users WHERE chat_id=$1;`

	row, err := pickRow(ctx, r.pool, tx, q, chatID)
	if err != nil {
		return nil, err
	}
	var u model.User
	if err := row.Scan(&u.ChatID, &u.Username, &u.FirstName, &u.LastName, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrUserNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &u, nil
}

func (r *PostgresUserRepo) ListChatIDs(ctx context.Context, tx repository.Tx) ([]int64, error) {
	rows, err := querySQL(ctx, r.pool, tx, `SELECT chat_id FROM users ORDER BY chat_id;`)
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

func (r *PostgresUserRepo) Count(ctx context.Context, tx repository.Tx) (int64, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM users;`)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *PostgresUserRepo) DeleteByChatID(ctx context.Context, tx repository.Tx, chatID int64) error {
	_, err := execSQL(ctx, r.pool, tx, `DELETE FROM users WHERE chat_id=$1;`, chatID)
	if err != nil {
		return fmt.Errorf("delete user %d: %w", chatID, err)
	}
	return nil
}

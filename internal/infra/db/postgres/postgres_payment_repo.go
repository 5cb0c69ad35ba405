package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-storefront-bot/internal/domain"
	"telegram-storefront-bot/internal/domain/model"
	"telegram-storefront-bot/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

func (r *paymentRepo) Create(ctx context.Context, tx repository.Tx, p *model.Payment) (int64, error) {
	const q = `
INSERT INTO payments (user_chat_id, period, amount, photo_file_id, status, reason, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING id;`

	row, err := pickRow(ctx, r.pool, tx, q,
		p.UserChatID, p.Period, p.Amount, p.PhotoRef, p.Status, p.Reason, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return 0, err
	}
	var id int64
	if err := row.Scan(&id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return 0, domain.ErrPendingPaymentExists
			case "23503":
				return 0, domain.ErrForeignKeyViolation
			}
		}
		return 0, fmt.Errorf("insert payment: %w", err)
	}
	return id, nil
}

func (r *paymentRepo) FindPendingByChatID(ctx context.Context, tx repository.Tx, chatID int64) (*model.Payment, error) {
	q := `
SELECT p.id, p.user_chat_id, p.period, p.amount, p.photo_file_id, p.status, p.reason,
       p.created_at, p.updated_at, u.username
  FROM payments p
  JOIN users u ON u.chat_id = p.user_chat_id
 WHERE p.user_chat_id=$1 AND p.status='pending'`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE OF p"
	}
	q += ";"

	row, err := pickRow(ctx, r.pool, tx, q, chatID)
	if err != nil {
		return nil, err
	}
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoPendingPayment
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func (r *paymentRepo) ListPending(ctx context.Context, tx repository.Tx, limit int) ([]*model.Payment, error) {
	const q = `
SELECT p.id, p.user_chat_id, p.period, p.amount, p.photo_file_id, p.status, p.reason,
       p.created_at, p.updated_at, u.username
  FROM payments p
  JOIN users u ON u.chat_id = p.user_chat_id
 WHERE p.status='pending'
 ORDER BY p.created_at ASC
 LIMIT $1;`
	return r.list(ctx, tx, q, limit)
}

func (r *paymentRepo) ListTerminal(ctx context.Context, tx repository.Tx, limit int) ([]*model.Payment, error) {
	const q = `
SELECT p.id, p.user_chat_id, p.period, p.amount, p.photo_file_id, p.status, p.reason,
       p.created_at, p.updated_at, u.username
  FROM payments p
  JOIN users u ON u.chat_id = p.user_chat_id
 WHERE p.status IN ('confirmed','rejected')
 ORDER BY p.updated_at DESC
 LIMIT $1;`
	return r.list(ctx, tx, q, limit)
}

func (r *paymentRepo) list(ctx context.Context, tx repository.Tx, q string, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := querySQL(ctx, r.pool, tx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *paymentRepo) SettlePending(ctx context.Context, tx repository.Tx, chatID int64, status model.PaymentStatus, reason string) (bool, error) {
	if !status.Terminal() {
		return false, domain.ErrInvalidArgument
	}
	const q = `
UPDATE payments SET status=$2, reason=$3, updated_at=$4
 WHERE user_chat_id=$1 AND status='pending';`

	tag, err := execSQL(ctx, r.pool, tx, q, chatID, status, reason, time.Now())
	if err != nil {
		return false, fmt.Errorf("settle payment for %d: %w", chatID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *paymentRepo) CountByStatus(ctx context.Context, tx repository.Tx, status model.PaymentStatus) (int64, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM payments WHERE status=$1;`, status)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count payments: %w", err)
	}
	return n, nil
}

func (r *paymentRepo) Count(ctx context.Context, tx repository.Tx) (int64, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM payments;`)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count payments: %w", err)
	}
	return n, nil
}

func (r *paymentRepo) SumConfirmedAmount(ctx context.Context, tx repository.Tx) (int64, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COALESCE(SUM(amount),0) FROM payments WHERE status='confirmed';`)
	if err != nil {
		return 0, err
	}
	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum confirmed: %w", err)
	}
	return sum, nil
}

func (r *paymentRepo) DeleteByChatID(ctx context.Context, tx repository.Tx, chatID int64) error {
	_, err := execSQL(ctx, r.pool, tx, `DELETE FROM payments WHERE user_chat_id=$1;`, chatID)
	if err != nil {
		return fmt.Errorf("delete payments for %d: %w", chatID, err)
	}
	return nil
}

func scanPayment(row pgx.Row) (*model.Payment, error) {
	p := &model.Payment{}
	if err := row.Scan(&p.ID, &p.UserChatID, &p.Period, &p.Amount, &p.PhotoRef, &p.Status, &p.Reason,
		&p.CreatedAt, &p.UpdatedAt, &p.Username); err != nil {
		return nil, err
	}
	return p, nil
}

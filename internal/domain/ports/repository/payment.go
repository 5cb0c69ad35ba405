package repository

import (
	"context"

	"telegram-storefront-bot/internal/domain/model"
)

// PaymentRepository persists payment submissions and their review outcomes.
type PaymentRepository interface {
	// Create inserts a pending payment and returns its id. When the user
	// already has a pending payment it returns ErrPendingPaymentExists.
	Create(ctx context.Context, tx Tx, payment *model.Payment) (int64, error)
	// FindPendingByChatID returns the user's pending payment, or
	// ErrNoPendingPayment when none exists.
	FindPendingByChatID(ctx context.Context, tx Tx, chatID int64) (*model.Payment, error)
	// ListPending returns pending payments oldest first, with the
	// submitting user's username joined in.
	ListPending(ctx context.Context, tx Tx, limit int) ([]*model.Payment, error)
	// ListTerminal returns confirmed and rejected payments newest first.
	ListTerminal(ctx context.Context, tx Tx, limit int) ([]*model.Payment, error)
	// SettlePending moves the user's pending payment to a terminal status.
	// It reports false when no pending payment existed, which makes
	// confirm and reject idempotent at the storage level.
	SettlePending(ctx context.Context, tx Tx, chatID int64, status model.PaymentStatus, reason string) (bool, error)
	CountByStatus(ctx context.Context, tx Tx, status model.PaymentStatus) (int64, error)
	Count(ctx context.Context, tx Tx) (int64, error)
	// SumConfirmedAmount totals the amount of confirmed payments.
	SumConfirmedAmount(ctx context.Context, tx Tx) (int64, error)
	DeleteByChatID(ctx context.Context, tx Tx, chatID int64) error
}

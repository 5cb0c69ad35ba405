package repository

import (
	"context"

	"telegram-storefront-bot/internal/domain/model"
)

// UserRepository persists Telegram users keyed by chat id.
type UserRepository interface {
	// Upsert inserts the user or refreshes its profile fields when the
	// chat id is already known. Registration is idempotent.
	Upsert(ctx context.Context, tx Tx, user *model.User) error
	FindByChatID(ctx context.Context, tx Tx, chatID int64) (*model.User, error)
	// ListChatIDs returns every known chat id exactly once, ascending.
	ListChatIDs(ctx context.Context, tx Tx) ([]int64, error)
	Count(ctx context.Context, tx Tx) (int64, error)
	// DeleteByChatID removes the user row. Dependent payment and state
	// rows must be removed in the same transaction first.
	DeleteByChatID(ctx context.Context, tx Tx, chatID int64) error
}

package repository

import (
	"context"

	"telegram-storefront-bot/internal/domain/model"
)

// StateRepository persists per-chat conversation state. Absence of a row is
// equivalent to the main-menu state; Get reflects that by returning
// ErrNotFound, which callers translate to a fresh main-menu state.
type StateRepository interface {
	Set(ctx context.Context, tx Tx, state *model.ConversationState) error
	Get(ctx context.Context, tx Tx, chatID int64) (*model.ConversationState, error)
	Delete(ctx context.Context, tx Tx, chatID int64) error
	// ListStale returns chat ids stuck in the awaiting-screenshot step
	// longer than maxAgeSeconds. Used by the reminder job.
	ListStale(ctx context.Context, tx Tx, maxAgeSeconds int64) ([]int64, error)
}

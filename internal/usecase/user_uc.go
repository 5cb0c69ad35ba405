package usecase

import (
	"context"
	"errors"

	"telegram-storefront-bot/internal/domain"
	"telegram-storefront-bot/internal/domain/model"
	"telegram-storefront-bot/internal/domain/ports/repository"
	"telegram-storefront-bot/internal/infra/logging"
	"telegram-storefront-bot/internal/infra/metrics"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ UserUseCase = (*userUC)(nil)

// UserUseCase exposes user-related operations used by bot/admin flows.
type UserUseCase interface {
	RegisterOrFetch(ctx context.Context, chatID int64, username, firstName, lastName string) (*model.User, error)
	GetByChatID(ctx context.Context, chatID int64) (*model.User, error)
	Count(ctx context.Context) (int64, error)
	ListChatIDs(ctx context.Context) ([]int64, error)
	// Purge removes the user together with their payments and state.
	Purge(ctx context.Context, chatID int64) error
}

type userUC struct {
	users    repository.UserRepository
	payments repository.PaymentRepository
	states   repository.StateRepository
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewUserUseCase(
	users repository.UserRepository,
	payments repository.PaymentRepository,
	states repository.StateRepository,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *userUC {
	return &userUC{
		users:    users,
		payments: payments,
		states:   states,
		tm:       tm,
		log:      logger,
	}
}

func (u *userUC) RegisterOrFetch(ctx context.Context, chatID int64, username, firstName, lastName string) (*model.User, error) {
	defer logging.TraceDuration(logging.With(ctx, u.log), "UserUC.RegisterOrFetch")()

	existing, err := u.users.FindByChatID(ctx, repository.NoTX, chatID)
	if err == nil {
		// Refresh profile fields; Telegram users rename themselves.
		changed := false
		if username != "" && existing.Username != username {
			existing.Username = username
			changed = true
		}
		if firstName != "" && existing.FirstName != firstName {
			existing.FirstName = firstName
			changed = true
		}
		if lastName != "" && existing.LastName != lastName {
			existing.LastName = lastName
			changed = true
		}
		if changed {
			existing.Touch()
			if err := u.users.Upsert(ctx, repository.NoTX, existing); err != nil {
				logging.With(ctx, u.log).Error().Err(err).Int64("chat_id", chatID).Msg("failed to update user profile")
				return nil, err
			}
		}
		return existing, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	nu, err := model.NewUser(chatID, username, firstName, lastName)
	if err != nil {
		return nil, err
	}
	if err := u.users.Upsert(ctx, repository.NoTX, nu); err != nil {
		return nil, err
	}
	metrics.IncUsersRegistered()
	logging.With(ctx, u.log).Info().Int64("chat_id", chatID).Str("username", username).Msg("new user registered")
	return nu, nil
}

func (u *userUC) GetByChatID(ctx context.Context, chatID int64) (*model.User, error) {
	defer logging.TraceDuration(logging.With(ctx, u.log), "UserUC.GetByChatID")()
	return u.users.FindByChatID(ctx, repository.NoTX, chatID)
}

func (u *userUC) Count(ctx context.Context) (int64, error) {
	defer logging.TraceDuration(logging.With(ctx, u.log), "UserUC.Count")()
	return u.users.Count(ctx, repository.NoTX)
}

func (u *userUC) ListChatIDs(ctx context.Context) ([]int64, error) {
	defer logging.TraceDuration(logging.With(ctx, u.log), "UserUC.ListChatIDs")()
	return u.users.ListChatIDs(ctx, repository.NoTX)
}

func (u *userUC) Purge(ctx context.Context, chatID int64) error {
	defer logging.TraceDuration(logging.With(ctx, u.log), "UserUC.Purge")()

	// Dependent rows first, then the user, all or nothing.
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	return u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		if err := u.payments.DeleteByChatID(ctx, tx, chatID); err != nil {
			return err
		}
		if err := u.states.Delete(ctx, tx, chatID); err != nil {
			return err
		}
		return u.users.DeleteByChatID(ctx, tx, chatID)
	})
}

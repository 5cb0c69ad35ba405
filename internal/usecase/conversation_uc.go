package usecase

import (
	"context"
	"errors"

	"telegram-storefront-bot/internal/domain"
	"telegram-storefront-bot/internal/domain/model"
	"telegram-storefront-bot/internal/domain/ports/repository"
	"telegram-storefront-bot/internal/infra/logging"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ ConversationUseCase = (*conversationUC)(nil)

// ConversationUseCase tracks where each user is in the menu flow. A user
// with no stored state is in the main menu.
type ConversationUseCase interface {
	Current(ctx context.Context, chatID int64) (*model.ConversationState, error)
	// BeginPayment moves the user into the awaiting-screenshot step with
	// the chosen plan attached.
	BeginPayment(ctx context.Context, chatID int64, plan model.Plan) (*model.ConversationState, error)
	ResetToMainMenu(ctx context.Context, chatID int64) error
	PlanByCode(code string) (model.Plan, bool)
	StaleAwaiting(ctx context.Context, maxAgeSeconds int64) ([]int64, error)
}

type conversationUC struct {
	states repository.StateRepository
	plans  []model.Plan
	log    *zerolog.Logger
}

func NewConversationUseCase(states repository.StateRepository, plans []model.Plan, logger *zerolog.Logger) *conversationUC {
	return &conversationUC{states: states, plans: plans, log: logger}
}

func (c *conversationUC) Current(ctx context.Context, chatID int64) (*model.ConversationState, error) {
	defer logging.TraceDuration(logging.With(ctx, c.log), "ConversationUC.Current")()

	s, err := c.states.Get(ctx, repository.NoTX, chatID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return model.NewMainMenuState(chatID), nil
		}
		return nil, err
	}
	if !s.Consistent() {
		// A broken row must not trap the user; fall back to the menu.
		logging.With(ctx, c.log).Warn().Int64("chat_id", chatID).Str("step", string(s.Step)).Msg("inconsistent conversation state, resetting")
		if err := c.ResetToMainMenu(ctx, chatID); err != nil {
			return nil, err
		}
		return model.NewMainMenuState(chatID), nil
	}
	return s, nil
}

func (c *conversationUC) BeginPayment(ctx context.Context, chatID int64, plan model.Plan) (*model.ConversationState, error) {
	defer logging.TraceDuration(logging.With(ctx, c.log), "ConversationUC.BeginPayment")()

	s, err := model.NewAwaitingScreenshotState(chatID, plan.Period, plan.Amount)
	if err != nil {
		return nil, err
	}
	if err := c.states.Set(ctx, repository.NoTX, s); err != nil {
		return nil, err
	}
	logging.With(ctx, c.log).Debug().Int64("chat_id", chatID).Str("period", plan.Period).Int("amount", plan.Amount).Msg("payment flow started")
	return s, nil
}

func (c *conversationUC) ResetToMainMenu(ctx context.Context, chatID int64) error {
	defer logging.TraceDuration(logging.With(ctx, c.log), "ConversationUC.ResetToMainMenu")()
	return c.states.Set(ctx, repository.NoTX, model.NewMainMenuState(chatID))
}

func (c *conversationUC) PlanByCode(code string) (model.Plan, bool) {
	for _, p := range c.plans {
		if p.Code == code {
			return p, true
		}
	}
	return model.Plan{}, false
}

func (c *conversationUC) StaleAwaiting(ctx context.Context, maxAgeSeconds int64) ([]int64, error) {
	defer logging.TraceDuration(logging.With(ctx, c.log), "ConversationUC.StaleAwaiting")()
	return c.states.ListStale(ctx, repository.NoTX, maxAgeSeconds)
}

package model

import (
	"time"

	"telegram-storefront-bot/internal/domain"
)

// ConversationStep identifies where a chat is in the storefront flow.
type ConversationStep string

const (
	StepMainMenu           ConversationStep = "main_menu"
	StepAwaitingScreenshot ConversationStep = "waiting_payment_screenshot"
)

// Known reports whether the step is one the state machine understands.
// Anything else is treated as corruption and self-heals to the main menu.
func (s ConversationStep) Known() bool {
	return s == StepMainMenu || s == StepAwaitingScreenshot
}

// ConversationState is the per-chat state row. The step and the pending plan
// selection are coupled: waiting_payment_screenshot always carries both the
// period and the amount, main_menu carries neither.
type ConversationState struct {
	ChatID        int64
	Step          ConversationStep
	PendingPeriod *string
	PendingAmount *int
	UpdatedAt     time.Time
}

// NewMainMenuState returns the reset state with the pending selection cleared.
func NewMainMenuState(chatID int64) *ConversationState {
	return &ConversationState{ChatID: chatID, Step: StepMainMenu, UpdatedAt: time.Now()}
}

// NewAwaitingScreenshotState enters the screenshot-wait step; the pending plan
// selection is mandatory so the coupling invariant cannot be violated at the
// construction site.
func NewAwaitingScreenshotState(chatID int64, period string, amount int) (*ConversationState, error) {
	if chatID <= 0 || period == "" || amount <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &ConversationState{
		ChatID:        chatID,
		Step:          StepAwaitingScreenshot,
		PendingPeriod: &period,
		PendingAmount: &amount,
		UpdatedAt:     time.Now(),
	}, nil
}

// Consistent reports the step/selection coupling invariant.
func (s *ConversationState) Consistent() bool {
	if s == nil {
		return false
	}
	switch s.Step {
	case StepAwaitingScreenshot:
		return s.PendingPeriod != nil && *s.PendingPeriod != "" && s.PendingAmount != nil && *s.PendingAmount > 0
	case StepMainMenu:
		return s.PendingPeriod == nil && s.PendingAmount == nil
	default:
		return false
	}
}

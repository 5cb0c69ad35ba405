package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"telegram-storefront-bot/internal/domain"
	"telegram-storefront-bot/internal/domain/model"
	"telegram-storefront-bot/internal/domain/ports/repository"
	"telegram-storefront-bot/internal/infra/logging"
	"telegram-storefront-bot/internal/infra/metrics"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// PaymentUseCase owns the payment lifecycle: submission, review listing and
// the confirm/reject decision.
type PaymentUseCase interface {
	// Submit records a pending payment for the user and resets their
	// conversation state to the main menu. A user with a payment already
	// under review gets ErrPendingPaymentExists; an unregistered chat id
	// gets ErrUserNotFound.
	Submit(ctx context.Context, chatID int64, sub model.PaymentSubmission) (*model.Payment, error)
	PendingFor(ctx context.Context, chatID int64) (*model.Payment, error)
	ListPending(ctx context.Context, limit int) ([]*model.Payment, error)
	ListTerminal(ctx context.Context, limit int) ([]*model.Payment, error)
	// Confirm settles the user's pending payment as confirmed. It reports
	// the settled payment, or ErrNoPendingPayment when there is nothing
	// to settle, which makes repeated confirmations harmless.
	Confirm(ctx context.Context, chatID int64, reason string) (*model.Payment, error)
	Reject(ctx context.Context, chatID int64, reason string) (*model.Payment, error)
}

type paymentUC struct {
	payments repository.PaymentRepository
	users    repository.UserRepository
	states   repository.StateRepository
	tm       repository.TransactionManager
	log      *zerolog.Logger

	// fallback holds submissions that could not reach the store. They are
	// reconciled on read so review keeps working while the store is down.
	mu       sync.Mutex
	fallback map[int64]*model.Payment
}

func NewPaymentUseCase(
	payments repository.PaymentRepository,
	users repository.UserRepository,
	states repository.StateRepository,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *paymentUC {
	return &paymentUC{
		payments: payments,
		users:    users,
		states:   states,
		tm:       tm,
		log:      logger,
		fallback: make(map[int64]*model.Payment),
	}
}

func (p *paymentUC) Submit(ctx context.Context, chatID int64, sub model.PaymentSubmission) (*model.Payment, error) {
	defer logging.TraceDuration(logging.With(ctx, p.log), "PaymentUC.Submit")()

	payment, err := model.NewPendingPayment(chatID, sub.Period, sub.Amount, sub.PhotoRef)
	if err != nil {
		return nil, err
	}
	payment.Username = sub.Username

	if p.hasFallback(chatID) {
		metrics.IncPayment("duplicate")
		return nil, domain.ErrPendingPaymentExists
	}

	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	err = p.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		if _, err := p.users.FindByChatID(ctx, tx, chatID); err != nil {
			return err
		}
		if _, err := p.payments.FindPendingByChatID(ctx, tx, chatID); err == nil {
			return domain.ErrPendingPaymentExists
		} else if !errors.Is(err, domain.ErrNoPendingPayment) {
			return err
		}

		id, err := p.payments.Create(ctx, tx, payment)
		if err != nil {
			return err
		}
		payment.ID = id

		return p.states.Set(ctx, tx, model.NewMainMenuState(chatID))
	})
	if err == nil {
		metrics.IncPayment("submitted")
		logging.With(ctx, p.log).Info().Int64("chat_id", chatID).Int64("payment_id", payment.ID).
			Str("period", payment.Period).Int("amount", payment.Amount).Msg("payment submitted")
		return payment, nil
	}
	if errors.Is(err, domain.ErrPendingPaymentExists) {
		metrics.IncPayment("duplicate")
		return nil, err
	}
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	// Store failure: keep the submission in memory so the admin can still
	// review it. Reconciled away once settled.
	payment.ID = time.Now().UnixNano()
	p.mu.Lock()
	p.fallback[chatID] = payment
	p.mu.Unlock()

	metrics.IncDegradedFallback()
	logging.With(ctx, p.log).Error().Err(err).Int64("chat_id", chatID).Msg("store write failed, payment kept in fallback")
	return payment, nil
}

func (p *paymentUC) PendingFor(ctx context.Context, chatID int64) (*model.Payment, error) {
	defer logging.TraceDuration(logging.With(ctx, p.log), "PaymentUC.PendingFor")()

	payment, err := p.payments.FindPendingByChatID(ctx, repository.NoTX, chatID)
	if err == nil {
		return payment, nil
	}
	if fb := p.getFallback(chatID); fb != nil {
		return fb, nil
	}
	return nil, err
}

func (p *paymentUC) ListPending(ctx context.Context, limit int) ([]*model.Payment, error) {
	defer logging.TraceDuration(logging.With(ctx, p.log), "PaymentUC.ListPending")()

	stored, err := p.payments.ListPending(ctx, repository.NoTX, limit)
	if err != nil {
		logging.With(ctx, p.log).Error().Err(err).Msg("failed to list pending payments from store")
		stored = nil
	}

	seen := make(map[int64]struct{}, len(stored))
	for _, pay := range stored {
		seen[pay.UserChatID] = struct{}{}
	}

	p.mu.Lock()
	for chatID, fb := range p.fallback {
		if _, ok := seen[chatID]; !ok {
			stored = append(stored, fb)
		}
	}
	p.mu.Unlock()

	if err != nil && len(stored) == 0 {
		return nil, err
	}
	// The store returns rows oldest first; merged fallback entries must
	// keep that order for review.
	sort.Slice(stored, func(i, j int) bool {
		return stored[i].CreatedAt.Before(stored[j].CreatedAt)
	})
	return stored, nil
}

func (p *paymentUC) ListTerminal(ctx context.Context, limit int) ([]*model.Payment, error) {
	defer logging.TraceDuration(logging.With(ctx, p.log), "PaymentUC.ListTerminal")()
	return p.payments.ListTerminal(ctx, repository.NoTX, limit)
}

func (p *paymentUC) Confirm(ctx context.Context, chatID int64, reason string) (*model.Payment, error) {
	return p.settle(ctx, chatID, model.PaymentStatusConfirmed, reason)
}

func (p *paymentUC) Reject(ctx context.Context, chatID int64, reason string) (*model.Payment, error) {
	return p.settle(ctx, chatID, model.PaymentStatusRejected, reason)
}

func (p *paymentUC) settle(ctx context.Context, chatID int64, status model.PaymentStatus, reason string) (*model.Payment, error) {
	defer logging.TraceDuration(logging.With(ctx, p.log), "PaymentUC.settle")()

	var settled *model.Payment
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	err := p.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		payment, err := p.payments.FindPendingByChatID(ctx, tx, chatID)
		if err != nil {
			return err
		}
		ok, err := p.payments.SettlePending(ctx, tx, chatID, status, reason)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNoPendingPayment
		}
		payment.Status = status
		payment.Reason = reason
		payment.UpdatedAt = time.Now()
		settled = payment
		return nil
	})
	if err == nil {
		p.dropFallback(chatID)
		p.recordSettled(ctx, settled)
		return settled, nil
	}
	if !errors.Is(err, domain.ErrNoPendingPayment) {
		logging.With(ctx, p.log).Error().Err(err).Int64("chat_id", chatID).Msg("failed to settle payment in store")
	}

	// Fallback entries settle in memory only.
	fb := p.getFallback(chatID)
	if fb == nil {
		return nil, domain.ErrNoPendingPayment
	}
	p.dropFallback(chatID)
	fb.Status = status
	fb.Reason = reason
	fb.UpdatedAt = time.Now()
	p.recordSettled(ctx, fb)
	return fb, nil
}

func (p *paymentUC) recordSettled(ctx context.Context, payment *model.Payment) {
	metrics.IncPayment(string(payment.Status))
	if payment.Status == model.PaymentStatusConfirmed {
		metrics.AddPaymentRevenue(int64(payment.Amount))
	}
	logging.With(ctx, p.log).Info().Int64("chat_id", payment.UserChatID).Int64("payment_id", payment.ID).
		Str("status", string(payment.Status)).Str("reason", payment.Reason).Msg("payment settled")
}

func (p *paymentUC) hasFallback(chatID int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.fallback[chatID]
	return ok
}

func (p *paymentUC) getFallback(chatID int64) *model.Payment {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fallback[chatID]
}

func (p *paymentUC) dropFallback(chatID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.fallback, chatID)
}

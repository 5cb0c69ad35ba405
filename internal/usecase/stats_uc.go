package usecase

import (
	"context"
	"time"

	"telegram-storefront-bot/internal/domain/model"
	"telegram-storefront-bot/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

type Totals struct {
	Users            int64
	PendingPayments  int64
	ConfirmedCount   int64
	ConfirmedRevenue int64
	Uptime           time.Duration
}

type StatsUseCase interface {
	Totals(ctx context.Context) (*Totals, error)
}

type statsUC struct {
	users    repository.UserRepository
	payments repository.PaymentRepository
	started  time.Time
	log      *zerolog.Logger
}

func NewStatsUseCase(users repository.UserRepository, payments repository.PaymentRepository, logger *zerolog.Logger) *statsUC {
	return &statsUC{users: users, payments: payments, started: time.Now(), log: logger}
}

func (s *statsUC) Totals(ctx context.Context) (*Totals, error) {
	users, err := s.users.Count(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	pending, err := s.payments.CountByStatus(ctx, repository.NoTX, model.PaymentStatusPending)
	if err != nil {
		return nil, err
	}
	confirmed, err := s.payments.CountByStatus(ctx, repository.NoTX, model.PaymentStatusConfirmed)
	if err != nil {
		return nil, err
	}
	revenue, err := s.payments.SumConfirmedAmount(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	return &Totals{
		Users:            users,
		PendingPayments:  pending,
		ConfirmedCount:   confirmed,
		ConfirmedRevenue: revenue,
		Uptime:           time.Since(s.started),
	}, nil
}

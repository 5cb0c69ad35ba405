package sched

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"telegram-storefront-bot/internal/domain/ports/adapter"
	"telegram-storefront-bot/internal/infra/i18n"
	"telegram-storefront-bot/internal/usecase"
)

// PendingReminder runs on a cron schedule and nudges two audiences:
// the admin, when payments sit in the review queue, and users who
// picked a plan but never sent a screenshot.
type PendingReminder struct {
	conv        usecase.ConversationUseCase
	pay         usecase.PaymentUseCase
	bot         adapter.Messenger
	tr          *i18n.Translator
	adminChatID int64
	maxAge      time.Duration
	log         *zerolog.Logger

	c *cron.Cron
}

func NewPendingReminder(
	conv usecase.ConversationUseCase,
	pay usecase.PaymentUseCase,
	bot adapter.Messenger,
	tr *i18n.Translator,
	adminChatID int64,
	maxAge time.Duration,
	logger *zerolog.Logger,
) *PendingReminder {
	return &PendingReminder{
		conv:        conv,
		pay:         pay,
		bot:         bot,
		tr:          tr,
		adminChatID: adminChatID,
		maxAge:      maxAge,
		log:         logger,
		c:           cron.New(),
	}
}

func (p *PendingReminder) Start(spec string) error {
	if _, err := p.c.AddFunc(spec, p.run); err != nil {
		return err
	}
	p.c.Start()
	p.log.Info().Str("cron", spec).Dur("max_age", p.maxAge).Msg("pending reminder scheduled")
	return nil
}

func (p *PendingReminder) Stop() {
	ctx := p.c.Stop()
	<-ctx.Done()
}

func (p *PendingReminder) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	p.remindAdmin(ctx)
	p.remindStuckUsers(ctx)
}

// remindAdmin tells the reviewer how many payments wait in the queue.
func (p *PendingReminder) remindAdmin(ctx context.Context) {
	if p.adminChatID == 0 {
		return
	}
	pending, err := p.pay.ListPending(ctx, 100)
	if err != nil {
		p.log.Error().Err(err).Msg("failed to list pending payments for reminder")
		return
	}
	if len(pending) == 0 {
		return
	}
	text := p.tr.T("pending_review_reminder", len(pending))
	if err := p.bot.SendMessage(ctx, p.adminChatID, text); err != nil {
		p.log.Warn().Err(err).Msg("failed to send review reminder")
	}
}

func (p *PendingReminder) remindStuckUsers(ctx context.Context) {
	ids, err := p.conv.StaleAwaiting(ctx, int64(p.maxAge.Seconds()))
	if err != nil {
		p.log.Error().Err(err).Msg("failed to list stale payment flows")
		return
	}
	for _, chatID := range ids {
		if err := p.bot.SendMessage(ctx, chatID, p.tr.T("pending_reminder")); err != nil {
			p.log.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to send pending reminder")
		}
	}
	if len(ids) > 0 {
		p.log.Info().Int("reminded", len(ids)).Msg("pending reminders sent")
	}
}

package usecase

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"telegram-storefront-bot/internal/domain"
	"telegram-storefront-bot/internal/domain/model"
	"telegram-storefront-bot/internal/domain/ports/adapter"
	"telegram-storefront-bot/internal/infra/metrics"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ BroadcastUseCase = (*broadcastUC)(nil)

type BroadcastUseCase interface {
	// Recipients returns how many users a broadcast would reach, the
	// reviewer excluded.
	Recipients(ctx context.Context) (int, error)
	// Run delivers text to every known user sequentially and returns a
	// per-run report. Delivery failures never abort the run.
	Run(ctx context.Context, text string) (*model.BroadcastReport, error)
}

type broadcastUC struct {
	users       UserUseCase
	bot         adapter.Messenger
	adminChatID int64
	pace        time.Duration
	sendTimeout time.Duration
	log         *zerolog.Logger
}

func NewBroadcastUseCase(
	users UserUseCase,
	bot adapter.Messenger,
	adminChatID int64,
	pace, sendTimeout time.Duration,
	logger *zerolog.Logger,
) *broadcastUC {
	if pace < 100*time.Millisecond {
		pace = 100 * time.Millisecond
	}
	if sendTimeout <= 0 {
		sendTimeout = 5 * time.Second
	}
	return &broadcastUC{
		users:       users,
		bot:         bot,
		adminChatID: adminChatID,
		pace:        pace,
		sendTimeout: sendTimeout,
		log:         logger,
	}
}

func (b *broadcastUC) Recipients(ctx context.Context) (int, error) {
	ids, err := b.users.ListChatIDs(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, id := range ids {
		if id != b.adminChatID {
			n++
		}
	}
	return n, nil
}

func (b *broadcastUC) Run(ctx context.Context, text string) (*model.BroadcastReport, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrBroadcastEmpty
	}

	ids, err := b.users.ListChatIDs(ctx)
	if err != nil {
		return nil, err
	}

	runID := ulid.MustNew(ulid.Timestamp(time.Now()), rand.New(rand.NewSource(time.Now().UnixNano()))).String()
	report := &model.BroadcastReport{RunID: runID, Text: text}
	log := b.log.With().Str("run_id", runID).Logger()

	sent := make(map[int64]struct{}, len(ids))
	start := time.Now()
	metrics.IncBroadcastRun()
	log.Info().Int("users", len(ids)).Msg("broadcast started")

	ticker := time.NewTicker(b.pace)
	defer ticker.Stop()

	for _, chatID := range ids {
		if chatID == b.adminChatID {
			continue
		}
		if _, dup := sent[chatID]; dup {
			continue
		}
		sent[chatID] = struct{}{}
		report.Recipients++

		select {
		case <-ctx.Done():
			report.Duration = time.Since(start)
			return report, ctx.Err()
		case <-ticker.C:
		}

		sendCtx, cancel := context.WithTimeout(ctx, b.sendTimeout)
		err := b.bot.SendMessage(sendCtx, chatID, text)
		cancel()

		switch {
		case err == nil:
			report.Sent++
			metrics.IncBroadcastDelivery("sent")
		case b.bot.Unreachable(err):
			report.Failed++
			report.Blocked++
			metrics.IncBroadcastDelivery("blocked")
			log.Warn().Int64("chat_id", chatID).Msg("recipient unreachable")
		default:
			report.Failed++
			metrics.IncBroadcastDelivery("failed")
			log.Error().Err(err).Int64("chat_id", chatID).Msg("broadcast send failed")
		}
	}

	report.Duration = time.Since(start)
	metrics.ObserveBroadcastRun(report.Duration.Seconds())
	log.Info().Int("sent", report.Sent).Int("failed", report.Failed).
		Int("blocked", report.Blocked).Dur("duration", report.Duration).Msg("broadcast finished")
	return report, nil
}

package telegram

import (
	"context"
	"errors"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"telegram-storefront-bot/internal/application"
	"telegram-storefront-bot/internal/config"
	"telegram-storefront-bot/internal/domain/ports/adapter"
	"telegram-storefront-bot/internal/infra/logging"
	"telegram-storefront-bot/internal/infra/metrics"
	red "telegram-storefront-bot/internal/infra/redis"
	"telegram-storefront-bot/internal/infra/worker"
)

// Compile-time check
var _ adapter.Messenger = (*Bot)(nil)

// Bot implements adapter.Messenger over tgbotapi and polls Telegram for
// updates, fanning them out to a fixed number of workers.
type Bot struct {
	api     *tgbotapi.BotAPI
	cfg     *config.BotConfig
	facade  *application.BotFacade
	limiter *red.RateLimiter
	log     *zerolog.Logger

	updateWorkers int
	cancelPolling context.CancelFunc
}

func NewBot(cfg *config.BotConfig, limiter *red.RateLimiter, logger *zerolog.Logger) (*Bot, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 5
	}
	return &Bot{
		api:           api,
		cfg:           cfg,
		limiter:       limiter,
		log:           logger,
		updateWorkers: workers,
	}, nil
}

// AttachFacade wires the update router. Separate from the constructor
// because the facade itself needs the Messenger.
func (b *Bot) AttachFacade(f *application.BotFacade) { b.facade = f }

// StartPolling begins polling Telegram for updates concurrently.
// It runs until ctx is canceled.
func (b *Bot) StartPolling(ctx context.Context) error {
	if b.facade == nil {
		return errors.New("bot facade is not attached")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	b.cancelPolling = cancel

	pool := worker.NewPool(b.updateWorkers)
	pool.Start(ctx)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			pool.Stop()
			return nil
		case update := <-updates:
			upd := update
			err := pool.Submit(func(ctx context.Context) error {
				return b.handleUpdate(ctx, upd)
			})
			if err != nil {
				b.log.Warn().Err(err).Msg("update dropped, worker queue saturated")
			}
		}
	}
}

// StopPolling stops the polling loop gracefully.
func (b *Bot) StopPolling() {
	if b.cancelPolling != nil {
		b.cancelPolling()
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	up, ok := normalizeUpdate(update)
	if !ok {
		return nil
	}

	ctx = logging.WithTraceID(ctx, uuid.NewString())
	ctx = logging.WithChatID(ctx, up.ChatID)
	metrics.IncTelegramUpdate(updateKind(up))

	log := logging.With(ctx, b.log)

	if b.limiter != nil {
		allowed, err := b.limiter.Allow(ctx, red.UpdateKey(up.ChatID), 20, time.Minute)
		if err == nil && !allowed {
			metrics.IncRateLimitTriggered()
			log.Warn().Msg("user rate-limited, update dropped")
			return nil
		}
	}

	// Ack callbacks regardless of the routing outcome, or the client
	// keeps its spinner.
	if update.CallbackQuery != nil {
		defer func() {
			_, _ = b.api.Request(tgbotapi.NewCallback(update.CallbackQuery.ID, ""))
		}()
	}

	return b.facade.HandleUpdate(ctx, up)
}

// normalizeUpdate flattens a tgbotapi update into the facade's view of it.
func normalizeUpdate(update tgbotapi.Update) (application.Update, bool) {
	if cq := update.CallbackQuery; cq != nil && cq.Message != nil && cq.From != nil {
		return application.Update{
			ChatID:       cq.Message.Chat.ID,
			Username:     cq.From.UserName,
			FirstName:    cq.From.FirstName,
			LastName:     cq.From.LastName,
			CallbackData: cq.Data,
			MessageID:    cq.Message.MessageID,
		}, true
	}

	msg := update.Message
	if msg == nil || msg.From == nil {
		return application.Update{}, false
	}
	up := application.Update{
		ChatID:    msg.Chat.ID,
		Username:  msg.From.UserName,
		FirstName: msg.From.FirstName,
		LastName:  msg.From.LastName,
		Text:      msg.Text,
		MessageID: msg.MessageID,
	}
	if len(msg.Photo) > 0 {
		// Last size is the largest.
		up.PhotoRef = msg.Photo[len(msg.Photo)-1].FileID
		if up.Text == "" {
			up.Text = msg.Caption
		}
	}
	return up, true
}

func updateKind(up application.Update) string {
	switch {
	case up.IsCallback():
		return "callback"
	case up.HasPhoto():
		return "photo"
	case strings.HasPrefix(up.Text, "/"):
		return "command"
	default:
		return "text"
	}
}

// --- adapter.Messenger ---

func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	return b.send(ctx, msg)
}

func (b *Bot) SendMenu(ctx context.Context, chatID int64, text string, rows [][]string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = replyKeyboard(rows)
	return b.send(ctx, msg)
}

func (b *Bot) SendButtons(ctx context.Context, chatID int64, text string, rows [][]adapter.InlineButton) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = inlineKeyboard(rows)
	return b.send(ctx, msg)
}

func (b *Bot) SendPhoto(ctx context.Context, chatID int64, photoRef, caption string, rows [][]adapter.InlineButton) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(photoRef))
	photo.Caption = caption
	if len(rows) > 0 {
		photo.ReplyMarkup = inlineKeyboard(rows)
	}
	return b.send(ctx, photo)
}

func (b *Bot) EditCaption(ctx context.Context, chatID int64, messageID int, caption string) error {
	edit := tgbotapi.NewEditMessageCaption(chatID, messageID, caption)
	return b.send(ctx, edit)
}

// send honors ctx cancellation around the blocking API call.
func (b *Bot) send(ctx context.Context, c tgbotapi.Chattable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() {
		_, err := b.api.Send(c)
		done <- err
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// Unreachable reports whether the error means the recipient can never get
// the message.
func (b *Bot) Unreachable(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "bot was blocked by the user") ||
		strings.Contains(msg, "user is deactivated") ||
		strings.Contains(msg, "chat not found")
}

func replyKeyboard(rows [][]string) tgbotapi.ReplyKeyboardMarkup {
	kbRows := make([][]tgbotapi.KeyboardButton, 0, len(rows))
	for _, row := range rows {
		btns := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, text := range row {
			btns = append(btns, tgbotapi.NewKeyboardButton(text))
		}
		kbRows = append(kbRows, btns)
	}
	kb := tgbotapi.NewReplyKeyboard(kbRows...)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func inlineKeyboard(rows [][]adapter.InlineButton) tgbotapi.InlineKeyboardMarkup {
	kbRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		btns := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			switch {
			case btn.URL != "":
				btns = append(btns, tgbotapi.NewInlineKeyboardButtonURL(btn.Text, btn.URL))
			default:
				btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Data))
			}
		}
		kbRows = append(kbRows, btns)
	}
	return tgbotapi.NewInlineKeyboardMarkup(kbRows...)
}

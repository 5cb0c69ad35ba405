package application

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"telegram-storefront-bot/internal/config"
	"telegram-storefront-bot/internal/domain"
	"telegram-storefront-bot/internal/domain/model"
	"telegram-storefront-bot/internal/domain/ports/adapter"
	"telegram-storefront-bot/internal/infra/i18n"
	"telegram-storefront-bot/internal/infra/logging"
	"telegram-storefront-bot/internal/usecase"
)

const version = "1.0.0"

const (
	cbPlanPrefix    = "pay_"
	cbBackToMain    = "back_to_main"
	cbConfirmPrefix = "confirm_direct_"
	cbRejectPrefix  = "reject_direct_"
)

// BotFacade routes every incoming update to the right flow: the reviewer
// chat gets the admin surface, everyone else gets the storefront.
type BotFacade struct {
	userUC  usecase.UserUseCase
	convUC  usecase.ConversationUseCase
	payUC   usecase.PaymentUseCase
	bcastUC usecase.BroadcastUseCase
	statsUC usecase.StatsUseCase
	adminUC usecase.AdminUseCase

	bot adapter.Messenger
	tr  *i18n.Translator
	cfg config.StoreConfig
	log *zerolog.Logger
}

func NewBotFacade(
	userUC usecase.UserUseCase,
	convUC usecase.ConversationUseCase,
	payUC usecase.PaymentUseCase,
	bcastUC usecase.BroadcastUseCase,
	statsUC usecase.StatsUseCase,
	adminUC usecase.AdminUseCase,
	bot adapter.Messenger,
	tr *i18n.Translator,
	cfg config.StoreConfig,
	logger *zerolog.Logger,
) *BotFacade {
	return &BotFacade{
		userUC:  userUC,
		convUC:  convUC,
		payUC:   payUC,
		bcastUC: bcastUC,
		statsUC: statsUC,
		adminUC: adminUC,
		bot:     bot,
		tr:      tr,
		cfg:     cfg,
		log:     logger,
	}
}

// logger carries the per-update trace_id and chat_id when the transport
// put them into ctx.
func (b *BotFacade) logger(ctx context.Context) *zerolog.Logger {
	return logging.With(ctx, b.log)
}

func (b *BotFacade) HandleUpdate(ctx context.Context, up Update) error {
	if b.adminUC.IsAdmin(up.ChatID) {
		return b.handleAdmin(ctx, up)
	}

	if _, err := b.userUC.RegisterOrFetch(ctx, up.ChatID, up.Username, up.FirstName, up.LastName); err != nil {
		// Keep serving; menu texts don't need the user row.
		b.logger(ctx).Error().Err(err).Int64("chat_id", up.ChatID).Msg("user registration failed")
	}

	if up.IsCallback() {
		return b.handleUserCallback(ctx, up)
	}
	if up.Text == "/start" {
		return b.handleStart(ctx, up)
	}

	state, err := b.convUC.Current(ctx, up.ChatID)
	if err != nil {
		b.logger(ctx).Error().Err(err).Int64("chat_id", up.ChatID).Msg("failed to load conversation state")
		state = model.NewMainMenuState(up.ChatID)
	}
	if state.Step == model.StepAwaitingScreenshot {
		return b.handleAwaitingScreenshot(ctx, up, state)
	}
	return b.handleMainMenu(ctx, up)
}

func (b *BotFacade) handleStart(ctx context.Context, up Update) error {
	if err := b.convUC.ResetToMainMenu(ctx, up.ChatID); err != nil {
		b.logger(ctx).Error().Err(err).Int64("chat_id", up.ChatID).Msg("failed to reset state on /start")
	}
	return b.bot.SendMenu(ctx, up.ChatID, b.tr.T("welcome", b.cfg.ChannelID), b.mainMenuRows())
}

func (b *BotFacade) handleMainMenu(ctx context.Context, up Update) error {
	if up.HasPhoto() {
		return b.bot.SendMenu(ctx, up.ChatID, b.tr.T("photo_in_menu"), b.mainMenuRows())
	}
	switch up.Text {
	case b.tr.T("btn_channel_access"):
		return b.bot.SendButtons(ctx, up.ChatID, b.tr.T("channel_info"), b.planRows())
	case b.tr.T("btn_find_production"):
		return b.bot.SendMenu(ctx, up.ChatID, b.tr.T("production_info", b.cfg.ContactUsername), b.mainMenuRows())
	case b.tr.T("btn_product_selection"):
		return b.bot.SendMenu(ctx, up.ChatID, b.tr.T("product_selection_info", b.cfg.ContactUsername), b.mainMenuRows())
	case b.tr.T("btn_audit"):
		return b.bot.SendMenu(ctx, up.ChatID, b.tr.T("audit_info", b.cfg.ContactUsername), b.mainMenuRows())
	case b.tr.T("btn_back_to_menu"):
		return b.showMainMenu(ctx, up.ChatID)
	default:
		b.logger(ctx).Debug().Int64("chat_id", up.ChatID).Str("text", up.Text).Msg("unrecognized menu text")
		return nil
	}
}

func (b *BotFacade) handleUserCallback(ctx context.Context, up Update) error {
	data := up.CallbackData
	switch {
	case strings.HasPrefix(data, cbPlanPrefix):
		plan, ok := b.convUC.PlanByCode(strings.TrimPrefix(data, cbPlanPrefix))
		if !ok {
			b.logger(ctx).Debug().Int64("chat_id", up.ChatID).Str("data", data).Msg("unknown plan callback")
			return nil
		}
		return b.beginPayment(ctx, up.ChatID, plan)
	case data == cbBackToMain:
		if err := b.convUC.ResetToMainMenu(ctx, up.ChatID); err != nil {
			b.logger(ctx).Error().Err(err).Int64("chat_id", up.ChatID).Msg("failed to reset state")
		}
		return b.showMainMenu(ctx, up.ChatID)
	default:
		b.logger(ctx).Debug().Int64("chat_id", up.ChatID).Str("data", data).Msg("unknown user callback")
		return nil
	}
}

func (b *BotFacade) beginPayment(ctx context.Context, chatID int64, plan model.Plan) error {
	// A payment already under review blocks a new attempt.
	if _, err := b.payUC.PendingFor(ctx, chatID); err == nil {
		return b.bot.SendMenu(ctx, chatID, b.tr.T("pending_exists"), b.mainMenuRows())
	}

	if _, err := b.convUC.BeginPayment(ctx, chatID, plan); err != nil {
		b.logger(ctx).Error().Err(err).Int64("chat_id", chatID).Msg("failed to begin payment flow")
		return b.showMainMenu(ctx, chatID)
	}
	text := b.tr.T("payment_instructions", plan.Period, plan.Amount, b.cfg.PaymentInfo)
	return b.bot.SendMenu(ctx, chatID, text, [][]string{{b.tr.T("btn_back_to_menu")}})
}

func (b *BotFacade) handleAwaitingScreenshot(ctx context.Context, up Update, state *model.ConversationState) error {
	if up.Text == b.tr.T("btn_back_to_menu") {
		if err := b.convUC.ResetToMainMenu(ctx, up.ChatID); err != nil {
			b.logger(ctx).Error().Err(err).Int64("chat_id", up.ChatID).Msg("failed to reset state")
		}
		return b.showMainMenu(ctx, up.ChatID)
	}

	if !up.HasPhoto() {
		return b.bot.SendMessage(ctx, up.ChatID, b.tr.T("screenshot_expected"))
	}

	if state.PendingPeriod == nil || state.PendingAmount == nil {
		b.logger(ctx).Error().Int64("chat_id", up.ChatID).Msg("awaiting screenshot without plan attached")
		if err := b.convUC.ResetToMainMenu(ctx, up.ChatID); err != nil {
			b.logger(ctx).Error().Err(err).Int64("chat_id", up.ChatID).Msg("failed to reset state")
		}
		return b.bot.SendMenu(ctx, up.ChatID, b.tr.T("payment_context_lost"), b.mainMenuRows())
	}

	username := up.Username
	if username == "" {
		username = up.FirstName
	}
	payment, err := b.payUC.Submit(ctx, up.ChatID, model.PaymentSubmission{
		Username: username,
		Period:   *state.PendingPeriod,
		Amount:   *state.PendingAmount,
		PhotoRef: up.PhotoRef,
	})
	if err != nil {
		if errors.Is(err, domain.ErrPendingPaymentExists) {
			return b.bot.SendMenu(ctx, up.ChatID, b.tr.T("pending_exists"), b.mainMenuRows())
		}
		b.logger(ctx).Error().Err(err).Int64("chat_id", up.ChatID).Msg("payment submission failed")
		return b.bot.SendMenu(ctx, up.ChatID, b.tr.T("payment_context_lost"), b.mainMenuRows())
	}

	b.notifyAdminNewPayment(ctx, payment)
	return b.bot.SendMenu(ctx, up.ChatID, b.tr.T("screenshot_received", b.cfg.ChannelID), b.mainMenuRows())
}

func (b *BotFacade) notifyAdminNewPayment(ctx context.Context, p *model.Payment) {
	adminID, err := b.adminUC.AdminChatID()
	if err != nil {
		return
	}
	photoMark := "❌"
	if p.HasPhoto() {
		photoMark = "✅"
	}
	text := b.tr.T("new_payment_admin", b.displayName(p.Username), p.Period, p.Amount, p.UserChatID, photoMark)
	if err := b.bot.SendMessage(ctx, adminID, text); err != nil {
		b.logger(ctx).Error().Err(err).Msg("failed to notify admin about new payment")
	}
}

func (b *BotFacade) showMainMenu(ctx context.Context, chatID int64) error {
	return b.bot.SendMenu(ctx, chatID, b.tr.T("main_menu_prompt"), b.mainMenuRows())
}

// --- Admin surface ---

func (b *BotFacade) handleAdmin(ctx context.Context, up Update) error {
	if up.IsCallback() {
		return b.handleAdminCallback(ctx, up)
	}

	if up.Text == "/start" || up.Text == "/admin" {
		b.adminUC.SetMode(usecase.AdminModeMenu)
		return b.bot.SendMenu(ctx, up.ChatID, b.tr.T("admin_panel"), b.adminMenuRows())
	}

	if b.adminUC.Mode() == usecase.AdminModeAwaitingBroadcast {
		if up.Text == "" {
			// Keep waiting; only text can go out as a broadcast.
			return b.bot.SendMessage(ctx, up.ChatID, b.tr.T("broadcast_text_expected"))
		}
		return b.runBroadcast(ctx, up.ChatID, up.Text)
	}

	switch up.Text {
	case b.tr.T("btn_admin_stats"):
		return b.showStats(ctx, up.ChatID)
	case b.tr.T("btn_admin_payments"):
		return b.showPendingPayments(ctx, up.ChatID)
	case b.tr.T("btn_admin_broadcast"):
		return b.startBroadcast(ctx, up.ChatID)
	case b.tr.T("btn_admin_settings"):
		return b.showSettings(ctx, up.ChatID)
	default:
		b.logger(ctx).Warn().Int64("chat_id", up.ChatID).Str("text", up.Text).Msg("unknown admin input")
		return nil
	}
}

func (b *BotFacade) handleAdminCallback(ctx context.Context, up Update) error {
	data := up.CallbackData
	switch {
	case strings.HasPrefix(data, cbConfirmPrefix):
		return b.settleFromCallback(ctx, up, strings.TrimPrefix(data, cbConfirmPrefix), true)
	case strings.HasPrefix(data, cbRejectPrefix):
		return b.settleFromCallback(ctx, up, strings.TrimPrefix(data, cbRejectPrefix), false)
	default:
		b.logger(ctx).Warn().Int64("chat_id", up.ChatID).Str("data", data).Msg("unknown admin callback")
		return nil
	}
}

func (b *BotFacade) settleFromCallback(ctx context.Context, up Update, rawChatID string, confirm bool) error {
	userChatID, err := strconv.ParseInt(rawChatID, 10, 64)
	if err != nil {
		b.logger(ctx).Warn().Str("data", up.CallbackData).Msg("malformed settle callback")
		return nil
	}

	var payment *model.Payment
	if confirm {
		payment, err = b.payUC.Confirm(ctx, userChatID, b.tr.T("confirm_default_reason"))
	} else {
		payment, err = b.payUC.Reject(ctx, userChatID, b.tr.T("reject_default_reason"))
	}
	if err != nil {
		if errors.Is(err, domain.ErrNoPendingPayment) {
			return b.bot.SendMessage(ctx, up.ChatID, b.tr.T("payment_not_found_admin", userChatID))
		}
		return err
	}

	if confirm {
		_ = b.bot.SendMessage(ctx, userChatID, b.tr.T("payment_confirmed_user", b.cfg.ChannelID))
		_ = b.bot.EditCaption(ctx, up.ChatID, up.MessageID, b.tr.T("confirm_caption"))
		return b.bot.SendMessage(ctx, up.ChatID, b.tr.T("payment_confirmed_admin", b.displayName(payment.Username)))
	}
	_ = b.bot.SendMessage(ctx, userChatID, b.tr.T("payment_rejected_user", payment.Reason))
	_ = b.bot.EditCaption(ctx, up.ChatID, up.MessageID, b.tr.T("reject_caption"))
	return b.bot.SendMessage(ctx, up.ChatID, b.tr.T("payment_rejected_admin", b.displayName(payment.Username)))
}

func (b *BotFacade) showStats(ctx context.Context, chatID int64) error {
	totals, err := b.statsUC.Totals(ctx)
	if err != nil {
		b.logger(ctx).Error().Err(err).Msg("failed to collect stats")
		return b.bot.SendMessage(ctx, chatID, b.tr.T("payments_load_failed"))
	}
	text := b.tr.T("admin_stats",
		totals.Users, totals.PendingPayments, totals.ConfirmedCount, totals.ConfirmedRevenue,
		formatUptime(totals.Uptime))
	return b.bot.SendMessage(ctx, chatID, text)
}

func (b *BotFacade) showPendingPayments(ctx context.Context, chatID int64) error {
	pending, err := b.payUC.ListPending(ctx, 100)
	if err != nil {
		b.logger(ctx).Error().Err(err).Msg("failed to list pending payments")
		return b.bot.SendMessage(ctx, chatID, b.tr.T("payments_load_failed"))
	}

	if len(pending) == 0 {
		terminal, err := b.payUC.ListTerminal(ctx, 1)
		if err == nil && len(terminal) == 0 {
			return b.bot.SendMessage(ctx, chatID, b.tr.T("no_payments"))
		}
		return b.bot.SendMessage(ctx, chatID, b.tr.T("no_pending_payments"))
	}

	for i, p := range pending {
		caption := b.tr.T("pending_payment_card",
			i+1, b.displayName(p.Username), p.Period, p.Amount,
			p.CreatedAt.Format("02.01.2006 15:04:05"))
		buttons := b.reviewRows(p.UserChatID)

		if p.HasPhoto() {
			if err := b.bot.SendPhoto(ctx, chatID, p.PhotoRef, caption, buttons); err != nil {
				b.logger(ctx).Warn().Err(err).Int64("payment_user", p.UserChatID).Msg("failed to send payment screenshot")
				if err := b.bot.SendButtons(ctx, chatID, caption+"\n\n"+b.tr.T("photo_load_failed"), buttons); err != nil {
					return err
				}
			}
			continue
		}
		if err := b.bot.SendButtons(ctx, chatID, caption+"\n\n"+b.tr.T("photo_missing"), buttons); err != nil {
			return err
		}
	}
	return nil
}

func (b *BotFacade) startBroadcast(ctx context.Context, chatID int64) error {
	n, err := b.bcastUC.Recipients(ctx)
	if err != nil {
		b.logger(ctx).Error().Err(err).Msg("failed to count broadcast recipients")
		return err
	}
	if n == 0 {
		return b.bot.SendMessage(ctx, chatID, b.tr.T("broadcast_no_users"))
	}
	b.adminUC.SetMode(usecase.AdminModeAwaitingBroadcast)
	return b.bot.SendMessage(ctx, chatID, b.tr.T("broadcast_prompt"))
}

func (b *BotFacade) runBroadcast(ctx context.Context, adminChatID int64, text string) error {
	b.adminUC.SetMode(usecase.AdminModeMenu)

	n, err := b.bcastUC.Recipients(ctx)
	if err != nil {
		return err
	}
	_ = b.bot.SendMessage(ctx, adminChatID, b.tr.T("broadcast_started", n))

	report, err := b.bcastUC.Run(ctx, text)
	if err != nil {
		if errors.Is(err, domain.ErrBroadcastEmpty) {
			return b.bot.SendMessage(ctx, adminChatID, b.tr.T("broadcast_no_users"))
		}
		b.logger(ctx).Error().Err(err).Msg("broadcast run failed")
		if report == nil {
			return err
		}
	}
	summary := b.tr.T("broadcast_summary", report.Sent, report.Failed, report.Blocked, report.Text)
	return b.bot.SendMessage(ctx, adminChatID, summary)
}

func (b *BotFacade) showSettings(ctx context.Context, chatID int64) error {
	adminID, _ := b.adminUC.AdminChatID()
	return b.bot.SendMessage(ctx, chatID, b.tr.T("admin_settings", b.cfg.ChannelID, adminID, version))
}

func (b *BotFacade) displayName(username string) string {
	if username == "" {
		return b.tr.T("no_username")
	}
	return username
}

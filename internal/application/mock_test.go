//go:build !integration

package application_test

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-storefront-bot/internal/application"
	"telegram-storefront-bot/internal/config"
	"telegram-storefront-bot/internal/domain"
	"telegram-storefront-bot/internal/domain/model"
	"telegram-storefront-bot/internal/domain/ports/adapter"
	"telegram-storefront-bot/internal/domain/ports/repository"
	"telegram-storefront-bot/internal/infra/i18n"
	"telegram-storefront-bot/internal/usecase"
)

const adminChatID int64 = 999

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// ---- Stub repositories ----

type stubUserRepo struct {
	mu    sync.RWMutex
	store map[int64]*model.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{store: make(map[int64]*model.User)}
}

func (s *stubUserRepo) Upsert(ctx context.Context, tx repository.Tx, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.store[u.ChatID] = &cp
	return nil
}

func (s *stubUserRepo) FindByChatID(ctx context.Context, tx repository.Tx, chatID int64) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.store[chatID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *stubUserRepo) ListChatIDs(ctx context.Context, tx repository.Tx) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int64, 0, len(s.store))
	for id := range s.store {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *stubUserRepo) Count(ctx context.Context, tx repository.Tx) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.store)), nil
}

func (s *stubUserRepo) DeleteByChatID(ctx context.Context, tx repository.Tx, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.store, chatID)
	return nil
}

type stubPaymentRepo struct {
	mu     sync.RWMutex
	nextID int64
	store  []*model.Payment
}

func newStubPaymentRepo() *stubPaymentRepo {
	return &stubPaymentRepo{nextID: 1}
}

func (s *stubPaymentRepo) Create(ctx context.Context, tx repository.Tx, p *model.Payment) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.store {
		if existing.UserChatID == p.UserChatID && existing.Status == model.PaymentStatusPending {
			return 0, domain.ErrPendingPaymentExists
		}
	}
	cp := *p
	cp.ID = s.nextID
	s.nextID++
	s.store = append(s.store, &cp)
	return cp.ID, nil
}

func (s *stubPaymentRepo) FindPendingByChatID(ctx context.Context, tx repository.Tx, chatID int64) (*model.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.store {
		if p.UserChatID == chatID && p.Status == model.PaymentStatusPending {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNoPendingPayment
}

func (s *stubPaymentRepo) ListPending(ctx context.Context, tx repository.Tx, limit int) ([]*model.Payment, error) {
	return s.list(func(p *model.Payment) bool { return p.Status == model.PaymentStatusPending }), nil
}

func (s *stubPaymentRepo) ListTerminal(ctx context.Context, tx repository.Tx, limit int) ([]*model.Payment, error) {
	return s.list(func(p *model.Payment) bool { return p.Status.Terminal() }), nil
}

func (s *stubPaymentRepo) list(keep func(*model.Payment) bool) []*model.Payment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Payment
	for _, p := range s.store {
		if keep(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out
}

func (s *stubPaymentRepo) SettlePending(ctx context.Context, tx repository.Tx, chatID int64, status model.PaymentStatus, reason string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.store {
		if p.UserChatID == chatID && p.Status == model.PaymentStatusPending {
			p.Status = status
			p.Reason = reason
			p.UpdatedAt = time.Now()
			return true, nil
		}
	}
	return false, nil
}

func (s *stubPaymentRepo) CountByStatus(ctx context.Context, tx repository.Tx, status model.PaymentStatus) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, p := range s.store {
		if p.Status == status {
			n++
		}
	}
	return n, nil
}

func (s *stubPaymentRepo) Count(ctx context.Context, tx repository.Tx) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.store)), nil
}

func (s *stubPaymentRepo) SumConfirmedAmount(ctx context.Context, tx repository.Tx) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sum int64
	for _, p := range s.store {
		if p.Status == model.PaymentStatusConfirmed {
			sum += int64(p.Amount)
		}
	}
	return sum, nil
}

func (s *stubPaymentRepo) DeleteByChatID(ctx context.Context, tx repository.Tx, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []*model.Payment
	for _, p := range s.store {
		if p.UserChatID != chatID {
			kept = append(kept, p)
		}
	}
	s.store = kept
	return nil
}

type stubStateRepo struct {
	mu    sync.RWMutex
	store map[int64]*model.ConversationState
}

func newStubStateRepo() *stubStateRepo {
	return &stubStateRepo{store: make(map[int64]*model.ConversationState)}
}

func (s *stubStateRepo) Set(ctx context.Context, tx repository.Tx, st *model.ConversationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *st
	s.store[st.ChatID] = &cp
	return nil
}

func (s *stubStateRepo) Get(ctx context.Context, tx repository.Tx, chatID int64) (*model.ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.store[chatID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (s *stubStateRepo) Delete(ctx context.Context, tx repository.Tx, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.store, chatID)
	return nil
}

func (s *stubStateRepo) ListStale(ctx context.Context, tx repository.Tx, maxAgeSeconds int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := time.Now().Add(-time.Duration(maxAgeSeconds) * time.Second)
	var ids []int64
	for id, st := range s.store {
		if st.Step == model.StepAwaitingScreenshot && st.UpdatedAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type stubTxManager struct{}

func (stubTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, repository.NoTX)
}

// ---- Recording messenger ----

type outMessage struct {
	Kind    string // message, menu, buttons, photo, edit
	ChatID  int64
	Text    string
	Photo   string
	Buttons [][]adapter.InlineButton
}

type recordingMessenger struct {
	mu   sync.Mutex
	Out  []outMessage
	Fail func(chatID int64) error
}

var _ adapter.Messenger = (*recordingMessenger)(nil)

func (r *recordingMessenger) record(m outMessage) error {
	if r.Fail != nil {
		if err := r.Fail(m.ChatID); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Out = append(r.Out, m)
	return nil
}

func (r *recordingMessenger) SendMessage(ctx context.Context, chatID int64, text string) error {
	return r.record(outMessage{Kind: "message", ChatID: chatID, Text: text})
}

func (r *recordingMessenger) SendMenu(ctx context.Context, chatID int64, text string, rows [][]string) error {
	return r.record(outMessage{Kind: "menu", ChatID: chatID, Text: text})
}

func (r *recordingMessenger) SendButtons(ctx context.Context, chatID int64, text string, rows [][]adapter.InlineButton) error {
	return r.record(outMessage{Kind: "buttons", ChatID: chatID, Text: text, Buttons: rows})
}

func (r *recordingMessenger) SendPhoto(ctx context.Context, chatID int64, photoRef, caption string, rows [][]adapter.InlineButton) error {
	return r.record(outMessage{Kind: "photo", ChatID: chatID, Text: caption, Photo: photoRef, Buttons: rows})
}

func (r *recordingMessenger) EditCaption(ctx context.Context, chatID int64, messageID int, caption string) error {
	return r.record(outMessage{Kind: "edit", ChatID: chatID, Text: caption})
}

func (r *recordingMessenger) Unreachable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "blocked")
}

func (r *recordingMessenger) sentTo(chatID int64) []outMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []outMessage
	for _, m := range r.Out {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

func (r *recordingMessenger) lastTo(t *testing.T, chatID int64) outMessage {
	t.Helper()
	msgs := r.sentTo(chatID)
	if len(msgs) == 0 {
		t.Fatalf("no messages sent to chat %d", chatID)
	}
	return msgs[len(msgs)-1]
}

func (r *recordingMessenger) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Out = nil
}

// ---- Facade fixture ----

type facadeFixture struct {
	facade   *application.BotFacade
	bot      *recordingMessenger
	users    *stubUserRepo
	payments *stubPaymentRepo
	states   *stubStateRepo
	tr       *i18n.Translator
	adminUC  usecase.AdminUseCase
}

func newFacadeFixture(t *testing.T) *facadeFixture {
	t.Helper()

	tr, err := i18n.NewTranslator(i18n.LocalesFS, "ru")
	if err != nil {
		t.Fatalf("failed to load translator: %v", err)
	}

	cfg := config.StoreConfig{
		ChannelID:       "@testchannel",
		ContactUsername: "@contact",
		PaymentInfo:     "card 1234",
		Plans: []model.Plan{
			{Code: "1month", Period: "1 месяц", Amount: 5990},
			{Code: "6months", Period: "6 месяцев", Amount: 29990},
		},
	}

	log := newTestLogger()
	users := newStubUserRepo()
	payments := newStubPaymentRepo()
	states := newStubStateRepo()
	tm := stubTxManager{}
	bot := &recordingMessenger{}

	userUC := usecase.NewUserUseCase(users, payments, states, tm, log)
	convUC := usecase.NewConversationUseCase(states, cfg.Plans, log)
	payUC := usecase.NewPaymentUseCase(payments, users, states, tm, log)
	bcastUC := usecase.NewBroadcastUseCase(userUC, bot, adminChatID, 100*time.Millisecond, time.Second, log)
	statsUC := usecase.NewStatsUseCase(users, payments, log)
	adminUC := usecase.NewAdminUseCase(adminChatID, log)

	facade := application.NewBotFacade(userUC, convUC, payUC, bcastUC, statsUC, adminUC, bot, tr, cfg, log)
	return &facadeFixture{
		facade:   facade,
		bot:      bot,
		users:    users,
		payments: payments,
		states:   states,
		tr:       tr,
		adminUC:  adminUC,
	}
}

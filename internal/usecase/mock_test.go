//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-storefront-bot/internal/domain"
	"telegram-storefront-bot/internal/domain/model"
	"telegram-storefront-bot/internal/domain/ports/adapter"
	"telegram-storefront-bot/internal/domain/ports/repository"
)

// errUnreachable marks a recipient that blocked the bot; the mock messenger's
// Unreachable recognizes it the way the real adapter recognizes Telegram 403s.
var errUnreachable = errors.New("bot was blocked by the user")

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// ---- Mock UserRepository ----

type MockUserRepo struct {
	mu    sync.RWMutex
	store map[int64]*model.User

	UpsertErr error
	FindErr   error
	ListErr   error
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{store: make(map[int64]*model.User)}
}

func (m *MockUserRepo) Upsert(ctx context.Context, tx repository.Tx, u *model.User) error {
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.store[u.ChatID] = &cp
	return nil
}

func (m *MockUserRepo) FindByChatID(ctx context.Context, tx repository.Tx, chatID int64) (*model.User, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.store[chatID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MockUserRepo) ListChatIDs(ctx context.Context, tx repository.Tx) ([]int64, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]int64, 0, len(m.store))
	for id := range m.store {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *MockUserRepo) Count(ctx context.Context, tx repository.Tx) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.store)), nil
}

func (m *MockUserRepo) DeleteByChatID(ctx context.Context, tx repository.Tx, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, chatID)
	return nil
}

// ---- Mock PaymentRepository ----

type MockPaymentRepo struct {
	mu     sync.RWMutex
	nextID int64
	store  []*model.Payment

	CreateErr error
	FindErr   error
	SettleErr error
	ListErr   error
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{nextID: 1}
}

func (m *MockPaymentRepo) Create(ctx context.Context, tx repository.Tx, p *model.Payment) (int64, error) {
	if m.CreateErr != nil {
		return 0, m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.store {
		if existing.UserChatID == p.UserChatID && existing.Status == model.PaymentStatusPending {
			return 0, domain.ErrPendingPaymentExists
		}
	}
	cp := *p
	cp.ID = m.nextID
	m.nextID++
	m.store = append(m.store, &cp)
	return cp.ID, nil
}

func (m *MockPaymentRepo) FindPendingByChatID(ctx context.Context, tx repository.Tx, chatID int64) (*model.Payment, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.store {
		if p.UserChatID == chatID && p.Status == model.PaymentStatusPending {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNoPendingPayment
}

func (m *MockPaymentRepo) ListPending(ctx context.Context, tx repository.Tx, limit int) ([]*model.Payment, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return m.listByStatus(func(p *model.Payment) bool { return p.Status == model.PaymentStatusPending }), nil
}

func (m *MockPaymentRepo) ListTerminal(ctx context.Context, tx repository.Tx, limit int) ([]*model.Payment, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return m.listByStatus(func(p *model.Payment) bool { return p.Status.Terminal() }), nil
}

func (m *MockPaymentRepo) listByStatus(keep func(*model.Payment) bool) []*model.Payment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Payment
	for _, p := range m.store {
		if keep(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out
}

func (m *MockPaymentRepo) SettlePending(ctx context.Context, tx repository.Tx, chatID int64, status model.PaymentStatus, reason string) (bool, error) {
	if m.SettleErr != nil {
		return false, m.SettleErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.store {
		if p.UserChatID == chatID && p.Status == model.PaymentStatusPending {
			p.Status = status
			p.Reason = reason
			p.UpdatedAt = time.Now()
			return true, nil
		}
	}
	return false, nil
}

func (m *MockPaymentRepo) CountByStatus(ctx context.Context, tx repository.Tx, status model.PaymentStatus) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, p := range m.store {
		if p.Status == status {
			n++
		}
	}
	return n, nil
}

func (m *MockPaymentRepo) Count(ctx context.Context, tx repository.Tx) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.store)), nil
}

func (m *MockPaymentRepo) SumConfirmedAmount(ctx context.Context, tx repository.Tx) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var sum int64
	for _, p := range m.store {
		if p.Status == model.PaymentStatusConfirmed {
			sum += int64(p.Amount)
		}
	}
	return sum, nil
}

func (m *MockPaymentRepo) DeleteByChatID(ctx context.Context, tx repository.Tx, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []*model.Payment
	for _, p := range m.store {
		if p.UserChatID != chatID {
			kept = append(kept, p)
		}
	}
	m.store = kept
	return nil
}

// ---- Mock StateRepository ----

type MockStateRepo struct {
	mu    sync.RWMutex
	store map[int64]*model.ConversationState

	SetErr error
	GetErr error
}

var _ repository.StateRepository = (*MockStateRepo)(nil)

func NewMockStateRepo() *MockStateRepo {
	return &MockStateRepo{store: make(map[int64]*model.ConversationState)}
}

func (m *MockStateRepo) Set(ctx context.Context, tx repository.Tx, s *model.ConversationState) error {
	if m.SetErr != nil {
		return m.SetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.store[s.ChatID] = &cp
	return nil
}

func (m *MockStateRepo) Get(ctx context.Context, tx repository.Tx, chatID int64) (*model.ConversationState, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.store[chatID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MockStateRepo) Delete(ctx context.Context, tx repository.Tx, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, chatID)
	return nil
}

func (m *MockStateRepo) ListStale(ctx context.Context, tx repository.Tx, maxAgeSeconds int64) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cutoff := time.Now().Add(-time.Duration(maxAgeSeconds) * time.Second)
	var ids []int64
	for id, s := range m.store {
		if s.Step == model.StepAwaitingScreenshot && s.UpdatedAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// ---- Mock TransactionManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

// WithTx runs the callback immediately without a real transaction unless a
// test overrides WithTxFunc.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// ---- Mock Messenger ----

type sentMessage struct {
	ChatID int64
	Text   string
}

type MockMessenger struct {
	mu   sync.Mutex
	Sent []sentMessage

	SendMessageFunc func(ctx context.Context, chatID int64, text string) error
}

var _ adapter.Messenger = (*MockMessenger)(nil)

func (m *MockMessenger) SendMessage(ctx context.Context, chatID int64, text string) error {
	if m.SendMessageFunc != nil {
		if err := m.SendMessageFunc(ctx, chatID, text); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, sentMessage{ChatID: chatID, Text: text})
	return nil
}

func (m *MockMessenger) SendMenu(ctx context.Context, chatID int64, text string, rows [][]string) error {
	return m.SendMessage(ctx, chatID, text)
}

func (m *MockMessenger) SendButtons(ctx context.Context, chatID int64, text string, rows [][]adapter.InlineButton) error {
	return m.SendMessage(ctx, chatID, text)
}

func (m *MockMessenger) SendPhoto(ctx context.Context, chatID int64, photoRef, caption string, rows [][]adapter.InlineButton) error {
	return m.SendMessage(ctx, chatID, caption)
}

func (m *MockMessenger) EditCaption(ctx context.Context, chatID int64, messageID int, caption string) error {
	return nil
}

func (m *MockMessenger) Unreachable(err error) bool {
	return errors.Is(err, errUnreachable)
}

func (m *MockMessenger) SentTo(chatID int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.Sent {
		if s.ChatID == chatID {
			out = append(out, s.Text)
		}
	}
	return out
}

//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"telegram-storefront-bot/internal/domain"
	"telegram-storefront-bot/internal/domain/model"
	"telegram-storefront-bot/internal/usecase"
)

const testAdminChatID int64 = 999

func newBroadcastFixture(t *testing.T, chatIDs ...int64) (usecase.BroadcastUseCase, *MockMessenger) {
	t.Helper()
	userRepo := NewMockUserRepo()
	for _, id := range chatIDs {
		u, err := model.NewUser(id, "user", "", "")
		if err != nil {
			t.Fatalf("NewUser failed: %v", err)
		}
		if err := userRepo.Upsert(context.Background(), nil, u); err != nil {
			t.Fatalf("seed user failed: %v", err)
		}
	}
	userUC := usecase.NewUserUseCase(userRepo, NewMockPaymentRepo(), NewMockStateRepo(), NewMockTxManager(), newTestLogger())
	bot := &MockMessenger{}
	uc := usecase.NewBroadcastUseCase(userUC, bot, testAdminChatID, 100*time.Millisecond, time.Second, newTestLogger())
	return uc, bot
}

// fixedRosterUserUC serves a canned chat id list, duplicates included.
type fixedRosterUserUC struct {
	chatIDs []int64
}

var _ usecase.UserUseCase = (*fixedRosterUserUC)(nil)

func (f *fixedRosterUserUC) RegisterOrFetch(ctx context.Context, chatID int64, username, firstName, lastName string) (*model.User, error) {
	return nil, domain.ErrUserNotFound
}

func (f *fixedRosterUserUC) GetByChatID(ctx context.Context, chatID int64) (*model.User, error) {
	return nil, domain.ErrUserNotFound
}

func (f *fixedRosterUserUC) Count(ctx context.Context) (int64, error) {
	return int64(len(f.chatIDs)), nil
}

func (f *fixedRosterUserUC) ListChatIDs(ctx context.Context) ([]int64, error) {
	return f.chatIDs, nil
}

func (f *fixedRosterUserUC) Purge(ctx context.Context, chatID int64) error { return nil }

func TestBroadcastUseCase_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("should deliver to every user except the admin", func(t *testing.T) {
		// --- Arrange ---
		uc, bot := newBroadcastFixture(t, 1, 2, 3, testAdminChatID)

		// --- Act ---
		report, err := uc.Run(ctx, "hello everyone")

		// --- Assert ---
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if report.Recipients != 3 || report.Sent != 3 || report.Failed != 0 {
			t.Fatalf("unexpected report: %+v", report)
		}
		if got := bot.SentTo(testAdminChatID); len(got) != 0 {
			t.Errorf("admin must be excluded, got %d messages", len(got))
		}
		if report.RunID == "" {
			t.Error("expected a run id")
		}
	})

	t.Run("should count blocked recipients separately and keep going", func(t *testing.T) {
		// --- Arrange ---
		uc, bot := newBroadcastFixture(t, 1, 2, 3)
		bot.SendMessageFunc = func(ctx context.Context, chatID int64, text string) error {
			if chatID == 2 {
				return errUnreachable
			}
			return nil
		}

		// --- Act ---
		report, err := uc.Run(ctx, "hello")

		// --- Assert ---
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if report.Sent != 2 {
			t.Errorf("expected 2 sent, got %d", report.Sent)
		}
		if report.Failed != 1 || report.Blocked != 1 {
			t.Errorf("expected 1 failed / 1 blocked, got %d / %d", report.Failed, report.Blocked)
		}
	})

	t.Run("should classify other send errors as plain failures", func(t *testing.T) {
		// --- Arrange ---
		uc, bot := newBroadcastFixture(t, 1, 2)
		bot.SendMessageFunc = func(ctx context.Context, chatID int64, text string) error {
			if chatID == 1 {
				return errors.New("telegram: timeout")
			}
			return nil
		}

		// --- Act ---
		report, err := uc.Run(ctx, "hello")

		// --- Assert ---
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if report.Failed != 1 || report.Blocked != 0 {
			t.Errorf("expected 1 failed / 0 blocked, got %d / %d", report.Failed, report.Blocked)
		}
	})

	t.Run("should send once per chat when the roster repeats ids", func(t *testing.T) {
		// --- Arrange ---
		bot := &MockMessenger{}
		users := &fixedRosterUserUC{chatIDs: []int64{2001, 2002, 2001}}
		uc := usecase.NewBroadcastUseCase(users, bot, testAdminChatID, 100*time.Millisecond, time.Second, newTestLogger())

		// --- Act ---
		report, err := uc.Run(ctx, "hello")

		// --- Assert ---
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if report.Recipients != 2 || report.Sent != 2 {
			t.Errorf("expected 2 unique recipients, got %+v", report)
		}
		if got := bot.SentTo(2001); len(got) != 1 {
			t.Errorf("chat 2001 must receive exactly one message, got %d", len(got))
		}
	})

	t.Run("should refuse an empty broadcast", func(t *testing.T) {
		// --- Arrange ---
		uc, _ := newBroadcastFixture(t, 1)

		// --- Act ---
		_, err := uc.Run(ctx, "   ")

		// --- Assert ---
		if !errors.Is(err, domain.ErrBroadcastEmpty) {
			t.Fatalf("expected ErrBroadcastEmpty, got %v", err)
		}
	})

	t.Run("should space consecutive sends apart", func(t *testing.T) {
		// --- Arrange ---
		uc, _ := newBroadcastFixture(t, 1, 2, 3)

		// --- Act ---
		start := time.Now()
		report, err := uc.Run(ctx, "paced")
		elapsed := time.Since(start)

		// --- Assert ---
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if report.Sent != 3 {
			t.Fatalf("expected 3 sent, got %d", report.Sent)
		}
		if elapsed < 300*time.Millisecond {
			t.Errorf("three sends at 100ms pace should take >= 300ms, took %v", elapsed)
		}
	})
}

func TestBroadcastUseCase_Recipients(t *testing.T) {
	// --- Arrange ---
	uc, _ := newBroadcastFixture(t, 1, 2, testAdminChatID)

	// --- Act ---
	n, err := uc.Recipients(context.Background())

	// --- Assert ---
	if err != nil {
		t.Fatalf("Recipients failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 recipients, got %d", n)
	}
}

package usecase

import (
	"sync"

	"github.com/rs/zerolog"

	"telegram-storefront-bot/internal/domain"
)

// AdminMode is the reviewer's modal input state. While composing a
// broadcast, the next plain text message is the broadcast body, not a menu
// button press.
type AdminMode int

const (
	AdminModeMenu AdminMode = iota
	AdminModeAwaitingBroadcast
)

// Compile-time check
var _ AdminUseCase = (*adminUC)(nil)

// AdminUseCase gates the admin surface behind the single reviewer chat id
// and tracks the reviewer's modal state.
type AdminUseCase interface {
	// Enabled reports whether an admin chat is configured at all.
	Enabled() bool
	IsAdmin(chatID int64) bool
	AdminChatID() (int64, error)
	Mode() AdminMode
	SetMode(m AdminMode)
}

type adminUC struct {
	adminChatID int64

	mu   sync.Mutex
	mode AdminMode

	log *zerolog.Logger
}

func NewAdminUseCase(adminChatID int64, logger *zerolog.Logger) *adminUC {
	if adminChatID == 0 {
		logger.Warn().Msg("no admin chat id configured, admin surface disabled")
	}
	return &adminUC{adminChatID: adminChatID, log: logger}
}

func (a *adminUC) Enabled() bool { return a.adminChatID != 0 }

func (a *adminUC) IsAdmin(chatID int64) bool {
	return a.Enabled() && chatID == a.adminChatID
}

func (a *adminUC) AdminChatID() (int64, error) {
	if !a.Enabled() {
		return 0, domain.ErrAdminSurfaceDisabled
	}
	return a.adminChatID, nil
}

func (a *adminUC) Mode() AdminMode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *adminUC) SetMode(m AdminMode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mode = m
}

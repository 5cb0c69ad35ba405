package model

import (
	"time"

	"telegram-storefront-bot/internal/domain"
)

// User is a Telegram chat that has interacted with the bot at least once.
// The Telegram chat id is the primary key; there is no separate internal id.
type User struct {
	ChatID    int64
	Username  string
	FirstName string
	LastName  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewUser(chatID int64, username, firstName, lastName string) (*User, error) {
	if chatID <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &User{
		ChatID:    chatID,
		Username:  username,
		FirstName: firstName,
		LastName:  lastName,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.ChatID == 0 }
func (u *User) Touch()       { u.UpdatedAt = time.Now() }

// DisplayName prefers the username and falls back to the first name, which is
// how payment review messages label the payer.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return u.Username
	}
	return u.FirstName
}

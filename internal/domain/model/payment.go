package model

import (
	"time"

	"telegram-storefront-bot/internal/domain"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"   // screenshot submitted, awaiting admin review
	PaymentStatusConfirmed PaymentStatus = "confirmed" // terminal
	PaymentStatusRejected  PaymentStatus = "rejected"  // terminal
)

func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusConfirmed || s == PaymentStatusRejected
}

// Payment records one subscription payment submission. A user has at most one
// pending payment at any time; terminal rows are kept for audit and stats.
type Payment struct {
	ID         int64
	UserChatID int64
	Period     string
	Amount     int
	PhotoRef   string // opaque transport attachment handle, empty when absent
	Status     PaymentStatus
	Reason     string
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// Username is populated by list queries that join users; it is not a
	// column of the payments table.
	Username string
}

func NewPendingPayment(userChatID int64, period string, amount int, photoRef string) (*Payment, error) {
	if userChatID <= 0 || period == "" || amount <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Payment{
		UserChatID: userChatID,
		Period:     period,
		Amount:     amount,
		PhotoRef:   photoRef,
		Status:     PaymentStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (p *Payment) HasPhoto() bool { return p != nil && p.PhotoRef != "" }

// PaymentSubmission is what the conversation flow hands to the lifecycle
// manager when a screenshot arrives in the waiting state.
type PaymentSubmission struct {
	Username string
	Period   string
	Amount   int
	PhotoRef string
}

package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound             = errors.New("entity not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrPendingPaymentExists = errors.New("user already has a pending payment")
	ErrNoPendingPayment     = errors.New("no pending payment for user")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrInvalidExecContext   = errors.New("invalid exec context")
	ErrForeignKeyViolation  = errors.New("foreign key violation")
	ErrReadDatabaseRow      = errors.New("failed to read database row")
	ErrBroadcastEmpty       = errors.New("broadcast message is empty")
	ErrAdminSurfaceDisabled = errors.New("admin surface is disabled")
)

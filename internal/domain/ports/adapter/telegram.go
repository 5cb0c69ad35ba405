// File: internal/domain/ports/adapter/telegram.go
package adapter

import "context"

type InlineButton struct {
	Text string
	Data string
	URL  string
}

// Messenger is the port for the chat transport. Photo references are opaque
// provider file ids; the adapter never downloads media.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	// SendMenu shows a persistent reply keyboard alongside the text.
	SendMenu(ctx context.Context, chatID int64, text string, rows [][]string) error
	SendButtons(ctx context.Context, chatID int64, text string, rows [][]InlineButton) error
	SendPhoto(ctx context.Context, chatID int64, photoRef, caption string, rows [][]InlineButton) error
	// EditCaption rewrites the caption of a previously sent message and
	// drops its inline keyboard.
	EditCaption(ctx context.Context, chatID int64, messageID int, caption string) error
	// Unreachable reports whether err means the recipient cannot receive
	// messages (blocked the bot or deactivated the account), as opposed
	// to a transient transport failure.
	Unreachable(err error) bool
}

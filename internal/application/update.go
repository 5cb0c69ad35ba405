package application

// Update is a transport-neutral view of one incoming Telegram update. The
// adapter fills exactly one of Text, PhotoRef or CallbackData per update;
// a photo may carry Text as its caption.
type Update struct {
	ChatID    int64
	Username  string
	FirstName string
	LastName  string

	Text         string
	PhotoRef     string
	CallbackData string
	// MessageID of the message the callback was attached to.
	MessageID int
}

func (u Update) IsCallback() bool { return u.CallbackData != "" }
func (u Update) HasPhoto() bool   { return u.PhotoRef != "" }

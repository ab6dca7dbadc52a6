package chat

import "time"

// Chat is a conversation thread, direct or group. UpdatedAt doubles as the
// last-activity timestamp and is advanced on every persisted message.
type Chat struct {
	ID        string    `db:"id"`
	Name      *string   `db:"name"`
	IsGroup   bool      `db:"is_group"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ChatSummary is a chat as it appears in a user's chat list: the chat plus
// its most recent message, if any.
type ChatSummary struct {
	Chat        Chat
	LastMessage *Message
}

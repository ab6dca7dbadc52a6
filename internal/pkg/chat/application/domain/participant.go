package chat

import "time"

// Participant captures chat membership.
// Primary key: (ChatID, UserID)
type Participant struct {
	ChatID    string    `db:"chat_id"`
	UserID    string    `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
}

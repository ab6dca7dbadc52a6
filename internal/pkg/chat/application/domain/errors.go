package chat

import "errors"

// Domain-level errors for chat behaviors
var (
	ErrChatNotFound        = errors.New("chat: chat does not exist")
	ErrNotParticipant      = errors.New("chat: sender is not a participant in the chat")
	ErrEmptyMessage        = errors.New("chat: empty message (no content or attachment)")
	ErrParticipantsInvalid = errors.New("chat: participant list is invalid")
)

package repo

import (
	"context"

	"nagadaibot/internal/biz/domain"
)

// MessageRepo is the outbound message interface. It is the only way the core
// talks back to the chat transport.
type MessageRepo interface {
	// SendText sends a plain text message to a chat.
	SendText(ctx context.Context, chatID, text string) error

	// SendChoices sends a text message with attached choice buttons.
	SendChoices(ctx context.Context, chatID, text string, choices []domain.Choice) error
}

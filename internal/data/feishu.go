package data

import (
	"context"

	"nagadaibot/internal/biz/domain"
	"nagadaibot/internal/biz/repo"
	"nagadaibot/internal/infra/feishu"
)

// feishuRepo implements the outbound message repository on the Feishu client
type feishuRepo struct {
	client *feishu.Client
}

// NewFeishuRepo creates a new Feishu message repository
func NewFeishuRepo(client *feishu.Client) repo.MessageRepo {
	return &feishuRepo{client: client}
}

// SendText sends a plain text message
func (r *feishuRepo) SendText(ctx context.Context, chatID, text string) error {
	return r.client.SendText(chatID, text)
}

// SendChoices sends a text message with attached choice buttons
func (r *feishuRepo) SendChoices(ctx context.Context, chatID, text string, choices []domain.Choice) error {
	buttons := make([]feishu.Button, 0, len(choices))
	for _, c := range choices {
		buttons = append(buttons, feishu.Button{Label: c.Label, Payload: c.Payload})
	}
	return r.client.SendButtons(chatID, text, buttons)
}

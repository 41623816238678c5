// Package feishu wraps the Lark open platform SDK behind the narrow surface
// the bot needs: receive text messages and card button presses over the
// websocket long connection, send text and button-card messages back.
package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher/callback"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	larkws "github.com/larksuite/oapi-sdk-go/v3/ws"
)

// Message represents a received text message
type Message struct {
	ChatID   string
	MsgID    string
	ChatType string // p2p, group
	Text     string
	SenderID string
}

// ButtonPress represents a pressed card button
type ButtonPress struct {
	ChatID   string
	SenderID string
	Payload  string // "<type>:<param>" callback encoding
}

// Button is a labelled card button carrying a callback payload
type Button struct {
	Label   string
	Payload string
}

// MessageHandler is the callback for received messages
type MessageHandler func(msg *Message)

// ButtonHandler is the callback for pressed buttons
type ButtonHandler func(press *ButtonPress)

// Client is the Feishu API client
type Client struct {
	appID     string
	appSecret string
	larkCli   *lark.Client
	wsCli     *larkws.Client
	onMessage MessageHandler
	onButton  ButtonHandler
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewClient creates a new Feishu client
func NewClient(appID, appSecret string) *Client {
	return &Client{
		appID:     appID,
		appSecret: appSecret,
	}
}

// OnMessage sets the message handler
func (c *Client) OnMessage(handler MessageHandler) {
	c.onMessage = handler
}

// OnButton sets the button press handler
func (c *Client) OnButton(handler ButtonHandler) {
	c.onButton = handler
}

// Start connects to Feishu via WebSocket and starts listening for events
func (c *Client) Start() error {
	c.ctx, c.cancel = context.WithCancel(context.Background())

	c.larkCli = lark.NewClient(c.appID, c.appSecret)

	// Handlers must return quickly so the SDK can ACK, otherwise Feishu
	// retries the event.
	eventHandler := dispatcher.NewEventDispatcher("", "").
		OnP2MessageReceiveV1(func(ctx context.Context, event *larkim.P2MessageReceiveV1) error {
			go c.handleMessage(event)
			return nil
		}).
		OnP2CardActionTrigger(func(ctx context.Context, event *callback.CardActionTriggerEvent) (*callback.CardActionTriggerResponse, error) {
			go c.handleCardAction(event)
			return &callback.CardActionTriggerResponse{}, nil
		})

	c.wsCli = larkws.NewClient(c.appID, c.appSecret,
		larkws.WithEventHandler(eventHandler),
		larkws.WithLogLevel(larkcore.LogLevelInfo),
	)

	// Start WebSocket (blocking)
	return c.wsCli.Start(c.ctx)
}

// Stop disconnects from Feishu
func (c *Client) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

// handleMessage processes incoming Feishu messages
func (c *Client) handleMessage(event *larkim.P2MessageReceiveV1) {
	rawMsg := event.Event.Message
	if rawMsg == nil {
		return
	}

	// Ignore the bot's own messages to prevent loops
	if event.Event.Sender != nil && event.Event.Sender.SenderType != nil {
		if *event.Event.Sender.SenderType == "app" {
			return
		}
	}

	// Only text messages carry dialog input; everything else is ignored
	if rawMsg.MessageType == nil || *rawMsg.MessageType != "text" {
		return
	}

	msg := &Message{
		ChatID: *rawMsg.ChatId,
		MsgID:  *rawMsg.MessageId,
	}
	if rawMsg.ChatType != nil {
		msg.ChatType = *rawMsg.ChatType
	}
	if event.Event.Sender != nil && event.Event.Sender.SenderId != nil && event.Event.Sender.SenderId.OpenId != nil {
		msg.SenderID = *event.Event.Sender.SenderId.OpenId
	}
	if rawMsg.Content != nil {
		msg.Text = parseTextContent(*rawMsg.Content)
	}

	if c.onMessage != nil {
		c.onMessage(msg)
	}
}

// handleCardAction processes a card button press
func (c *Client) handleCardAction(event *callback.CardActionTriggerEvent) {
	if event.Event == nil || event.Event.Action == nil {
		return
	}

	press := &ButtonPress{}
	if event.Event.Context != nil {
		press.ChatID = event.Event.Context.OpenChatID
	}
	if event.Event.Operator != nil {
		press.SenderID = event.Event.Operator.OpenID
	}
	if raw, ok := event.Event.Action.Value["payload"]; ok {
		if payload, ok := raw.(string); ok {
			press.Payload = payload
		}
	}
	if press.Payload == "" {
		return
	}

	if c.onButton != nil {
		c.onButton(press)
	}
}

// parseTextContent extracts text from a text message body
func parseTextContent(content string) string {
	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return ""
	}
	return strings.TrimSpace(parsed.Text)
}

// SendText sends a text message to a chat
func (c *Client) SendText(chatID, text string) error {
	content := map[string]string{"text": text}
	contentJSON, _ := json.Marshal(content)

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(larkim.ReceiveIdTypeChatId).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(chatID).
			MsgType(larkim.MsgTypeText).
			Content(string(contentJSON)).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Create(context.Background(), req)
	if err != nil {
		return fmt.Errorf("send message failed: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("send message error: %s", resp.Msg)
	}
	return nil
}

// SendButtons sends a text message with attached buttons as an interactive
// card. Each button's value carries the callback payload verbatim.
func (c *Client) SendButtons(chatID, text string, buttons []Button) error {
	actions := make([]map[string]interface{}, 0, len(buttons))
	for _, b := range buttons {
		actions = append(actions, map[string]interface{}{
			"tag":   "button",
			"text":  map[string]string{"tag": "plain_text", "content": b.Label},
			"type":  "default",
			"value": map[string]string{"payload": b.Payload},
		})
	}

	card := map[string]interface{}{
		"config": map[string]bool{"wide_screen_mode": true},
		"elements": []interface{}{
			map[string]interface{}{
				"tag":  "div",
				"text": map[string]string{"tag": "lark_md", "content": text},
			},
			map[string]interface{}{
				"tag":     "action",
				"actions": actions,
			},
		},
	}
	cardJSON, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("marshal card: %w", err)
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(larkim.ReceiveIdTypeChatId).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(chatID).
			MsgType(larkim.MsgTypeInteractive).
			Content(string(cardJSON)).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Create(context.Background(), req)
	if err != nil {
		return fmt.Errorf("send card failed: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("send card error: %s", resp.Msg)
	}
	return nil
}

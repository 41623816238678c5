package server

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"nagadaibot/internal/biz/domain"
	"nagadaibot/internal/biz/repo"
	"nagadaibot/internal/infra/feishu"
	"nagadaibot/internal/service"
)

// FeishuServer routes Feishu events into the conversation service and sends
// whatever the dialog produces back to the chat.
type FeishuServer struct {
	feishuClient *feishu.Client
	messageRepo  repo.MessageRepo
	convSvc      *service.ConversationService
	engine       *service.DeliveryEngine
	logger       *zap.Logger

	// Message deduplication cache: Feishu redelivers events on slow ACKs
	seenMsgsMu sync.Mutex
	seenMsgs   map[string]time.Time
}

// NewFeishuServer creates a new Feishu server
func NewFeishuServer(
	feishuClient *feishu.Client,
	messageRepo repo.MessageRepo,
	convSvc *service.ConversationService,
	engine *service.DeliveryEngine,
	logger *zap.Logger,
) *FeishuServer {
	return &FeishuServer{
		feishuClient: feishuClient,
		messageRepo:  messageRepo,
		convSvc:      convSvc,
		engine:       engine,
		logger:       logger,
		seenMsgs:     make(map[string]time.Time),
	}
}

// Start starts the delivery engine and the Feishu event loop (blocking).
func (s *FeishuServer) Start() error {
	if err := s.engine.Start(context.Background()); err != nil {
		return err
	}

	s.feishuClient.OnMessage(s.handleMessage)
	s.feishuClient.OnButton(s.handleButton)
	return s.feishuClient.Start()
}

// Stop stops the server
func (s *FeishuServer) Stop() {
	s.engine.Stop()
	s.feishuClient.Stop()
}

// handleMessage handles incoming text messages
func (s *FeishuServer) handleMessage(msg *feishu.Message) {
	if s.isMessageSeen(msg.MsgID) {
		s.logger.Debug("duplicate message ignored", zap.String("msg_id", msg.MsgID))
		return
	}
	s.markMessageSeen(msg.MsgID)

	ctx := context.Background()
	ownerID := msg.SenderID
	if ownerID == "" {
		return
	}

	var outbounds []domain.Outbound
	if name, ok := parseCommand(msg.Text); ok {
		outbounds = s.convSvc.HandleCommand(ctx, name, ownerID, msg.ChatID)
	} else {
		outbounds = s.convSvc.HandleText(ctx, ownerID, msg.ChatID, msg.Text)
	}

	s.send(ctx, outbounds)
}

// handleButton handles card button presses
func (s *FeishuServer) handleButton(press *feishu.ButtonPress) {
	ctx := context.Background()
	if press.SenderID == "" {
		return
	}

	outbounds := s.convSvc.HandleButton(ctx, press.SenderID, press.ChatID, press.Payload)
	s.send(ctx, outbounds)
}

func (s *FeishuServer) send(ctx context.Context, outbounds []domain.Outbound) {
	for _, out := range outbounds {
		var err error
		if len(out.Choices) > 0 {
			err = s.messageRepo.SendChoices(ctx, out.ChatID, out.Text, out.Choices)
		} else {
			err = s.messageRepo.SendText(ctx, out.ChatID, out.Text)
		}
		if err != nil {
			s.logger.Error("send message failed", zap.String("chat_id", out.ChatID), zap.Error(err))
		}
	}
}

// parseCommand extracts a command name from "/name" text.
func parseCommand(text string) (string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	name := strings.TrimPrefix(strings.Fields(text)[0], "/")
	if name == "" {
		return "", false
	}
	return strings.ToLower(name), true
}

// isMessageSeen checks the dedup cache
func (s *FeishuServer) isMessageSeen(msgID string) bool {
	s.seenMsgsMu.Lock()
	defer s.seenMsgsMu.Unlock()
	_, seen := s.seenMsgs[msgID]
	return seen
}

// markMessageSeen records a message id, pruning old entries
func (s *FeishuServer) markMessageSeen(msgID string) {
	s.seenMsgsMu.Lock()
	defer s.seenMsgsMu.Unlock()

	now := time.Now()
	s.seenMsgs[msgID] = now
	for id, t := range s.seenMsgs {
		if now.Sub(t) > 10*time.Minute {
			delete(s.seenMsgs, id)
		}
	}
}

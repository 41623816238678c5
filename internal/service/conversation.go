package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"nagadaibot/internal/biz/domain"
	"nagadaibot/internal/biz/usecase"
	"nagadaibot/internal/conf"
	"nagadaibot/internal/timeparse"
)

// ConversationService drives the per-owner reminder-creation dialog. It is
// the boundary where parser and store errors become user-facing messages.
type ConversationService struct {
	reminderUC  *usecase.ReminderUsecase
	loc         *time.Location
	idleTimeout time.Duration
	logger      *zap.Logger

	now func() time.Time

	slotsMu sync.Mutex
	slots   map[string]*ownerSlot
}

// ownerSlot serializes all dialog mutations for one owner. Different owners
// proceed in parallel.
type ownerSlot struct {
	mu      sync.Mutex
	session domain.Session
}

// NewConversationService creates a new conversation service.
func NewConversationService(
	reminderUC *usecase.ReminderUsecase,
	loc *time.Location,
	idleTimeout time.Duration,
	logger *zap.Logger,
) *ConversationService {
	return &ConversationService{
		reminderUC:  reminderUC,
		loc:         loc,
		idleTimeout: idleTimeout,
		logger:      logger,
		now:         time.Now,
		slots:       make(map[string]*ownerSlot),
	}
}

// slot returns the owner's dialog slot, creating it on first contact. A slot
// whose session sat idle past the timeout is reset before use.
func (s *ConversationService) slot(ownerID string) *ownerSlot {
	s.slotsMu.Lock()
	slot, ok := s.slots[ownerID]
	if !ok {
		slot = &ownerSlot{session: domain.Session{OwnerID: ownerID, State: domain.StateIdle, UpdatedAt: time.Now()}}
		s.slots[ownerID] = slot
	}
	s.slotsMu.Unlock()
	return slot
}

// HandleCommand processes a slash command.
func (s *ConversationService) HandleCommand(ctx context.Context, name, ownerID, chatID string) []domain.Outbound {
	switch name {
	case "start":
		return []domain.Outbound{domain.TextMessage(chatID, conf.MsgWelcome)}
	case "help":
		return []domain.Outbound{domain.TextMessage(chatID, conf.MsgHelp)}
	case "new":
		return s.startNewReminder(ownerID, chatID)
	case "list":
		return s.listReminders(ctx, ownerID, chatID)
	case "cancel":
		return s.cancelDialog(ownerID, chatID)
	default:
		return []domain.Outbound{domain.TextMessage(chatID, conf.MsgUnknownCommand)}
	}
}

// startNewReminder enters the creation dialog, unconditionally abandoning
// any dialog already in progress for this owner.
func (s *ConversationService) startNewReminder(ownerID, chatID string) []domain.Outbound {
	slot := s.slot(ownerID)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	slot.session.Reset()
	slot.session.ChatID = chatID
	slot.session.State = domain.StateAwaitingText

	return []domain.Outbound{domain.TextMessage(chatID, conf.MsgReminderText)}
}

func (s *ConversationService) listReminders(ctx context.Context, ownerID, chatID string) []domain.Outbound {
	reminders, err := s.reminderUC.ListUpcoming(ctx, ownerID)
	if err != nil {
		s.logger.Error("list reminders failed", zap.String("owner", ownerID), zap.Error(err))
		return []domain.Outbound{domain.TextMessage(chatID, conf.MsgGenericError)}
	}
	if len(reminders) == 0 {
		return []domain.Outbound{domain.TextMessage(chatID, conf.MsgNoReminders)}
	}

	var sb strings.Builder
	sb.WriteString(conf.MsgListHeader)
	sb.WriteString("\n")
	for _, r := range reminders {
		sb.WriteString("\n🔔 ")
		sb.WriteString(timeparse.FormatDue(r.DueAt, s.loc))
		sb.WriteString("\n")
		sb.WriteString(r.Text)
		sb.WriteString("\n")
	}
	return []domain.Outbound{domain.TextMessage(chatID, sb.String())}
}

func (s *ConversationService) cancelDialog(ownerID, chatID string) []domain.Outbound {
	slot := s.slot(ownerID)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.session.State == domain.StateIdle {
		return []domain.Outbound{domain.TextMessage(chatID, conf.MsgNothingToCancel)}
	}
	slot.session.Reset()
	return []domain.Outbound{domain.TextMessage(chatID, conf.MsgCancelled)}
}

// HandleText processes a free-text message from an owner.
func (s *ConversationService) HandleText(ctx context.Context, ownerID, chatID, text string) []domain.Outbound {
	slot := s.slot(ownerID)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.session.IsStale(s.idleTimeout) {
		slot.session.Reset()
	}
	slot.session.Touch()

	switch slot.session.State {
	case domain.StateAwaitingText:
		text = strings.TrimSpace(text)
		if text == "" {
			return []domain.Outbound{domain.TextMessage(chatID, conf.MsgReminderText)}
		}
		slot.session.DraftText = text
		slot.session.ChatID = chatID
		slot.session.State = domain.StateAwaitingTimeChoice
		return []domain.Outbound{s.timeChoiceMessage(chatID)}

	case domain.StateAwaitingTimeChoice:
		// The user typed instead of pressing a button; offer the buttons again.
		return []domain.Outbound{s.timeChoiceMessage(chatID)}

	case domain.StateAwaitingAbsoluteTime:
		return s.commitWithParser(ctx, slot, chatID, text, timeparse.ParseAbsolute)

	case domain.StateAwaitingRelativeTime:
		return s.commitWithParser(ctx, slot, chatID, text, timeparse.ParseRelative)

	case domain.StateAwaitingSnoozeTime:
		return s.snoozeWithInput(ctx, slot, chatID, text)

	default:
		// Stray text outside any dialog is ignored.
		return nil
	}
}

func (s *ConversationService) timeChoiceMessage(chatID string) domain.Outbound {
	return domain.ChoiceMessage(chatID, conf.MsgChooseTime,
		domain.Choice{Label: conf.BtnSpecificTime, Payload: domain.Callback{Type: domain.CallbackTimeType, Param: domain.TimeTypeSpecific}.Encode()},
		domain.Choice{Label: conf.BtnDelayTime, Payload: domain.Callback{Type: domain.CallbackTimeType, Param: domain.TimeTypeDelay}.Encode()},
	)
}

// commitWithParser runs the matching time parser over the input and, on
// success, commits the drafted reminder. A parse failure re-prompts without
// changing state so the user can retry in place.
func (s *ConversationService) commitWithParser(
	ctx context.Context,
	slot *ownerSlot,
	chatID, text string,
	parse func(string, time.Time) (time.Time, error),
) []domain.Outbound {
	dueAt, err := parse(text, s.now().In(s.loc))
	if err != nil {
		return []domain.Outbound{domain.TextMessage(chatID, conf.MsgInvalidTime)}
	}

	reminder, err := s.reminderUC.Create(ctx, slot.session.OwnerID, slot.session.ChatID, slot.session.DraftText, dueAt)
	if err != nil {
		// Storage failure: tell the user, keep the dialog so the same input
		// type can be retried.
		s.logger.Error("create reminder failed", zap.String("owner", slot.session.OwnerID), zap.Error(err))
		return []domain.Outbound{domain.TextMessage(chatID, conf.MsgGenericError)}
	}

	slot.session.Reset()
	s.logger.Info("reminder created",
		zap.Int64("id", reminder.ID),
		zap.String("owner", reminder.OwnerID),
		zap.Time("due_at", reminder.DueAt))
	return []domain.Outbound{domain.TextMessage(chatID, fmt.Sprintf(conf.MsgReminderSet, timeparse.FormatDue(dueAt, s.loc)))}
}

func (s *ConversationService) snoozeWithInput(ctx context.Context, slot *ownerSlot, chatID, text string) []domain.Outbound {
	dueAt, err := timeparse.ParseRelative(text, s.now().In(s.loc))
	if err != nil {
		return []domain.Outbound{domain.TextMessage(chatID, conf.MsgInvalidTime)}
	}

	id := slot.session.PendingReminderID
	err = s.reminderUC.Snooze(ctx, id, slot.session.OwnerID, dueAt)
	slot.session.Reset()
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return []domain.Outbound{domain.TextMessage(chatID, conf.MsgReminderNotFound)}
		}
		s.logger.Error("snooze reminder failed", zap.Int64("id", id), zap.Error(err))
		return []domain.Outbound{domain.TextMessage(chatID, conf.MsgGenericError)}
	}
	return []domain.Outbound{domain.TextMessage(chatID, fmt.Sprintf(conf.MsgSnoozed, timeparse.FormatDue(dueAt, s.loc)))}
}

// HandleButton processes a button press. Payloads use the "<type>:<param>"
// encoding.
func (s *ConversationService) HandleButton(ctx context.Context, ownerID, chatID, payload string) []domain.Outbound {
	cb, err := domain.ParseCallback(payload)
	if err != nil {
		s.logger.Warn("unknown callback payload", zap.String("owner", ownerID), zap.String("payload", payload))
		return []domain.Outbound{domain.TextMessage(chatID, conf.MsgGenericError)}
	}

	switch cb.Type {
	case domain.CallbackTimeType:
		return s.chooseTimeType(ownerID, chatID, cb.Param)
	case domain.CallbackDeleteReminder:
		return s.deleteByButton(ctx, ownerID, chatID, cb)
	case domain.CallbackSnoozeReminder:
		return s.startSnooze(ctx, ownerID, chatID, cb)
	default:
		return []domain.Outbound{domain.TextMessage(chatID, conf.MsgGenericError)}
	}
}

func (s *ConversationService) chooseTimeType(ownerID, chatID, param string) []domain.Outbound {
	slot := s.slot(ownerID)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.session.IsStale(s.idleTimeout) {
		slot.session.Reset()
	}

	// A time-type button from an abandoned or expired dialog is stale;
	// ignore it.
	if slot.session.State != domain.StateAwaitingTimeChoice {
		return nil
	}
	slot.session.Touch()

	switch param {
	case domain.TimeTypeSpecific:
		slot.session.State = domain.StateAwaitingAbsoluteTime
		return []domain.Outbound{domain.TextMessage(chatID, conf.MsgEnterSpecific)}
	case domain.TimeTypeDelay:
		slot.session.State = domain.StateAwaitingRelativeTime
		return []domain.Outbound{domain.TextMessage(chatID, conf.MsgEnterDelay)}
	default:
		s.logger.Warn("unknown time type param", zap.String("param", param))
		return []domain.Outbound{domain.TextMessage(chatID, conf.MsgGenericError)}
	}
}

func (s *ConversationService) deleteByButton(ctx context.Context, ownerID, chatID string, cb domain.Callback) []domain.Outbound {
	id, err := cb.ReminderID()
	if err != nil {
		return []domain.Outbound{domain.TextMessage(chatID, conf.MsgReminderNotFound)}
	}

	if err := s.reminderUC.Delete(ctx, id, ownerID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return []domain.Outbound{domain.TextMessage(chatID, conf.MsgReminderNotFound)}
		}
		s.logger.Error("delete reminder failed", zap.Int64("id", id), zap.Error(err))
		return []domain.Outbound{domain.TextMessage(chatID, conf.MsgGenericError)}
	}
	return []domain.Outbound{domain.TextMessage(chatID, conf.MsgReminderDeleted)}
}

func (s *ConversationService) startSnooze(ctx context.Context, ownerID, chatID string, cb domain.Callback) []domain.Outbound {
	id, err := cb.ReminderID()
	if err != nil {
		return []domain.Outbound{domain.TextMessage(chatID, conf.MsgReminderNotFound)}
	}

	slot := s.slot(ownerID)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	slot.session.Reset()
	slot.session.ChatID = chatID
	slot.session.PendingReminderID = id
	slot.session.State = domain.StateAwaitingSnoozeTime
	return []domain.Outbound{domain.TextMessage(chatID, conf.MsgEnterSnooze)}
}

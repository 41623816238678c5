package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"nagadaibot/internal/biz/domain"
	"nagadaibot/internal/biz/repo"
	"nagadaibot/internal/conf"
)

// DeliverFunc sends one matured reminder to its chat.
type DeliverFunc func(ctx context.Context, reminder *domain.Reminder) error

// DeliveryEngine fires reminders at their due time. The persisted due time
// is the source of truth: in-memory timers give sub-second responsiveness,
// and a periodic sweep over the store guarantees nothing is lost to a crash
// or a failed Schedule call. The status re-check under fire() plus the
// in-flight set keep each reminder at exactly one delivery even when a
// timer and a sweep race.
type DeliveryEngine struct {
	reminderRepo repo.ReminderRepo
	deliver      DeliverFunc
	logger       *zap.Logger

	sweepInterval time.Duration
	maxAttempts   int
	retryBackoff  time.Duration

	mu       sync.Mutex
	timers   map[int64]*time.Timer
	inflight map[int64]struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDeliveryEngine creates a new delivery engine.
func NewDeliveryEngine(
	reminderRepo repo.ReminderRepo,
	deliver DeliverFunc,
	cfg conf.DeliveryConfig,
	logger *zap.Logger,
) *DeliveryEngine {
	return &DeliveryEngine{
		reminderRepo:  reminderRepo,
		deliver:       deliver,
		logger:        logger,
		sweepInterval: cfg.SweepInterval,
		maxAttempts:   cfg.MaxAttempts,
		retryBackoff:  cfg.RetryBackoff,
		timers:        make(map[int64]*time.Timer),
		inflight:      make(map[int64]struct{}),
	}
}

// Start re-arms timers for every Active reminder and begins the sweep loop.
// Reminders that matured while the process was down fire on the first sweep.
func (e *DeliveryEngine) Start(ctx context.Context) error {
	e.ctx, e.cancel = context.WithCancel(ctx)

	active, err := e.reminderRepo.ListActive(e.ctx)
	if err != nil {
		return fmt.Errorf("list active reminders: %w", err)
	}
	for _, r := range active {
		e.Schedule(r.ID, r.DueAt)
	}

	e.wg.Add(1)
	go e.sweepLoop()

	e.logger.Info("delivery engine started",
		zap.Int("rearmed", len(active)),
		zap.Duration("sweep_interval", e.sweepInterval))
	return nil
}

// Stop cancels all timers and waits for in-progress deliveries.
func (e *DeliveryEngine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}

	e.mu.Lock()
	for id, timer := range e.timers {
		timer.Stop()
		delete(e.timers, id)
	}
	e.mu.Unlock()

	e.wg.Wait()
	e.logger.Info("delivery engine stopped")
}

// Schedule arms the in-memory timer for a reminder, replacing any previous
// timer for the same id so at most one exists per reminder.
func (e *DeliveryEngine) Schedule(id int64, dueAt time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if old, ok := e.timers[id]; ok {
		old.Stop()
	}
	e.timers[id] = time.AfterFunc(time.Until(dueAt), func() {
		// Join the WaitGroup before firing so Stop waits for timer-initiated
		// deliveries too. The ctx check under the lock keeps the Add from
		// racing past a Stop already in Wait.
		e.mu.Lock()
		if e.ctx == nil || e.ctx.Err() != nil {
			e.mu.Unlock()
			return
		}
		e.wg.Add(1)
		e.mu.Unlock()
		defer e.wg.Done()
		e.fire(id)
	})
}

// Cancel drops the reminder's timer. The status check in fire() covers the
// window where the timer has already gone off.
func (e *DeliveryEngine) Cancel(id int64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if timer, ok := e.timers[id]; ok {
		timer.Stop()
		delete(e.timers, id)
	}
}

// Reschedule moves the reminder's timer to a new due time.
func (e *DeliveryEngine) Reschedule(id int64, dueAt time.Time) {
	e.Schedule(id, dueAt)
}

func (e *DeliveryEngine) sweepLoop() {
	defer e.wg.Done()

	// Initial sweep catches reminders that matured during downtime.
	e.sweep()

	ticker := time.NewTicker(e.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.sweep()
		}
	}
}

// sweep queries the store for matured Active reminders and fires each one
// that is not already being delivered.
func (e *DeliveryEngine) sweep() {
	due, err := e.reminderRepo.ListDue(e.ctx, time.Now())
	if err != nil {
		e.logger.Error("sweep query failed", zap.Error(err))
		return
	}

	for _, r := range due {
		id := r.ID
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.fire(id)
		}()
	}
}

// claim marks the id as in delivery. At most one goroutine holds the claim,
// so a timer firing concurrently with a sweep cannot double-deliver.
func (e *DeliveryEngine) claim(id int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, busy := e.inflight[id]; busy {
		return false
	}
	e.inflight[id] = struct{}{}
	if timer, ok := e.timers[id]; ok {
		timer.Stop()
		delete(e.timers, id)
	}
	return true
}

func (e *DeliveryEngine) release(id int64) {
	e.mu.Lock()
	delete(e.inflight, id)
	e.mu.Unlock()
}

// fire delivers one reminder: re-read the record, skip unless still Active,
// send with bounded retry, then mark delivered. A terminal send failure
// leaves the record Active so the next sweep retries it.
func (e *DeliveryEngine) fire(id int64) {
	if !e.claim(id) {
		return
	}
	defer e.release(id)

	ctx := e.ctx
	if ctx == nil || ctx.Err() != nil {
		return
	}

	reminder, err := e.reminderRepo.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		// Deleted between arming and firing.
		return
	}
	if err != nil {
		e.logger.Error("load reminder failed", zap.Int64("id", id), zap.Error(err))
		return
	}
	if !reminder.IsActive() {
		return
	}
	if reminder.DueAt.After(time.Now()) {
		// Snoozed after this timer was armed; the new timer covers it.
		return
	}

	if err := e.attemptDelivery(ctx, reminder); err != nil {
		e.logger.Error("reminder delivery failed, will retry on next sweep",
			zap.Int64("id", id),
			zap.Int("attempts", e.maxAttempts),
			zap.Error(err))
		return
	}

	if err := e.reminderRepo.MarkDelivered(ctx, id); err != nil {
		e.logger.Error("mark delivered failed", zap.Int64("id", id), zap.Error(err))
		return
	}

	e.logger.Info("reminder delivered", zap.Int64("id", id), zap.String("owner", reminder.OwnerID))
}

// attemptDelivery sends with doubling backoff between attempts.
func (e *DeliveryEngine) attemptDelivery(ctx context.Context, reminder *domain.Reminder) error {
	backoff := e.retryBackoff
	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		lastErr = e.deliver(ctx, reminder)
		if lastErr == nil {
			return nil
		}
		if attempt == e.maxAttempts {
			break
		}
		e.logger.Warn("delivery attempt failed",
			zap.Int64("id", reminder.ID),
			zap.Int("attempt", attempt),
			zap.Error(lastErr))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return lastErr
}

// NewReminderDeliverer builds the delivery callback: the fired message plus
// the delete/snooze management buttons.
func NewReminderDeliverer(messageRepo repo.MessageRepo) DeliverFunc {
	return func(ctx context.Context, reminder *domain.Reminder) error {
		text := fmt.Sprintf(conf.MsgFired, reminder.Text)
		choices := []domain.Choice{
			{Label: conf.BtnDelete, Payload: domain.DeleteCallback(reminder.ID).Encode()},
			{Label: conf.BtnSnooze, Payload: domain.SnoozeCallback(reminder.ID).Encode()},
		}
		return messageRepo.SendChoices(ctx, reminder.ChatID, text, choices)
	}
}

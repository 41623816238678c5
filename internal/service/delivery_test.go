package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"nagadaibot/internal/biz/domain"
	"nagadaibot/internal/conf"
)

type countingDeliverer struct {
	mu       sync.Mutex
	calls    map[int64]int
	failures map[int64]int // remaining failures before succeeding
	failAll  bool
}

func newCountingDeliverer() *countingDeliverer {
	return &countingDeliverer{
		calls:    make(map[int64]int),
		failures: make(map[int64]int),
	}
}

func (d *countingDeliverer) deliver(ctx context.Context, reminder *domain.Reminder) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls[reminder.ID]++
	if d.failAll {
		return errors.New("transport down")
	}
	if d.failures[reminder.ID] > 0 {
		d.failures[reminder.ID]--
		return errors.New("transient send failure")
	}
	return nil
}

func (d *countingDeliverer) count(id int64) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[id]
}

func newTestEngine(repo *mockReminderRepo, d *countingDeliverer, sweep time.Duration) *DeliveryEngine {
	return NewDeliveryEngine(repo, d.deliver, conf.DeliveryConfig{
		SweepInterval: sweep,
		MaxAttempts:   3,
		RetryBackoff:  5 * time.Millisecond,
	}, zap.NewNop())
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func reminderStatus(t *testing.T, repo *mockReminderRepo, id int64) domain.ReminderStatus {
	t.Helper()
	r, err := repo.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	return r.Status
}

func TestTimerDelivery_ExactlyOnce(t *testing.T) {
	repo := newMockReminderRepo()
	d := newCountingDeliverer()
	// Sweep far away: only the in-memory timer can fire
	engine := newTestEngine(repo, d, time.Hour)

	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer engine.Stop()

	r, err := repo.Add(context.Background(), "owner-1", "chat-1", "x", time.Now().Add(30*time.Millisecond))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	engine.Schedule(r.ID, r.DueAt)

	if !waitFor(t, time.Second, func() bool { return reminderStatus(t, repo, r.ID) == domain.StatusDelivered }) {
		t.Fatal("reminder was not delivered")
	}

	// Give a racing double-fire time to show up
	time.Sleep(50 * time.Millisecond)
	if got := d.count(r.ID); got != 1 {
		t.Errorf("delivered %d times, want exactly once", got)
	}
}

func TestSweepDeliversMaturedDuringDowntime(t *testing.T) {
	repo := newMockReminderRepo()
	d := newCountingDeliverer()

	// The reminder matured before the engine existed, as after a restart
	r, err := repo.Add(context.Background(), "owner-1", "chat-1", "x", time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	engine := newTestEngine(repo, d, 20*time.Millisecond)
	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer engine.Stop()

	if !waitFor(t, time.Second, func() bool { return reminderStatus(t, repo, r.ID) == domain.StatusDelivered }) {
		t.Fatal("matured reminder was not delivered after startup")
	}

	time.Sleep(60 * time.Millisecond)
	if got := d.count(r.ID); got != 1 {
		t.Errorf("delivered %d times, want exactly once", got)
	}
}

func TestConcurrentSameInstantReminders(t *testing.T) {
	repo := newMockReminderRepo()
	d := newCountingDeliverer()
	engine := newTestEngine(repo, d, 20*time.Millisecond)

	dueAt := time.Now().Add(30 * time.Millisecond)
	ctx := context.Background()
	a, err := repo.Add(ctx, "owner-1", "chat-1", "a", dueAt)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	b, err := repo.Add(ctx, "owner-1", "chat-1", "b", dueAt)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := engine.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer engine.Stop()

	ok := waitFor(t, time.Second, func() bool {
		return reminderStatus(t, repo, a.ID) == domain.StatusDelivered &&
			reminderStatus(t, repo, b.ID) == domain.StatusDelivered
	})
	if !ok {
		t.Fatal("both reminders should deliver")
	}

	time.Sleep(60 * time.Millisecond)
	if d.count(a.ID) != 1 || d.count(b.ID) != 1 {
		t.Errorf("delivery counts = %d/%d, want 1/1", d.count(a.ID), d.count(b.ID))
	}
}

func TestTransientFailureRetried(t *testing.T) {
	repo := newMockReminderRepo()
	d := newCountingDeliverer()
	engine := newTestEngine(repo, d, time.Hour)

	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer engine.Stop()

	r, err := repo.Add(context.Background(), "owner-1", "chat-1", "x", time.Now().Add(10*time.Millisecond))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	d.mu.Lock()
	d.failures[r.ID] = 2 // fails twice, succeeds on the third attempt
	d.mu.Unlock()
	engine.Schedule(r.ID, r.DueAt)

	if !waitFor(t, time.Second, func() bool { return reminderStatus(t, repo, r.ID) == domain.StatusDelivered }) {
		t.Fatal("reminder should deliver after transient failures")
	}
	if got := d.count(r.ID); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestTerminalFailureLeavesSweepCoverage(t *testing.T) {
	repo := newMockReminderRepo()
	d := newCountingDeliverer()
	d.failAll = true
	engine := newTestEngine(repo, d, 30*time.Millisecond)

	r, err := repo.Add(context.Background(), "owner-1", "chat-1", "x", time.Now().Add(-time.Second))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer engine.Stop()

	// Exhausts its attempts, then a later sweep picks it up again
	if !waitFor(t, time.Second, func() bool { return d.count(r.ID) > 3 }) {
		t.Fatalf("failed reminder should be retried by later sweeps, attempts = %d", d.count(r.ID))
	}
	if got := reminderStatus(t, repo, r.ID); got != domain.StatusActive {
		t.Errorf("status = %v, want still Active while undeliverable", got)
	}
}

func TestStaleTimerDoesNotDeliverInactiveReminder(t *testing.T) {
	repo := newMockReminderRepo()
	d := newCountingDeliverer()
	engine := newTestEngine(repo, d, time.Hour)

	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer engine.Stop()

	r, err := repo.Add(context.Background(), "owner-1", "chat-1", "x", time.Now().Add(30*time.Millisecond))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	engine.Schedule(r.ID, r.DueAt)

	// Cancelled in the store while the timer is still armed
	repo.setStatus(r.ID, domain.StatusCancelled)

	time.Sleep(150 * time.Millisecond)
	if got := d.count(r.ID); got != 0 {
		t.Errorf("cancelled reminder delivered %d times, want 0", got)
	}
}

func TestSnoozedTimerDefersToNewDueTime(t *testing.T) {
	repo := newMockReminderRepo()
	d := newCountingDeliverer()
	engine := newTestEngine(repo, d, time.Hour)

	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer engine.Stop()

	ctx := context.Background()
	r, err := repo.Add(ctx, "owner-1", "chat-1", "x", time.Now().Add(30*time.Millisecond))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	engine.Schedule(r.ID, r.DueAt)

	// Snoozed far into the future; the old timer must not fire the reminder
	if err := repo.UpdateDueAt(ctx, r.ID, "owner-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("UpdateDueAt: %v", err)
	}
	engine.Reschedule(r.ID, time.Now().Add(time.Hour))

	time.Sleep(150 * time.Millisecond)
	if got := d.count(r.ID); got != 0 {
		t.Errorf("snoozed reminder delivered %d times before its new due time, want 0", got)
	}
	if got := reminderStatus(t, repo, r.ID); got != domain.StatusActive {
		t.Errorf("status = %v, want Active", got)
	}
}

func TestStopWaitsForInFlightTimerDelivery(t *testing.T) {
	repo := newMockReminderRepo()
	started := make(chan struct{})
	release := make(chan struct{})
	deliver := func(ctx context.Context, reminder *domain.Reminder) error {
		close(started)
		<-release
		return nil
	}
	engine := NewDeliveryEngine(repo, deliver, conf.DeliveryConfig{
		SweepInterval: time.Hour,
		MaxAttempts:   1,
		RetryBackoff:  time.Millisecond,
	}, zap.NewNop())

	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	r, err := repo.Add(context.Background(), "owner-1", "chat-1", "x", time.Now().Add(10*time.Millisecond))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	engine.Schedule(r.ID, r.DueAt)

	// The timer fired and the send is blocked mid-flight
	<-started
	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()

	// Stop must block until the delivery finishes and the record is marked
	engine.Stop()
	if got := reminderStatus(t, repo, r.ID); got != domain.StatusDelivered {
		t.Errorf("status after Stop = %v, want Delivered", got)
	}
}

func TestCancelDropsTimer(t *testing.T) {
	repo := newMockReminderRepo()
	d := newCountingDeliverer()
	engine := newTestEngine(repo, d, time.Hour)

	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer engine.Stop()

	ctx := context.Background()
	r, err := repo.Add(ctx, "owner-1", "chat-1", "x", time.Now().Add(30*time.Millisecond))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	engine.Schedule(r.ID, r.DueAt)

	if _, err := repo.Delete(ctx, r.ID, "owner-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	engine.Cancel(r.ID)

	time.Sleep(150 * time.Millisecond)
	if got := d.count(r.ID); got != 0 {
		t.Errorf("deleted reminder delivered %d times, want 0", got)
	}
}

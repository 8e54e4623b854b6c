package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DueProcessor runs one reminder scan.
type DueProcessor interface {
	ProcessDue(ctx context.Context, now time.Time) (int, error)
}

// ReminderScheduler runs the processor on a cron schedule. Runs never
// overlap; a tick that fires while a scan is still going is skipped.
type ReminderScheduler struct {
	processor DueProcessor
	schedule  string
	timeout   time.Duration

	mu   sync.Mutex
	cron *cron.Cron
	stop context.CancelFunc
}

func NewReminderScheduler(processor DueProcessor, schedule string, timeout time.Duration) *ReminderScheduler {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &ReminderScheduler{processor: processor, schedule: schedule, timeout: timeout}
}

// Start registers the job and starts the scheduler.
func (s *ReminderScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return fmt.Errorf("reminder scheduler is already running")
	}

	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	runCtx, stop := context.WithCancel(ctx)
	if _, err := c.AddFunc(s.schedule, func() { s.RunOnce(runCtx) }); err != nil {
		stop()
		return fmt.Errorf("invalid schedule %q: %w", s.schedule, err)
	}

	s.cron, s.stop = c, stop
	c.Start()

	slog.InfoContext(ctx, "Reminder scheduler started", "schedule", s.schedule)
	return nil
}

// RunOnce performs a single scan with the configured timeout.
func (s *ReminderScheduler) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	sent, err := s.processor.ProcessDue(ctx, start)
	if err != nil {
		slog.ErrorContext(ctx, "Reminder scan failed", "error", err)
		return
	}
	slog.InfoContext(ctx, "Reminder scan finished",
		"sent", sent,
		"duration", time.Since(start))
}

// Stop halts the schedule and waits for a running scan to finish or ctx to
// expire.
func (s *ReminderScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c, stop := s.cron, s.stop
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}

	done := c.Stop().Done()
	select {
	case <-done:
		stop()
		slog.InfoContext(ctx, "Reminder scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		stop()
		slog.WarnContext(ctx, "Reminder scheduler stop timed out")
		return ctx.Err()
	}
}

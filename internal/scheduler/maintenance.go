package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/shelfshare/internal/logging"
	"github.com/mrlokans/shelfshare/internal/tasks"
)

// DefaultSchedule runs maintenance daily at 03:00.
const DefaultSchedule = "0 3 * * *"

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule checks a five-field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// MaintenanceScheduler periodically queues the invitation purge and audit cleanup tasks.
type MaintenanceScheduler struct {
	queue               tasks.Enqueuer
	schedule            string
	invitationRetention time.Duration
	auditRetentionDays  int
	log                 *logrus.Entry

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewMaintenanceScheduler creates a new scheduler instance. An empty schedule
// falls back to DefaultSchedule.
func NewMaintenanceScheduler(queue tasks.Enqueuer, schedule string, invitationRetention time.Duration, auditRetentionDays int) *MaintenanceScheduler {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &MaintenanceScheduler{
		queue:               queue,
		schedule:            schedule,
		invitationRetention: invitationRetention,
		auditRetentionDays:  auditRetentionDays,
		log:                 logging.Component("scheduler"),
		cron:                cron.New(cron.WithParser(parser)),
	}
}

// Start begins the scheduler. It stops on its own when ctx is cancelled.
func (s *MaintenanceScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if err := ValidateSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		if err := s.RunNow(context.Background()); err != nil {
			s.log.WithError(err).Error("maintenance run failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule maintenance job: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	s.log.WithFields(logrus.Fields{
		"schedule": s.schedule,
		"next_run": s.cron.Entry(entryID).Next,
	}).Info("maintenance scheduler started")

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop waits for a running job and stops the scheduler.
func (s *MaintenanceScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.cron.Remove(s.entryID)
	s.isRunning = false
	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}

	s.log.Info("maintenance scheduler stopped")
}

// RunNow queues one round of maintenance immediately.
func (s *MaintenanceScheduler) RunNow(ctx context.Context) error {
	purgeID, err := s.queue.Enqueue(ctx, tasks.PurgeInvitationsTask{Retention: s.invitationRetention})
	if err != nil {
		return fmt.Errorf("queue invitation purge: %w", err)
	}
	pruneID, err := s.queue.Enqueue(ctx, tasks.PruneAuditTrailTask{RetentionDays: s.auditRetentionDays})
	if err != nil {
		return fmt.Errorf("queue audit pruning: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"purge_task": purgeID,
		"prune_task": pruneID,
	}).Info("maintenance queued")
	return nil
}

func (s *MaintenanceScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns when maintenance will next be queued, or nil when stopped.
func (s *MaintenanceScheduler) NextRun() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	t := s.cron.Entry(s.entryID).Next
	return &t
}

package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ScanEnqueuer puts an overdue scan on the task queue.
type ScanEnqueuer interface {
	EnqueueOverdueScan(trigger string) (string, error)
}

// OverdueScanScheduler enqueues the overdue scan on a cron schedule.
type OverdueScanScheduler struct {
	queue    ScanEnqueuer
	schedule string

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	lastTaskID string
	lastRunAt  time.Time
}

func NewOverdueScanScheduler(queue ScanEnqueuer, schedule string) *OverdueScanScheduler {
	return &OverdueScanScheduler{
		queue:    queue,
		schedule: schedule,
		cron:     cron.New(cron.WithParser(scheduleParser)),
	}
}

// Start registers the cron job and stops it when ctx is cancelled.
func (s *OverdueScanScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if err := ValidateCronSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.RunNow("schedule"); err != nil {
			log.Printf("Overdue scan scheduler: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule overdue scan: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.isRunning = true

	nextRun, _ := NextRunTime(s.schedule, time.Now())
	log.Printf("Overdue scan scheduler: started with schedule '%s'. Next run: %v", s.schedule, nextRun)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop waits for a running job and removes the schedule.
func (s *OverdueScanScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	entryID := s.entryID
	s.mu.Unlock()

	// The job takes s.mu in RunNow, so wait for it unlocked.
	done := s.cron.Stop()
	<-done.Done()
	s.cron.Remove(entryID)

	log.Printf("Overdue scan scheduler: stopped")
}

// RunNow enqueues a scan immediately and returns the task ID.
func (s *OverdueScanScheduler) RunNow(trigger string) (string, error) {
	id, err := s.queue.EnqueueOverdueScan(trigger)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.lastTaskID = id
	s.lastRunAt = time.Now()
	s.mu.Unlock()

	log.Printf("Overdue scan scheduler: enqueued task %s (%s)", id, trigger)
	return id, nil
}

func (s *OverdueScanScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// LastTaskID returns the most recently enqueued scan, empty if none yet.
func (s *OverdueScanScheduler) LastTaskID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastTaskID
}

// GetNextRunTime returns when the next scan will be enqueued, nil when stopped.
func (s *OverdueScanScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

// ValidateCronSchedule checks a five-field cron expression.
func ValidateCronSchedule(schedule string) error {
	_, err := scheduleParser.Parse(schedule)
	return err
}

// NextRunTime calculates the first activation of schedule after from.
func NextRunTime(schedule string, from time.Time) (time.Time, error) {
	sched, err := scheduleParser.Parse(schedule)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(from), nil
}

package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/librarydesk/internal/entities"
	"github.com/mrlokans/librarydesk/internal/ledger"
)

// OverdueSource lists the loans that currently owe fees.
type OverdueSource interface {
	OverdueLoans(ctx context.Context) ([]ledger.OverdueLoan, error)
}

// NoticeRecorder persists overdue notices, ignoring ones already written.
type NoticeRecorder interface {
	RecordOverdueNotices(ctx context.Context, notices []entities.OverdueNotice) (int64, error)
}

// OverdueScanTask writes one notice per overdue loan and week count.
type OverdueScanTask struct {
	Trigger string `json:"trigger,omitempty"` // "schedule", "api" or "cli"
}

func (t OverdueScanTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "overdue_scan",
		MaxAttempts: 3,
		Backoff:     time.Minute,
		Timeout:     5 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ScanResult summarizes one overdue scan.
type ScanResult struct {
	Overdue    int   `json:"overdue"`
	NewNotices int64 `json:"new_notices"`
}

// ScanOverdueLoans records a notice for every overdue loan. Running it again
// without a change in weeks overdue writes nothing new.
func ScanOverdueLoans(ctx context.Context, source OverdueSource, recorder NoticeRecorder) (ScanResult, error) {
	loans, err := source.OverdueLoans(ctx)
	if err != nil {
		return ScanResult{}, fmt.Errorf("list overdue loans: %w", err)
	}

	notices := make([]entities.OverdueNotice, 0, len(loans))
	for _, loan := range loans {
		notices = append(notices, entities.OverdueNotice{
			Email:      loan.Email,
			DocumentID: loan.DocumentID,
			LendDate:   loan.LendDate,
			Weeks:      loan.WeeksOverdue,
			FeeDue:     loan.FeeDue,
		})
	}

	created, err := recorder.RecordOverdueNotices(ctx, notices)
	if err != nil {
		return ScanResult{}, fmt.Errorf("record overdue notices: %w", err)
	}
	return ScanResult{Overdue: len(loans), NewNotices: created}, nil
}

// OverdueScanProcessor creates a processor function for OverdueScanTask.
func OverdueScanProcessor(source OverdueSource, recorder NoticeRecorder) backlite.QueueProcessor[OverdueScanTask] {
	return func(ctx context.Context, task OverdueScanTask) error {
		if source == nil || recorder == nil {
			return fmt.Errorf("overdue scan not configured")
		}

		result, err := ScanOverdueLoans(ctx, source, recorder)
		if err != nil {
			return err
		}

		log.Printf("[TASK] Overdue scan (%s): %d overdue loans, %d new notices", triggerName(task.Trigger), result.Overdue, result.NewNotices)
		return nil
	}
}

// NewOverdueScanQueue creates a backlite queue for overdue scans.
func NewOverdueScanQueue(source OverdueSource, recorder NoticeRecorder) backlite.Queue {
	return backlite.NewQueue(OverdueScanProcessor(source, recorder))
}

func triggerName(trigger string) string {
	if trigger == "" {
		return "manual"
	}
	return trigger
}

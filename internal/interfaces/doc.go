// Package interfaces documents the core abstractions used throughout the application.
//
// This package consolidates interface documentation to help code agents understand
// extension points and how to implement new functionality.
//
// # Interface Categories
//
// ## Data Access Interfaces
//
//   - ledger.Store: Loans, balances and fee receipts (internal/ledger/ledger.go)
//   - catalog.Store: Document search and availability (internal/catalog/catalog.go)
//   - accounts.Store: Clients and librarians (internal/accounts/accounts.go)
//   - tasks.NoticeRecorder: Overdue notices (internal/tasks/overdue_scan.go)
//
// ## Service Interfaces
//
//   - LendingService, CatalogService, AccountService: What the HTTP layer
//     needs from the services (internal/http/stores.go)
//   - tasks.OverdueSource: Loans currently owing fees (internal/tasks/overdue_scan.go)
//
// ## Background Work Interfaces
//
//   - scheduler.ScanEnqueuer: Puts an overdue scan on the queue (internal/scheduler/overdue_scan.go)
//   - ScanRunner, TaskStatusReader: Task endpoints (internal/http/stores.go)
//
// # Adding a New Fee Rule
//
// Fees come from ledger.FeePolicy. Every caller (return, fee payment,
// overdue listing, catalog due dates) takes the same policy, built once in
// entrypoint.go from LEDGER_GRACE_PERIOD_WEEKS and LEDGER_WEEKLY_RATE:
//
//	policy := ledger.NewFeePolicy(cfg.Ledger.GracePeriodWeeks, cfg.Ledger.WeeklyRate)
//	lendingLedger := ledger.New(lending.NewRepository(db.DB), policy)
//
// # Adding a New Background Task
//
//  1. Define the task and its processor in internal/tasks/
//
//     type ReminderTask struct {
//     Email string `json:"email"`
//     }
//
//     func (t ReminderTask) Config() backlite.QueueConfig {
//     return backlite.QueueConfig{Name: "reminder", MaxAttempts: 3}
//     }
//
//     func NewReminderQueue(sender Sender) backlite.Queue {
//     return backlite.NewQueue(ReminderProcessor(sender))
//     }
//
//  2. Register the queue in entrypoint.go before the client starts
//
// # Adding a New Database Domain
//
//  1. Create sub-package: internal/database/reservations/
//
//  2. Define repository:
//
//     type Repository struct { db *gorm.DB }
//
//     func NewRepository(db *gorm.DB) *Repository
//
//  3. Implement interface methods and add the entity to database.Migrate
//
//  4. Add compile-time check:
//
//     var _ reservations.Store = (*Repository)(nil)
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// This pattern is used throughout the codebase. See checks.go for examples.
package interfaces

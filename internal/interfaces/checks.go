package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/librarydesk/internal/accounts"
	"github.com/mrlokans/librarydesk/internal/catalog"
	"github.com/mrlokans/librarydesk/internal/database/clients"
	"github.com/mrlokans/librarydesk/internal/database/documents"
	"github.com/mrlokans/librarydesk/internal/database/lending"
	"github.com/mrlokans/librarydesk/internal/http"
	"github.com/mrlokans/librarydesk/internal/ledger"
	"github.com/mrlokans/librarydesk/internal/scheduler"
	"github.com/mrlokans/librarydesk/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

// Lending ledger persistence
var _ ledger.Store = (*lending.Repository)(nil)

// Catalog persistence
var _ catalog.Store = (*documents.Repository)(nil)

// Client and librarian accounts
var _ accounts.Store = (*clients.Repository)(nil)

// Overdue notices
var _ tasks.NoticeRecorder = (*lending.Repository)(nil)

// =============================================================================
// Services
// =============================================================================

var _ http.LendingService = (*ledger.Ledger)(nil)
var _ http.CatalogService = (*catalog.Service)(nil)
var _ http.AccountService = (*accounts.Service)(nil)
var _ tasks.OverdueSource = (*ledger.Ledger)(nil)

// =============================================================================
// Background Work
// =============================================================================

var _ scheduler.ScanEnqueuer = (*tasks.Client)(nil)
var _ http.ScanRunner = (*scheduler.OverdueScanScheduler)(nil)
var _ http.TaskStatusReader = (*tasks.Client)(nil)

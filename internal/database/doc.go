// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup, pool sizing, migrations
//	├── clients/         # Client and librarian accounts
//	├── documents/       # Catalog queries (goqu over gorm)
//	└── lending/         # Loans, balances, fee receipts, overdue notices
//
// # Drivers
//
// Open supports SQLite (mattn/go-sqlite3, WAL, one writer connection) and
// PostgreSQL (pgx). Both run the same gorm models and migrations:
//
//	db, err := database.Open(cfg.Database)
//
//	ledgerStore := lending.NewRepository(db.DB)
//	catalogStore := documents.NewRepository(db.DB, db.Driver)
//	accountStore := clients.NewRepository(db.DB)
//
// # Interface Implementations
//
//   - lending.Repository: implements ledger.Store and tasks.NoticeRecorder
//   - documents.Repository: implements catalog.Store
//   - clients.Repository: implements accounts.Store
//
// # Adding a New Domain
//
//  1. Create a new sub-package: internal/database/reservations/
//  2. Define a Repository struct with a *gorm.DB field
//  3. Add NewRepository(db *gorm.DB) constructor
//  4. Add its entities to Migrate
//  5. Add compile-time interface check: var _ SomeInterface = (*Repository)(nil)
package database

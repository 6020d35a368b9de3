package cli

import (
	"fmt"
	"path/filepath"

	"github.com/mrlokans/librarydesk/internal/config"
	"github.com/mrlokans/librarydesk/internal/database"
)

// openDatabase connects using the environment configuration. A non-empty
// path overrides the SQLite file.
func openDatabase(path string) (*database.Database, error) {
	cfg := config.NewConfig().Database
	if path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for database: %w", err)
		}
		cfg.Driver = config.DriverSQLite
		cfg.Path = absPath
	}
	if cfg.Driver == config.DriverSQLite || cfg.Driver == "" {
		fmt.Printf("Database: %s\n", cfg.Path)
	} else {
		fmt.Printf("Database: %s\n", cfg.Driver)
	}
	cfg.LogLevel = "silent"

	db, err := database.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db, nil
}

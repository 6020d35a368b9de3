package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, int32(5000), cfg.HTTP.Port)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)
	assert.Equal(t, time.Hour, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, AuthModeNone, cfg.Auth.Mode)
	assert.Equal(t, 4, cfg.Ledger.GracePeriodWeeks)
	assert.Equal(t, 5.0, cfg.Ledger.WeeklyRate)
	assert.Equal(t, 10, cfg.Catalog.DefaultLimit)
	assert.Equal(t, "0 6 * * *", cfg.OverdueScan.Schedule)
	assert.Equal(t, DefaultTasksDatabasePath, cfg.Tasks.DatabasePath)
}

func TestNewConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_DSN", "host=db user=library dbname=library")
	t.Setenv("LEDGER_GRACE_PERIOD_WEEKS", "0")
	t.Setenv("LEDGER_WEEKLY_RATE", "2.5")
	t.Setenv("AUTH_MODE", "local")
	t.Setenv("TASK_WORKERS", "4")

	cfg := NewConfig()

	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "host=db user=library dbname=library", cfg.Database.DSN)
	assert.Equal(t, 0, cfg.Ledger.GracePeriodWeeks)
	assert.Equal(t, 2.5, cfg.Ledger.WeeklyRate)
	assert.Equal(t, AuthModeLocal, cfg.Auth.Mode)
	assert.Equal(t, 4, cfg.Tasks.Workers)
}

package postgres

import (
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/lapply/lapply/config"

	_ "github.com/lib/pq"
)

func NewPostgresDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.Info("connected to PostgreSQL")
	return db, nil
}

func RunMigrations(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS organizations (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			line_channel_access_token TEXT NOT NULL DEFAULT '',
			line_channel_secret TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL REFERENCES organizations(id),
			title TEXT NOT NULL,
			slots JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS applications (
			id TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL REFERENCES organizations(id),
			user_id TEXT NOT NULL,
			event_id TEXT,
			slot_id TEXT,
			status TEXT NOT NULL DEFAULT 'applied',
			plan TEXT,
			slot_at TIMESTAMPTZ,
			canceled_at TIMESTAMPTZ,
			slot_released BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS reminders (
			id TEXT PRIMARY KEY,
			application_id TEXT NOT NULL REFERENCES applications(id),
			organization_id TEXT NOT NULL REFERENCES organizations(id),
			user_id TEXT NOT NULL,
			type TEXT NOT NULL DEFAULT 'custom',
			message TEXT NOT NULL DEFAULT '',
			scheduled_at TIMESTAMPTZ NOT NULL,
			sent_at TIMESTAMPTZ,
			canceled BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS step_deliveries (
			id TEXT PRIMARY KEY,
			application_id TEXT NOT NULL REFERENCES applications(id),
			organization_id TEXT NOT NULL REFERENCES organizations(id),
			user_id TEXT NOT NULL,
			step_number INTEGER NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			scheduled_at TIMESTAMPTZ NOT NULL,
			sent_at TIMESTAMPTZ,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_applications_org_user ON applications(organization_id, user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_applications_status ON applications(status)`,
		`CREATE INDEX IF NOT EXISTS idx_applications_slot_at ON applications(slot_at)`,
		`CREATE INDEX IF NOT EXISTS idx_reminders_application ON reminders(application_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reminders_due ON reminders(scheduled_at) WHERE canceled = FALSE AND sent_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_step_deliveries_application ON step_deliveries(application_id)`,
		`CREATE INDEX IF NOT EXISTS idx_step_deliveries_due ON step_deliveries(scheduled_at) WHERE status = 'pending'`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	logrus.Info("database migrations completed")
	return nil
}

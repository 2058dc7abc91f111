package db

import (
	"fmt"

	"gorm.io/gorm"

	"fieldtech/internal/model"
)

// postgresStatements run after AutoMigrate on PostgreSQL only.
var postgresStatements = []string{
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'tickets_status_check') THEN
			ALTER TABLE tickets ADD CONSTRAINT tickets_status_check
				CHECK (status IN ('pending', 'accepted', 'in_progress', 'completed', 'rejected'));
		END IF;
	END
	$$;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'tickets_type_check') THEN
			ALTER TABLE tickets ADD CONSTRAINT tickets_type_check
				CHECK (type IN ('repair', 'installation'));
		END IF;
	END
	$$;`,
	`CREATE OR REPLACE FUNCTION set_updated_at()
	RETURNS TRIGGER AS $$
	BEGIN
		NEW.updated_at = NOW();
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = 'trg_tickets_updated_at') THEN
			CREATE TRIGGER trg_tickets_updated_at
				BEFORE UPDATE ON tickets
				FOR EACH ROW
				EXECUTE PROCEDURE set_updated_at();
		END IF;
	END
	$$;`,
}

// Migrate creates or updates the schema of the dispatch backend.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Client{},
		&model.Subscription{},
		&model.Ticket{},
		&model.TicketEvent{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if db.Dialector.Name() != "postgres" {
		return nil
	}
	for i, stmt := range postgresStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}

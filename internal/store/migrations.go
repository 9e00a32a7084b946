package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Events table - one row per dispatched, failed or dropped command
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL CHECK(source IN ('gesture', 'button', 'tray', 'network')),
			gesture TEXT NOT NULL DEFAULT '',
			command TEXT NOT NULL,
			outcome TEXT NOT NULL CHECK(outcome IN ('applied', 'failed', 'dropped')),
			error TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}

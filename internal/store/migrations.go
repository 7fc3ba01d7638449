package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Levels - cached backend curriculum, builtin and custom questions
		`CREATE TABLE IF NOT EXISTS levels (
			id TEXT PRIMARY KEY,
			task_id TEXT NOT NULL DEFAULT '',
			level INTEGER NOT NULL DEFAULT 1,
			epoch INTEGER NOT NULL DEFAULT 0,
			target TEXT NOT NULL DEFAULT '',
			prompt TEXT NOT NULL DEFAULT '',
			audio_url TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL CHECK(source IN ('builtin', 'backend', 'custom')),
			position INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Level options - up to four answers per level
		`CREATE TABLE IF NOT EXISTS level_options (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			level_id TEXT NOT NULL REFERENCES levels(id) ON DELETE CASCADE,
			option_id TEXT NOT NULL,
			name TEXT NOT NULL,
			letter TEXT NOT NULL DEFAULT '',
			image_url TEXT NOT NULL DEFAULT '',
			slot TEXT NOT NULL DEFAULT '',
			correct INTEGER,
			position INTEGER NOT NULL,
			UNIQUE(level_id, option_id)
		)`,

		// Attempts - every selection made by the player
		`CREATE TABLE IF NOT EXISTS attempts (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			level_id TEXT NOT NULL,
			option_id TEXT NOT NULL,
			correct INTEGER NOT NULL,
			response_ms INTEGER NOT NULL,
			reported INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Settings - tuning overrides as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Calibration samples - landmark frames recorded for fist calibration
		`CREATE TABLE IF NOT EXISTS calibration_samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			pose TEXT NOT NULL CHECK(pose IN ('open', 'fist')),
			data TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_level_options_level_id ON level_options(level_id)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_session_id ON attempts(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_level_id ON attempts(level_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}

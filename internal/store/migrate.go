package store

import (
	"context"
	"fmt"
)

type migration struct {
	name string
	sql  string
}

// Migrations are append-only. Never edit or reorder an entry once released.
var migrations = []migration{
	{
		name: "0001_mistakes",
		sql: `CREATE TABLE IF NOT EXISTS mistakes (
			word TEXT NOT NULL,
			char_index INTEGER NOT NULL,
			typed_char TEXT NOT NULL,
			timestamp REAL NOT NULL
		);`,
	},
	{
		// Early databases logged per-word history here; nothing reads it now.
		name: "0002_lesson_history",
		sql: `CREATE TABLE IF NOT EXISTS lesson_history (
			word_id INTEGER,
			timestamp REAL
		);`,
	},
	{
		name: "0003_lessons",
		sql: `CREATE TABLE IF NOT EXISTS lessons (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp REAL NOT NULL,
			text_required TEXT NOT NULL,
			text_typed TEXT NOT NULL,
			duration REAL
		);`,
	},
	{
		name: "0004_lesson_words",
		sql: `CREATE TABLE IF NOT EXISTS lesson_words (
			lesson_id INTEGER NOT NULL REFERENCES lessons(id),
			word_id INTEGER NOT NULL,
			timestamp REAL NOT NULL
		);`,
	},
	{
		name: "0005_lesson_words_timestamp_idx",
		sql:  `CREATE INDEX IF NOT EXISTS idx_lesson_words_timestamp ON lesson_words(timestamp);`,
	},
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS _migrations (
		name TEXT PRIMARY KEY,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := s.appliedMigrations(ctx)
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if _, ok := applied[m.name]; ok {
			continue
		}
		if err := s.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", m.name, err)
		}
	}
	return nil
}

func (s *Store) appliedMigrations(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM _migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	applied := map[string]struct{}{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		applied[name] = struct{}{}
	}
	return applied, rows.Err()
}

func (s *Store) applyMigration(ctx context.Context, m migration) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()
	if _, err = tx.ExecContext(ctx, m.sql); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO _migrations (name) VALUES (?)`, m.name); err != nil {
		return err
	}
	return tx.Commit()
}

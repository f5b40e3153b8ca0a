// Package store handles SQLite persistence of mistakes and lessons.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/verte-zerg/keytutor/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrNegativeIndex is returned when a mistake carries a negative char index.
var ErrNegativeIndex = errors.New("mistake index must be non-negative")

// Store wraps SQLite access for mistake and lesson data.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the wall clock used for timestamps and recency windows.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string, opts ...Option) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Single interactive writer.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(store)
	}
	if err := store.init(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Now returns the store clock's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

func (s *Store) init() error {
	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return s.migrate(context.Background())
}

// RecordMistake appends one mistake stamped with the current time.
func (s *Store) RecordMistake(ctx context.Context, word string, index int, typed byte) error {
	if index < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeIndex, index)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO mistakes (word, char_index, typed_char, timestamp) VALUES (?, ?, ?, ?)`,
		word, index, string([]byte{typed}), model.UnixSeconds(s.now()),
	)
	if err != nil {
		return fmt.Errorf("failed to record mistake: %w", err)
	}
	return nil
}

// RecordLesson appends one lesson and returns its id.
func (s *Store) RecordLesson(ctx context.Context, timestamp float64, textRequired, textTyped string, duration float64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO lessons (timestamp, text_required, text_typed, duration) VALUES (?, ?, ?, ?)`,
		timestamp, textRequired, textTyped, duration,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record lesson: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read lesson id: %w", err)
	}
	return id, nil
}

// RecordLessonWords stores the completed word ids of a lesson in order. Every
// row gets the time of the call, not the time the word was finished.
func (s *Store) RecordLessonWords(ctx context.Context, lessonID int64, wordIDs []int64) (err error) {
	if len(wordIDs) == 0 {
		return nil
	}
	now := model.UnixSeconds(s.now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin lesson words: %w", err)
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO lesson_words (lesson_id, word_id, timestamp) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare lesson words: %w", err)
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	for _, id := range wordIDs {
		if _, err = stmt.ExecContext(ctx, lessonID, id, now); err != nil {
			return fmt.Errorf("failed to record lesson word %d: %w", id, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit lesson words: %w", err)
	}
	return nil
}

// RecentlyPracticedWordIDs returns ids of words completed within the window.
func (s *Store) RecentlyPracticedWordIDs(ctx context.Context, within time.Duration) (map[int64]struct{}, error) {
	cutoff := model.UnixSeconds(s.now().Add(-within))
	rows, err := s.db.QueryContext(ctx, `SELECT word_id FROM lesson_words WHERE timestamp > ?`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent words: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	ids := map[int64]struct{}{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// ListMistakes returns every recorded mistake.
func (s *Store) ListMistakes(ctx context.Context) ([]model.MistakeRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT word, char_index, typed_char, timestamp FROM mistakes ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query mistakes: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.MistakeRecord
	for rows.Next() {
		var rec model.MistakeRecord
		var typed string
		if err := rows.Scan(&rec.DisplayedWord, &rec.CharIndex, &typed, &rec.Timestamp); err != nil {
			return nil, err
		}
		if typed != "" {
			rec.TypedChar = typed[0]
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListLessons returns lessons with a duration, oldest first.
func (s *Store) ListLessons(ctx context.Context) ([]model.LessonRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, text_required, text_typed, duration
		FROM lessons
		WHERE duration IS NOT NULL
		ORDER BY timestamp ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query lessons: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.LessonRecord
	for rows.Next() {
		var rec model.LessonRecord
		var duration sql.NullFloat64
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &rec.TextRequired, &rec.TextTyped, &duration); err != nil {
			return nil, err
		}
		if duration.Valid {
			d := duration.Float64
			rec.Duration = &d
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListLessonWords returns the completed words of a lesson in insertion order.
func (s *Store) ListLessonWords(ctx context.Context, lessonID int64) ([]model.LessonWordRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT lesson_id, word_id, timestamp FROM lesson_words WHERE lesson_id = ? ORDER BY rowid`, lessonID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lesson words: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.LessonWordRecord
	for rows.Next() {
		var rec model.LessonWordRecord
		if err := rows.Scan(&rec.LessonID, &rec.WordID, &rec.Timestamp); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Package wordsource queries the dictionary database of practice words.
//
// The dictionary has two tables: articles(word_id, title) holding canonical
// words, and bigram_frequency(bigram, count, word_id) indexing every letter
// pair of "^word$". Only ASCII titles are ever returned.
package wordsource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"

	"github.com/verte-zerg/keytutor/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrNoDictionary is returned when the dictionary database does not exist.
var ErrNoDictionary = errors.New("dictionary database not found")

// asciiOnly holds when a title has as many characters as bytes.
const asciiOnly = `LENGTH(a.title) = LENGTH(CAST(a.title AS BLOB))`

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Source is a dictionary-backed word source.
type Source struct {
	db *sqlx.DB
}

// Open opens an existing dictionary database.
func Open(path string) (*Source, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoDictionary, path)
		}
		return nil, fmt.Errorf("failed to stat dictionary: %w", err)
	}
	return open(path)
}

// Create opens the dictionary database at path, creating the file if needed.
func Create(path string) (*Source, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create dictionary directory: %w", err)
	}
	return open(path)
}

func open(path string) (*Source, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dictionary: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on ping failure.
			_ = cerr
		}
		return nil, fmt.Errorf("failed to open dictionary: %w", err)
	}
	return &Source{db: db}, nil
}

// Close closes the underlying database.
func (s *Source) Close() error {
	return s.db.Close()
}

// RandomWords returns up to n random ASCII words whose ids are not excluded.
func (s *Source) RandomWords(ctx context.Context, n int, exclude map[int64]struct{}) ([]model.Word, error) {
	if n <= 0 {
		return nil, nil
	}
	query := `SELECT a.word_id, a.title FROM articles a WHERE a.title IS NOT NULL AND ` + asciiOnly
	query, args, err := excluding(query, nil, exclude)
	if err != nil {
		return nil, err
	}
	query += ` ORDER BY RANDOM() LIMIT ?`
	args = append(args, n)

	var words []model.Word
	if err := s.db.SelectContext(ctx, &words, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to sample words: %w", err)
	}
	return words, nil
}

// WordWithBigram returns one random ASCII word containing bigram. The bool is
// false when no eligible word exists.
func (s *Source) WordWithBigram(ctx context.Context, bigram string, exclude map[int64]struct{}) (model.Word, bool, error) {
	query := `SELECT a.word_id, a.title
		FROM bigram_frequency b
		JOIN articles a ON b.word_id = a.word_id
		WHERE b.bigram = ? AND ` + asciiOnly
	query, args, err := excluding(query, []any{bigram}, exclude)
	if err != nil {
		return model.Word{}, false, err
	}
	query += ` ORDER BY RANDOM() LIMIT 1`

	var word model.Word
	if err := s.db.GetContext(ctx, &word, s.db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Word{}, false, nil
		}
		return model.Word{}, false, fmt.Errorf("failed to find word for %q: %w", bigram, err)
	}
	return word, true, nil
}

// Count returns the number of ASCII words in the dictionary.
func (s *Source) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM articles a WHERE `+asciiOnly); err != nil {
		return 0, fmt.Errorf("failed to count words: %w", err)
	}
	return n, nil
}

func excluding(query string, args []any, exclude map[int64]struct{}) (string, []any, error) {
	if len(exclude) == 0 {
		return query, args, nil
	}
	ids := lo.Keys(exclude)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	query, args, err := sqlx.In(query+` AND a.word_id NOT IN (?)`, append(args, ids)...)
	if err != nil {
		return "", nil, fmt.Errorf("failed to build exclusion: %w", err)
	}
	return query, args, nil
}

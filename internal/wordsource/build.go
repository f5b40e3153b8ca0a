package wordsource

import (
	"context"
	"fmt"
	"strings"
)

// Build replaces the dictionary with words and rebuilds the bigram index.
// Word ids are assigned from 1 in input order. It returns the number of words
// stored.
func (s *Source) Build(ctx context.Context, words []string) (n int, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin dictionary build: %w", err)
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	stmts := []string{
		`DROP TABLE IF EXISTS bigram_frequency`,
		`DROP TABLE IF EXISTS articles`,
		`CREATE TABLE articles (word_id INTEGER PRIMARY KEY, title TEXT)`,
		`CREATE TABLE bigram_frequency (
			bigram TEXT NOT NULL,
			count INTEGER NOT NULL,
			word_id INTEGER NOT NULL,
			PRIMARY KEY (bigram, count, word_id)
		) WITHOUT ROWID`,
	}
	for _, stmt := range stmts {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return 0, fmt.Errorf("failed to reset dictionary: %w", err)
		}
	}

	articleStmt, err := tx.PreparexContext(ctx, `INSERT INTO articles (word_id, title) VALUES (?, ?)`)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := articleStmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	bigramStmt, err := tx.PreparexContext(ctx, `INSERT INTO bigram_frequency (bigram, count, word_id) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := bigramStmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()

	var id int64
	for _, word := range words {
		if !usableTitle(word) {
			continue
		}
		id++
		if _, err = articleStmt.ExecContext(ctx, id, word); err != nil {
			return 0, fmt.Errorf("failed to insert %q: %w", word, err)
		}
		for bigram, count := range Bigrams(word) {
			if _, err = bigramStmt.ExecContext(ctx, bigram, count, id); err != nil {
				return 0, fmt.Errorf("failed to index %q: %w", word, err)
			}
		}
	}

	if _, err = tx.ExecContext(ctx, `CREATE INDEX idx_title ON articles (title)`); err != nil {
		return 0, fmt.Errorf("failed to index titles: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit dictionary: %w", err)
	}
	return int(id), nil
}

// Bigrams counts the letter pairs of "^word$", lower-cased.
func Bigrams(word string) map[string]int {
	runes := []rune("^" + strings.ToLower(word) + "$")
	counts := make(map[string]int, len(runes))
	for i := 0; i+1 < len(runes); i++ {
		counts[string(runes[i:i+2])]++
	}
	return counts
}

// The boundary markers would collide with the index.
func usableTitle(word string) bool {
	return word != "" && !strings.ContainsAny(word, "^$")
}

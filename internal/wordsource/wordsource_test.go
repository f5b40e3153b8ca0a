package wordsource

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestSource(t *testing.T, words []string) *Source {
	t.Helper()
	src, err := Create(filepath.Join(t.TempDir(), "dictionary.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = src.Close()
	})
	_, err = src.Build(context.Background(), words)
	require.NoError(t, err)
	return src
}

func TestOpenMissingDictionary(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.db"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoDictionary))
}

func TestBigrams(t *testing.T) {
	got := Bigrams("Tot")
	assert.Equal(t, map[string]int{"^t": 1, "to": 1, "ot": 1, "t$": 1}, got)
	assert.Equal(t, 2, Bigrams("aaa")["aa"])
}

func TestBuildSkipsBoundaryMarkers(t *testing.T) {
	src := buildTestSource(t, []string{"one", "tw^o", "", "th$ree", "four"})
	n, err := src.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRandomWordsExcludesAndFiltersASCII(t *testing.T) {
	src := buildTestSource(t, []string{"alpha", "beta", "café", "delta", "naïve"})
	ctx := context.Background()

	words, err := src.RandomWords(ctx, 10, map[int64]struct{}{1: {}})
	require.NoError(t, err)
	titles := make([]string, 0, len(words))
	for _, w := range words {
		titles = append(titles, w.Title)
	}
	assert.ElementsMatch(t, []string{"beta", "delta"}, titles)

	words, err = src.RandomWords(ctx, 1, nil)
	require.NoError(t, err)
	assert.Len(t, words, 1)
}

func TestWordWithBigram(t *testing.T) {
	src := buildTestSource(t, []string{"thought", "apple", "think", "éther"})
	ctx := context.Background()

	word, ok, err := src.WordWithBigram(ctx, "th", map[int64]struct{}{1: {}})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "think", word.Title)
	assert.Equal(t, int64(3), word.ID)

	_, ok, err = src.WordWithBigram(ctx, "th", map[int64]struct{}{1: {}, 3: {}})
	require.NoError(t, err)
	assert.False(t, ok, "non-ASCII words must not match")

	word, ok, err = src.WordWithBigram(ctx, "^a", nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "apple", word.Title)
}

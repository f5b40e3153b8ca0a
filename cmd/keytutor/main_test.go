package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/keytutor/internal/model"
	"github.com/verte-zerg/keytutor/internal/store"
	"github.com/verte-zerg/keytutor/internal/wordsource"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	statsDBPath = ""
	dictDBPath = ""
	dictForce = false
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidateConfig(t *testing.T) {
	cfg := model.DefaultLessonConfig()
	require.NoError(t, validateConfig(cfg))

	bad := []func(*model.LessonConfig){
		func(c *model.LessonConfig) { c.Words = 0 },
		func(c *model.LessonConfig) { c.PunctPct = 1.5 },
		func(c *model.LessonConfig) { c.PunctSet = "" },
		func(c *model.LessonConfig) { c.PunctSet = ", " },
		func(c *model.LessonConfig) { c.PunctSet = "«" },
		func(c *model.LessonConfig) { c.ExcludeRecent = -time.Second },
	}
	for i, mutate := range bad {
		c := model.DefaultLessonConfig()
		mutate(&c)
		assert.Error(t, validateConfig(c), "case %d", i)
	}

	cfg.PunctPct = 0
	cfg.PunctSet = ""
	assert.NoError(t, validateConfig(cfg))
}

func TestDictBuildAndStats(t *testing.T) {
	dir := isolate(t)
	list := filepath.Join(dir, "words.txt")
	require.NoError(t, os.WriteFile(list, []byte("Apple\nbanana\n\napple\ntwo words\ncherry\n"), 0o644))
	dictPath := filepath.Join(dir, "dict.db")
	statsPath := filepath.Join(dir, "stats.db")

	_, err := execute(t, "dict", "build", "--from", list, "--dict-db", dictPath)
	require.NoError(t, err)

	src, err := wordsource.Open(dictPath)
	require.NoError(t, err)
	n, err := src.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, src.Close())

	_, err = execute(t, "dict", "build", "--from", list, "--dict-db", dictPath)
	require.Error(t, err)
	_, err = execute(t, "dict", "build", "--from", list, "--dict-db", dictPath, "--force")
	require.NoError(t, err)

	st, err := store.Open(statsPath)
	require.NoError(t, err)
	ctx := context.Background()
	_, err = st.RecordLesson(ctx, model.UnixSeconds(time.Now()), "apple", "apxple", 2)
	require.NoError(t, err)
	require.NoError(t, st.RecordMistake(ctx, "apple", 2, 'x'))
	require.NoError(t, st.Close())

	out, err := execute(t, "stats", "--stats-db", statsPath, "--window", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Lessons: 1")
	assert.Contains(t, out, "Weakest Bigrams")
	assert.Contains(t, out, "pp")
}

func TestConfigFileSuppliesPaths(t *testing.T) {
	dir := isolate(t)
	statsPath := filepath.Join(dir, "from-config.db")
	cfgPath := filepath.Join(dir, "config", "keytutor", "config.toml")
	require.NoError(t, os.MkdirAll(filepath.Dir(cfgPath), 0o755))
	require.NoError(t, os.WriteFile(cfgPath, []byte("[paths]\nstats-db = \""+statsPath+"\"\n"), 0o644))

	out, err := execute(t, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "No lessons found.")
	_, err = os.Stat(statsPath)
	assert.NoError(t, err)
}

func TestPracticeRequiresDictionary(t *testing.T) {
	dir := isolate(t)
	_, err := execute(t, "--dict-db", filepath.Join(dir, "missing.db"))
	require.ErrorIs(t, err, wordsource.ErrNoDictionary)
}

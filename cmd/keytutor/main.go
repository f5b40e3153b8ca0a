// Package main provides the CLI entrypoint for keytutor.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/keytutor/internal/config"
	"github.com/verte-zerg/keytutor/internal/generator"
	"github.com/verte-zerg/keytutor/internal/model"
	"github.com/verte-zerg/keytutor/internal/stats"
	"github.com/verte-zerg/keytutor/internal/store"
	"github.com/verte-zerg/keytutor/internal/tui"
	"github.com/verte-zerg/keytutor/internal/wordlist"
	"github.com/verte-zerg/keytutor/internal/wordsource"
)

const (
	defaultStatsWindow = 20
	defaultStatsWidth  = 60
)

var (
	statsDBPath string
	dictDBPath  string

	practiceWords          int
	practicePunct          float64
	practicePunctSet       string
	practiceExcludeMinutes float64

	statsWindow int

	dictFrom  string
	dictForce bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "keytutor",
		Short:         "Adaptive typing tutor",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	rootCmd.PersistentFlags().StringVar(&statsDBPath, "stats-db", "", "stats database path (default: XDG data dir)")
	rootCmd.PersistentFlags().StringVar(&dictDBPath, "dict-db", "", "dictionary database path (default: XDG data dir)")

	rootCmd.Flags().IntVar(&practiceWords, "words", model.DefaultWords, "words per lesson")
	rootCmd.Flags().Float64Var(&practicePunct, "punct", model.DefaultPunctPct, "punctuation probability per word gap (0-1)")
	rootCmd.Flags().StringVar(&practicePunctSet, "punct-set", model.DefaultPunctSet, "punctuation set")
	rootCmd.Flags().Float64Var(&practiceExcludeMinutes, "exclude-minutes", model.DefaultExcludeRecent.Minutes(), "skip words completed within this many minutes")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newDictCmd())
	rootCmd.AddCommand(newStatsCmd())

	return rootCmd
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	paths := resolvePaths(cmd, fileCfg)
	applyIntConfig(cmd, "words", &practiceWords, fileCfg.Lesson.Words)
	applyFloatConfig(cmd, "punct", &practicePunct, fileCfg.Lesson.PunctPct)
	applyStringConfig(cmd, "punct-set", &practicePunctSet, fileCfg.Lesson.PunctSet)
	applyFloatConfig(cmd, "exclude-minutes", &practiceExcludeMinutes, fileCfg.Lesson.ExcludeMinutes)

	cfg := model.LessonConfig{
		Words:         practiceWords,
		PunctPct:      practicePunct,
		PunctSet:      practicePunctSet,
		ExcludeRecent: time.Duration(practiceExcludeMinutes * float64(time.Minute)),
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	src, err := wordsource.Open(paths.DictionaryDB)
	if err != nil {
		if errors.Is(err, wordsource.ErrNoDictionary) {
			return fmt.Errorf("%w\nBuild one with: keytutor dict build --from <wordlist.txt>", err)
		}
		return err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			logErrf("failed to close dictionary: %v\n", cerr)
		}
	}()

	st, err := store.Open(paths.StatsDB)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	perf := stats.NewModel(st, st.Now)
	gen := generator.New(cfg, perf, st, src)
	m, err := tui.NewModel(gen, st, perf)
	if err != nil {
		return err
	}
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return m.Err()
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newDictCmd() *cobra.Command {
	dictCmd := &cobra.Command{
		Use:   "dict",
		Short: "Manage the dictionary database",
	}
	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Build the dictionary from a word list (one word per line)",
		Args:  cobra.NoArgs,
		RunE:  runDictBuildCmd,
	}
	buildCmd.Flags().StringVar(&dictFrom, "from", "", "word list file")
	buildCmd.Flags().BoolVar(&dictForce, "force", false, "overwrite an existing dictionary")
	if err := buildCmd.MarkFlagRequired("from"); err != nil {
		// Only fails for an undefined flag.
		_ = err
	}
	dictCmd.AddCommand(buildCmd)
	return dictCmd
}

func runDictBuildCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	paths := resolvePaths(cmd, fileCfg)

	if !dictForce {
		if _, err := os.Stat(paths.DictionaryDB); err == nil {
			return fmt.Errorf("dictionary already exists: %s (use --force to overwrite)", paths.DictionaryDB)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat dictionary: %w", err)
		}
	}

	words, err := wordlist.LoadWords(dictFrom)
	if err != nil {
		return fmt.Errorf("failed to load word list: %w", err)
	}
	words = wordlist.Normalize(words)
	if len(words) == 0 {
		return fmt.Errorf("word list %s has no usable words", dictFrom)
	}

	src, err := wordsource.Create(paths.DictionaryDB)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			logErrf("failed to close dictionary: %v\n", cerr)
		}
	}()

	n, err := src.Build(context.Background(), words)
	if err != nil {
		return err
	}
	logErrf("Wrote %d words to %s\n", n, paths.DictionaryDB)
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().IntVar(&statsWindow, "window", defaultStatsWindow, "moving average window")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	if statsWindow <= 0 {
		return fmt.Errorf("--window must be > 0")
	}
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	paths := resolvePaths(cmd, fileCfg)

	st, err := store.Open(paths.StatsDB)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	report, err := stats.BuildReport(cmd.Context(), stats.NewModel(st, st.Now))
	if err != nil {
		return err
	}
	if err := stats.RenderReport(cmd.OutOrStdout(), report, statsWindow, terminalWidth()); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return defaultStatsWidth
	}
	return width
}

func resolvePaths(cmd *cobra.Command, fileCfg config.FileConfig) model.Paths {
	applyStringConfig(cmd, "stats-db", &statsDBPath, fileCfg.Paths.StatsDB)
	applyStringConfig(cmd, "dict-db", &dictDBPath, fileCfg.Paths.DictionaryDB)
	paths := model.Paths{StatsDB: statsDBPath, DictionaryDB: dictDBPath}
	if paths.StatsDB == "" {
		paths.StatsDB = config.DefaultStatsDBPath()
	}
	if paths.DictionaryDB == "" {
		paths.DictionaryDB = config.DefaultDictionaryDBPath()
	}
	return paths
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# keytutor configuration
# Uncomment a value to enable it. CLI flags override config values.

[paths]
# stats-db = %q
# dict-db = %q

[lesson]
# words = %d              # Words per lesson
# punct = %.2f            # Punctuation probability per word gap (0-1)
# punct-set = %q      # Punctuation set
# exclude-minutes = %.0f   # Skip words completed within this many minutes
`,
		config.DefaultStatsDBPath(),
		config.DefaultDictionaryDBPath(),
		model.DefaultWords,
		model.DefaultPunctPct,
		model.DefaultPunctSet,
		model.DefaultExcludeRecent.Minutes(),
	)
}

func validateConfig(cfg model.LessonConfig) error {
	if cfg.Words <= 0 {
		return fmt.Errorf("--words must be > 0")
	}
	if cfg.PunctPct < 0 || cfg.PunctPct > 1 {
		return fmt.Errorf("--punct must be between 0 and 1")
	}
	if cfg.PunctPct > 0 && cfg.PunctSet == "" {
		return fmt.Errorf("--punct-set must not be empty")
	}
	if strings.ContainsAny(cfg.PunctSet, " \t\n") || !wordlist.IsASCII(cfg.PunctSet) {
		return fmt.Errorf("--punct-set must be ASCII without whitespace")
	}
	if cfg.ExcludeRecent < 0 {
		return fmt.Errorf("--exclude-minutes must be >= 0")
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

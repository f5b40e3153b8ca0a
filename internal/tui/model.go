// Package tui provides the Bubble Tea typing interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/keytutor/internal/model"
	"github.com/verte-zerg/keytutor/internal/session"
	"github.com/verte-zerg/keytutor/internal/stats"
)

// ErrNoWords is returned when the dictionary yields an empty lesson.
var ErrNoWords = errors.New("no eligible words in dictionary")

// LessonSource produces lessons.
type LessonSource interface {
	Generate(ctx context.Context) ([]model.LessonWord, error)
	Short(lesson []model.LessonWord) bool
}

// Recorder persists mistakes and lessons.
type Recorder interface {
	session.MistakeRecorder
	session.LessonSink
}

// Performance provides the smoothed speed and accuracy shown in the footer.
type Performance interface {
	EMAStats(ctx context.Context) (stats.EMA, error)
}

type keyMap struct {
	Next key.Binding
	Quit key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var keys = keyMap{
	Next: key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "next lesson")),
	Quit: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "save & quit")),
}

// Model implements the Bubble Tea typing UI.
type Model struct {
	lessons LessonSource
	rec     Recorder
	perf    Performance
	opts    []session.Option

	sess  *session.Session
	short bool
	err   error

	keys keyMap
	help help.Model

	width  int
	height int

	last    session.Stats
	hasLast bool
	ema     stats.EMA
}

var (
	correctStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	cursorStyle      = pendingStyle.Underline(true)
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	noticeStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
)

// NewModel builds the UI and generates the first lesson. Session options are
// applied to every lesson.
func NewModel(lessons LessonSource, rec Recorder, perf Performance, opts ...session.Option) (*Model, error) {
	m := &Model{
		lessons: lessons,
		rec:     rec,
		perf:    perf,
		opts:    opts,
		keys:    keys,
		help:    help.New(),
	}
	if err := m.nextLesson(); err != nil {
		return nil, err
	}
	m.loadFooterStats()
	return m, nil
}

// Err returns the error that ended the program, if any.
func (m *Model) Err() error {
	return m.err
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.err = m.finishLesson()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Next):
			if err := m.rotate(); err != nil {
				m.err = err
				return m, tea.Quit
			}
			return m, nil
		}
		if err := m.handleCodes(keyCodes(msg)); err != nil {
			m.err = err
			return m, tea.Quit
		}
		return m, nil
	default:
		return m, nil
	}
}

func (m *Model) handleCodes(codes []int) error {
	ctx := context.Background()
	for _, code := range codes {
		if _, err := m.sess.Advance(ctx, code); err != nil {
			return err
		}
		if m.sess.State() == session.Complete {
			return m.rotate()
		}
	}
	return nil
}

// keyCodes maps a key event to session keystroke codes.
func keyCodes(msg tea.KeyMsg) []int {
	switch msg.Type {
	case tea.KeyBackspace:
		return []int{session.KeyDEL}
	case tea.KeyCtrlH:
		return []int{session.KeyBS}
	case tea.KeyDelete:
		return []int{session.KeyBackspace}
	case tea.KeySpace:
		return []int{' '}
	case tea.KeyRunes:
		codes := make([]int, 0, len(msg.Runes))
		for _, r := range msg.Runes {
			codes = append(codes, int(r))
		}
		return codes
	default:
		return nil
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	text := m.sess.FullText()
	if text == "" {
		return ""
	}
	cursorIndex := -1
	if m.sess.Cursor() < len(text) {
		cursorIndex = m.sess.Cursor()
	}
	styledRunes := buildStyledRunes(m.sess, cursorIndex)
	if m.width == 0 || m.height == 0 {
		return renderStyledRunes(styledRunes)
	}
	contentWidth := int(float64(m.width) * 0.70)
	if contentWidth < 1 {
		contentWidth = 1
	}
	wrapped := wrapStyledRunes(styledRunes, contentWidth)
	content := lipgloss.NewStyle().Width(contentWidth).Render(wrapped)
	footer := m.renderFooter()
	if footer == "" || m.height < 4 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	bodyHeight := m.height - 2
	body := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	helpLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, m.help.View(m.keys))
	return body + "\n" + footerLine + "\n" + helpLine
}

func (m *Model) renderFooter() string {
	text := m.sess.FullText()
	if text == "" {
		return ""
	}
	progress := int(float64(m.sess.Cursor()) / float64(len(text)) * 100)
	segments := []string{fmt.Sprintf("Progress %d%%", progress)}
	if m.hasLast {
		segments = append(segments, fmt.Sprintf("Last %.1f cps · %.1f%%", m.last.CPS, m.last.Accuracy))
	}
	if m.ema.OK {
		segments = append(segments, fmt.Sprintf("EMA %.1f cps · %.1f%%", m.ema.CPS, m.ema.Accuracy))
	}
	footer := footerStyle.Render(strings.Join(segments, "  "))
	if m.short {
		footer += "  " + noticeStyle.Render("short lesson: dictionary ran out of fresh words")
	}
	return footer
}

func (m *Model) loadFooterStats() {
	if m.perf == nil {
		return
	}
	ema, err := m.perf.EMAStats(context.Background())
	if err != nil {
		logErrf("failed to load lesson stats: %v\n", err)
		return
	}
	m.ema = ema
}

// rotate records the current lesson and starts a new one.
func (m *Model) rotate() error {
	if err := m.finishLesson(); err != nil {
		return err
	}
	return m.nextLesson()
}

func (m *Model) finishLesson() error {
	st, err := m.sess.Stats()
	if errors.Is(err, session.ErrInvalidState) {
		return nil
	}
	if _, err := m.sess.Finish(context.Background(), m.rec); err != nil {
		return fmt.Errorf("failed to save lesson: %w", err)
	}
	m.last = st
	m.hasLast = true
	m.loadFooterStats()
	return nil
}

func (m *Model) nextLesson() error {
	lesson, err := m.lessons.Generate(context.Background())
	if err != nil {
		return fmt.Errorf("failed to generate lesson: %w", err)
	}
	if len(lesson) == 0 {
		return ErrNoWords
	}
	m.short = m.lessons.Short(lesson)
	m.sess = session.New(lesson, m.rec, m.opts...)
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

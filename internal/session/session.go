// Package session implements the keystroke-driven lesson state machine.
//
// A Session consumes one keystroke code at a time through Advance. It knows
// nothing about terminals: the host maps its own key events to codes.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/verte-zerg/keytutor/internal/model"
)

// Backspace codes. KeyBackspace is the curses KEY_BACKSPACE value.
const (
	KeyBS        = 8
	KeyDEL       = 127
	KeyBackspace = 263
)

var (
	// ErrInvalidState is returned when statistics are queried before the
	// first keystroke.
	ErrInvalidState = errors.New("session has not started")
	// ErrFinished is returned when a session is recorded twice.
	ErrFinished = errors.New("session already recorded")
)

// State is the lifecycle phase of a session.
type State int

const (
	NotStarted State = iota
	InProgress
	Complete
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not-started"
	case InProgress:
		return "in-progress"
	case Complete:
		return "complete"
	default:
		return "unknown"
	}
}

// CharClass classifies one character of the lesson text for rendering.
type CharClass int

const (
	Untyped CharClass = iota
	Correct
	Incorrect
)

// MistakeRecorder persists mistakes as they happen.
type MistakeRecorder interface {
	RecordMistake(ctx context.Context, word string, index int, typed byte) error
}

// LessonSink persists a finished or abandoned lesson.
type LessonSink interface {
	RecordLesson(ctx context.Context, timestamp float64, textRequired, textTyped string, duration float64) (int64, error)
	RecordLessonWords(ctx context.Context, lessonID int64, wordIDs []int64) error
}

// Stats are the live measurements of a session.
type Stats struct {
	CPS      float64
	Accuracy float64
	Duration time.Duration
}

type span struct {
	start int
	end   int
	word  model.LessonWord
}

// Session tracks typing progress through one lesson.
type Session struct {
	words    []model.LessonWord
	spans    []span
	fullText string
	recorder MistakeRecorder
	now      func() time.Time

	state     State
	startedAt time.Time
	typed     []byte
	raw       strings.Builder
	total     int
	mistakes  int
	completed []int64
	recorded  bool
}

// Option configures a Session.
type Option func(*Session)

// WithClock overrides the clock used for the start time and duration.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// New builds a session over lesson. Each word spans its display form; the
// separator after it belongs to no word.
func New(lesson []model.LessonWord, recorder MistakeRecorder, opts ...Option) *Session {
	s := &Session{
		words:    lesson,
		recorder: recorder,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	var b strings.Builder
	for _, w := range lesson {
		start := b.Len()
		b.WriteString(w.Display)
		s.spans = append(s.spans, span{start: start, end: b.Len(), word: w})
		b.WriteString(w.Separator)
	}
	s.fullText = b.String()
	s.typed = make([]byte, 0, len(s.fullText))
	return s
}

// Advance applies one keystroke and reports whether the lesson still accepts
// input. A mistake that cannot be persisted is returned as an error after the
// keystroke has been applied.
func (s *Session) Advance(ctx context.Context, code int) (bool, error) {
	if s.state == Complete || s.fullText == "" {
		return false, nil
	}
	if isBackspace(code) {
		s.backspace()
		return true, nil
	}
	if code < 0 || code > 255 {
		return true, nil
	}

	ch := byte(code)
	if s.state == NotStarted {
		s.state = InProgress
		s.startedAt = s.now()
	}
	s.raw.WriteByte(ch)
	s.total++

	var err error
	cursor := len(s.typed)
	if ch != s.fullText[cursor] {
		s.mistakes++
		err = s.recordMistake(ctx, cursor, ch)
	}
	s.typed = append(s.typed, ch)
	s.markCompleted()

	if len(s.typed) >= len(s.fullText) {
		s.state = Complete
	}
	return s.state != Complete, err
}

func (s *Session) backspace() {
	if s.state == NotStarted {
		return
	}
	s.raw.WriteByte(model.BackspaceMarker)
	if len(s.typed) > 0 {
		s.typed = s.typed[:len(s.typed)-1]
	}
}

func (s *Session) recordMistake(ctx context.Context, cursor int, ch byte) error {
	sp, ok := lo.Find(s.spans, func(sp span) bool {
		return sp.start <= cursor && cursor < sp.end
	})
	if !ok || s.recorder == nil {
		return nil
	}
	if err := s.recorder.RecordMistake(ctx, sp.word.Display, cursor-sp.start, ch); err != nil {
		return fmt.Errorf("failed to record mistake: %w", err)
	}
	return nil
}

func (s *Session) markCompleted() {
	for _, sp := range s.spans {
		if sp.end != len(s.typed) || lo.Contains(s.completed, sp.word.WordID) {
			continue
		}
		s.completed = append(s.completed, sp.word.WordID)
		return
	}
}

func isBackspace(code int) bool {
	return code == KeyBS || code == KeyDEL || code == KeyBackspace
}

// Stats returns speed over the resolved text and accuracy over every typed
// keystroke. Corrected mistakes still count against accuracy.
func (s *Session) Stats() (Stats, error) {
	if s.state == NotStarted {
		return Stats{}, ErrInvalidState
	}
	duration := s.now().Sub(s.startedAt)
	st := Stats{Duration: duration, Accuracy: 100.0}
	if secs := duration.Seconds(); secs > 0 {
		st.CPS = float64(len(s.typed)) / secs
	}
	if s.total > 0 {
		st.Accuracy = float64(s.total-s.mistakes) / float64(s.total) * 100
	}
	return st, nil
}

// Finish records the lesson and its completed words. It serves both normal
// completion and an abandoned lesson. A session without keystrokes records
// nothing and returns 0.
func (s *Session) Finish(ctx context.Context, sink LessonSink) (int64, error) {
	if s.recorded {
		return 0, ErrFinished
	}
	st, err := s.Stats()
	if errors.Is(err, ErrInvalidState) {
		return 0, nil
	}
	id, err := sink.RecordLesson(ctx, model.UnixSeconds(s.startedAt), s.fullText, s.raw.String(), st.Duration.Seconds())
	if err != nil {
		return 0, err
	}
	s.recorded = true
	if err := sink.RecordLessonWords(ctx, id, s.CompletedWordIDs()); err != nil {
		return id, err
	}
	return id, nil
}

// State returns the lifecycle phase.
func (s *Session) State() State { return s.state }

// Words returns the lesson words.
func (s *Session) Words() []model.LessonWord { return s.words }

// FullText returns the text to type.
func (s *Session) FullText() string { return s.fullText }

// Typed returns the resolved typed text.
func (s *Session) Typed() string { return string(s.typed) }

// RawTyped returns every keystroke including backspace markers.
func (s *Session) RawTyped() string { return s.raw.String() }

// Cursor returns the index of the next character to type.
func (s *Session) Cursor() int { return len(s.typed) }

// TotalTyped returns the number of non-backspace keystrokes.
func (s *Session) TotalTyped() int { return s.total }

// Mistakes returns the number of mistyped keystrokes.
func (s *Session) Mistakes() int { return s.mistakes }

// StartedAt returns the time of the first keystroke.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// CompletedWordIDs returns ids of completed words in completion order.
func (s *Session) CompletedWordIDs() []int64 {
	return append([]int64(nil), s.completed...)
}

// Class classifies the character at i.
func (s *Session) Class(i int) CharClass {
	if i < 0 || i >= len(s.typed) {
		return Untyped
	}
	if s.typed[i] == s.fullText[i] {
		return Correct
	}
	return Incorrect
}

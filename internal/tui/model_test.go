package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/keytutor/internal/model"
	"github.com/verte-zerg/keytutor/internal/session"
	"github.com/verte-zerg/keytutor/internal/stats"
)

type fakeLessons struct {
	lesson []model.LessonWord
	short  bool
	calls  int
}

func (f *fakeLessons) Generate(context.Context) ([]model.LessonWord, error) {
	f.calls++
	return f.lesson, nil
}

func (f *fakeLessons) Short([]model.LessonWord) bool { return f.short }

type savedLesson struct {
	required string
	typed    string
	words    []int64
}

type fakeRecorder struct {
	lessons   []savedLesson
	mistakes  int
	lessonErr error
}

func (f *fakeRecorder) RecordMistake(context.Context, string, int, byte) error {
	f.mistakes++
	return nil
}

func (f *fakeRecorder) RecordLesson(_ context.Context, _ float64, required, typed string, _ float64) (int64, error) {
	if f.lessonErr != nil {
		return 0, f.lessonErr
	}
	f.lessons = append(f.lessons, savedLesson{required: required, typed: typed})
	return int64(len(f.lessons)), nil
}

func (f *fakeRecorder) RecordLessonWords(_ context.Context, id int64, ids []int64) error {
	f.lessons[id-1].words = ids
	return nil
}

type fakePerf struct {
	ema   stats.EMA
	calls int
}

func (f *fakePerf) EMAStats(context.Context) (stats.EMA, error) {
	f.calls++
	return f.ema, nil
}

func newTestModel(t *testing.T, lessons *fakeLessons, rec *fakeRecorder, perf Performance) *Model {
	t.Helper()
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	m, err := NewModel(lessons, rec, perf, session.WithClock(clock))
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestRenderFooterFormats(t *testing.T) {
	lessons := &fakeLessons{lesson: []model.LessonWord{word(1, "abcd", "")}}
	m := newTestModel(t, lessons, &fakeRecorder{}, &fakePerf{})
	m.Update(runes("ab"))
	m.hasLast = true
	m.last = session.Stats{CPS: 7.24, Accuracy: 97.8}
	m.ema = stats.EMA{CPS: 6.81, Accuracy: 96.9, OK: true}

	out := m.renderFooter()
	if out == "" {
		t.Fatalf("expected footer output")
	}
	if !containsAll(out, []string{"Progress 50%", "Last 7.2 cps", "97.8%", "EMA 6.8 cps", "96.9%"}) {
		t.Fatalf("footer missing expected segments: %s", out)
	}
	if strings.Contains(out, "short lesson") {
		t.Fatalf("unexpected short lesson notice: %s", out)
	}
}

func TestRenderFooterShortNotice(t *testing.T) {
	lessons := &fakeLessons{lesson: []model.LessonWord{word(1, "ab", "")}, short: true}
	m := newTestModel(t, lessons, &fakeRecorder{}, nil)
	if out := m.renderFooter(); !strings.Contains(out, "short lesson") {
		t.Fatalf("expected short lesson notice: %s", out)
	}
}

func TestKeyCodes(t *testing.T) {
	cases := []struct {
		msg  tea.KeyMsg
		want []int
	}{
		{tea.KeyMsg{Type: tea.KeyBackspace}, []int{session.KeyDEL}},
		{tea.KeyMsg{Type: tea.KeyCtrlH}, []int{session.KeyBS}},
		{tea.KeyMsg{Type: tea.KeyDelete}, []int{session.KeyBackspace}},
		{tea.KeyMsg{Type: tea.KeySpace}, []int{' '}},
		{runes("a"), []int{'a'}},
		{runes("€"), []int{0x20AC}},
		{tea.KeyMsg{Type: tea.KeyEnter}, nil},
	}
	for _, tc := range cases {
		got := keyCodes(tc.msg)
		if len(got) != len(tc.want) {
			t.Fatalf("%v: expected %v, got %v", tc.msg, tc.want, got)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("%v: expected %v, got %v", tc.msg, tc.want, got)
			}
		}
	}
}

func TestCompletingLessonRecordsAndRotates(t *testing.T) {
	lessons := &fakeLessons{lesson: []model.LessonWord{word(1, "ab", " "), word(2, "cde", "")}}
	rec := &fakeRecorder{}
	perf := &fakePerf{ema: stats.EMA{CPS: 3, Accuracy: 90, OK: true}}
	m := newTestModel(t, lessons, rec, perf)

	m.Update(runes("ab"))
	m.Update(tea.KeyMsg{Type: tea.KeySpace})
	_, cmd := m.Update(runes("cx"))
	if isQuit(cmd) {
		t.Fatalf("unexpected quit")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	m.Update(runes("de"))

	if len(rec.lessons) != 1 {
		t.Fatalf("expected 1 lesson, got %d", len(rec.lessons))
	}
	got := rec.lessons[0]
	if got.required != "ab cde" || got.typed != "ab cx\bde" {
		t.Fatalf("unexpected lesson: %+v", got)
	}
	if len(got.words) != 2 || got.words[0] != 1 || got.words[1] != 2 {
		t.Fatalf("unexpected completed words: %v", got.words)
	}
	if rec.mistakes != 1 {
		t.Fatalf("expected 1 mistake, got %d", rec.mistakes)
	}
	if lessons.calls != 2 || m.sess.State() != session.NotStarted {
		t.Fatalf("expected a fresh lesson after completion")
	}
	if !m.hasLast || perf.calls != 2 {
		t.Fatalf("expected footer stats refresh")
	}
}

func TestCtrlCAbandonsLesson(t *testing.T) {
	lessons := &fakeLessons{lesson: []model.LessonWord{word(1, "abc", "")}}
	rec := &fakeRecorder{}
	m := newTestModel(t, lessons, rec, nil)

	m.Update(runes("a"))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if isQuit(cmd) {
		t.Fatalf("ctrl+c must not quit")
	}
	if len(rec.lessons) != 1 || rec.lessons[0].typed != "a" {
		t.Fatalf("expected abandoned lesson to be recorded: %+v", rec.lessons)
	}
	if lessons.calls != 2 {
		t.Fatalf("expected next lesson, got %d generations", lessons.calls)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if len(rec.lessons) != 1 {
		t.Fatalf("untouched lesson must not be recorded")
	}
}

func TestEscRecordsAndQuits(t *testing.T) {
	lessons := &fakeLessons{lesson: []model.LessonWord{word(1, "abc", "")}}
	rec := &fakeRecorder{}
	m := newTestModel(t, lessons, rec, nil)

	m.Update(runes("ab"))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if !isQuit(cmd) {
		t.Fatalf("expected quit")
	}
	if m.Err() != nil {
		t.Fatalf("unexpected error: %v", m.Err())
	}
	if len(rec.lessons) != 1 || rec.lessons[0].typed != "ab" {
		t.Fatalf("expected lesson to be recorded: %+v", rec.lessons)
	}
}

func TestPersistenceFailureQuits(t *testing.T) {
	boom := errors.New("disk full")
	lessons := &fakeLessons{lesson: []model.LessonWord{word(1, "a", "")}}
	m := newTestModel(t, lessons, &fakeRecorder{lessonErr: boom}, nil)

	_, cmd := m.Update(runes("a"))
	if !isQuit(cmd) {
		t.Fatalf("expected quit")
	}
	if !errors.Is(m.Err(), boom) {
		t.Fatalf("expected %v, got %v", boom, m.Err())
	}
}

func TestEmptyLessonFails(t *testing.T) {
	_, err := NewModel(&fakeLessons{}, &fakeRecorder{}, nil)
	if !errors.Is(err, ErrNoWords) {
		t.Fatalf("expected ErrNoWords, got %v", err)
	}
}

func containsAll(haystack string, needles []string) bool {
	for _, needle := range needles {
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}

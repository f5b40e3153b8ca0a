package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/samber/lo"

	"github.com/verte-zerg/keytutor/internal/model"
	"github.com/verte-zerg/keytutor/internal/session"
)

type styledRune struct {
	s       string
	width   int
	isSpace bool
}

// classifier is the view of a session needed for rendering.
type classifier interface {
	Words() []model.LessonWord
	FullText() string
	Class(i int) session.CharClass
}

type span struct {
	start int
	end   int
}

// wordSpans returns the display range of each lesson word in the full text.
func wordSpans(words []model.LessonWord) []span {
	spans := make([]span, 0, len(words))
	offset := 0
	for _, w := range words {
		spans = append(spans, span{start: offset, end: offset + len(w.Display)})
		offset += len(w.Display) + len(w.Separator)
	}
	return spans
}

// currentSpan is the word being typed: the first one not yet fully typed.
func currentSpan(spans []span, cursorIndex int) (span, bool) {
	if cursorIndex < 0 {
		return span{}, false
	}
	return lo.Find(spans, func(sp span) bool { return cursorIndex < sp.end })
}

func buildStyledRunes(src classifier, cursorIndex int) []styledRune {
	target := src.FullText()
	current, hasCurrent := currentSpan(wordSpans(src.Words()), cursorIndex)

	out := make([]styledRune, 0, len(target))
	for i := 0; i < len(target); i++ {
		ch := target[i]
		shown := string(ch)
		style := pendingStyle
		switch {
		case i == cursorIndex:
			style = cursorStyle
		case src.Class(i) == session.Correct:
			style = correctStyle
		case src.Class(i) == session.Incorrect:
			style = incorrectStyle
			if ch == ' ' {
				shown = "•"
			}
		case hasCurrent && i >= current.start && i < current.end:
			style = currentWordStyle
		}
		out = append(out, styledRune{
			s:       style.Render(shown),
			width:   runewidth.StringWidth(shown),
			isSpace: ch == ' ',
		})
	}
	return out
}

func renderStyledRunes(runes []styledRune) string {
	var b strings.Builder
	for _, r := range runes {
		b.WriteString(r.s)
	}
	return b.String()
}

// chunks splits runes after every space, so each chunk is a word with its
// trailing separator.
func chunks(runes []styledRune) [][]styledRune {
	var out [][]styledRune
	start := 0
	for i, r := range runes {
		if r.isSpace {
			out = append(out, runes[start:i+1])
			start = i + 1
		}
	}
	if start < len(runes) {
		out = append(out, runes[start:])
	}
	return out
}

func chunkWidth(chunk []styledRune) int {
	return lo.SumBy(chunk, func(r styledRune) int { return r.width })
}

// wrapStyledRunes fills lines chunk by chunk. A trailing space stays with its
// word so every character keeps a cell; a chunk wider than the line is split.
func wrapStyledRunes(runes []styledRune, width int) string {
	if width <= 0 {
		return renderStyledRunes(runes)
	}
	var lines []string
	var line strings.Builder
	used := 0
	flush := func() {
		lines = append(lines, line.String())
		line.Reset()
		used = 0
	}

	for _, chunk := range chunks(runes) {
		if used > 0 && used+chunkWidth(chunk) > width {
			flush()
		}
		for _, r := range chunk {
			if used > 0 && used+r.width > width {
				flush()
			}
			line.WriteString(r.s)
			used += r.width
		}
	}
	if line.Len() > 0 || len(lines) == 0 {
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}

package stats

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/samber/lo"

	"github.com/verte-zerg/keytutor/internal/model"
)

const defaultTopBigrams = 10

// LessonSummary is the replayed outcome of one stored lesson.
type LessonSummary struct {
	At       time.Time
	CPS      float64
	Accuracy float64
	Typed    int
	Mistakes int
}

// Report contains precomputed data for stats rendering.
type Report struct {
	Lessons []LessonSummary
	EMA     EMA
	Top     []BigramWeight
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, m *Model) (Report, error) {
	lessons, err := m.reader.ListLessons(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to load lessons: %w", err)
	}
	weights, err := m.BigramWeights(ctx)
	if err != nil {
		return Report{}, err
	}

	summaries := lo.FilterMap(lessons, func(l model.LessonRecord, _ int) (LessonSummary, bool) {
		if l.Duration == nil {
			return LessonSummary{}, false
		}
		res := Replay(l.TextRequired, l.TextTyped)
		if res.Typed == 0 {
			return LessonSummary{}, false
		}
		return LessonSummary{
			At:       model.FromUnixSeconds(l.Timestamp),
			CPS:      res.CPS(*l.Duration),
			Accuracy: res.Accuracy(),
			Typed:    res.Typed,
			Mistakes: res.Mistakes,
		}, true
	})

	return Report{
		Lessons: summaries,
		EMA:     combineEMA(lessons, model.UnixSeconds(m.now())),
		Top:     TopBigrams(weights, defaultTopBigrams),
	}, nil
}

// RenderReport prints the summary, a cps sparkline and the weakest bigrams.
func RenderReport(w io.Writer, r Report, window, width int) error {
	if len(r.Lessons) == 0 {
		if _, err := fmt.Fprintln(w, "No lessons found."); err != nil {
			return err
		}
		return renderBigrams(w, r.Top)
	}

	bestCPS := lo.MaxBy(r.Lessons, func(a, b LessonSummary) bool { return a.CPS > b.CPS }).CPS
	lines := []string{
		"Summary",
		fmt.Sprintf("Lessons: %d", len(r.Lessons)),
		fmt.Sprintf("Best CPS: %.2f", bestCPS),
	}
	if r.EMA.OK {
		lines = append(lines,
			fmt.Sprintf("EMA CPS: %.2f", r.EMA.CPS),
			fmt.Sprintf("EMA Accuracy: %.2f%%", r.EMA.Accuracy),
		)
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	cps := lo.Map(r.Lessons, func(l LessonSummary, _ int) float64 { return l.CPS })
	acc := lo.Map(r.Lessons, func(l LessonSummary, _ int) float64 { return l.Accuracy })
	if _, err := fmt.Fprintf(w, "\nCPS      %s\n", Sparkline(lastN(MovingAverage(cps, window), width))); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Accuracy %s\n\n", Sparkline(lastN(MovingAverage(acc, window), width))); err != nil {
		return err
	}
	return renderBigrams(w, r.Top)
}

func renderBigrams(w io.Writer, top []BigramWeight) error {
	if len(top) == 0 {
		_, err := fmt.Fprintln(w, "No mistakes recorded.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Weakest Bigrams"); err != nil {
		return err
	}
	cols := []column{{header: "Bigram"}, {header: "Weight", right: true}}
	rows := lo.Map(top, func(b BigramWeight, _ int) []string {
		return []string{b.Bigram, fmt.Sprintf("%.3f", b.Weight)}
	})
	for _, line := range renderTable(cols, rows) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

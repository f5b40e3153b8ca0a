package stats

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/verte-zerg/keytutor/internal/model"
)

// Reader is the read side of the mistake store.
type Reader interface {
	ListMistakes(ctx context.Context) ([]model.MistakeRecord, error)
	ListLessons(ctx context.Context) ([]model.LessonRecord, error)
}

// Model derives bigram weights and smoothed speed/accuracy from stored history.
type Model struct {
	reader Reader
	now    func() time.Time
}

// NewModel returns a Model reading from r. A nil clock means time.Now.
func NewModel(r Reader, now func() time.Time) *Model {
	if now == nil {
		now = time.Now
	}
	return &Model{reader: r, now: now}
}

// EMA is a time-decayed average of lesson speed and accuracy. OK is false
// when no lesson contributed.
type EMA struct {
	CPS      float64
	Accuracy float64
	OK       bool
}

// BigramWeight pairs a bigram with its decayed mistake weight.
type BigramWeight struct {
	Bigram string
	Weight float64
}

// MistakeBigram returns the bigram a mistake at index points at. Index 0 maps
// to the word-initial "^" form.
func MistakeBigram(word string, index int) (string, bool) {
	if index < 0 || index >= len(word) {
		return "", false
	}
	if index == 0 {
		return "^" + strings.ToLower(word[:1]), true
	}
	return strings.ToLower(word[index-1 : index+1]), true
}

// BigramWeights sums the decayed weight of every mistake per bigram. The map
// is empty, not nil, when there are no mistakes.
func (m *Model) BigramWeights(ctx context.Context) (map[string]float64, error) {
	mistakes, err := m.reader.ListMistakes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load mistakes: %w", err)
	}
	now := model.UnixSeconds(m.now())
	weights := map[string]float64{}
	for _, rec := range mistakes {
		bigram, ok := MistakeBigram(rec.DisplayedWord, rec.CharIndex)
		if !ok {
			continue
		}
		weights[bigram] += DecayWeight(rec.Timestamp, now)
	}
	return weights, nil
}

// EMAStats replays every timed lesson and combines speed and accuracy with
// the same decay as the bigram weights.
func (m *Model) EMAStats(ctx context.Context) (EMA, error) {
	lessons, err := m.reader.ListLessons(ctx)
	if err != nil {
		return EMA{}, fmt.Errorf("failed to load lessons: %w", err)
	}
	return combineEMA(lessons, model.UnixSeconds(m.now())), nil
}

func combineEMA(lessons []model.LessonRecord, now float64) EMA {
	var totalWeight, weightedCPS, weightedAcc float64
	for _, lesson := range lessons {
		if lesson.Duration == nil {
			continue
		}
		res := Replay(lesson.TextRequired, lesson.TextTyped)
		if res.Typed == 0 {
			continue
		}
		w := DecayWeight(lesson.Timestamp, now)
		totalWeight += w
		weightedCPS += res.CPS(*lesson.Duration) * w
		weightedAcc += res.Accuracy() * w
	}
	if totalWeight == 0 {
		return EMA{}
	}
	return EMA{
		CPS:      weightedCPS / totalWeight,
		Accuracy: weightedAcc / totalWeight,
		OK:       true,
	}
}

// TopBigrams returns the n heaviest bigrams, ties broken by bigram.
func TopBigrams(weights map[string]float64, n int) []BigramWeight {
	items := lo.MapToSlice(weights, func(bigram string, w float64) BigramWeight {
		return BigramWeight{Bigram: bigram, Weight: w}
	})
	sort.Slice(items, func(i, j int) bool {
		if items[i].Weight == items[j].Weight {
			return items[i].Bigram < items[j].Bigram
		}
		return items[i].Weight > items[j].Weight
	})
	if n > 0 && n < len(items) {
		items = items[:n]
	}
	return items
}

// Package generator builds adaptive typing lessons.
package generator

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/verte-zerg/keytutor/internal/model"
)

// WeightSource provides the decayed mistake weight per bigram.
type WeightSource interface {
	BigramWeights(ctx context.Context) (map[string]float64, error)
}

// RecentSource provides ids of recently completed words.
type RecentSource interface {
	RecentlyPracticedWordIDs(ctx context.Context, within time.Duration) (map[int64]struct{}, error)
}

// WordSource draws ASCII-only candidate words.
type WordSource interface {
	RandomWords(ctx context.Context, n int, exclude map[int64]struct{}) ([]model.Word, error)
	WordWithBigram(ctx context.Context, bigram string, exclude map[int64]struct{}) (model.Word, bool, error)
}

// Generator produces lessons biased toward the weakest bigrams.
type Generator struct {
	cfg     model.LessonConfig
	weights WeightSource
	recent  RecentSource
	words   WordSource
	rnd     *rand.Rand
}

// Option configures a Generator.
type Option func(*Generator)

// WithRand sets the random source.
func WithRand(rnd *rand.Rand) Option {
	return func(g *Generator) {
		g.rnd = rnd
	}
}

// New returns a Generator seeded with the current time.
func New(cfg model.LessonConfig, weights WeightSource, recent RecentSource, words WordSource, opts ...Option) *Generator {
	g := &Generator{
		cfg:     cfg,
		weights: weights,
		recent:  recent,
		words:   words,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate assembles one lesson. A lesson shorter than the configured size is
// returned without error when the corpus runs out of eligible words.
func (g *Generator) Generate(ctx context.Context) ([]model.LessonWord, error) {
	weights, err := g.weights.BigramWeights(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := g.recent.RecentlyPracticedWordIDs(ctx, g.cfg.ExcludeRecent)
	if err != nil {
		return nil, err
	}

	count := g.cfg.Words
	var words []model.Word
	if sampler := newBigramSampler(weights); sampler == nil {
		words, err = g.words.RandomWords(ctx, count, recent)
	} else {
		words, err = g.sampleWeighted(ctx, count, sampler, recent)
	}
	if err != nil {
		return nil, err
	}

	if len(words) < count {
		exclude := lo.Assign(recent, idSet(words))
		more, err := g.words.RandomWords(ctx, count-len(words), exclude)
		if err != nil {
			return nil, err
		}
		words = append(words, more...)
	}
	return g.format(words), nil
}

// Short reports whether lesson fell short of the configured size.
func (g *Generator) Short(lesson []model.LessonWord) bool {
	return len(lesson) < g.cfg.Words
}

func (g *Generator) sampleWeighted(ctx context.Context, count int, sampler *bigramSampler, recent map[int64]struct{}) ([]model.Word, error) {
	used := lo.Assign(recent)
	words := make([]model.Word, 0, count)
	for i := 0; i < count; i++ {
		bigram := sampler.draw(g.rnd)
		word, ok, err := g.words.WordWithBigram(ctx, bigram, used)
		if err != nil {
			return nil, err
		}
		if !ok {
			fallback, err := g.words.RandomWords(ctx, 1, used)
			if err != nil {
				return nil, fmt.Errorf("failed to draw fallback for %q: %w", bigram, err)
			}
			if len(fallback) == 0 {
				continue
			}
			word = fallback[0]
		}
		words = append(words, word)
		used[word.ID] = struct{}{}
	}
	return words, nil
}

func (g *Generator) format(words []model.Word) []model.LessonWord {
	punct := []rune(g.cfg.PunctSet)
	lesson := make([]model.LessonWord, 0, len(words))
	for i, w := range words {
		sep := ""
		if i < len(words)-1 {
			sep = g.separator(punct)
		}
		lesson = append(lesson, model.LessonWord{
			WordID:    w.ID,
			Original:  w.Title,
			Display:   applyCase(g.rnd.Intn(4), w.Title),
			Separator: sep,
		})
	}
	return lesson
}

func (g *Generator) separator(punct []rune) string {
	if len(punct) == 0 || g.rnd.Float64() >= g.cfg.PunctPct {
		return " "
	}
	return string(punct[g.rnd.Intn(len(punct))]) + " "
}

// Case transforms picked uniformly per word.
const (
	caseCapitalize = iota
	caseUpper
	caseLower
	caseKeep
)

func applyCase(mode int, word string) string {
	switch mode {
	case caseCapitalize:
		if word == "" {
			return word
		}
		return strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
	case caseUpper:
		return strings.ToUpper(word)
	case caseLower:
		return strings.ToLower(word)
	default:
		return word
	}
}

// bigramSampler draws bigrams with replacement, proportional to weight.
type bigramSampler struct {
	keys       []string
	cumulative []float64
}

// newBigramSampler returns nil when there is nothing to sample from.
func newBigramSampler(weights map[string]float64) *bigramSampler {
	keys := lo.Filter(lo.Keys(weights), func(k string, _ int) bool { return weights[k] > 0 })
	if len(keys) == 0 {
		return nil
	}
	sort.Strings(keys)
	cumulative := make([]float64, len(keys))
	total := 0.0
	for i, k := range keys {
		total += weights[k]
		cumulative[i] = total
	}
	return &bigramSampler{keys: keys, cumulative: cumulative}
}

func (s *bigramSampler) draw(rnd *rand.Rand) string {
	total := s.cumulative[len(s.cumulative)-1]
	r := rnd.Float64() * total
	idx := sort.Search(len(s.cumulative), func(i int) bool { return s.cumulative[i] > r })
	if idx == len(s.keys) {
		idx--
	}
	return s.keys[idx]
}

func idSet(words []model.Word) map[int64]struct{} {
	return lo.SliceToMap(words, func(w model.Word) (int64, struct{}) {
		return w.ID, struct{}{}
	})
}

// Package model defines shared data structures.
package model

import "time"

// BackspaceMarker is written to the raw keystroke log for every backspace.
const BackspaceMarker = '\b'

// Lesson defaults.
const (
	DefaultWords         = 10
	DefaultPunctPct      = 0.3
	DefaultPunctSet      = ",.;:!?"
	DefaultExcludeRecent = 5 * time.Minute
)

// LessonConfig defines lesson generation settings.
type LessonConfig struct {
	Words         int
	PunctPct      float64
	PunctSet      string
	ExcludeRecent time.Duration
}

// DefaultLessonConfig returns the stock lesson settings.
func DefaultLessonConfig() LessonConfig {
	return LessonConfig{
		Words:         DefaultWords,
		PunctPct:      DefaultPunctPct,
		PunctSet:      DefaultPunctSet,
		ExcludeRecent: DefaultExcludeRecent,
	}
}

// Paths holds the locations of the two databases.
type Paths struct {
	StatsDB      string
	DictionaryDB string
}

// MistakeRecord is one mistyped keystroke. DisplayedWord is the word as shown,
// after case transformation.
type MistakeRecord struct {
	DisplayedWord string
	CharIndex     int
	TypedChar     byte
	Timestamp     float64
}

// LessonRecord is one finished or abandoned lesson. TextTyped is the raw
// keystroke log including backspace markers.
type LessonRecord struct {
	ID           int64
	Timestamp    float64
	TextRequired string
	TextTyped    string
	Duration     *float64
}

// LessonWordRecord marks a word completed in a lesson.
type LessonWordRecord struct {
	LessonID  int64
	WordID    int64
	Timestamp float64
}

// LessonWord is one word of a generated lesson.
type LessonWord struct {
	WordID    int64
	Original  string
	Display   string
	Separator string
}

// Word is a dictionary entry.
type Word struct {
	ID    int64  `db:"word_id"`
	Title string `db:"title"`
}

// UnixSeconds converts t to fractional Unix seconds.
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// FromUnixSeconds converts fractional Unix seconds to a time.
func FromUnixSeconds(ts float64) time.Time {
	return time.Unix(0, int64(ts*float64(time.Second)))
}

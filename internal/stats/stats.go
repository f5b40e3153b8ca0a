// Package stats contains the performance model, statistics and reporting.
package stats

import (
	"math"
	"strings"

	"github.com/verte-zerg/keytutor/internal/model"
)

const sparkChars = " .:-=+*#%@"

// DecayScale is the time constant of the exponential recency weight.
const DecayScale = 7 * 24 * 3600.0

// DecayWeight returns exp((ts-now)/week): 1 for now, 1/e one week ago.
func DecayWeight(ts, now float64) float64 {
	return math.Exp((ts - now) / DecayScale)
}

// ReplayResult is the outcome of replaying a raw keystroke log.
type ReplayResult struct {
	Resolved string
	Typed    int
	Mistakes int
}

// Replay re-types a raw keystroke log against the required text. Backspace
// markers pop the resolved buffer and are not counted as typed.
func Replay(required, typed string) ReplayResult {
	resolved := make([]byte, 0, len(typed))
	var res ReplayResult
	for i := 0; i < len(typed); i++ {
		ch := typed[i]
		if ch == model.BackspaceMarker {
			if len(resolved) > 0 {
				resolved = resolved[:len(resolved)-1]
			}
			continue
		}
		res.Typed++
		if pos := len(resolved); pos < len(required) && ch != required[pos] {
			res.Mistakes++
		}
		resolved = append(resolved, ch)
	}
	res.Resolved = string(resolved)
	return res
}

// Accuracy returns the percentage of keystrokes that were correct, 100 when
// nothing was typed.
func (r ReplayResult) Accuracy() float64 {
	if r.Typed == 0 {
		return 100.0
	}
	return float64(r.Typed-r.Mistakes) / float64(r.Typed) * 100
}

// CPS returns resolved characters per second.
func (r ReplayResult) CPS(duration float64) float64 {
	if duration <= 0 {
		return 0
	}
	return float64(len(r.Resolved)) / duration
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// lastN keeps the tail of values that fits into width columns.
func lastN(values []float64, width int) []float64 {
	if width <= 0 || len(values) <= width {
		return values
	}
	return values[len(values)-width:]
}

package reward

import "fmt"

// LevelCurve maps lifetime earnings to a level through an ascending
// threshold table. thresholds[i] is the lifetime amount required for
// level i+1, so thresholds[0] is always 0.
type LevelCurve struct {
	thresholds []int64
}

// DefaultThresholds is the standard eight-level curve.
func DefaultThresholds() []int64 {
	return []int64{0, 100, 300, 700, 1500, 3000, 6000, 12000}
}

// NewLevelCurve validates and builds a curve. The table must be non-empty,
// start at 0, and strictly ascend, so monotonicity of LevelFor follows.
func NewLevelCurve(thresholds []int64) (LevelCurve, error) {
	if len(thresholds) == 0 {
		return LevelCurve{}, fmt.Errorf("level curve: empty threshold table")
	}
	if thresholds[0] != 0 {
		return LevelCurve{}, fmt.Errorf("level curve: first threshold must be 0, got %d", thresholds[0])
	}
	for i := 1; i < len(thresholds); i++ {
		if thresholds[i] <= thresholds[i-1] {
			return LevelCurve{}, fmt.Errorf("level curve: thresholds must ascend at index %d", i)
		}
	}
	return LevelCurve{thresholds: thresholds}, nil
}

// LevelFor returns the highest level whose threshold <= lifetime earnings.
// Pure lookup, no side effects, no I/O.
func (c LevelCurve) LevelFor(lifetime int64) int {
	level := 1
	for i, threshold := range c.thresholds {
		if lifetime < threshold {
			break
		}
		level = i + 1
	}
	return level
}

// MaxLevel returns the top of the curve.
func (c LevelCurve) MaxLevel() int {
	return len(c.thresholds)
}

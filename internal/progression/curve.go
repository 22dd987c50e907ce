package progression

import "math"

// RequiredXP is the exponential level curve: the XP needed to advance from
// the given level to the next. Level 1 costs exactly base; each level after
// that multiplies the cost by growth.
func RequiredXP(base, growth float64, level int) float64 {
	return base * math.Pow(growth, float64(level-1))
}

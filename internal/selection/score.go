// Package selection holds the pure selection core: urgency scoring and the
// priority-then-weighted-sampling auction. Nothing here touches storage or
// the clock; callers supply elapsed time, quota standing, and randomness.
package selection

import "fmt"

// Score is a tagged urgency value. Unbounded is a distinct state rather than
// a float Inf literal, and dominates every finite score.
type Score struct {
	value     float64
	unbounded bool
}

// Finite builds a bounded score. Negative values are clamped to zero.
func Finite(v float64) Score {
	if v < 0 {
		v = 0
	}
	return Score{value: v}
}

// Unbounded builds the infinite score: the dose must be selected this digest
// or its quota becomes unsatisfiable.
func Unbounded() Score {
	return Score{unbounded: true}
}

// IsUnbounded reports whether the score is infinite.
func (s Score) IsUnbounded() bool {
	return s.unbounded
}

// Value returns the finite score value. It is 0 for unbounded scores; check
// IsUnbounded first.
func (s Score) Value() float64 {
	if s.unbounded {
		return 0
	}
	return s.value
}

// Less defines the total order over scores. Unbounded dominates everything,
// including another unbounded score (not less).
func (s Score) Less(o Score) bool {
	if s.unbounded {
		return false
	}
	if o.unbounded {
		return true
	}
	return s.value < o.value
}

func (s Score) String() string {
	if s.unbounded {
		return "unbounded"
	}
	return fmt.Sprintf("%g", s.value)
}

// QuotaState is where a dose stands against its hard quota at scoring time:
// r doses still owed in the current window, d digest ticks left to place them
// in (including the current tick).
type QuotaState struct {
	DosesRemaining   int
	DigestsRemaining int
}

// Urgency computes P = T·D + α·Q for one dose.
//
// T is real-valued days since last shown, D the tag demand multiplier, and α
// the quota-aggression weight. Q is 0 when the quota is met or absent
// (quota == nil), and unbounded when r >= d: the dose must take every
// remaining tick, which also covers d == 0 with doses still owed. Otherwise
// Q = 1/(d-r), tightening as the deadline closes.
func Urgency(daysSinceShown, demand, alpha float64, quota *QuotaState) Score {
	t := daysSinceShown * demand

	if quota == nil {
		return Finite(t)
	}

	r := quota.DosesRemaining
	d := quota.DigestsRemaining
	switch {
	case r <= 0:
		return Finite(t)
	case r >= d:
		return Unbounded()
	default:
		return Finite(t + alpha/float64(d-r))
	}
}

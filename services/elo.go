package services

import (
	"fmt"
)

const (
	// KFactor is the flat shift applied per decided comparison. It is not
	// weighted by expected score.
	KFactor = 32.0
	// DefaultScore seeds a rating on first comparison.
	DefaultScore = 1500.0
)

type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLose Outcome = "lose"
	OutcomeTie  Outcome = "tie"
)

func ParseOutcome(s string) (Outcome, error) {
	switch o := Outcome(s); o {
	case OutcomeWin, OutcomeLose, OutcomeTie:
		return o, nil
	}
	return "", fmt.Errorf("%w: outcome %q must be win, lose or tie", ErrInvalidOutcome, s)
}

// ApplyOutcome returns the new scores for the meal in the winner slot (a) and
// the loser slot (b). "lose" means the winner slot actually lost.
// Scores are not clamped.
func ApplyOutcome(a, b float64, outcome Outcome) (float64, float64) {
	switch outcome {
	case OutcomeWin:
		return a + KFactor, b - KFactor
	case OutcomeLose:
		return a - KFactor, b + KFactor
	default:
		return a, b
	}
}

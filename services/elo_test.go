package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyOutcome(t *testing.T) {
	tests := []struct {
		name    string
		a, b    float64
		outcome Outcome
		wantA   float64
		wantB   float64
	}{
		{"win from defaults", 1500, 1500, OutcomeWin, 1532, 1468},
		{"lose from defaults", 1500, 1500, OutcomeLose, 1468, 1532},
		{"tie leaves scores", 1612.5, 1401, OutcomeTie, 1612.5, 1401},
		{"no floor", -10, 0, OutcomeLose, -42, 32},
		{"flat shift regardless of gap", 3000, 100, OutcomeWin, 3032, 68},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := ApplyOutcome(tt.a, tt.b, tt.outcome)
			assert.Equal(t, tt.wantA, a)
			assert.Equal(t, tt.wantB, b)
		})
	}
}

func TestApplyOutcomeWinThenLoseIsNetZero(t *testing.T) {
	for _, start := range [][2]float64{{1500, 1500}, {1720, 1333.25}, {-64, 12}} {
		a, b := ApplyOutcome(start[0], start[1], OutcomeWin)
		a, b = ApplyOutcome(a, b, OutcomeLose)
		assert.Equal(t, start[0], a)
		assert.Equal(t, start[1], b)
	}
}

func TestApplyOutcomeWinShiftsByK(t *testing.T) {
	for _, s := range []float64{0, 1500, 1234.5, -900} {
		a, b := ApplyOutcome(s, s+7, OutcomeWin)
		assert.Equal(t, KFactor, a-s)
		assert.Equal(t, -KFactor, b-(s+7))
	}
}

func TestParseOutcome(t *testing.T) {
	for _, s := range []string{"win", "lose", "tie"} {
		o, err := ParseOutcome(s)
		require.NoError(t, err)
		assert.Equal(t, Outcome(s), o)
	}

	for _, s := range []string{"", "WIN", "draw"} {
		_, err := ParseOutcome(s)
		assert.True(t, errors.Is(err, ErrInvalidOutcome), s)
	}
}

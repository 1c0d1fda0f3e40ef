package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOwnership struct {
	owned map[string]string // meal id -> owner
	err   error
	calls int
}

func (f *fakeOwnership) MealsBelongToUser(_ context.Context, userID string, mealIDs ...string) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	for _, id := range mealIDs {
		if f.owned[id] != userID {
			return false, nil
		}
	}
	return true, nil
}

// The rejection paths return before any transaction, so a nil DB is enough.
func newGateOnlyService(owner *fakeOwnership) *ComparisonService {
	return NewComparisonService(nil, NewRatingStore(nil), owner)
}

func TestRecordComparisonRejectsCrossUser(t *testing.T) {
	owner := &fakeOwnership{owned: map[string]string{"meal-x": "user-x", "meal-y": "user-y"}}
	svc := newGateOnlyService(owner)

	_, err := svc.RecordComparison(context.Background(), "user-x", "meal-x", "meal-y", OutcomeWin)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFoundOrForbidden))
	assert.Equal(t, 1, owner.calls)
}

func TestRecordComparisonRejectsUnknownMeal(t *testing.T) {
	owner := &fakeOwnership{owned: map[string]string{"meal-a": "u"}}
	svc := newGateOnlyService(owner)

	_, err := svc.RecordComparison(context.Background(), "u", "meal-a", "ghost", OutcomeTie)
	assert.True(t, errors.Is(err, ErrNotFoundOrForbidden))
}

func TestRecordComparisonRejectsInvalidInput(t *testing.T) {
	owner := &fakeOwnership{owned: map[string]string{"a": "u", "b": "u"}}
	svc := newGateOnlyService(owner)

	_, err := svc.RecordComparison(context.Background(), "u", "a", "b", Outcome("draw"))
	assert.True(t, errors.Is(err, ErrInvalidOutcome))

	_, err = svc.RecordComparison(context.Background(), "u", "a", "a", OutcomeWin)
	assert.True(t, errors.Is(err, ErrInvalidOutcome))

	assert.Zero(t, owner.calls, "ownership must not be queried for malformed input")
}

func TestRecordComparisonOwnershipFailureIsTransient(t *testing.T) {
	owner := &fakeOwnership{err: errors.New("connection reset")}
	svc := newGateOnlyService(owner)

	_, err := svc.RecordComparison(context.Background(), "u", "a", "b", OutcomeWin)
	assert.True(t, errors.Is(err, ErrTransientPersistence))
	assert.False(t, errors.Is(err, ErrNotFoundOrForbidden))
}

func TestValidMealID(t *testing.T) {
	assert.True(t, validMealID("8f14e45f-ceea-467f-a5c4-3f2b2e1d9b11"))
	assert.False(t, validMealID("42"))
	assert.False(t, validMealID(""))
}

func TestConstraintViolationCodes(t *testing.T) {
	fk := fmt.Errorf("failed to ensure ranking m: %w", &pgconn.PgError{Code: "23503"})
	unique := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})

	assert.True(t, isForeignKeyViolation(fk))
	assert.False(t, isForeignKeyViolation(unique))
	assert.False(t, isForeignKeyViolation(errors.New("23503")))
	assert.True(t, isUniqueViolation(unique))
	assert.False(t, isUniqueViolation(fk))
}

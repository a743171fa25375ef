// ABOUTME: Tests for create, update, delete, and transition
// ABOUTME: Checks cache reconciliation, audit stamps, validation short-circuit, and effects
package entity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu   sync.Mutex
	ops  []Op
	errs []error
}

func (o *recordingObserver) Observe(_ string, op Op, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops = append(o.ops, op)
	o.errs = append(o.errs, err)
}

func TestCreatePrependsAndStampsAudit(t *testing.T) {
	f := newFixture(t, Options[person]{}, seedRecords()...)
	f.load(t)

	ann, err := f.pipeline.Create(context.Background(), map[string]any{
		"name":  "Ann",
		"email": "ann@x.com",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(4), ann.ID)
	assert.Equal(t, 4, f.cache.Len())
	assert.Equal(t, []int64{4, 3, 2, 1}, ids(f.cache.Items()))
	assert.False(t, ann.CreatedAt.IsZero())
	assert.Equal(t, ann.CreatedAt, ann.UpdatedAt)
	assert.Equal(t, 1, f.repo.count("create"))
}

func TestCreateRejectsInvalidInputWithoutStoreCall(t *testing.T) {
	f := newFixture(t, Options[person]{}, seedRecords()...)
	f.load(t)

	_, err := f.pipeline.Create(context.Background(), map[string]any{
		"name":  "Ann",
		"email": "not-an-email",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
	fe, ok := AsFieldErrors(err)
	require.True(t, ok)
	assert.Equal(t, "Please enter a valid email address", fe["email"])
	assert.Equal(t, 0, f.repo.count("create"))
	assert.Equal(t, 3, f.cache.Len())
}

func TestCreateRejectsFractionalWholeNumber(t *testing.T) {
	f := newFixture(t, Options[person]{}, seedRecords()...)
	f.load(t)

	_, err := f.pipeline.Create(context.Background(), map[string]any{
		"name":   "Ann",
		"email":  "ann@x.com",
		"visits": 2.5,
	})

	fe, ok := AsFieldErrors(err)
	require.True(t, ok)
	assert.Equal(t, FieldErrors{"visits": "must be a whole number"}, fe)
	assert.Equal(t, 0, f.repo.count("create"))
	assert.Equal(t, 3, f.cache.Len())

	require.NoError(t, f.pipeline.Load(context.Background()))
	assert.Equal(t, 3, f.cache.Len())
	assert.Zero(t, f.cache.Skipped())
}

func TestUpdateRejectsMistypedValuesWithoutStoreCall(t *testing.T) {
	f := newFixture(t, Options[person]{}, seedRecords()...)
	f.load(t)

	_, err := f.pipeline.Update(context.Background(), 3, map[string]any{
		"visits": "lots",
		"score":  true,
		"name":   []any{"Cara"},
	})

	fe, ok := AsFieldErrors(err)
	require.True(t, ok)
	assert.Equal(t, FieldErrors{
		"visits": "must be a whole number",
		"score":  "must be a number",
		"name":   "has the wrong type",
	}, fe)
	assert.Equal(t, 0, f.repo.count("update"))

	updated, err := f.pipeline.Update(context.Background(), 3, map[string]any{"visits": 4.0})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Visits)
}

func TestCreateReportsEveryMissingField(t *testing.T) {
	f := newFixture(t, Options[person]{})

	_, err := f.pipeline.Create(context.Background(), map[string]any{"name": "   "})

	fe, ok := AsFieldErrors(err)
	require.True(t, ok)
	assert.Equal(t, FieldErrors{
		"name":  "Name is required",
		"email": "Email is required",
	}, fe)
}

func TestCreateStoreFailureLeavesCache(t *testing.T) {
	f := newFixture(t, Options[person]{}, seedRecords()...)
	f.load(t)
	f.repo.fail("create", errBackendDown)

	_, err := f.pipeline.Create(context.Background(), map[string]any{"name": "Ann", "email": "ann@x.com"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStore))
	assert.True(t, errors.Is(err, errBackendDown))
	assert.Equal(t, 3, f.cache.Len())
}

func TestCreateAppliesDefaultsAndPrepare(t *testing.T) {
	f := newFixture(t, Options[person]{
		Defaults: func(time.Time) map[string]any {
			return map[string]any{"stage": "Lead", "score": 50.0}
		},
		Prepare: func(values map[string]any, existing []person, _ time.Time) {
			values["company"] = fmt.Sprintf("team-%d", len(existing))
		},
	}, seedRecords()...)
	f.load(t)

	p, err := f.pipeline.Create(context.Background(), map[string]any{
		"name":  "Ann",
		"email": "ann@x.com",
		"stage": "",
	})
	require.NoError(t, err)

	assert.Equal(t, "Lead", p.Stage)
	assert.Equal(t, 50.0, p.Score)
	assert.Equal(t, "team-3", p.Company)
	assert.Equal(t, map[string]any{"stage": "Lead", "score": 50.0}, f.pipeline.Defaults())
}

func TestCreateIgnoresCallerIdentity(t *testing.T) {
	f := newFixture(t, Options[person]{}, seedRecords()...)

	p, err := f.pipeline.Create(context.Background(), map[string]any{"id": int64(1), "name": "Ann", "email": "a@b.co"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), p.ID)
}

func TestUpdateReplacesInPlace(t *testing.T) {
	f := newFixture(t, Options[person]{}, seedRecords()...)
	f.load(t)
	before, _ := f.cache.Get(2)

	updated, err := f.pipeline.Update(context.Background(), 2, map[string]any{"company": "Initech"})
	require.NoError(t, err)

	assert.Equal(t, "Initech", updated.Company)
	assert.Equal(t, "bob", updated.Name)
	assert.Equal(t, []int64{3, 2, 1}, ids(f.cache.Items()))
	cached, _ := f.cache.Get(2)
	assert.Equal(t, "Initech", cached.Company)
	assert.True(t, updated.UpdatedAt.After(before.UpdatedAt))
	assert.Equal(t, before.CreatedAt, updated.CreatedAt)
}

func TestUpdateValidatesOnlyPresentFields(t *testing.T) {
	f := newFixture(t, Options[person]{}, seedRecords()...)
	f.load(t)

	_, err := f.pipeline.Update(context.Background(), 2, map[string]any{"email": "nope"})
	require.Error(t, err)
	fe, _ := AsFieldErrors(err)
	assert.Equal(t, FieldErrors{"email": "Please enter a valid email address"}, fe)
	assert.Equal(t, 0, f.repo.count("update"))
}

func TestUpdateStampAlwaysMovesForward(t *testing.T) {
	f := newFixture(t, Options[person]{}, seedRecords()...)
	f.load(t)
	frozen := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	f.pipeline.opts.Now = func() time.Time { return frozen }

	first, err := f.pipeline.Update(context.Background(), 1, map[string]any{"company": "one"})
	require.NoError(t, err)
	second, err := f.pipeline.Update(context.Background(), 1, map[string]any{"company": "two"})
	require.NoError(t, err)

	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
}

func TestUpdateMissingIdentity(t *testing.T) {
	f := newFixture(t, Options[person]{}, seedRecords()...)
	f.load(t)

	_, err := f.pipeline.Update(context.Background(), 42, map[string]any{"company": "x"})

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, []int64{3, 2, 1}, ids(f.cache.Items()))
}

func TestDeleteRemovesFromCache(t *testing.T) {
	f := newFixture(t, Options[person]{}, seedRecords()...)
	f.load(t)

	require.NoError(t, f.pipeline.Delete(context.Background(), 2))

	assert.Equal(t, []int64{3, 1}, ids(f.cache.Items()))
}

func TestDeleteMissingIdentityLeavesCache(t *testing.T) {
	f := newFixture(t, Options[person]{}, seedRecords()...)
	f.load(t)

	err := f.pipeline.Delete(context.Background(), 42)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, 3, f.cache.Len())
}

func TestDeleteStoreFailure(t *testing.T) {
	f := newFixture(t, Options[person]{}, seedRecords()...)
	f.load(t)
	f.repo.fail("delete", errBackendDown)

	err := f.pipeline.Delete(context.Background(), 1)

	assert.True(t, errors.Is(err, ErrStore))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, 3, f.cache.Len())
}

func stageHistoryHook(t Transition) map[string]any {
	history, _ := t.Values["history"].([]any)
	return map[string]any{
		"history": append(history, fmt.Sprintf("moved from %v to %v", t.From, t.To)),
		"joined":  t.At.Format("2006-01-02"),
	}
}

func TestTransitionRunsHookAndRefreshesStamp(t *testing.T) {
	f := newFixture(t, Options[person]{
		Transitions: map[string]TransitionHook{"stage": stageHistoryHook},
	}, seedRecords()...)
	f.load(t)
	before, _ := f.cache.Get(3)

	moved, err := f.pipeline.Transition(context.Background(), 3, "stage", "Qualified")
	require.NoError(t, err)

	assert.Equal(t, "Qualified", moved.Stage)
	assert.Equal(t, []string{"moved from Lead to Qualified"}, moved.History)
	assert.Equal(t, "2024-03-01", moved.Joined)
	assert.True(t, moved.UpdatedAt.After(before.UpdatedAt))

	again, err := f.pipeline.Transition(context.Background(), 3, "stage", "Closed")
	require.NoError(t, err)
	assert.Equal(t, []string{"moved from Lead to Qualified", "moved from Qualified to Closed"}, again.History)
}

func TestTransitionRejectsBadFieldsAndValues(t *testing.T) {
	f := newFixture(t, Options[person]{}, seedRecords()...)
	f.load(t)

	_, err := f.pipeline.Transition(context.Background(), 3, "nickname", "x")
	assert.True(t, errors.Is(err, ErrInvalid))

	_, err = f.pipeline.Transition(context.Background(), 3, "id", int64(7))
	assert.True(t, errors.Is(err, ErrInvalid))

	_, err = f.pipeline.Transition(context.Background(), 3, "stage", "Bogus")
	fe, ok := AsFieldErrors(err)
	require.True(t, ok)
	assert.Equal(t, "invalid stage: Bogus", fe["stage"])
	assert.Equal(t, 0, f.repo.count("update"))
}

func TestTransitionFallsBackToStore(t *testing.T) {
	f := newFixture(t, Options[person]{}, seedRecords()...)

	moved, err := f.pipeline.Transition(context.Background(), 2, "stage", "Closed")
	require.NoError(t, err)
	assert.Equal(t, "Closed", moved.Stage)
	assert.Equal(t, 1, f.repo.count("get"))

	_, err = f.pipeline.Transition(context.Background(), 77, "stage", "Closed")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestEffectsAreBestEffort(t *testing.T) {
	var mu sync.Mutex
	var changes []Change[person]
	f := newFixture(t, Options[person]{
		Effects: []Effect[person]{
			func(_ context.Context, c Change[person]) error {
				mu.Lock()
				defer mu.Unlock()
				changes = append(changes, c)
				return nil
			},
			func(context.Context, Change[person]) error { return errBackendDown },
		},
	}, seedRecords()...)
	f.load(t)

	created, err := f.pipeline.Create(context.Background(), map[string]any{"name": "Ann", "email": "a@b.co"})
	require.NoError(t, err)
	_, err = f.pipeline.Update(context.Background(), created.ID, map[string]any{"company": "Acme"})
	require.NoError(t, err)
	require.NoError(t, f.pipeline.Delete(context.Background(), created.ID))

	require.Len(t, changes, 3)
	assert.Equal(t, OpCreate, changes[0].Op)
	assert.Nil(t, changes[0].Before)
	assert.Equal(t, "Ann", changes[0].After.Name)

	assert.Equal(t, OpUpdate, changes[1].Op)
	assert.Equal(t, "", changes[1].Before.Company)
	assert.Equal(t, "Acme", changes[1].After.Company)

	assert.Equal(t, OpDelete, changes[2].Op)
	assert.Equal(t, "Acme", changes[2].Before.Company)
	assert.Nil(t, changes[2].After)
}

func TestObserverSeesEveryOperation(t *testing.T) {
	obs := &recordingObserver{}
	f := newFixture(t, Options[person]{Observer: obs}, seedRecords()...)

	require.NoError(t, f.pipeline.Load(context.Background()))
	_, _ = f.pipeline.Create(context.Background(), map[string]any{"name": "Ann"})
	_ = f.pipeline.Delete(context.Background(), 1)

	assert.Equal(t, []Op{OpList, OpCreate, OpDelete}, obs.ops)
	assert.NoError(t, obs.errs[0])
	assert.True(t, errors.Is(obs.errs[1], ErrInvalid))
	assert.NoError(t, obs.errs[2])
}

func TestLabel(t *testing.T) {
	tests := map[string]string{
		"name":              "Name",
		"expectedCloseDate": "Expected close date",
		"companyId":         "Company id",
		"":                  "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Label(in), in)
	}
}

package aiplan

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meltforce/liftcoach/internal/apperr"
	"github.com/meltforce/liftcoach/internal/models"
)

type stubGenerator struct {
	plan  Plan
	err   error
	calls int
}

func (g *stubGenerator) Generate(context.Context, Context) (Plan, error) {
	g.calls++
	return g.plan, g.err
}

type stubLimiter struct {
	status models.RateLimitStatus
	err    error
}

func (l stubLimiter) CheckAndIncrement(context.Context, int) (models.RateLimitStatus, error) {
	return l.status, l.err
}

var catalog = []models.ExerciseDescriptor{
	{ID: "back-squat", Name: "Back Squat", Type: models.ExerciseWeight},
	{ID: "plank", Name: "Plank", Type: models.ExerciseDuration},
}

var allowed = stubLimiter{status: models.RateLimitStatus{Allowed: true, Remaining: 4, Limit: 5}}

func TestGenerateFillsNames(t *testing.T) {
	gen := &stubGenerator{plan: Plan{
		Exercises:        []PlannedExercise{{ExerciseID: "back-squat", Sets: 4, Reps: "5"}, {ExerciseID: "plank", Name: "Front Plank"}},
		OverallReasoning: "legs are rested",
	}}
	svc := NewService(gen, allowed, nil)

	p, err := svc.Generate(context.Background(), 1, Context{Catalog: catalog})
	require.NoError(t, err)
	require.Len(t, p.Exercises, 2)
	assert.Equal(t, "Back Squat", p.Exercises[0].Name)
	assert.Equal(t, "Front Plank", p.Exercises[1].Name)
	assert.Equal(t, "legs are rested", p.OverallReasoning)
}

func TestUnknownExerciseRejectsWholePlan(t *testing.T) {
	gen := &stubGenerator{plan: Plan{Exercises: []PlannedExercise{{ExerciseID: "back-squat"}, {ExerciseID: "made-up"}}}}
	svc := NewService(gen, allowed, nil)

	p, err := svc.Generate(context.Background(), 1, Context{Catalog: catalog})
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.Empty(t, p.Exercises)
}

func TestEmptyPlanIsInvalid(t *testing.T) {
	svc := NewService(&stubGenerator{}, allowed, nil)
	_, err := svc.Generate(context.Background(), 1, Context{Catalog: catalog})
	assert.True(t, apperr.IsValidation(err))
}

func TestOverQuotaSkipsGenerator(t *testing.T) {
	reset := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	gen := &stubGenerator{}
	svc := NewService(gen, stubLimiter{status: models.RateLimitStatus{Limit: 5, ResetAt: reset}}, nil)

	_, err := svc.Generate(context.Background(), 1, Context{Catalog: catalog})
	var rl *apperr.RateLimitExceededError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 0, rl.Remaining)
	assert.Equal(t, 5, rl.Limit)
	assert.Equal(t, reset, rl.ResetAt)
	assert.Equal(t, 0, gen.calls)
}

func TestLimiterFailure(t *testing.T) {
	gen := &stubGenerator{}
	svc := NewService(gen, stubLimiter{err: errors.New("db down")}, nil)
	_, err := svc.Generate(context.Background(), 1, Context{Catalog: catalog})
	require.Error(t, err)
	assert.Equal(t, 0, gen.calls)
}

func TestGeneratorFailureIsExternal(t *testing.T) {
	svc := NewService(&stubGenerator{err: errors.New("timeout")}, allowed, nil)
	_, err := svc.Generate(context.Background(), 1, Context{Catalog: catalog})
	var ext *apperr.ExternalServiceError
	require.ErrorAs(t, err, &ext)
	assert.Equal(t, "plan generator", ext.Service)
}

func TestHTTPGenerator(t *testing.T) {
	var got Context
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(Plan{
			Exercises:        []PlannedExercise{{ExerciseID: "plank", Sets: 3, Reps: "45s", RestSeconds: 60}},
			OverallReasoning: "core day",
		})
	}))
	defer srv.Close()

	g := NewHTTPGenerator(srv.URL, "secret", time.Second)
	p, err := g.Generate(context.Background(), Context{FreeText: "short on time", Catalog: catalog})
	require.NoError(t, err)
	assert.Equal(t, "short on time", got.FreeText)
	assert.Len(t, got.Catalog, 2)
	require.Len(t, p.Exercises, 1)
	assert.Equal(t, 60, p.Exercises[0].RestSeconds)
}

func TestHTTPGeneratorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHTTPGenerator(srv.URL, "", time.Second).Generate(context.Background(), Context{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
